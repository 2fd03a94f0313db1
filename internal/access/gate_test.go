package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/kinobot/internal/domain"
)

type fakeStore struct {
	users    map[int64]*domain.User
	channels []domain.Channel

	blockErr error
	listErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[int64]*domain.User{}}
}

func (s *fakeStore) IsBlocked(_ context.Context, id int64) (bool, error) {
	if s.blockErr != nil {
		return false, s.blockErr
	}
	u, ok := s.users[id]
	return ok && u.Blocked, nil
}

func (s *fakeStore) UserExists(_ context.Context, id int64) (bool, error) {
	_, ok := s.users[id]
	return ok, nil
}

func (s *fakeStore) CreateUser(_ context.Context, id int64, fullName, username *string) (bool, error) {
	if _, ok := s.users[id]; ok {
		return false, nil
	}
	s.users[id] = &domain.User{ID: id, FullName: fullName, Username: username}
	return true, nil
}

func (s *fakeStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	return s.users[id], nil
}

func (s *fakeStore) ListChannels(_ context.Context) ([]domain.Channel, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.channels, nil
}

type fakeMembership struct {
	statuses map[string]string
	errs     map[string]error
}

func (m *fakeMembership) MemberStatus(_ context.Context, channelID string, _ int64) (string, error) {
	if err := m.errs[channelID]; err != nil {
		return "", err
	}
	if st, ok := m.statuses[channelID]; ok {
		return st, nil
	}
	return "member", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func phoneUser(id int64) *domain.User {
	phone := "+998901234567"
	return &domain.User{ID: id, Phone: &phone}
}

func TestAdmitRegistersNewUser(t *testing.T) {
	store := newFakeStore()
	gate := New(store, &fakeMembership{}, testLogger())

	out, err := gate.Admit(context.Background(), 7, Profile{FullName: "Ali Valiyev", Username: "ali"})
	require.NoError(t, err)
	assert.Equal(t, NeedsRegistration, out.Decision)

	u := store.users[7]
	require.NotNil(t, u)
	require.NotNil(t, u.FullName)
	assert.Equal(t, "Ali Valiyev", *u.FullName)
	require.NotNil(t, u.Username)
	assert.Equal(t, "ali", *u.Username)
}

func TestAdmitEmptyProfileFieldsStayNil(t *testing.T) {
	store := newFakeStore()
	gate := New(store, &fakeMembership{}, testLogger())

	out, err := gate.Admit(context.Background(), 7, Profile{})
	require.NoError(t, err)
	assert.Equal(t, NeedsRegistration, out.Decision)

	u := store.users[7]
	require.NotNil(t, u)
	assert.Nil(t, u.FullName)
	assert.Nil(t, u.Username)
}

func TestAdmitNeedsPhone(t *testing.T) {
	store := newFakeStore()
	store.users[7] = &domain.User{ID: 7}
	gate := New(store, &fakeMembership{}, testLogger())

	out, err := gate.Admit(context.Background(), 7, Profile{})
	require.NoError(t, err)
	assert.Equal(t, NeedsPhone, out.Decision)
}

func TestAdmitBlockedWinsOverEverything(t *testing.T) {
	store := newFakeStore()
	store.users[7] = &domain.User{ID: 7, Blocked: true}
	store.channels = []domain.Channel{{ID: "-100", Handle: "@ch"}}
	gate := New(store, &fakeMembership{statuses: map[string]string{"-100": "left"}}, testLogger())

	out, err := gate.Admit(context.Background(), 7, Profile{})
	require.NoError(t, err)
	assert.Equal(t, Blocked, out.Decision)
	assert.Empty(t, out.Missing)
}

func TestAdmitNeedsSubscription(t *testing.T) {
	store := newFakeStore()
	store.users[7] = phoneUser(7)
	store.channels = []domain.Channel{
		{ID: "-100", Handle: "@first"},
		{ID: "-200", Handle: "@second"},
		{ID: "-300", Handle: "@third"},
	}
	membership := &fakeMembership{statuses: map[string]string{
		"-100": "member",
		"-200": "left",
		"-300": "kicked",
	}}
	gate := New(store, membership, testLogger())

	out, err := gate.Admit(context.Background(), 7, Profile{})
	require.NoError(t, err)
	assert.Equal(t, NeedsSubscription, out.Decision)
	require.Len(t, out.Missing, 2)
	assert.Equal(t, "@second", out.Missing[0].Handle)
	assert.Equal(t, "@third", out.Missing[1].Handle)
}

func TestAdmitProceedWithNoChannels(t *testing.T) {
	store := newFakeStore()
	store.users[7] = phoneUser(7)
	gate := New(store, &fakeMembership{}, testLogger())

	out, err := gate.Admit(context.Background(), 7, Profile{})
	require.NoError(t, err)
	assert.Equal(t, Proceed, out.Decision)
}

func TestMembershipLookupFailureDoesNotBlock(t *testing.T) {
	store := newFakeStore()
	store.users[7] = phoneUser(7)
	store.channels = []domain.Channel{
		{ID: "-100", Handle: "@broken"},
		{ID: "-200", Handle: "@fine"},
	}
	membership := &fakeMembership{
		errs:     map[string]error{"-100": errors.New("chat not found")},
		statuses: map[string]string{"-200": "member"},
	}
	gate := New(store, membership, testLogger())

	out, err := gate.Admit(context.Background(), 7, Profile{})
	require.NoError(t, err)
	assert.Equal(t, Proceed, out.Decision)
}

func TestAdmitIsIdempotentForRegisteredUser(t *testing.T) {
	store := newFakeStore()
	store.users[7] = phoneUser(7)
	gate := New(store, &fakeMembership{}, testLogger())

	for i := 0; i < 3; i++ {
		out, err := gate.Admit(context.Background(), 7, Profile{FullName: "Changed"})
		require.NoError(t, err)
		assert.Equal(t, Proceed, out.Decision)
	}
	// Re-admission never rewrites the stored profile.
	assert.Nil(t, store.users[7].FullName)
}

func TestReviewDoesNotRegister(t *testing.T) {
	store := newFakeStore()
	gate := New(store, &fakeMembership{}, testLogger())

	out, err := gate.Review(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, NeedsRegistration, out.Decision)
	assert.NotContains(t, store.users, int64(7))
}

func TestAdmitPropagatesStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.blockErr = errors.New("db down")
	gate := New(store, &fakeMembership{}, testLogger())

	_, err := gate.Admit(context.Background(), 7, Profile{})
	require.Error(t, err)

	store = newFakeStore()
	store.users[7] = phoneUser(7)
	store.listErr = errors.New("db down")
	gate = New(store, &fakeMembership{}, testLogger())

	_, err = gate.Admit(context.Background(), 7, Profile{})
	require.Error(t, err)
}
