package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	active    map[int64]bool
	lookupErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{active: map[int64]bool{}}
}

func (s *fakeSessions) SetAdminSession(_ context.Context, id int64) error {
	s.active[id] = true
	return nil
}

func (s *fakeSessions) IsAdminAuthenticated(_ context.Context, id int64) (bool, error) {
	if s.lookupErr != nil {
		return false, s.lookupErr
	}
	return s.active[id], nil
}

func (s *fakeSessions) ClearAdminSession(_ context.Context, id int64) error {
	delete(s.active, id)
	return nil
}

func (s *fakeSessions) ClearAllAdminSessions(_ context.Context) error {
	s.active = map[int64]bool{}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthenticateSuccess(t *testing.T) {
	store := newFakeSessions()
	auth := New(store, "2008", testLogger())

	ok, err := auth.Authenticate(context.Background(), 7, "2008")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, auth.IsAuthenticated(context.Background(), 7))
	assert.EqualValues(t, 0, auth.FailedAttempts())
}

func TestAuthenticateWrongPassword(t *testing.T) {
	store := newFakeSessions()
	auth := New(store, "2008", testLogger())

	for _, guess := range []string{"", "2009", "20088", "200"} {
		ok, err := auth.Authenticate(context.Background(), 7, guess)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.EqualValues(t, 4, auth.FailedAttempts())
	assert.False(t, auth.IsAuthenticated(context.Background(), 7))

	// Failures never lock the user out of retrying.
	ok, err := auth.Authenticate(context.Background(), 7, "2008")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogout(t *testing.T) {
	store := newFakeSessions()
	auth := New(store, "2008", testLogger())

	_, err := auth.Authenticate(context.Background(), 7, "2008")
	require.NoError(t, err)
	require.NoError(t, auth.Logout(context.Background(), 7))
	assert.False(t, auth.IsAuthenticated(context.Background(), 7))
}

func TestLogoutAll(t *testing.T) {
	store := newFakeSessions()
	auth := New(store, "2008", testLogger())

	for _, id := range []int64{1, 2, 3} {
		_, err := auth.Authenticate(context.Background(), id, "2008")
		require.NoError(t, err)
	}
	require.NoError(t, auth.LogoutAll(context.Background()))
	for _, id := range []int64{1, 2, 3} {
		assert.False(t, auth.IsAuthenticated(context.Background(), id))
	}
}

func TestLookupErrorReadsAsUnauthenticated(t *testing.T) {
	store := newFakeSessions()
	store.active[7] = true
	store.lookupErr = errors.New("db down")
	auth := New(store, "2008", testLogger())

	assert.False(t, auth.IsAuthenticated(context.Background(), 7))
}
