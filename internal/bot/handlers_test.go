package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/kinobot/internal/access"
	"github.com/m3rciful/kinobot/internal/domain"
	"github.com/m3rciful/kinobot/internal/session"
	"github.com/m3rciful/kinobot/internal/texts"
)

// teleCtx fakes the transport context: it records what was sent and
// satisfies only the methods the handlers touch.
type teleCtx struct {
	tele.Context

	sender *tele.User
	values map[string]any

	sent     []string
	sentOpts []*tele.SendOptions
}

func newTeleCtx(userID int64) *teleCtx {
	return &teleCtx{sender: &tele.User{ID: userID}, values: map[string]any{}}
}

func (c *teleCtx) Sender() *tele.User  { return c.sender }
func (c *teleCtx) Chat() *tele.Chat    { return &tele.Chat{ID: c.sender.ID} }
func (c *teleCtx) Update() tele.Update { return tele.Update{} }
func (c *teleCtx) Get(key string) any  { return c.values[key] }
func (c *teleCtx) Set(key string, v any) {
	c.values[key] = v
}

func (c *teleCtx) Send(what any, opts ...any) error {
	text, ok := what.(string)
	if !ok {
		return nil
	}
	c.sent = append(c.sent, text)
	var so *tele.SendOptions
	for _, o := range opts {
		if v, ok := o.(*tele.SendOptions); ok {
			so = v
		}
	}
	c.sentOpts = append(c.sentOpts, so)
	return nil
}

type fakeSessionStore struct {
	authed map[int64]bool
}

func (s *fakeSessionStore) SetAdminSession(_ context.Context, id int64) error {
	s.authed[id] = true
	return nil
}

func (s *fakeSessionStore) IsAdminAuthenticated(_ context.Context, id int64) (bool, error) {
	return s.authed[id], nil
}

func (s *fakeSessionStore) ClearAdminSession(_ context.Context, id int64) error {
	delete(s.authed, id)
	return nil
}

func (s *fakeSessionStore) ClearAllAdminSessions(_ context.Context) error {
	s.authed = map[int64]bool{}
	return nil
}

type fakeGateStore struct {
	blocked map[int64]bool
	known   map[int64]bool
}

func (s *fakeGateStore) IsBlocked(_ context.Context, id int64) (bool, error) {
	return s.blocked[id], nil
}

func (s *fakeGateStore) UserExists(_ context.Context, id int64) (bool, error) {
	return s.known[id], nil
}

func (s *fakeGateStore) CreateUser(_ context.Context, id int64, _, _ *string) (bool, error) {
	s.known[id] = true
	return true, nil
}

func (s *fakeGateStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	if !s.known[id] {
		return nil, nil
	}
	return &domain.User{ID: id}, nil
}

func (s *fakeGateStore) ListChannels(_ context.Context) ([]domain.Channel, error) {
	return nil, nil
}

type allMember struct{}

func (allMember) MemberStatus(_ context.Context, _ string, _ int64) (string, error) {
	return "member", nil
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLogoutRequiresOperator(t *testing.T) {
	auth := session.New(&fakeSessionStore{authed: map[int64]bool{}}, "2008", discardLog())
	h := NewHandlers(nil, nil, auth, nil, nil)

	c := newTeleCtx(7)
	require.NoError(t, h.logout(c))

	require.Len(t, c.sent, 1)
	assert.Equal(t, texts.NotAdmin, c.sent[0])
}

func TestStartBlockedUserLosesKeyboard(t *testing.T) {
	store := &fakeGateStore{blocked: map[int64]bool{7: true}, known: map[int64]bool{7: true}}
	gate := access.New(store, allMember{}, discardLog())
	h := NewHandlers(nil, gate, nil, nil, nil)

	c := newTeleCtx(7)
	require.NoError(t, h.Start(c))

	require.Len(t, c.sent, 1)
	assert.Equal(t, texts.Blocked, c.sent[0])
	require.NotNil(t, c.sentOpts[0])
	require.NotNil(t, c.sentOpts[0].ReplyMarkup)
	assert.True(t, c.sentOpts[0].ReplyMarkup.RemoveKeyboard)
}
