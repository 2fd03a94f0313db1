package dialog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/kinobot/core/telegram/state"
	"github.com/m3rciful/kinobot/internal/broadcast"
	"github.com/m3rciful/kinobot/internal/domain"
	"github.com/m3rciful/kinobot/internal/texts"
)

const operatorID int64 = 500

type sentMsg struct {
	UserID int64
	Text   string
	Kb     Keyboard
	HTML   bool
}

type fakeMessenger struct {
	sent     []sentMsg
	edits    []string
	forwards []int64

	failSendTo map[int64]error
	forwardErr error
	resolveID  string
	resolveHdl string
	resolveErr error
}

func (m *fakeMessenger) SendText(userID int64, text string, kb Keyboard) error {
	if err := m.failSendTo[userID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMsg{UserID: userID, Text: text, Kb: kb})
	return nil
}

func (m *fakeMessenger) SendHTML(userID int64, text string, kb Keyboard) error {
	if err := m.failSendTo[userID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMsg{UserID: userID, Text: text, Kb: kb, HTML: true})
	return nil
}

func (m *fakeMessenger) SendEditable(userID int64, text string) (Ref, error) {
	m.sent = append(m.sent, sentMsg{UserID: userID, Text: text})
	return "status-ref", nil
}

func (m *fakeMessenger) Edit(_ Ref, text string) error {
	m.edits = append(m.edits, text)
	return nil
}

func (m *fakeMessenger) Forward(_ context.Context, userID int64, _ any) error {
	if m.forwardErr != nil {
		return m.forwardErr
	}
	m.forwards = append(m.forwards, userID)
	return nil
}

func (m *fakeMessenger) ResolveChannel(_ context.Context, _ string) (string, string, error) {
	if m.resolveErr != nil {
		return "", "", m.resolveErr
	}
	return m.resolveID, m.resolveHdl, nil
}

func (m *fakeMessenger) last(t *testing.T) sentMsg {
	t.Helper()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type fakeDialogStore struct {
	movies   map[string]domain.Movie
	users    map[int64]*domain.User
	channels map[string]string
	stats    domain.Stats
}

func newFakeDialogStore() *fakeDialogStore {
	return &fakeDialogStore{
		movies:   map[string]domain.Movie{},
		users:    map[int64]*domain.User{},
		channels: map[string]string{},
	}
}

func (s *fakeDialogStore) AddMovie(_ context.Context, code, title, fileID string) (bool, error) {
	if _, ok := s.movies[code]; ok {
		return false, nil
	}
	s.movies[code] = domain.Movie{Code: code, Title: title, FileID: fileID}
	return true, nil
}

func (s *fakeDialogStore) GetMovie(_ context.Context, code string) (*domain.Movie, error) {
	if m, ok := s.movies[code]; ok {
		return &m, nil
	}
	return nil, nil
}

func (s *fakeDialogStore) DeleteMovie(_ context.Context, code string) error {
	delete(s.movies, code)
	return nil
}

func (s *fakeDialogStore) UserExists(_ context.Context, id int64) (bool, error) {
	_, ok := s.users[id]
	return ok, nil
}

func (s *fakeDialogStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	return s.users[id], nil
}

func (s *fakeDialogStore) SetBlocked(_ context.Context, id int64, blocked bool) error {
	if u, ok := s.users[id]; ok {
		u.Blocked = blocked
	}
	return nil
}

func (s *fakeDialogStore) AddChannel(_ context.Context, id, handle string) (bool, error) {
	if _, ok := s.channels[id]; ok {
		return false, nil
	}
	s.channels[id] = handle
	return true, nil
}

func (s *fakeDialogStore) DeleteChannel(_ context.Context, id string) error {
	delete(s.channels, id)
	return nil
}

func (s *fakeDialogStore) Stats(_ context.Context) (domain.Stats, error) {
	return s.stats, nil
}

type fakeAuth struct {
	password string
	active   map[int64]bool
}

func (a *fakeAuth) Authenticate(_ context.Context, userID int64, password string) (bool, error) {
	if password != a.password {
		return false, nil
	}
	a.active[userID] = true
	return true, nil
}

func (a *fakeAuth) IsAuthenticated(_ context.Context, userID int64) bool {
	return a.active[userID]
}

type fakeBroadcaster struct {
	report broadcast.Report
	err    error
	active bool
	ran    bool
}

func (b *fakeBroadcaster) Active() bool { return b.active }

func (b *fakeBroadcaster) Run(_ context.Context, _ any, progress func(broadcast.Report, bool)) (broadcast.Report, error) {
	if b.err != nil {
		return broadcast.Report{}, b.err
	}
	b.ran = true
	if progress != nil {
		progress(broadcast.Report{Total: b.report.Total, Succeeded: 10}, false)
		progress(b.report, true)
	}
	return b.report, nil
}

type fixture struct {
	engine *Engine
	states state.Manager
	store  *fakeDialogStore
	msg    *fakeMessenger
	auth   *fakeAuth
	caster *fakeBroadcaster
}

func newFixture() *fixture {
	f := &fixture{
		states: state.NewMemoryManager(),
		store:  newFakeDialogStore(),
		msg:    &fakeMessenger{},
		auth:   &fakeAuth{password: "2008", active: map[int64]bool{operatorID: true}},
		caster: &fakeBroadcaster{},
	}
	f.engine = New(f.states, f.store, f.msg, f.auth, f.caster,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func (f *fixture) say(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, f.engine.HandleActive(context.Background(), Request{UserID: operatorID, Text: text}))
}

func TestUnauthorizedEntryRefused(t *testing.T) {
	f := newFixture()
	f.auth.active = map[int64]bool{}

	require.NoError(t, f.engine.StartAddMovie(context.Background(), operatorID))
	assert.Equal(t, texts.NotAdmin, f.msg.last(t).Text)
	assert.False(t, f.engine.InProgress(operatorID))
}

func TestAdminAuthFlow(t *testing.T) {
	f := newFixture()
	f.auth.active = map[int64]bool{}
	f.store.stats = domain.Stats{TotalUsers: 3, ActiveUsers: 2, TotalMovies: 1}

	require.NoError(t, f.engine.BeginAdminAuth(operatorID))
	assert.True(t, f.engine.InProgress(operatorID))

	f.say(t, "wrong")
	assert.Equal(t, texts.WrongPassword, f.msg.last(t).Text)
	assert.True(t, f.engine.InProgress(operatorID), "wrong password keeps the prompt open")
	assert.False(t, f.auth.active[operatorID])

	f.say(t, "2008")
	last := f.msg.last(t)
	assert.True(t, last.HTML)
	assert.Contains(t, last.Text, texts.AdminWelcome)
	assert.Contains(t, last.Text, "Jami foydalanuvchilar: 3")
	assert.Equal(t, KbAdminPanel, last.Kb)
	assert.False(t, f.engine.InProgress(operatorID))
	assert.True(t, f.auth.active[operatorID])
}

func TestAddMovieFlow(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.engine.StartAddMovie(context.Background(), operatorID))
	assert.Equal(t, texts.AskMovieCode, f.msg.last(t).Text)
	assert.Equal(t, KbCancel, f.msg.last(t).Kb)

	f.say(t, "k100")
	assert.Equal(t, texts.AskMovieTitle, f.msg.last(t).Text)

	f.say(t, "Yaxshi kino")
	assert.Equal(t, texts.AskMovieFile, f.msg.last(t).Text)

	// Text instead of a video keeps the step open.
	f.say(t, "mana matn")
	assert.Equal(t, texts.NotVideo, f.msg.last(t).Text)
	assert.True(t, f.engine.InProgress(operatorID))

	require.NoError(t, f.engine.HandleActive(context.Background(),
		Request{UserID: operatorID, VideoFileID: "file-1"}))
	last := f.msg.last(t)
	assert.Contains(t, last.Text, "k100")
	assert.Contains(t, last.Text, "Yaxshi kino")
	assert.Equal(t, KbAdminPanel, last.Kb)
	assert.False(t, f.engine.InProgress(operatorID))

	m := f.store.movies["k100"]
	assert.Equal(t, "file-1", m.FileID)
}

func TestAddMovieDuplicateCode(t *testing.T) {
	f := newFixture()
	f.store.movies["k100"] = domain.Movie{Code: "k100", Title: "Old"}

	require.NoError(t, f.engine.StartAddMovie(context.Background(), operatorID))
	f.say(t, "k100")
	f.say(t, "New")
	require.NoError(t, f.engine.HandleActive(context.Background(),
		Request{UserID: operatorID, VideoFileID: "file-2"}))

	assert.Equal(t, texts.MovieCodeTaken, f.msg.last(t).Text)
	assert.False(t, f.engine.InProgress(operatorID))
	assert.Equal(t, "Old", f.store.movies["k100"].Title)
}

func TestCancelAbortsAnyStep(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.engine.StartAddMovie(context.Background(), operatorID))
	f.say(t, "k100")
	f.say(t, texts.CancelText)

	last := f.msg.last(t)
	assert.Equal(t, texts.Cancelled, last.Text)
	assert.Equal(t, KbAdminPanel, last.Kb)
	assert.False(t, f.engine.InProgress(operatorID))

	// Even on the step that otherwise validates media.
	require.NoError(t, f.engine.StartAddMovie(context.Background(), operatorID))
	f.say(t, "k200")
	f.say(t, "Title")
	f.say(t, texts.CancelText)
	assert.Equal(t, texts.Cancelled, f.msg.last(t).Text)
	assert.False(t, f.engine.InProgress(operatorID))
	assert.NotContains(t, f.store.movies, "k200")
}

func TestCancelReturnsToOwningMenu(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.engine.StartBlockUser(context.Background(), operatorID))
	f.say(t, texts.CancelText)
	last := f.msg.last(t)
	assert.Equal(t, texts.MainMenu, last.Text)
	assert.Equal(t, KbUserMgmt, last.Kb)

	require.NoError(t, f.engine.StartAddChannel(context.Background(), operatorID))
	f.say(t, texts.CancelText)
	assert.Equal(t, KbChannelMgmt, f.msg.last(t).Kb)
}

func TestHandleActiveWithoutStateIsNoop(t *testing.T) {
	f := newFixture()
	f.say(t, "hech narsa")
	assert.Empty(t, f.msg.sent)
}

func TestDeleteMovie(t *testing.T) {
	f := newFixture()
	f.store.movies["k100"] = domain.Movie{Code: "k100", Title: "Eski kino"}

	require.NoError(t, f.engine.StartDeleteMovie(context.Background(), operatorID))
	f.say(t, "k100")
	assert.Contains(t, f.msg.last(t).Text, "Eski kino")
	assert.NotContains(t, f.store.movies, "k100")
	assert.False(t, f.engine.InProgress(operatorID))

	require.NoError(t, f.engine.StartDeleteMovie(context.Background(), operatorID))
	f.say(t, "k404")
	assert.Equal(t, texts.MovieNotFound, f.msg.last(t).Text)
	assert.False(t, f.engine.InProgress(operatorID))
}

func TestSendMessageFlow(t *testing.T) {
	f := newFixture()
	f.store.users[42] = &domain.User{ID: 42}

	require.NoError(t, f.engine.StartSendMessage(context.Background(), operatorID))

	f.say(t, "abc")
	assert.Equal(t, texts.BadUserID, f.msg.last(t).Text)
	assert.True(t, f.engine.InProgress(operatorID), "bad id keeps the prompt open")

	f.say(t, "99")
	assert.Equal(t, texts.UserNotFound, f.msg.last(t).Text)
	assert.True(t, f.engine.InProgress(operatorID))

	f.say(t, "42")
	assert.Equal(t, texts.AskMessage, f.msg.last(t).Text)

	f.say(t, "salom")
	assert.Equal(t, []int64{42}, f.msg.forwards)
	assert.Contains(t, f.msg.last(t).Text, "42")
	assert.False(t, f.engine.InProgress(operatorID))
}

func TestSendMessageDeliveryFailureReported(t *testing.T) {
	f := newFixture()
	f.store.users[42] = &domain.User{ID: 42}
	f.msg.forwardErr = errors.New("forbidden")

	require.NoError(t, f.engine.StartSendMessage(context.Background(), operatorID))
	f.say(t, "42")
	f.say(t, "salom")

	last := f.msg.last(t)
	assert.True(t, strings.HasPrefix(last.Text, "❌ Xabar yuborishda xato"))
	assert.Equal(t, KbAdminPanel, last.Kb)
	assert.False(t, f.engine.InProgress(operatorID))
}

func TestBlockUserNotifiesTarget(t *testing.T) {
	f := newFixture()
	f.store.users[42] = &domain.User{ID: 42}

	require.NoError(t, f.engine.StartBlockUser(context.Background(), operatorID))
	f.say(t, "42")

	assert.True(t, f.store.users[42].Blocked)
	last := f.msg.last(t)
	assert.Equal(t, texts.UserBlocked(42), last.Text)
	assert.Equal(t, KbUserMgmt, last.Kb)

	var notified bool
	for _, s := range f.msg.sent {
		if s.UserID == 42 && s.Text == texts.YouWereBlocked {
			notified = true
		}
	}
	assert.True(t, notified)
}

func TestBlockUserNoticeFailureSwallowed(t *testing.T) {
	f := newFixture()
	f.store.users[42] = &domain.User{ID: 42}
	f.msg.failSendTo = map[int64]error{42: errors.New("forbidden")}

	require.NoError(t, f.engine.StartBlockUser(context.Background(), operatorID))
	f.say(t, "42")

	assert.True(t, f.store.users[42].Blocked)
	assert.Equal(t, texts.UserBlocked(42), f.msg.last(t).Text)
}

func TestUnblockUser(t *testing.T) {
	f := newFixture()
	f.store.users[42] = &domain.User{ID: 42, Blocked: true}

	require.NoError(t, f.engine.StartUnblockUser(context.Background(), operatorID))
	f.say(t, "42")

	assert.False(t, f.store.users[42].Blocked)
	assert.Equal(t, texts.UserUnblocked(42), f.msg.last(t).Text)
}

func TestUserInfo(t *testing.T) {
	f := newFixture()
	f.store.users[42] = &domain.User{ID: 42}

	require.NoError(t, f.engine.StartUserInfo(context.Background(), operatorID))
	f.say(t, "42")

	last := f.msg.last(t)
	assert.True(t, last.HTML)
	assert.Contains(t, last.Text, "<code>42</code>")
	assert.Contains(t, last.Text, "Yo'q", "missing optional fields show the placeholder")
	assert.False(t, f.engine.InProgress(operatorID))

	require.NoError(t, f.engine.StartUserInfo(context.Background(), operatorID))
	f.say(t, "99")
	assert.Equal(t, texts.UserNotFound, f.msg.last(t).Text)
	assert.False(t, f.engine.InProgress(operatorID))
}

func TestAddChannel(t *testing.T) {
	f := newFixture()
	f.msg.resolveID = "-1001"
	f.msg.resolveHdl = "@mychannel"

	require.NoError(t, f.engine.StartAddChannel(context.Background(), operatorID))
	f.say(t, "@mychannel")

	last := f.msg.last(t)
	assert.Contains(t, last.Text, "-1001")
	assert.Contains(t, last.Text, "@mychannel")
	assert.Equal(t, "@mychannel", f.store.channels["-1001"])

	require.NoError(t, f.engine.StartAddChannel(context.Background(), operatorID))
	f.say(t, "@mychannel")
	assert.Equal(t, texts.ChannelTaken, f.msg.last(t).Text)
}

func TestAddChannelResolveFailure(t *testing.T) {
	f := newFixture()
	f.msg.resolveErr = errors.New("chat not found")

	require.NoError(t, f.engine.StartAddChannel(context.Background(), operatorID))
	f.say(t, "@nosuch")

	assert.True(t, strings.HasPrefix(f.msg.last(t).Text, "❌ Xato"))
	assert.Empty(t, f.store.channels)
	assert.False(t, f.engine.InProgress(operatorID))
}

func TestDeleteChannelConfirmsEvenWhenAbsent(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.engine.StartDeleteChannel(context.Background(), operatorID))
	f.say(t, "-1009")

	assert.Equal(t, texts.ChannelDeleted("-1009"), f.msg.last(t).Text)
	assert.False(t, f.engine.InProgress(operatorID))
}

func TestBroadcastFlow(t *testing.T) {
	f := newFixture()
	f.caster.report = broadcast.Report{Total: 23, Succeeded: 16, Failed: 7}

	require.NoError(t, f.engine.StartBroadcast(context.Background(), operatorID))
	assert.Equal(t, texts.AskBroadcast, f.msg.last(t).Text)

	require.NoError(t, f.engine.HandleActive(context.Background(),
		Request{UserID: operatorID, Text: "reklama", Message: "msg"}))

	assert.True(t, f.caster.ran)
	require.Len(t, f.msg.edits, 2)
	assert.Equal(t, texts.BroadcastProgress(10, 0), f.msg.edits[0])
	assert.Equal(t, texts.BroadcastDone(23, 16, 7), f.msg.edits[1])

	last := f.msg.last(t)
	assert.Equal(t, texts.MainMenu, last.Text)
	assert.Equal(t, KbAdminPanel, last.Kb)
	assert.False(t, f.engine.InProgress(operatorID))
}

func TestBroadcastBusy(t *testing.T) {
	f := newFixture()
	f.caster.active = true

	require.NoError(t, f.engine.StartBroadcast(context.Background(), operatorID))
	require.NoError(t, f.engine.HandleActive(context.Background(),
		Request{UserID: operatorID, Text: "reklama", Message: "msg"}))

	last := f.msg.last(t)
	assert.Equal(t, texts.BroadcastBusy, last.Text)
	assert.Equal(t, KbAdminPanel, last.Kb)
	assert.False(t, f.engine.InProgress(operatorID))

	// The busy path must not leave a status message behind.
	for _, s := range f.msg.sent {
		assert.NotEqual(t, texts.BroadcastProgress(0, 0), s.Text)
	}
	assert.Empty(t, f.msg.edits)
}

func TestBroadcastBusyRaceReusesStatusMessage(t *testing.T) {
	f := newFixture()
	f.caster.err = fmt.Errorf("wrapped: %w", broadcast.ErrActive)

	require.NoError(t, f.engine.StartBroadcast(context.Background(), operatorID))
	require.NoError(t, f.engine.HandleActive(context.Background(),
		Request{UserID: operatorID, Text: "reklama", Message: "msg"}))

	assert.Equal(t, []string{texts.BroadcastBusy}, f.msg.edits)
	assert.False(t, f.engine.InProgress(operatorID))
}

// stallMessenger blocks one outbound send mid-step so a second event for
// the same user can be raced against the first.
type stallMessenger struct {
	*fakeMessenger

	mu       sync.Mutex
	stallOn  string
	entered  chan struct{}
	release  chan struct{}
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (m *stallMessenger) SendText(userID int64, text string, kb Keyboard) error {
	if m.inFlight.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.inFlight.Add(-1)

	if text == m.stallOn {
		close(m.entered)
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fakeMessenger.SendText(userID, text, kb)
}

func TestEventsForOneUserSerialized(t *testing.T) {
	f := newFixture()
	sm := &stallMessenger{
		fakeMessenger: f.msg,
		stallOn:       texts.AskMovieTitle,
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	f.engine.msg = sm

	require.NoError(t, f.engine.StartAddMovie(context.Background(), operatorID))

	first := make(chan error, 1)
	second := make(chan error, 1)
	go func() {
		first <- f.engine.HandleActive(context.Background(),
			Request{UserID: operatorID, Text: "k100"})
	}()
	<-sm.entered

	// The code step is still mid-flight; this text must not be consumed
	// as the title until it finishes.
	go func() {
		second <- f.engine.HandleActive(context.Background(),
			Request{UserID: operatorID, Text: "Yaxshi kino"})
	}()
	select {
	case err := <-second:
		t.Fatalf("second event handled while the first was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(sm.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.False(t, sm.overlap.Load(), "steps for one user ran concurrently")
	title, ok := f.states.GetTempString(operatorID, keyMovieTitle)
	require.True(t, ok)
	assert.Equal(t, "Yaxshi kino", title)
	assert.Equal(t, StateAddMovieFile, f.states.GetState(operatorID))
}
