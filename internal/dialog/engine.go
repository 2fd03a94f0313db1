// Package dialog drives the multi-step operator conversations: movie
// management, broadcasts, direct messages, user moderation and gate
// channel maintenance. State lives in an in-process FSM keyed by user
// id; a restart drops unfinished dialogs, which is acceptable because
// every flow restarts cleanly from its menu button.
package dialog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/m3rciful/kinobot/core/telegram/state"
	"github.com/m3rciful/kinobot/internal/broadcast"
	"github.com/m3rciful/kinobot/internal/domain"
	"github.com/m3rciful/kinobot/internal/texts"
)

// Conversation states.
const (
	StateAdminPassword state.State = "admin.password"

	StateAddMovieCode  state.State = "movie.add.code"
	StateAddMovieTitle state.State = "movie.add.title"
	StateAddMovieFile  state.State = "movie.add.file"
	StateDeleteMovie   state.State = "movie.delete.code"

	StateBroadcast state.State = "broadcast.message"

	StateSendTarget  state.State = "send.target"
	StateSendMessage state.State = "send.message"

	StateBlockUser   state.State = "user.block"
	StateUnblockUser state.State = "user.unblock"
	StateUserInfo    state.State = "user.info"

	StateAddChannel    state.State = "channel.add"
	StateDeleteChannel state.State = "channel.delete"
)

// Temp-data keys carried between steps.
const (
	keyMovieCode  = "movie_code"
	keyMovieTitle = "movie_title"
	keySendTarget = "send_target"
)

// Request is a transport-neutral inbound update: the sender, the text
// (empty for media), the video file reference when a video arrived, and
// the raw transport message for verbatim forwarding.
type Request struct {
	UserID      int64
	Text        string
	VideoFileID string
	Message     any
}

// Keyboard names the reply keyboard attached to an outbound message.
// Rendering happens at the transport boundary.
type Keyboard int

const (
	KbNone Keyboard = iota
	KbMainMenu
	KbAdminPanel
	KbUserMgmt
	KbChannelMgmt
	KbCancel
)

// Ref identifies a previously sent message so it can be edited later.
type Ref = any

// Messenger is the outbound surface the engine talks through.
type Messenger interface {
	SendText(userID int64, text string, kb Keyboard) error
	SendHTML(userID int64, text string, kb Keyboard) error
	SendEditable(userID int64, text string) (Ref, error)
	Edit(ref Ref, text string) error
	Forward(ctx context.Context, userID int64, msg any) error
	ResolveChannel(ctx context.Context, query string) (id, handle string, err error)
}

// Store is the persistence surface the dialogs read and write.
type Store interface {
	AddMovie(ctx context.Context, code, title, fileID string) (bool, error)
	GetMovie(ctx context.Context, code string) (*domain.Movie, error)
	DeleteMovie(ctx context.Context, code string) error

	UserExists(ctx context.Context, id int64) (bool, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SetBlocked(ctx context.Context, id int64, blocked bool) error

	AddChannel(ctx context.Context, id, handle string) (bool, error)
	DeleteChannel(ctx context.Context, id string) error

	Stats(ctx context.Context) (domain.Stats, error)
}

// Authenticator gates dialog entry points that are operator-only.
type Authenticator interface {
	Authenticate(ctx context.Context, userID int64, password string) (bool, error)
	IsAuthenticated(ctx context.Context, userID int64) bool
}

// Broadcaster runs a throttled all-audience delivery.
type Broadcaster interface {
	Run(ctx context.Context, msg any, progress func(broadcast.Report, bool)) (broadcast.Report, error)
	Active() bool
}

type handlerFunc func(ctx context.Context, req Request) error

// Engine dispatches in-progress conversations and owns their steps.
type Engine struct {
	states   state.Manager
	store    Store
	msg      Messenger
	auth     Authenticator
	caster   Broadcaster
	log      *slog.Logger
	handlers map[state.State]handlerFunc

	// One mutex per user id. The transport dispatches each update on its
	// own goroutine; two updates from the same user must not run a step
	// concurrently, or the second one advances a dialog whose previous
	// step is still mid-flight.
	locks sync.Map
}

// New wires an engine over its collaborators.
func New(states state.Manager, store Store, msg Messenger, auth Authenticator, caster Broadcaster, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		states: states,
		store:  store,
		msg:    msg,
		auth:   auth,
		caster: caster,
		log:    log,
	}
	e.handlers = map[state.State]handlerFunc{
		StateAdminPassword: e.stepAdminPassword,
		StateAddMovieCode:  e.stepAddMovieCode,
		StateAddMovieTitle: e.stepAddMovieTitle,
		StateAddMovieFile:  e.stepAddMovieFile,
		StateDeleteMovie:   e.stepDeleteMovie,
		StateBroadcast:     e.stepBroadcast,
		StateSendTarget:    e.stepSendTarget,
		StateSendMessage:   e.stepSendMessage,
		StateBlockUser:     e.stepBlockUser,
		StateUnblockUser:   e.stepUnblockUser,
		StateUserInfo:      e.stepUserInfo,
		StateAddChannel:    e.stepAddChannel,
		StateDeleteChannel: e.stepDeleteChannel,
	}
	return e
}

// InProgress reports whether the user has an unfinished conversation.
func (e *Engine) InProgress(userID int64) bool {
	return e.states.InProgress(userID)
}

// lockUser serializes event handling per user id. Returns the unlock.
func (e *Engine) lockUser(userID int64) func() {
	v, _ := e.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// HandleActive advances the user's current conversation by one step.
// The cancel token is honored at every step, before any validation, and
// aborts the whole flow.
func (e *Engine) HandleActive(ctx context.Context, req Request) error {
	defer e.lockUser(req.UserID)()

	st := e.states.GetState(req.UserID)
	h, ok := e.handlers[st]
	if !ok {
		e.states.Clear(req.UserID)
		return nil
	}
	if req.Text == texts.CancelText {
		return e.cancel(req.UserID, st)
	}
	return h(ctx, req)
}

// cancel aborts the active flow and returns the user to the menu the
// flow was started from.
func (e *Engine) cancel(userID int64, st state.State) error {
	e.states.Clear(userID)
	e.log.Info("dialog cancelled", "target_id", userID, "state", string(st))
	switch st {
	case StateBlockUser, StateUnblockUser, StateUserInfo:
		return e.msg.SendText(userID, texts.MainMenu, KbUserMgmt)
	case StateAddChannel, StateDeleteChannel:
		return e.msg.SendText(userID, texts.MainMenu, KbChannelMgmt)
	default:
		return e.msg.SendText(userID, texts.Cancelled, KbAdminPanel)
	}
}

// begin moves the user into the first step of an operator flow. Entry
// is refused without an authenticated session.
func (e *Engine) begin(ctx context.Context, userID int64, st state.State, prompt string) error {
	defer e.lockUser(userID)()

	if !e.auth.IsAuthenticated(ctx, userID) {
		return e.msg.SendText(userID, texts.NotAdmin, KbNone)
	}
	e.states.SetState(userID, st)
	return e.msg.SendText(userID, prompt, KbCancel)
}

// BeginAdminAuth starts the password prompt. Unlike the operator flows
// it is open to anyone, that is the point of the prompt.
func (e *Engine) BeginAdminAuth(userID int64) error {
	defer e.lockUser(userID)()

	e.states.SetState(userID, StateAdminPassword)
	return e.msg.SendText(userID, texts.AskPassword, KbNone)
}

func (e *Engine) StartAddMovie(ctx context.Context, userID int64) error {
	return e.begin(ctx, userID, StateAddMovieCode, texts.AskMovieCode)
}

func (e *Engine) StartDeleteMovie(ctx context.Context, userID int64) error {
	return e.begin(ctx, userID, StateDeleteMovie, texts.AskDeleteMovieCode)
}

func (e *Engine) StartBroadcast(ctx context.Context, userID int64) error {
	return e.begin(ctx, userID, StateBroadcast, texts.AskBroadcast)
}

func (e *Engine) StartSendMessage(ctx context.Context, userID int64) error {
	return e.begin(ctx, userID, StateSendTarget, texts.AskTargetUserID)
}

func (e *Engine) StartBlockUser(ctx context.Context, userID int64) error {
	return e.begin(ctx, userID, StateBlockUser, texts.AskBlockUserID)
}

func (e *Engine) StartUnblockUser(ctx context.Context, userID int64) error {
	return e.begin(ctx, userID, StateUnblockUser, texts.AskUnblockID)
}

func (e *Engine) StartUserInfo(ctx context.Context, userID int64) error {
	return e.begin(ctx, userID, StateUserInfo, texts.AskTargetUserID)
}

func (e *Engine) StartAddChannel(ctx context.Context, userID int64) error {
	return e.begin(ctx, userID, StateAddChannel, texts.AskChannel)
}

func (e *Engine) StartDeleteChannel(ctx context.Context, userID int64) error {
	return e.begin(ctx, userID, StateDeleteChannel, texts.AskDeleteChannel)
}

// parseTargetID validates a user-id step input. The flow stays on the
// same step when the input is not a number.
func parseTargetID(text string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
