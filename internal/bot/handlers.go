package bot

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/kinobot/core/logger"
	"github.com/m3rciful/kinobot/core/telegram/helpers"
	"github.com/m3rciful/kinobot/core/telegram/keyboard"
	"github.com/m3rciful/kinobot/internal/access"
	"github.com/m3rciful/kinobot/internal/dialog"
	"github.com/m3rciful/kinobot/internal/domain"
	"github.com/m3rciful/kinobot/internal/repository"
	"github.com/m3rciful/kinobot/internal/session"
	"github.com/m3rciful/kinobot/internal/texts"
)

// Handlers binds transport updates to the gate, dialogs and repository.
type Handlers struct {
	repo      *repository.Repository
	gate      *access.Gate
	auth      *session.Authority
	engine    *dialog.Engine
	messenger *Messenger
}

// NewHandlers wires the handler set.
func NewHandlers(repo *repository.Repository, gate *access.Gate, auth *session.Authority, engine *dialog.Engine, messenger *Messenger) *Handlers {
	return &Handlers{repo: repo, gate: gate, auth: auth, engine: engine, messenger: messenger}
}

func profileOf(c tele.Context) access.Profile {
	sender := c.Sender()
	if sender == nil {
		return access.Profile{}
	}
	name := strings.TrimSpace(strings.Join([]string{sender.FirstName, sender.LastName}, " "))
	return access.Profile{FullName: name, Username: sender.Username}
}

// Start runs the admission pipeline and answers according to its verdict.
func (h *Handlers) Start(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	profile := profileOf(c)

	out, err := h.gate.Admit(ctx, c.Sender().ID, profile)
	if err != nil {
		return err
	}
	switch out.Decision {
	case access.Blocked:
		return helpers.SendText(c, texts.Blocked,
			&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	case access.NeedsRegistration:
		return helpers.SendText(c, texts.Greet(profile.FullName),
			&tele.SendOptions{ReplyMarkup: phoneKeyboard()})
	case access.NeedsPhone:
		return helpers.SendText(c, texts.AskPhone,
			&tele.SendOptions{ReplyMarkup: phoneKeyboard()})
	case access.NeedsSubscription:
		return helpers.SendText(c, texts.AskSubscribe,
			&tele.SendOptions{ReplyMarkup: channelsKeyboard(out.Missing)})
	default:
		return helpers.SendText(c, texts.Welcome(profile.FullName),
			&tele.SendOptions{ReplyMarkup: mainMenu()})
	}
}

// Contact stores the shared phone number and finishes onboarding.
func (h *Handlers) Contact(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Contact == nil {
		return nil
	}
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	if err := h.repo.SetPhone(ctx, userID, msg.Contact.PhoneNumber); err != nil {
		return err
	}
	missing, err := h.gate.MissingChannels(ctx, userID)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return helpers.SendText(c, texts.AskSubscribe,
			&tele.SendOptions{ReplyMarkup: channelsKeyboard(missing)})
	}
	return helpers.SendText(c, texts.PhoneSaved,
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

// Admin opens the panel for an authenticated operator or starts the
// password prompt.
func (h *Handlers) Admin(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	if !h.auth.IsAuthenticated(ctx, userID) {
		return h.engine.BeginAdminAuth(userID)
	}
	stats, err := h.repo.Stats(ctx)
	if err != nil {
		return err
	}
	return helpers.SendHTML(c, texts.StatsText(stats), adminPanel())
}

// LogoutAll force-closes every operator session.
func (h *Handlers) LogoutAll(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	if err := h.auth.LogoutAll(ctx); err != nil {
		return err
	}
	return helpers.SendText(c, texts.AllSessionsCleared)
}

// CheckSubscription re-runs the membership check from the inline button.
func (h *Handlers) CheckSubscription(c tele.Context) error {
	ctx := helpers.BuildContext(c)

	missing, err := h.gate.MissingChannels(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return c.Respond(&tele.CallbackResponse{Text: texts.SubStillMissed, ShowAlert: true})
	}
	if err := c.Respond(); err != nil {
		logger.Gate.Warn("callback ack failed", "error", err)
	}
	if err := c.Delete(); err != nil {
		logger.Gate.Warn("gate prompt delete failed", "error", err)
	}
	return helpers.SendText(c, texts.SubConfirmed,
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

// MovieCode is the text fallback: any free text from an admitted user
// is treated as a movie code and exchanged for the stored video.
func (h *Handlers) MovieCode(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	out, err := h.gate.Review(ctx, userID)
	if err != nil {
		return err
	}
	switch out.Decision {
	case access.Blocked:
		return helpers.SendText(c, texts.Blocked,
			&tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	case access.NeedsRegistration:
		return helpers.SendText(c, texts.NeedStart)
	case access.NeedsPhone:
		return helpers.SendText(c, texts.AskPhone,
			&tele.SendOptions{ReplyMarkup: phoneKeyboard()})
	case access.NeedsSubscription:
		return helpers.SendText(c, texts.AskSubscribe,
			&tele.SendOptions{ReplyMarkup: channelsKeyboard(out.Missing)})
	}

	code := strings.TrimSpace(c.Text())
	if code == "" || strings.HasPrefix(code, "/") {
		return nil
	}
	movie, err := h.repo.GetMovie(ctx, code)
	if err != nil {
		return err
	}
	if movie == nil {
		return helpers.SendText(c, texts.CodeNotFound)
	}

	video := &tele.Video{
		File:    tele.File{FileID: movie.FileID},
		Caption: texts.MovieCaption(movie.Title),
	}
	if err := c.Send(video); err != nil {
		logger.TG.Error("movie delivery failed",
			"code", movie.Code, "target_id", userID, "error", err)
		return helpers.SendText(c, texts.MovieSendFailed(err))
	}
	logger.TG.Info("movie delivered", "code", movie.Code, "target_id", userID)
	return nil
}

// requireOperator answers the rejection text when the sender has no
// operator session.
func (h *Handlers) requireOperator(c tele.Context) (context.Context, bool) {
	ctx := helpers.BuildContext(c)
	if !h.auth.IsAuthenticated(ctx, c.Sender().ID) {
		return ctx, false
	}
	return ctx, true
}

func (h *Handlers) rejectNonOperator(c tele.Context) error {
	return helpers.SendText(c, texts.NotAdmin)
}

// Panel views backing the reply-keyboard buttons.

func (h *Handlers) showStats(c tele.Context) error {
	ctx, ok := h.requireOperator(c)
	if !ok {
		return h.rejectNonOperator(c)
	}
	stats, err := h.repo.Stats(ctx)
	if err != nil {
		return err
	}
	return helpers.SendHTML(c, texts.DetailedStatsText(stats))
}

func (h *Handlers) backToPanel(c tele.Context) error {
	ctx, ok := h.requireOperator(c)
	if !ok {
		return h.rejectNonOperator(c)
	}
	stats, err := h.repo.Stats(ctx)
	if err != nil {
		return err
	}
	return helpers.SendHTML(c, texts.StatsText(stats), adminPanel())
}

func (h *Handlers) logout(c tele.Context) error {
	ctx, ok := h.requireOperator(c)
	if !ok {
		return h.rejectNonOperator(c)
	}
	if err := h.auth.Logout(ctx, c.Sender().ID); err != nil {
		return err
	}
	return helpers.SendText(c, texts.LoggedOut,
		&tele.SendOptions{ReplyMarkup: mainMenu()})
}

func (h *Handlers) usersMenu(c tele.Context) error {
	if _, ok := h.requireOperator(c); !ok {
		return h.rejectNonOperator(c)
	}
	return helpers.SendText(c, texts.UsersMenu,
		&tele.SendOptions{ReplyMarkup: userManagement()})
}

func (h *Handlers) channelsMenu(c tele.Context) error {
	if _, ok := h.requireOperator(c); !ok {
		return h.rejectNonOperator(c)
	}
	return helpers.SendText(c, texts.ChannelsMenu,
		&tele.SendOptions{ReplyMarkup: channelsManagement()})
}

func (h *Handlers) movieList(c tele.Context) error {
	ctx, ok := h.requireOperator(c)
	if !ok {
		return h.rejectNonOperator(c)
	}
	movies, err := h.repo.ListMovies(ctx)
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		return helpers.SendText(c, texts.NoMovies)
	}
	return helpers.SendHTML(c, texts.MoviesListText(movies))
}

func (h *Handlers) userList(c tele.Context) error {
	ctx, ok := h.requireOperator(c)
	if !ok {
		return h.rejectNonOperator(c)
	}
	users, err := h.repo.RecentUsers(ctx, 15)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return helpers.SendText(c, texts.NoUsers)
	}
	total, err := h.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	return helpers.SendHTML(c, texts.UsersListText(users, total))
}

func (h *Handlers) channelList(c tele.Context) error {
	ctx, ok := h.requireOperator(c)
	if !ok {
		return h.rejectNonOperator(c)
	}
	channels, err := h.repo.ListChannels(ctx)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return helpers.SendText(c, texts.NoChannels)
	}
	return helpers.SendHTML(c, texts.ChannelsListText(channels))
}

// refreshChannels probes every gate channel and reports which are still
// reachable by the bot.
func (h *Handlers) refreshChannels(c tele.Context) error {
	ctx, ok := h.requireOperator(c)
	if !ok {
		return h.rejectNonOperator(c)
	}
	channels, err := h.repo.ListChannels(ctx)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return helpers.SendText(c, texts.NoChannelsShort)
	}

	status, err := c.Bot().Send(c.Chat(), texts.RefreshInProgress,
		&tele.SendOptions{ParseMode: tele.ModeHTML})
	if err != nil {
		return err
	}

	var active []domain.ChannelStatus
	var inactive []domain.Channel
	for _, ch := range channels {
		id, _, err := h.messenger.ResolveChannel(ctx, ch.ID)
		if err != nil {
			logger.TG.Warn("gate channel unreachable", "channel_id", ch.ID, "error", err)
			inactive = append(inactive, ch)
			continue
		}
		title := h.channelTitle(ctx, id)
		active = append(active, domain.ChannelStatus{Channel: ch, Title: title})
	}

	_, err = c.Bot().Edit(status, texts.RefreshResultText(active, inactive),
		&tele.SendOptions{ParseMode: tele.ModeHTML})
	return err
}

func (h *Handlers) channelTitle(_ context.Context, id string) string {
	b, err := h.messenger.client()
	if err != nil {
		return id
	}
	chat, err := h.messenger.chatFor(b, id)
	if err != nil || chat.Title == "" {
		return id
	}
	return chat.Title
}

func (h *Handlers) requestMovieCode(c tele.Context) error {
	return helpers.SendText(c, texts.SendCodePrompt)
}

func (h *Handlers) info(c tele.Context) error {
	return helpers.SendHTML(c, texts.InfoText)
}

func (h *Handlers) contactInfo(c tele.Context) error {
	return helpers.SendHTML(c, texts.ContactText)
}

// Dialog entry points; authorization happens inside the engine.

func (h *Handlers) startDialog(start func(context.Context, int64) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return start(helpers.BuildContext(c), c.Sender().ID)
	}
}
