package dialog

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/kinobot/internal/broadcast"
	"github.com/m3rciful/kinobot/internal/texts"
)

func (e *Engine) stepAdminPassword(ctx context.Context, req Request) error {
	ok, err := e.auth.Authenticate(ctx, req.UserID, req.Text)
	if err != nil {
		return err
	}
	if !ok {
		return e.msg.SendText(req.UserID, texts.WrongPassword, KbNone)
	}
	e.states.Clear(req.UserID)

	stats, err := e.store.Stats(ctx)
	if err != nil {
		return err
	}
	return e.msg.SendHTML(req.UserID, texts.AdminWelcome+"\n\n"+texts.StatsText(stats), KbAdminPanel)
}

func (e *Engine) stepAddMovieCode(_ context.Context, req Request) error {
	code := strings.TrimSpace(req.Text)
	if code == "" {
		return e.msg.SendText(req.UserID, texts.AskMovieCode, KbCancel)
	}
	e.states.SetTemp(req.UserID, keyMovieCode, code)
	e.states.SetState(req.UserID, StateAddMovieTitle)
	return e.msg.SendText(req.UserID, texts.AskMovieTitle, KbCancel)
}

func (e *Engine) stepAddMovieTitle(_ context.Context, req Request) error {
	title := strings.TrimSpace(req.Text)
	if title == "" {
		return e.msg.SendText(req.UserID, texts.AskMovieTitle, KbCancel)
	}
	e.states.SetTemp(req.UserID, keyMovieTitle, title)
	e.states.SetState(req.UserID, StateAddMovieFile)
	return e.msg.SendText(req.UserID, texts.AskMovieFile, KbCancel)
}

func (e *Engine) stepAddMovieFile(ctx context.Context, req Request) error {
	if req.VideoFileID == "" {
		return e.msg.SendText(req.UserID, texts.NotVideo, KbCancel)
	}
	code, _ := e.states.GetTempString(req.UserID, keyMovieCode)
	title, _ := e.states.GetTempString(req.UserID, keyMovieTitle)
	e.states.Clear(req.UserID)

	added, err := e.store.AddMovie(ctx, code, title, req.VideoFileID)
	if err != nil {
		return err
	}
	if !added {
		return e.msg.SendText(req.UserID, texts.MovieCodeTaken, KbAdminPanel)
	}
	e.log.Info("movie added", "code", code, "target_id", req.UserID)
	return e.msg.SendText(req.UserID, texts.MovieAdded(code, title), KbAdminPanel)
}

func (e *Engine) stepDeleteMovie(ctx context.Context, req Request) error {
	code := strings.TrimSpace(req.Text)
	e.states.Clear(req.UserID)

	movie, err := e.store.GetMovie(ctx, code)
	if err != nil {
		return err
	}
	if movie == nil {
		return e.msg.SendText(req.UserID, texts.MovieNotFound, KbAdminPanel)
	}
	if err := e.store.DeleteMovie(ctx, code); err != nil {
		return err
	}
	e.log.Info("movie deleted", "code", code, "target_id", req.UserID)
	return e.msg.SendText(req.UserID, texts.MovieDeleted(code, movie.Title), KbAdminPanel)
}

func (e *Engine) stepBroadcast(ctx context.Context, req Request) error {
	e.states.Clear(req.UserID)

	// No status message while another run is in flight, there would be
	// nothing to edit it into.
	if e.caster.Active() {
		return e.msg.SendText(req.UserID, texts.BroadcastBusy, KbAdminPanel)
	}

	ref, err := e.msg.SendEditable(req.UserID, texts.BroadcastProgress(0, 0))
	if err != nil {
		return err
	}

	_, err = e.caster.Run(ctx, req.Message, func(r broadcast.Report, done bool) {
		var text string
		if done {
			text = texts.BroadcastDone(r.Total, r.Succeeded, r.Failed)
		} else {
			text = texts.BroadcastProgress(r.Succeeded, r.Failed)
		}
		if err := e.msg.Edit(ref, text); err != nil {
			e.log.Error("broadcast status edit failed", "error", err)
		}
	})
	if errors.Is(err, broadcast.ErrActive) {
		// Lost the start race to another operator; the status message is
		// already out, so it becomes the notice.
		return e.msg.Edit(ref, texts.BroadcastBusy)
	}
	if err != nil {
		return err
	}
	return e.msg.SendText(req.UserID, texts.MainMenu, KbAdminPanel)
}

func (e *Engine) stepSendTarget(ctx context.Context, req Request) error {
	target, ok := parseTargetID(req.Text)
	if !ok {
		return e.msg.SendText(req.UserID, texts.BadUserID, KbCancel)
	}
	exists, err := e.store.UserExists(ctx, target)
	if err != nil {
		return err
	}
	if !exists {
		return e.msg.SendText(req.UserID, texts.UserNotFound, KbCancel)
	}
	e.states.SetTemp(req.UserID, keySendTarget, target)
	e.states.SetState(req.UserID, StateSendMessage)
	return e.msg.SendText(req.UserID, texts.AskMessage, KbCancel)
}

func (e *Engine) stepSendMessage(ctx context.Context, req Request) error {
	target, _ := e.states.GetTempInt64(req.UserID, keySendTarget)
	e.states.Clear(req.UserID)

	if err := e.msg.Forward(ctx, target, req.Message); err != nil {
		return e.msg.SendText(req.UserID, texts.MessageFailed(err), KbAdminPanel)
	}
	e.log.Info("direct message delivered", "target_id", target)
	return e.msg.SendText(req.UserID, texts.MessageSent(target), KbAdminPanel)
}

func (e *Engine) stepBlockUser(ctx context.Context, req Request) error {
	return e.setBlocked(ctx, req, true)
}

func (e *Engine) stepUnblockUser(ctx context.Context, req Request) error {
	return e.setBlocked(ctx, req, false)
}

func (e *Engine) setBlocked(ctx context.Context, req Request, blocked bool) error {
	target, ok := parseTargetID(req.Text)
	if !ok {
		return e.msg.SendText(req.UserID, texts.BadUserID, KbCancel)
	}
	exists, err := e.store.UserExists(ctx, target)
	if err != nil {
		return err
	}
	if !exists {
		return e.msg.SendText(req.UserID, texts.UserNotFound, KbCancel)
	}
	if err := e.store.SetBlocked(ctx, target, blocked); err != nil {
		return err
	}
	e.states.Clear(req.UserID)

	confirm := texts.UserUnblocked(target)
	notice := texts.YouWereUnlocked
	if blocked {
		confirm = texts.UserBlocked(target)
		notice = texts.YouWereBlocked
	}
	e.log.Info("user block state changed", "target_id", target, "blocked", blocked)

	// The target may have blocked the bot themselves; their copy of the
	// notice is best effort.
	if err := e.msg.SendText(target, notice, KbNone); err != nil {
		e.log.Warn("block notice not delivered", "target_id", target, "error", err)
	}
	return e.msg.SendText(req.UserID, confirm, KbUserMgmt)
}

func (e *Engine) stepUserInfo(ctx context.Context, req Request) error {
	target, ok := parseTargetID(req.Text)
	if !ok {
		return e.msg.SendText(req.UserID, texts.BadUserID, KbCancel)
	}
	e.states.Clear(req.UserID)

	user, err := e.store.GetUser(ctx, target)
	if err != nil {
		return err
	}
	if user == nil {
		return e.msg.SendText(req.UserID, texts.UserNotFound, KbUserMgmt)
	}
	return e.msg.SendHTML(req.UserID, texts.UserInfoText(*user), KbUserMgmt)
}

func (e *Engine) stepAddChannel(ctx context.Context, req Request) error {
	query := strings.TrimSpace(req.Text)
	e.states.Clear(req.UserID)

	id, handle, err := e.msg.ResolveChannel(ctx, query)
	if err != nil {
		return e.msg.SendText(req.UserID, texts.ChannelError(err), KbChannelMgmt)
	}
	added, err := e.store.AddChannel(ctx, id, handle)
	if err != nil {
		return err
	}
	if !added {
		return e.msg.SendText(req.UserID, texts.ChannelTaken, KbChannelMgmt)
	}
	e.log.Info("gate channel added", "channel_id", id)
	return e.msg.SendText(req.UserID, texts.ChannelAdded(id, handle), KbChannelMgmt)
}

func (e *Engine) stepDeleteChannel(ctx context.Context, req Request) error {
	id := strings.TrimSpace(req.Text)
	e.states.Clear(req.UserID)

	if err := e.store.DeleteChannel(ctx, id); err != nil {
		return err
	}
	e.log.Info("gate channel removed", "channel_id", id)
	return e.msg.SendText(req.UserID, texts.ChannelDeleted(id), KbChannelMgmt)
}
