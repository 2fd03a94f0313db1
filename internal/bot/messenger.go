package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/kinobot/internal/dialog"
)

// ErrNotBound is returned when an outbound call happens before the bot
// instance is attached.
var ErrNotBound = errors.New("bot: messenger not bound")

// Messenger adapts the Telegram transport to the surfaces the domain
// packages consume: dialog output, gate membership lookups and
// broadcast forwarding. It is created during wiring and bound to the
// live bot in the start hook, before any update is processed.
type Messenger struct {
	bot atomic.Pointer[tele.Bot]
}

// NewMessenger returns an unbound messenger.
func NewMessenger() *Messenger {
	return &Messenger{}
}

// Bind attaches the live bot instance.
func (m *Messenger) Bind(b *tele.Bot) {
	m.bot.Store(b)
}

func (m *Messenger) client() (*tele.Bot, error) {
	if b := m.bot.Load(); b != nil {
		return b, nil
	}
	return nil, ErrNotBound
}

// SendText delivers plain text with the keyboard the dialog asked for.
func (m *Messenger) SendText(userID int64, text string, kb dialog.Keyboard) error {
	return m.send(userID, text, kb, "")
}

// SendHTML delivers HTML-formatted text.
func (m *Messenger) SendHTML(userID int64, text string, kb dialog.Keyboard) error {
	return m.send(userID, text, kb, tele.ModeHTML)
}

func (m *Messenger) send(userID int64, text string, kb dialog.Keyboard, mode string) error {
	b, err := m.client()
	if err != nil {
		return err
	}
	opts := &tele.SendOptions{ParseMode: mode, ReplyMarkup: markupFor(kb)}
	_, err = b.Send(tele.ChatID(userID), text, opts)
	return err
}

// SendEditable sends a plain message and returns a reference usable
// with Edit.
func (m *Messenger) SendEditable(userID int64, text string) (dialog.Ref, error) {
	b, err := m.client()
	if err != nil {
		return nil, err
	}
	return b.Send(tele.ChatID(userID), text)
}

// Edit replaces the text of a previously sent message.
func (m *Messenger) Edit(ref dialog.Ref, text string) error {
	b, err := m.client()
	if err != nil {
		return err
	}
	msg, ok := ref.(tele.Editable)
	if !ok {
		return fmt.Errorf("bot: ref %T is not editable", ref)
	}
	_, err = b.Edit(msg, text)
	return err
}

// Forward copies the source message to the target user verbatim, so any
// media type survives as sent.
func (m *Messenger) Forward(_ context.Context, userID int64, msg any) error {
	b, err := m.client()
	if err != nil {
		return err
	}
	src, ok := msg.(tele.Editable)
	if !ok {
		return fmt.Errorf("bot: message %T cannot be copied", msg)
	}
	_, err = b.Copy(tele.ChatID(userID), src)
	return err
}

// MemberStatus reports the user's membership role in a channel.
func (m *Messenger) MemberStatus(_ context.Context, channelID string, userID int64) (string, error) {
	b, err := m.client()
	if err != nil {
		return "", err
	}
	chat, err := m.chatFor(b, channelID)
	if err != nil {
		return "", err
	}
	member, err := b.ChatMemberOf(chat, tele.ChatID(userID))
	if err != nil {
		return "", err
	}
	return string(member.Role), nil
}

// ResolveChannel looks a channel up by numeric id or @username and
// returns its canonical id plus display handle.
func (m *Messenger) ResolveChannel(_ context.Context, query string) (string, string, error) {
	b, err := m.client()
	if err != nil {
		return "", "", err
	}
	chat, err := m.chatFor(b, query)
	if err != nil {
		return "", "", err
	}
	id := strconv.FormatInt(chat.ID, 10)
	handle := id
	if chat.Username != "" {
		handle = "@" + chat.Username
	}
	return id, handle, nil
}

func (m *Messenger) chatFor(b *tele.Bot, ref string) (*tele.Chat, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return b.ChatByID(id)
	}
	return b.ChatByUsername(ref)
}
