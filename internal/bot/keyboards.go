package bot

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/kinobot/core/telegram/keyboard"
	"github.com/m3rciful/kinobot/internal/dialog"
	"github.com/m3rciful/kinobot/internal/domain"
	"github.com/m3rciful/kinobot/internal/texts"
)

func mainMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{texts.BtnRequestMovie},
		[]string{texts.BtnInfo, texts.BtnContact},
	)
}

func adminPanel() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{texts.BtnAddMovie, texts.BtnDeleteMovie},
		[]string{texts.BtnBroadcast, texts.BtnSendMessage},
		[]string{texts.BtnStats, texts.BtnUsers},
		[]string{texts.BtnChannels, texts.BtnMovieList},
		[]string{texts.BtnLogout},
	)
}

func userManagement() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{texts.BtnBlockUser, texts.BtnUnblockUser},
		[]string{texts.BtnUserInfo, texts.BtnAllUsers},
		[]string{texts.BtnBack},
	)
}

func channelsManagement() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{texts.BtnAddChannel, texts.BtnDeleteChannel},
		[]string{texts.BtnChannelList, texts.BtnRefresh},
		[]string{texts.BtnBack},
	)
}

func cancelKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{texts.CancelText})
}

func phoneKeyboard() *tele.ReplyMarkup {
	return keyboard.ContactButton(texts.BtnSendPhone)
}

// channelsKeyboard lists each gate channel as a join link plus the
// membership re-check button.
func channelsKeyboard(channels []domain.Channel) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(channels)+1)
	for _, ch := range channels {
		buttons = append(buttons, keyboard.InlineBtn{
			Text: "📢 " + ch.Handle,
			URL:  "https://t.me/" + strings.TrimPrefix(ch.Handle, "@"),
		})
	}
	buttons = append(buttons, keyboard.InlineBtn{
		Text:   texts.BtnCheckSubscription,
		Unique: texts.CallbackCheckSub,
	})
	return keyboard.InlineButtons(buttons)
}

// markupFor maps a dialog keyboard tag to its transport markup.
func markupFor(kb dialog.Keyboard) *tele.ReplyMarkup {
	switch kb {
	case dialog.KbMainMenu:
		return mainMenu()
	case dialog.KbAdminPanel:
		return adminPanel()
	case dialog.KbUserMgmt:
		return userManagement()
	case dialog.KbChannelMgmt:
		return channelsManagement()
	case dialog.KbCancel:
		return cancelKeyboard()
	default:
		return nil
	}
}
