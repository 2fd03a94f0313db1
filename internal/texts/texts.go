// Package texts holds every user-visible string of the bot in one place,
// plus the render helpers that build the HTML views shown in the admin panel.
package texts

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/kinobot/core/telegram/format"
	"github.com/m3rciful/kinobot/internal/domain"
)

// CancelText is the reply-keyboard token that aborts any dialog step.
const CancelText = "❌ Bekor qilish"

// Reply-keyboard button labels.
const (
	BtnSendPhone     = "📱 Telefon raqamni yuborish"
	BtnRequestMovie  = "🎬 Kino kodi yuborish"
	BtnInfo          = "ℹ️ Ma'lumot"
	BtnContact       = "📞 Aloqa"
	BtnAddMovie      = "➕ Kino qo'shish"
	BtnDeleteMovie   = "🗑 Kino o'chirish"
	BtnBroadcast     = "📢 Reklama yuborish"
	BtnSendMessage   = "✉️ Habar yuborish"
	BtnStats         = "📊 Statistika"
	BtnUsers         = "👥 Foydalanuvchilar"
	BtnChannels      = "📺 Kanallar boshqaruvi"
	BtnMovieList     = "🎬 Kinolar ro'yxati"
	BtnLogout        = "🚪 Admin paneldan chiqish"
	BtnBack          = "◀️ Ortga qaytish"
	BtnBlockUser     = "🚫 Foydalanuvchini bloklash"
	BtnUnblockUser   = "✅ Blokdan chiqarish"
	BtnUserInfo      = "🔍 Foydalanuvchi ma'lumoti"
	BtnAllUsers      = "📋 Barcha userlar"
	BtnAddChannel    = "➕ Yangi kanal qo'shish"
	BtnDeleteChannel = "🗑 Kanalni o'chirish"
	BtnChannelList   = "📋 Kanallar ro'yxati"
	BtnRefresh       = "🔄 Kanallarni yangilash"
)

// Inline button labels and callback keys.
const (
	BtnCheckSubscription = "✅ A'zolikni tekshirish"
	CallbackCheckSub     = "check_subscription"
)

// Gate and onboarding.
const (
	Blocked        = "❌ Siz bloklangansiz. Botdan foydalana olmaysiz."
	AskPhone       = "📱 Botdan foydalanish uchun telefon raqamingizni yuboring."
	PhoneSaved     = "✅ Telefon raqamingiz saqlandi!\n\n🎬 Endi kino kodini yuboring."
	AskSubscribe   = "📢 Botdan foydalanish uchun quyidagi kanallarga a'zo bo'ling:"
	SubConfirmed   = "✅ Barcha kanallarga a'zo bo'lgansiz!\n\n🎬 Kino kodini yuboring."
	SubStillMissed = "❌ Siz hali barcha kanallarga a'zo bo'lmagansiz!"
	NeedStart      = "📱 Iltimos avval /start buyrug'ini yuboring."
)

// Greet is the first message for a brand-new user.
func Greet(fullName string) string {
	return fmt.Sprintf("👋 Assalomu alaykum, %s!\n\n"+AskPhone, fullName)
}

// Welcome greets a fully admitted user.
func Welcome(fullName string) string {
	return fmt.Sprintf("🎬 Xush kelibsiz, %s!\n\nKino kodini yuboring va kinoni oling.", fullName)
}

// Admin session.
const (
	AskPassword        = "🔐 Admin paneliga kirish uchun parolni kiriting:"
	WrongPassword      = "❌ Parol noto'g'ri. Qaytadan urinib ko'ring:"
	AdminWelcome       = "✅ Xush kelibsiz, Admin!"
	LoggedOut          = "👋 Admin paneldan chiqdingiz."
	NotAdmin           = "❌ Admin huquqi yo'q. Avval /admin buyrug'i bilan kirishingiz kerak."
	AllSessionsCleared = "✅ Barcha admin sessiyalari yakunlandi."
)

// Dialog prompts and results.
const (
	Cancelled = "❌ Bekor qilindi."
	MainMenu  = "Asosiy menyu:"

	AskMovieCode       = "🎬 Kino kodini kiriting:"
	AskMovieTitle      = "📝 Kino nomini kiriting:"
	AskMovieFile       = "🎥 Kino faylini yuboring (video):"
	NotVideo           = "❌ Iltimos, video fayl yuboring!"
	MovieCodeTaken     = "❌ Bu kod allaqachon mavjud!"
	AskDeleteMovieCode = "🗑 O'chirish uchun kino kodini kiriting:"
	MovieNotFound      = "❌ Bu kod bilan kino topilmadi!"

	AskBroadcast = "📢 Reklama xabarini yuboring (matn, rasm, video):\n\n" +
		"⚠️ Bu xabar barcha foydalanuvchilarga yuboriladi!"
	BroadcastBusy = "⏳ Reklama yuborish allaqachon davom etmoqda. Yakunlanishini kuting."

	AskTargetUserID = "👤 Foydalanuvchi ID sini kiriting:"
	AskMessage      = "✉️ Yubormoqchi bo'lgan xabaringizni yozing:"
	UserNotFound    = "❌ Bu foydalanuvchi topilmadi!"
	BadUserID       = "❌ Noto'g'ri ID! Faqat raqam kiriting."

	UsersMenu       = "👥 Foydalanuvchilarni boshqarish:"
	AskBlockUserID  = "👤 Bloklash uchun foydalanuvchi ID sini kiriting:"
	AskUnblockID    = "👤 Blokdan chiqish uchun foydalanuvchi ID sini kiriting:"
	YouWereBlocked  = "❌ Siz admin tomonidan bloklandingiz."
	YouWereUnlocked = "✅ Siz admin tomonidan blokdan chiqarildingiz."

	ChannelsMenu      = "📺 Kanallarni boshqarish:"
	AskChannel        = "📺 Kanal ID yoki username kiriting:\n\nMasalan: @mychannel yoki -1001234567890"
	ChannelTaken      = "❌ Bu kanal allaqachon qo'shilgan!"
	AskDeleteChannel  = "🗑 O'chirish uchun kanal ID kiriting:"
	NoChannels        = "📋 Hozircha majburiy kanallar yo'q."
	NoChannelsShort   = "📋 Hozircha kanallar yo'q."
	NoMovies          = "📋 Hozircha kinolar ro'yxati bo'sh."
	NoUsers           = "📋 Hozircha foydalanuvchilar yo'q."
	RefreshInProgress = "🔄 <b>Kanallar yangilanmoqda...</b>"
)

func MovieAdded(code, title string) string {
	return fmt.Sprintf("✅ Kino muvaffaqiyatli qo'shildi!\n\n📝 Kod: %s\n🎬 Nom: %s", code, title)
}

func MovieDeleted(code, title string) string {
	return fmt.Sprintf("✅ Kino o'chirildi!\n\n📝 Kod: %s\n🎬 Nom: %s", code, title)
}

func MovieCaption(title string) string {
	return fmt.Sprintf("🎬 %s\n\n✅ Kino muvaffaqiyatli yuklab olindi!", title)
}

func MessageSent(targetID int64) string {
	return fmt.Sprintf("✅ Xabar foydalanuvchiga yuborildi! (ID: %d)", targetID)
}

func MessageFailed(err error) string {
	return fmt.Sprintf("❌ Xabar yuborishda xato: %v", err)
}

func UserBlocked(targetID int64) string {
	return fmt.Sprintf("✅ Foydalanuvchi bloklandi! (ID: %d)", targetID)
}

func UserUnblocked(targetID int64) string {
	return fmt.Sprintf("✅ Foydalanuvchi blokdan chiqarildi! (ID: %d)", targetID)
}

func ChannelAdded(channelID, handle string) string {
	return fmt.Sprintf("✅ Kanal muvaffaqiyatli qo'shildi!\n\n📺 ID: %s\n🔗 Username: %s", channelID, handle)
}

func ChannelDeleted(channelID string) string {
	return fmt.Sprintf("✅ Kanal o'chirildi! (ID: %s)", channelID)
}

func ChannelError(err error) string {
	return fmt.Sprintf("❌ Xato: %v\n\nKanal ID yoki username to'g'ri ekanligini tekshiring.", err)
}

// StatsText renders the short statistics block shown on panel entry.
func StatsText(s domain.Stats) string {
	return fmt.Sprintf(
		"📊 <b>Statistika</b>\n\n"+
			"👥 Jami foydalanuvchilar: %d\n"+
			"✅ Faol foydalanuvchilar: %d\n"+
			"🎬 Jami kinolar: %d\n"+
			"📢 Majburiy kanallar: %d",
		s.TotalUsers, s.ActiveUsers, s.TotalMovies, s.GateChannels)
}

// DetailedStatsText adds the blocked-users line.
func DetailedStatsText(s domain.Stats) string {
	return fmt.Sprintf(
		"📊 <b>Batafsil Statistika</b>\n\n"+
			"👥 Jami foydalanuvchilar: %d\n"+
			"✅ Faol foydalanuvchilar: %d\n"+
			"🚫 Bloklangan: %d\n"+
			"🎬 Jami kinolar: %d\n"+
			"📢 Majburiy kanallar: %d",
		s.TotalUsers, s.ActiveUsers, s.BlockedUsers, s.TotalMovies, s.GateChannels)
}

// UserInfoText renders the admin view of a single user. Missing optional
// fields show as "Yo'q" the same way the panel always displayed them.
func UserInfoText(u domain.User) string {
	status := "✅ Faol"
	if u.Blocked {
		status = "🚫 Bloklangan"
	}
	return fmt.Sprintf(
		"👤 <b>Foydalanuvchi ma'lumotlari</b>\n\n"+
			"🆔 ID: <code>%d</code>\n"+
			"📱 Telefon: %s\n"+
			"👤 Ism: %s\n"+
			"🔗 Username: @%s\n"+
			"📅 Qo'shilgan: %s\n"+
			"📊 Status: %s",
		u.ID,
		format.DerefString(u.Phone, "Yo'q"),
		format.EscapeHTML(format.DerefString(u.FullName, "Yo'q")),
		format.EscapeHTML(format.DerefString(u.Username, "Yo'q")),
		u.JoinedAt.Format(time.DateTime),
		status)
}

// movieListLimit caps how many movies a single panel message shows.
const movieListLimit = 20

// MoviesListText renders the movie catalog for the admin panel.
func MoviesListText(movies []domain.Movie) string {
	var b strings.Builder
	b.WriteString("🎬 <b>Kinolar ro'yxati:</b>\n\n")
	shown := movies
	if len(shown) > movieListLimit {
		shown = shown[:movieListLimit]
	}
	for i, m := range shown {
		fmt.Fprintf(&b, "%d. <b>%s</b>\n", i+1, format.EscapeHTML(m.Title))
		fmt.Fprintf(&b, "   📝 Kod: <code>%s</code>\n", format.EscapeHTML(m.Code))
		fmt.Fprintf(&b, "   📅 Qo'shilgan: %s\n\n", m.AddedAt.Format(time.DateTime))
	}
	if rest := len(movies) - movieListLimit; rest > 0 {
		fmt.Fprintf(&b, "\n... va yana %d ta kino", rest)
	}
	return b.String()
}

// UsersListText renders the most recent users plus a total line.
func UsersListText(users []domain.User, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>So'nggi %d ta foydalanuvchi:</b>\n\n", len(users))
	for i, u := range users {
		status := "✅"
		if u.Blocked {
			status = "🚫"
		}
		username := "Username yo'q"
		if u.Username != nil && *u.Username != "" {
			username = "@" + *u.Username
		}
		fmt.Fprintf(&b, "%d. %s <b>%s</b>\n", i+1, status, format.EscapeHTML(format.DerefString(u.FullName, "Yo'q")))
		fmt.Fprintf(&b, "   🆔 ID: <code>%d</code>\n", u.ID)
		fmt.Fprintf(&b, "   👤 %s\n", format.EscapeHTML(username))
		fmt.Fprintf(&b, "   📱 %s\n", format.DerefString(u.Phone, "Telefon yo'q"))
		fmt.Fprintf(&b, "   📅 %s\n\n", u.JoinedAt.Format(time.DateTime))
	}
	fmt.Fprintf(&b, "📊 Jami: %d ta foydalanuvchi", total)
	return b.String()
}

// ChannelsListText renders the gate channel roster.
func ChannelsListText(channels []domain.Channel) string {
	var b strings.Builder
	b.WriteString("📋 <b>Majburiy kanallar ro'yxati:</b>\n\n")
	for i, ch := range channels {
		fmt.Fprintf(&b, "%d. %s\n   ID: <code>%s</code>\n\n", i+1, format.EscapeHTML(ch.Handle), format.EscapeHTML(ch.ID))
	}
	return b.String()
}

// RefreshResultText renders the channel liveness report.
func RefreshResultText(active []domain.ChannelStatus, inactive []domain.Channel) string {
	var b strings.Builder
	b.WriteString("✅ <b>Kanallar yangilandi!</b>\n\n")
	if len(active) > 0 {
		b.WriteString("✅ <b>Faol kanallar:</b>\n")
		for i, ch := range active {
			fmt.Fprintf(&b, "%d. %s\n   %s\n\n", i+1, format.EscapeHTML(ch.Title), format.EscapeHTML(ch.Handle))
		}
	}
	if len(inactive) > 0 {
		b.WriteString("\n❌ <b>Nofaol kanallar:</b>\n")
		for i, ch := range inactive {
			fmt.Fprintf(&b, "%d. %s\n   ID: <code>%s</code>\n\n", i+1, format.EscapeHTML(ch.Handle), format.EscapeHTML(ch.ID))
		}
	}
	return b.String()
}

// BroadcastProgress renders the live delivery counter.
func BroadcastProgress(succeeded, failed int) string {
	return fmt.Sprintf("📤 Yuborilmoqda...\n\n✅ Yuborildi: %d\n❌ Xato: %d", succeeded, failed)
}

// BroadcastDone renders the final delivery report.
func BroadcastDone(total, succeeded, failed int) string {
	return fmt.Sprintf(
		"✅ Reklama yuborish yakunlandi!\n\n📊 Jami: %d\n✅ Yuborildi: %d\n❌ Xato: %d",
		total, succeeded, failed)
}

// InfoText is the static bot description shown from the main menu.
const InfoText = "ℹ️ <b>Bot haqida ma'lumot</b>\n\n" +
	"Bu bot orqali siz kinolar kodlari yordamida filmlarni yuklab olishingiz mumkin.\n\n" +
	"🎬 Kino kodini bizning kanallarda topishingiz mumkin.\n" +
	"📢 Kanallarimizga a'zo bo'ling va kinolardan bahramand bo'ling!\n\n" +
	"💡 Qanday foydalanish:\n" +
	"1. Kanallarimizga a'zo bo'ling\n" +
	"2. Kino kodini oling\n" +
	"3. Botga kodni yuboring\n" +
	"4. Kinoni yuklab oling!"

// ContactText is the static contact card shown from the main menu.
const ContactText = "📞 <b>Aloqa</b>\n\n" +
	"Savollar va takliflar uchun adminlarga yozing.\n\n" +
	"📝 Takliflar va shikoyatlar qabul qilinadi!"

const (
	SendCodePrompt = "🎬 Kino kodini yuboring:"
	CodeNotFound   = "❌ Bu kod bilan kino topilmadi. Kodni tekshirib qayta urinib ko'ring."
)

func MovieSendFailed(err error) string {
	return fmt.Sprintf("❌ Kinoni yuborishda xato: %v", err)
}
