package texts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/kinobot/internal/domain"
)

func TestUserInfoTextPlaceholders(t *testing.T) {
	u := domain.User{ID: 42, JoinedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	out := UserInfoText(u)

	assert.Contains(t, out, "<code>42</code>")
	assert.Contains(t, out, "📱 Telefon: Yo'q")
	assert.Contains(t, out, "👤 Ism: Yo'q")
	assert.Contains(t, out, "@Yo'q")
	assert.Contains(t, out, "✅ Faol")

	phone := "+998901234567"
	name := "<Ali>"
	u.Phone = &phone
	u.FullName = &name
	u.Blocked = true
	out = UserInfoText(u)
	assert.Contains(t, out, phone)
	assert.Contains(t, out, "&lt;Ali&gt;", "names are HTML-escaped")
	assert.Contains(t, out, "🚫 Bloklangan")
}

func TestMoviesListTextTruncation(t *testing.T) {
	var movies []domain.Movie
	for i := 0; i < 25; i++ {
		movies = append(movies, domain.Movie{Code: "k", Title: "T"})
	}
	out := MoviesListText(movies)
	assert.Contains(t, out, "... va yana 5 ta kino")
	assert.Equal(t, 20, strings.Count(out, "📝 Kod:"))

	out = MoviesListText(movies[:3])
	assert.NotContains(t, out, "va yana")
}

func TestBroadcastTexts(t *testing.T) {
	assert.Equal(t, "📤 Yuborilmoqda...\n\n✅ Yuborildi: 10\n❌ Xato: 2", BroadcastProgress(10, 2))
	done := BroadcastDone(23, 16, 7)
	assert.Contains(t, done, "Jami: 23")
	assert.Contains(t, done, "Yuborildi: 16")
	assert.Contains(t, done, "Xato: 7")
}

func TestStatsText(t *testing.T) {
	s := domain.Stats{TotalUsers: 5, ActiveUsers: 4, BlockedUsers: 1, TotalMovies: 2, GateChannels: 3}
	out := StatsText(s)
	assert.NotContains(t, out, "Bloklangan")

	detailed := DetailedStatsText(s)
	assert.Contains(t, detailed, "🚫 Bloklangan: 1")
}
