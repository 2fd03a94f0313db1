package format

import "strings"

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes the characters Telegram's HTML parse mode treats as
// markup, so user-supplied values can be interpolated into <b>/<code> text.
func EscapeHTML(text string) string {
	return htmlReplacer.Replace(text)
}

// DerefString safely dereferences a *string and returns a default value if nil or empty.
func DerefString(s *string, defaultVal string) string {
	if s != nil && *s != "" {
		return *s
	}
	return defaultVal
}
