package format

import "strings"

const mdV2Specials = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes the MarkdownV2 special characters so that
// user-supplied text (point details, locations) can be embedded safely.
func EscapeMarkdownV2(text string) string {
	if text == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 128 && strings.ContainsRune(mdV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
