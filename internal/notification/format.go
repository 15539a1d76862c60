package notification

import (
	"html"
	"net/url"
	"strconv"
	"strings"
)

// Escape Telegram HTML uchun
func Escape(s string) string {
	return html.EscapeString(s)
}

// FormatRub prints 4500 as "4 500 ₽".
func FormatRub(amount int64) string {
	return FormatAmount(amount) + " ₽"
}

// FormatAmount groups thousands with spaces.
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// TrackURL builds the track24 lookup link.
func TrackURL(number string) string {
	return "https://track24.ru/?code=" + url.QueryEscape(number)
}

// Truncate cuts s to max runes adding an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
