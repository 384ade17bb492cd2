package common

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// FormatBalance formats a balance amount with thousand separators
func FormatBalance(balance int64) string {
	if balance < 0 {
		return "-" + FormatBalance(-balance)
	}

	str := fmt.Sprintf("%d", balance)
	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}

// FormatSignedBalance formats an amount with an explicit sign
func FormatSignedBalance(amount int64) string {
	if amount > 0 {
		return "+" + FormatBalance(amount)
	}
	return FormatBalance(amount)
}

// FormatDelay renders a bonus delay as whole minutes or seconds
func FormatDelay(d time.Duration) string {
	switch {
	case d <= 0:
		return "a moment"
	case d < time.Minute:
		return plural(int64(d/time.Second), "second")
	case d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	default:
		return d.Round(time.Second).String()
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Escape makes user supplied text safe for HTML parse mode
func Escape(s string) string {
	return html.EscapeString(s)
}

// FormatTimestamp formats a time for admin views
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
