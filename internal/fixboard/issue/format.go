package issue

import "time"

// FormatDueDate renders an optional date for tables and exports, with "-"
// standing in for a missing value.
func FormatDueDate(d *Date) string {
	if d == nil {
		return "-"
	}
	return d.Display()
}

// FormatTimestamp renders a backend timestamp as its calendar day.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006/01/02")
}

// Truncate shortens a description for one-line previews.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
