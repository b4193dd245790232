package util

import (
	"strings"
	"time"
)

// dateTpl maps template placeholders to time layout elements. Longer
// placeholders come first so YYYY is not read as two YY.
var dateTpl = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"hh", "15",
	"mm", "04",
	"ss", "05",
)

// FormatDateTpl formats t using a template with placeholders.
//
// Supported placeholders:
// - YYYY: 4-digit year
// - YY: 2-digit year
// - MM: 2-digit month (01-12)
// - DD: 2-digit day (01-31)
// - hh: 2-digit hour (00-23)
// - mm: 2-digit minute (00-59)
// - ss: 2-digit second (00-59)
//
// The zero time formats as an empty string.
//
// Example:
//
//	t := time.Date(2023, 11, 10, 8, 5, 0, 0, time.UTC)
//	FormatDateTpl(t, "YYYY.MM.DD")       // "2023.11.10"
//	FormatDateTpl(t, "DD/MM/YYYY")       // "10/11/2023"
//	FormatDateTpl(t, "YYYY-MM-DD hh:mm") // "2023-11-10 08:05"
func FormatDateTpl(t time.Time, tpl string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTpl.Replace(tpl))
}
