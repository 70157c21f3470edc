package analytics

import "time"

// Short French month names, matching the locale of the default categories.
var monthAbbrev = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// MonthLabel returns the short month name used in trend output.
func MonthLabel(t time.Time) string {
	return monthAbbrev[t.Month()-1]
}
