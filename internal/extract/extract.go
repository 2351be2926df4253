// Package extract derives report fields from free-form email content.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Options controls field derivation.
type Options struct {
	// EarliestHour is the first hour a consultation may start at.
	EarliestHour int
	// Granularity rounds start minutes down to a multiple of this value;
	// zero keeps the exact minute.
	Granularity int
	// DurationMinutes is added to the start time to derive the end time.
	DurationMinutes int
	// MaxTextLength caps request and response text, counted in characters.
	MaxTextLength int
	// IdentifierLength is the digit count of an identifier; zero disables
	// identifier extraction.
	IdentifierLength int
	// Location converts timestamps before formatting. Nil keeps the zone
	// of the Date header.
	Location *time.Location
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		EarliestHour:     9,
		Granularity:      5,
		DurationMinutes:  30,
		MaxTextLength:    490,
		IdentifierLength: 8,
	}
}

// Window is a consultation slot derived from a response timestamp.
type Window struct {
	Date  string // YYYY-MM-DD
	Start string // HH:MM
	End   string // HH:MM
}

// TimeWindow derives the consultation date and slot from t.
func (o Options) TimeWindow(t time.Time) Window {
	if o.Location != nil {
		t = t.In(o.Location)
	}

	hour, minute := t.Hour(), t.Minute()
	if o.Granularity > 0 {
		minute -= minute % o.Granularity
	}
	if hour < o.EarliestHour {
		hour = o.EarliestHour
		minute = o.Granularity
	}

	start := hour*60 + minute
	end := (start + o.DurationMinutes) % (24 * 60)

	return Window{
		Date:  t.Format("2006-01-02"),
		Start: clock(start),
		End:   clock(end),
	}
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// StripMarkup removes anything that looks like an HTML tag.
func StripMarkup(s string) string {
	return markupPattern.ReplaceAllString(s, "")
}

// Truncate keeps at most n characters of s. No marker is appended.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// RequestText is the request body as it appears in the report.
func (o Options) RequestText(body string) string {
	return Truncate(strings.TrimSpace(StripMarkup(body)), o.MaxTextLength)
}

// ResponseText is the response body as it appears in the report.
func (o Options) ResponseText(body string) string {
	return Truncate(body, o.MaxTextLength)
}
