package parser

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/altafino/consultation-report/internal/utility/u_string"
)

// ErrNoDate is returned when a message carries no usable date header.
var ErrNoDate = errors.New("no date header")

// dateHeaderNames are consulted in order when Date is missing.
var dateHeaderNames = []string{
	"Date",
	"Sent",
	"Delivery-Date",
	"Resent-Date",
	"Original-Date",
	"X-Original-Date",
	"Received",
}

// dateFormats is the fallback list for dates net/mail refuses. Layouts
// without a zone parse as UTC.
var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05",
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 06 15:04:05 -0700",
	"Mon, 02 Jan 06 15:04:05 MST",
	"Mon Jan 02 15:04:05 2006",
	"Mon Jan 2 15:04:05 2006",
	"Jan 2 15:04:05 2006",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006. 1. 2. 15:04:05",
	"2006.01.02 15:04:05",
	"2006/01/02 15:04:05",
}

// ParseDate parses a date header value. RFC 5322 dates go through
// net/mail; anything else is tried against a list of layouts seen in the
// wild, first as is and then with a trailing "(zone name)" removed.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrNoDate
	}
	if !u_string.HasDigit(value) {
		return time.Time{}, fmt.Errorf("unrecognized date %q", value)
	}

	if t, err := mail.ParseDate(value); err == nil {
		return t, nil
	}

	candidates := []string{value}
	if i := strings.Index(value, "("); i > 0 {
		candidates = append(candidates, strings.TrimSpace(value[:i]))
	}

	for _, candidate := range candidates {
		for _, format := range dateFormats {
			if t, err := time.Parse(format, candidate); err == nil {
				return t, nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// dateFromHeader walks dateHeaderNames and parses the first value present.
// For Received only the part after the last semicolon is a date.
func dateFromHeader(get func(string) string) (time.Time, string, error) {
	for _, name := range dateHeaderNames {
		value := get(name)
		if value == "" {
			continue
		}
		if name == "Received" {
			if i := strings.LastIndex(value, ";"); i >= 0 {
				value = value[i+1:]
			}
		}
		t, err := ParseDate(value)
		return t, name, err
	}
	return time.Time{}, "", ErrNoDate
}
