package u_string

import "unicode"

// HasDigit reports whether s contains at least one decimal digit. Header
// values without one cannot hold a date or an identifier.
func HasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
