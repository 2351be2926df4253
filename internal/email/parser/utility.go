package parser

import (
	"net/mail"
	"strings"
)

// ParseEmailAddress parses an email address string into name and address components
func ParseEmailAddress(emailStr string) (name, address string) {
	if emailStr == "" {
		return "", ""
	}

	addr, err := mail.ParseAddress(emailStr)
	if err != nil {
		// If parsing fails, try to extract just the email part
		if start := strings.Index(emailStr, "<"); start != -1 {
			if end := strings.Index(emailStr[start:], ">"); end != -1 {
				address = emailStr[start+1 : start+end]
				name = strings.Trim(strings.TrimSpace(emailStr[:start]), `"`)
				return
			}
		}

		// If still no success, just return the original string as address
		return "", strings.TrimSpace(emailStr)
	}

	return addr.Name, addr.Address
}

// splitAddressList parses a raw address header that net/mail rejected, one
// comma separated entry at a time.
func splitAddressList(value string) []*mail.Address {
	var out []*mail.Address
	for _, part := range strings.Split(value, ",") {
		name, address := ParseEmailAddress(strings.TrimSpace(part))
		if address == "" {
			continue
		}
		out = append(out, &mail.Address{Name: name, Address: address})
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
