// Package masking redacts personal data before it reaches logs.
package masking

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`([A-Za-z0-9._%+\-])[A-Za-z0-9._%+\-]*(@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)

// Phone masks a canonical digits-only phone number for logging, keeping the
// country code and the first four subscriber digits.
// "5511999887766" → "5511*********".
func Phone(phone string) string {
	const visible = 4
	if len(phone) <= visible {
		return strings.Repeat("*", len(phone))
	}
	return phone[:visible] + strings.Repeat("*", len(phone)-visible)
}

// Email masks an email address, keeping the first character of the local part
// and the full domain. "alice@example.com" → "a****@example.com".
func Email(email string) string {
	return emailRe.ReplaceAllString(email, "$1****$2")
}

// Text masks any email addresses embedded in free text. Used before logging
// message excerpts.
func Text(s string) string {
	return emailRe.ReplaceAllString(s, "$1****$2")
}
