package humanizer

import (
	"regexp"
	"strings"
)

// WhatsApp renders *x* as bold and has no headers, so LLM-style markdown is
// rewritten into the gateway's lightweight dialect before chunking.
var (
	boldStarsRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderscoreRe = regexp.MustCompile(`__(.+?)__`)
	headerRe         = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	// The optional leading star keeps already-bold tokens from being
	// wrapped twice.
	currencyRe = regexp.MustCompile(`\*?R\$\s?[\d.,]+`)
	percentRe  = regexp.MustCompile(`\*?\d+(?:[.,]\d+)?\s?%`)
	bulletRe         = regexp.MustCompile(`(?m)^\s*-\s+`)
)

// FormatForWhatsApp normalizes markdown to the gateway's style and bolds the
// money and percentage tokens a sales pitch leans on.
func FormatForWhatsApp(text string) string {
	text = boldStarsRe.ReplaceAllString(text, "*$1*")
	text = boldUnderscoreRe.ReplaceAllString(text, "*$1*")
	text = headerRe.ReplaceAllString(text, "")
	text = bulletRe.ReplaceAllString(text, "• ")

	text = currencyRe.ReplaceAllStringFunc(text, boldToken)
	text = percentRe.ReplaceAllStringFunc(text, boldToken)
	return strings.TrimSpace(text)
}

func boldToken(token string) string {
	if strings.HasPrefix(token, "*") {
		return token
	}
	return "*" + token + "*"
}
