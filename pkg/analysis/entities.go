package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// Entities holds the facts extracted from the inbound message history.
// Zero values mean "not found".
type Entities struct {
	Name         string   `json:"name,omitempty"`
	BillValue    float64  `json:"bill_value,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Objections   []string `json:"objections,omitempty"`
	Phones       []string `json:"phones,omitempty"`
	Emails       []string `json:"emails,omitempty"`
}

// Monetary sanity range; values outside are treated as noise (dates, meter
// readings, typos).
const (
	minBillValue = 50
	maxBillValue = 50000
)

var (
	nameRe = regexp.MustCompile(`(?i)(?:me chamo|meu nome é|meu nome e|pode me chamar de|aqui é o|aqui é a|sou o|sou a)\s+(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)?)`)

	// "R$ 4.500,00", "4500 reais", "450,50".
	currencyRe = regexp.MustCompile(`(?i)(?:r\$\s*([\d.,]+)|([\d.,]+)\s*(?:reais|real)\b)`)
	// Bare numbers only count in a billing context ("minha conta vem 4500").
	billContextRe = regexp.MustCompile(`(?i)(?:conta|fatura|luz|energia)[^\d]{0,40}([\d.,]+)`)

	phoneRe = regexp.MustCompile(`(?:\+?55\s?)?\(?\d{2}\)?\s?9?\d{4}[-\s]?\d{4}`)
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

var propertyKeywords = []struct {
	keyword string
	kind    string
}{
	{"apartamento", "apartamento"},
	{"apto", "apartamento"},
	{"condomínio", "condominio"},
	{"condominio", "condominio"},
	{"casa", "casa"},
	{"empresa", "empresa"},
	{"comércio", "comercio"},
	{"comercio", "comercio"},
	{"loja", "comercio"},
	{"galpão", "galpao"},
	{"galpao", "galpao"},
	{"indústria", "industria"},
	{"industria", "industria"},
	{"fazenda", "rural"},
	{"sítio", "rural"},
	{"sitio", "rural"},
}

// Objection catalogue. Ordered so the more specific pattern wins its label.
var objectionPatterns = []struct {
	pattern string
	label   string
}{
	{"muito caro", "preco"},
	{"tá caro", "preco"},
	{"ta caro", "preco"},
	{"não posso pagar", "preco"},
	{"nao posso pagar", "preco"},
	{"caro", "preco"},
	{"já tenho", "ja_possui"},
	{"ja tenho", "ja_possui"},
	{"golpe", "desconfianca"},
	{"não confio", "desconfianca"},
	{"nao confio", "desconfianca"},
	{"parece mentira", "desconfianca"},
	{"vou pensar", "adiamento"},
	{"depois eu vejo", "adiamento"},
	{"mais pra frente", "adiamento"},
	{"sem tempo", "adiamento"},
	{"não tenho interesse", "sem_interesse"},
	{"nao tenho interesse", "sem_interesse"},
}

// ExtractEntities runs the regex pass over inbound history, oldest first.
// Later matches win for scalar facts so corrections ("na verdade é 3800")
// override earlier statements.
func ExtractEntities(inbound []*models.Message) Entities {
	var e Entities
	seenPhones := map[string]bool{}
	seenEmails := map[string]bool{}
	seenObjections := map[string]bool{}

	for _, msg := range inbound {
		text := msg.Content
		lower := strings.ToLower(text)

		if m := nameRe.FindStringSubmatch(text); m != nil {
			e.Name = m[1]
		}
		if v, ok := extractMoney(text); ok {
			e.BillValue = v
		}
		for _, p := range propertyKeywords {
			if strings.Contains(lower, p.keyword) {
				e.PropertyType = p.kind
				break
			}
		}
		for _, obj := range objectionPatterns {
			if strings.Contains(lower, obj.pattern) && !seenObjections[obj.label] {
				seenObjections[obj.label] = true
				e.Objections = append(e.Objections, obj.label)
			}
		}
		for _, raw := range phoneRe.FindAllString(text, -1) {
			phone := digitsOnly(raw)
			if len(phone) >= 10 && !seenPhones[phone] {
				seenPhones[phone] = true
				e.Phones = append(e.Phones, phone)
			}
		}
		for _, email := range emailRe.FindAllString(text, -1) {
			email = strings.ToLower(email)
			if !seenEmails[email] {
				seenEmails[email] = true
				e.Emails = append(e.Emails, email)
			}
		}
	}
	return e
}

// extractMoney finds a plausible monthly bill value in one message.
func extractMoney(text string) (float64, bool) {
	candidates := currencyRe.FindAllStringSubmatch(text, -1)
	for _, m := range candidates {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, ok := parseBRLNumber(raw); ok {
			return v, true
		}
	}
	if m := billContextRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseBRLNumber(m[1]); ok {
			return v, true
		}
	}
	return 0, false
}

// parseBRLNumber parses "4.500,00", "4500", "450,50" into a float and
// applies the sanity range.
func parseBRLNumber(raw string) (float64, bool) {
	raw = strings.TrimRight(raw, ".,")
	if raw == "" {
		return 0, false
	}
	// Brazilian format: "." groups thousands, "," starts cents.
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	} else if parts := strings.Split(raw, "."); len(parts) > 1 && len(parts[len(parts)-1]) == 3 {
		raw = strings.ReplaceAll(raw, ".", "")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < minBillValue || v > maxBillValue {
		return 0, false
	}
	return v, true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
