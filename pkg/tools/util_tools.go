package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

func registerUtilityTools(r *Registry, _ Deps) error {
	return registerAll(r, []*Tool{
		{
			Name:        "validate_phone",
			Description: "Normalize a phone number to the canonical digits-only form, or report that it is invalid.",
			InputSchema: objectSchema([]string{"phone"}, map[string]any{
				"phone": map[string]any{"type": "string"},
			}),
			Class: SafeRetry,
			Invoke: func(_ context.Context, input json.RawMessage) (string, error) {
				var args struct {
					Phone string `json:"phone"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				phone, err := whatsapp.CanonicalPhone(args.Phone)
				if err != nil {
					return jsonResult(map[string]any{"valid": false}), nil
				}
				return jsonResult(map[string]any{"valid": true, "phone": phone}), nil
			},
		},
		{
			Name:        "format_currency",
			Description: "Format a numeric value as Brazilian currency, e.g. 4500 becomes R$ 4.500,00.",
			InputSchema: objectSchema([]string{"value"}, map[string]any{
				"value": map[string]any{"type": "number"},
			}),
			Class: SafeRetry,
			Invoke: func(_ context.Context, input json.RawMessage) (string, error) {
				var args struct {
					Value float64 `json:"value"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"formatted": FormatBRL(args.Value)}), nil
			},
		},
	})
}

// FormatBRL renders a value in Brazilian currency notation.
func FormatBRL(value float64) string {
	neg := value < 0
	if neg {
		value = -value
	}
	cents := int64(value*100 + 0.5)
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	out := fmt.Sprintf("R$ %s,%02d", strings.Join(groups, "."), frac)
	if neg {
		out = "-" + out
	}
	return out
}
