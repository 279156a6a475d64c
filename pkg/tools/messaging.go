package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

func registerMessagingTools(r *Registry, deps Deps) error {
	return registerAll(r, []*Tool{
		{
			Name:        "send_text",
			Description: "Send a plain WhatsApp text message to a phone number immediately, outside the normal reply flow.",
			InputSchema: objectSchema([]string{"phone", "text"}, map[string]any{
				"phone": map[string]any{"type": "string", "description": "Canonical phone, digits only with country code"},
				"text":  map[string]any{"type": "string"},
			}),
			Class: SideEffectOnce,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					Phone string `json:"phone"`
					Text  string `json:"text"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				if err := deps.Messenger.SendText(ctx, args.Phone, args.Text); err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"sent": true}), nil
			},
		},
		{
			Name:        "send_media",
			Description: "Send an image, audio, or document to a phone number by URL, with an optional caption.",
			InputSchema: objectSchema([]string{"phone", "kind", "url"}, map[string]any{
				"phone":   map[string]any{"type": "string"},
				"kind":    map[string]any{"type": "string", "enum": []string{"image", "audio", "document"}},
				"url":     map[string]any{"type": "string"},
				"caption": map[string]any{"type": "string"},
			}),
			Class: SideEffectOnce,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					Phone   string `json:"phone"`
					Kind    string `json:"kind"`
					URL     string `json:"url"`
					Caption string `json:"caption"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				err := deps.Messenger.SendMedia(ctx, args.Phone, models.MediaType(args.Kind), args.URL, args.Caption)
				if err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"sent": true}), nil
			},
		},
		{
			Name:        "send_typing",
			Description: "Show the typing indicator to a phone number for a few seconds.",
			InputSchema: objectSchema([]string{"phone"}, map[string]any{
				"phone":   map[string]any{"type": "string"},
				"seconds": map[string]any{"type": "integer", "description": "Defaults to 3"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					Phone   string `json:"phone"`
					Seconds int    `json:"seconds"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				if args.Seconds <= 0 {
					args.Seconds = 3
				}
				err := deps.Messenger.SendTyping(ctx, args.Phone, time.Duration(args.Seconds)*time.Second)
				if err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"ok": true}), nil
			},
		},
	})
}
