package tools

import (
	"context"
	"encoding/json"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/whatsapp"
)

func registerMediaTools(r *Registry, deps Deps) error {
	analyze := func(kind models.MediaType, mimeType string) InvokeFunc {
		return func(ctx context.Context, input json.RawMessage) (string, error) {
			var args struct {
				MessageID string `json:"message_id"`
				MediaURL  string `json:"media_url"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return "", err
			}
			data, err := deps.Downloader.DownloadMedia(ctx, &whatsapp.InboundMessage{
				ExternalID: args.MessageID,
				MediaType:  kind,
				MediaRef:   args.MediaURL,
			})
			if err != nil {
				return "", err
			}
			text, err := deps.Analyzer.Analyze(ctx, kind, mimeType, data)
			if err != nil {
				return "", err
			}
			return jsonResult(map[string]any{"text": text}), nil
		}
	}

	mediaSchema := objectSchema([]string{"message_id"}, map[string]any{
		"message_id": map[string]any{"type": "string", "description": "External id of the inbound media message"},
		"media_url":  map[string]any{"type": "string", "description": "Direct media URL, when known"},
	})

	return registerAll(r, []*Tool{
		{
			Name:        "analyze_image",
			Description: "Download an image the lead sent (usually an energy bill) and describe its contents, extracting values.",
			InputSchema: mediaSchema,
			Class:       SafeRetry,
			Invoke:      analyze(models.MediaImage, "image/jpeg"),
		},
		{
			Name:        "transcribe_audio",
			Description: "Download a voice message the lead sent and transcribe it to text.",
			InputSchema: mediaSchema,
			Class:       SafeRetry,
			Invoke:      analyze(models.MediaAudio, "audio/ogg"),
		},
		{
			Name:        "extract_document_text",
			Description: "Download a document the lead sent and extract its text.",
			InputSchema: mediaSchema,
			Class:       SafeRetry,
			Invoke:      analyze(models.MediaDocument, "application/pdf"),
		},
	})
}
