package whatsapp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// maxMediaBytes caps a single download; anything larger is rejected.
const maxMediaBytes = 25 << 20

// ErrMediaUnavailable means every download path for a media message failed.
var ErrMediaUnavailable = errors.New("whatsapp: media unavailable")

// MediaAnalyzer turns downloaded media into text the agent can reason over:
// audio transcription, bill OCR, document summaries.
type MediaAnalyzer interface {
	Analyze(ctx context.Context, kind models.MediaType, mimeType string, data []byte) (string, error)
}

// DownloadMedia fetches the bytes of an inbound media message, trying in
// order: the base64 payload carried on the event, the gateway's decrypt
// endpoint, then the raw URL (usually encrypted and only useful for media the
// gateway already re-hosted). Returns ErrMediaUnavailable when all fail.
func (g *Gateway) DownloadMedia(ctx context.Context, msg *InboundMessage) ([]byte, error) {
	if msg.MediaB64 != "" {
		data, err := base64.StdEncoding.DecodeString(msg.MediaB64)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		g.logger.Warn("Inline base64 payload was malformed, falling back", "message_id", msg.ExternalID)
	}

	data, err := g.fetchBase64ByID(ctx, msg.ExternalID)
	if err == nil {
		return data, nil
	}
	g.logger.Warn("Gateway base64 fetch failed, falling back to direct URL",
		"message_id", msg.ExternalID, "error", err)

	if msg.MediaRef != "" {
		data, err = g.fetchURL(ctx, msg.MediaRef)
		if err == nil {
			return data, nil
		}
		g.logger.Warn("Direct media URL fetch failed", "message_id", msg.ExternalID, "error", err)
	}
	return nil, ErrMediaUnavailable
}

func (g *Gateway) fetchBase64ByID(ctx context.Context, messageID string) ([]byte, error) {
	payload := map[string]any{
		"message": map[string]any{
			"key": map[string]any{"id": messageID},
		},
		"convertToMp4": false,
	}
	var out struct {
		Base64 string `json:"base64"`
	}
	if err := g.post(ctx, "/chat/getBase64FromMediaMessage/"+g.instance, payload, &out); err != nil {
		return nil, err
	}
	if out.Base64 == "" {
		return nil, errors.New("empty base64 in gateway response")
	}
	data, err := base64.StdEncoding.DecodeString(out.Base64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode gateway base64: %w", err)
	}
	return data, nil
}

func (g *Gateway) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media host returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxMediaBytes {
		return nil, errors.New("media exceeds size limit")
	}
	return data, nil
}
