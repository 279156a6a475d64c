package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/masking"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

const sendTimeout = 10 * time.Second

// ConnectionState mirrors the gateway's reported link state.
type ConnectionState string

// Connection states reported via connection.update.
const (
	ConnectionOpen       ConnectionState = "open"
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionClosed     ConnectionState = "close"
)

// Sender is the outbound surface the rest of the engine depends on.
type Sender interface {
	SendText(ctx context.Context, phone, text string) error
	SendMedia(ctx context.Context, phone string, kind models.MediaType, mediaURL, caption string) error
	SendTyping(ctx context.Context, phone string, d time.Duration) error
}

// Gateway is the HTTP client for the WhatsApp gateway instance.
type Gateway struct {
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
	logger   *slog.Logger
}

// NewGateway creates a Gateway from config.
func NewGateway(cfg *config.GatewayConfig, logger *slog.Logger) *Gateway {
	return &Gateway{
		baseURL:  cfg.URL,
		apiKey:   cfg.Key,
		instance: cfg.InstanceName,
		client:   &http.Client{Timeout: sendTimeout},
		logger:   logger.With("component", "whatsapp_gateway"),
	}
}

// SendText delivers a plain text message.
func (g *Gateway) SendText(ctx context.Context, phone, text string) error {
	payload := map[string]any{
		"number": ToJID(phone),
		"text":   text,
	}
	if err := g.post(ctx, "/message/sendText/"+g.instance, payload, nil); err != nil {
		return fmt.Errorf("failed to send text to %s: %w", masking.Phone(phone), err)
	}
	g.logger.Debug("Sent text message", "phone", masking.Phone(phone), "chars", len(text))
	return nil
}

// SendMedia delivers a media message by URL with an optional caption.
func (g *Gateway) SendMedia(ctx context.Context, phone string, kind models.MediaType, mediaURL, caption string) error {
	payload := map[string]any{
		"number":    ToJID(phone),
		"mediatype": string(kind),
		"media":     mediaURL,
		"caption":   caption,
	}
	if err := g.post(ctx, "/message/sendMedia/"+g.instance, payload, nil); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", kind, masking.Phone(phone), err)
	}
	return nil
}

// SendTyping shows the typing indicator for roughly d. The gateway takes the
// duration in milliseconds and clears the indicator itself.
func (g *Gateway) SendTyping(ctx context.Context, phone string, d time.Duration) error {
	payload := map[string]any{
		"number":   ToJID(phone),
		"delay":    d.Milliseconds(),
		"presence": "composing",
	}
	if err := g.post(ctx, "/chat/sendPresence/"+g.instance, payload, nil); err != nil {
		return fmt.Errorf("failed to send typing indicator to %s: %w", masking.Phone(phone), err)
	}
	return nil
}

// ConnectionStatus asks the gateway for the current link state.
func (g *Gateway) ConnectionStatus(ctx context.Context) (ConnectionState, error) {
	var out struct {
		Instance struct {
			State string `json:"state"`
		} `json:"instance"`
	}
	if err := g.get(ctx, "/instance/connectionState/"+g.instance, &out); err != nil {
		return ConnectionClosed, fmt.Errorf("failed to get connection state: %w", err)
	}
	return ConnectionState(out.Instance.State), nil
}

func (g *Gateway) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *Gateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return g.do(req, out)
}

func (g *Gateway) do(req *http.Request, out any) error {
	req.Header.Set("apikey", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, snippet)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
