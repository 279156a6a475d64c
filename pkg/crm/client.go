// Package crm talks to the Kommo-style CRM REST API. Custom fields and
// pipeline stages are referenced by numeric ids which the client resolves by
// name on first use and caches for the process lifetime.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
)

const requestTimeout = 10 * time.Second

// ErrLeadNotFound is returned by SearchLeadByPhone when no lead matches.
var ErrLeadNotFound = errors.New("crm: lead not found")

// Lead is the CRM-side lead representation.
type Lead struct {
	ID           int               `json:"id,omitempty"`
	Name         string            `json:"name"`
	Price        int               `json:"price,omitempty"`
	CustomFields map[string]string `json:"-"`
	Tags         []string          `json:"-"`
}

// Client is the CRM REST client.
type Client struct {
	baseURL  string
	token    string
	pipeline string
	client   *http.Client
	logger   *slog.Logger

	mu       sync.Mutex
	fieldIDs map[string]int
	stageIDs map[string]int
}

// NewClient creates a CRM client from config.
func NewClient(cfg *config.CRMConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		pipeline: cfg.Pipeline,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger.With("component", "crm"),
	}
}

// SearchLeadByPhone looks up a lead through the contact search endpoint.
func (c *Client) SearchLeadByPhone(ctx context.Context, phone string) (*Lead, error) {
	var out struct {
		Embedded struct {
			Leads []struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"leads"`
		} `json:"_embedded"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v4/leads?query="+url.QueryEscape(phone), nil, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Embedded.Leads) == 0 {
		return nil, ErrLeadNotFound
	}
	first := out.Embedded.Leads[0]
	return &Lead{ID: first.ID, Name: first.Name}, nil
}

// CreateLead creates a lead and returns its CRM id. Callers needing
// idempotency probe SearchLeadByPhone first and upgrade to UpdateLead.
func (c *Client) CreateLead(ctx context.Context, lead *Lead) (int, error) {
	body, err := c.encodeLead(ctx, lead)
	if err != nil {
		return 0, err
	}
	var out struct {
		Embedded struct {
			Leads []struct {
				ID int `json:"id"`
			} `json:"leads"`
		} `json:"_embedded"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v4/leads", []any{body}, &out); err != nil {
		return 0, fmt.Errorf("failed to create lead: %w", err)
	}
	if len(out.Embedded.Leads) == 0 {
		return 0, errors.New("crm: create returned no lead")
	}
	return out.Embedded.Leads[0].ID, nil
}

// UpdateLead patches an existing lead.
func (c *Client) UpdateLead(ctx context.Context, lead *Lead) error {
	if lead.ID == 0 {
		return errors.New("crm: lead id is required for update")
	}
	body, err := c.encodeLead(ctx, lead)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/api/v4/leads/%d", lead.ID)
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("failed to update lead %d: %w", lead.ID, err)
	}
	return nil
}

// MoveStage moves a lead to the named pipeline stage.
func (c *Client) MoveStage(ctx context.Context, leadID int, stageName string) error {
	stageID, err := c.resolveStageID(ctx, stageName)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/api/v4/leads/%d", leadID)
	body := map[string]any{"status_id": stageID}
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("failed to move lead %d to %q: %w", leadID, stageName, err)
	}
	return nil
}

// AddNote attaches a text note to a lead.
func (c *Client) AddNote(ctx context.Context, leadID int, text string) error {
	path := fmt.Sprintf("/api/v4/leads/%d/notes", leadID)
	body := []any{map[string]any{
		"note_type": "common",
		"params":    map[string]any{"text": text},
	}}
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to add note to lead %d: %w", leadID, err)
	}
	return nil
}

// ScheduleActivity creates a follow-up task on a lead.
func (c *Client) ScheduleActivity(ctx context.Context, leadID int, text string, due time.Time) error {
	body := []any{map[string]any{
		"text":          text,
		"complete_till": due.Unix(),
		"entity_id":     leadID,
		"entity_type":   "leads",
		"task_type_id":  1,
	}}
	if err := c.do(ctx, http.MethodPost, "/api/v4/tasks", body, nil); err != nil {
		return fmt.Errorf("failed to schedule activity for lead %d: %w", leadID, err)
	}
	return nil
}

// encodeLead builds the wire shape, resolving custom field names to ids.
func (c *Client) encodeLead(ctx context.Context, lead *Lead) (map[string]any, error) {
	body := map[string]any{"name": lead.Name}
	if lead.Price > 0 {
		body["price"] = lead.Price
	}

	if len(lead.CustomFields) > 0 {
		var fields []map[string]any
		for name, value := range lead.CustomFields {
			id, err := c.resolveFieldID(ctx, name)
			if err != nil {
				return nil, err
			}
			fields = append(fields, map[string]any{
				"field_id": id,
				"values":   []map[string]any{{"value": value}},
			})
		}
		body["custom_fields_values"] = fields
	}
	if len(lead.Tags) > 0 {
		tags := make([]map[string]string, 0, len(lead.Tags))
		for _, tag := range lead.Tags {
			tags = append(tags, map[string]string{"name": tag})
		}
		body["_embedded"] = map[string]any{"tags": tags}
	}
	return body, nil
}

// resolveFieldID maps a custom-field name to its numeric id, fetching the
// catalogue once.
func (c *Client) resolveFieldID(ctx context.Context, name string) (int, error) {
	c.mu.Lock()
	cached := c.fieldIDs
	c.mu.Unlock()

	if cached == nil {
		var out struct {
			Embedded struct {
				CustomFields []struct {
					ID   int    `json:"id"`
					Name string `json:"name"`
				} `json:"custom_fields"`
			} `json:"_embedded"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/v4/leads/custom_fields", nil, &out); err != nil {
			return 0, fmt.Errorf("failed to fetch custom fields: %w", err)
		}
		cached = make(map[string]int, len(out.Embedded.CustomFields))
		for _, f := range out.Embedded.CustomFields {
			cached[f.Name] = f.ID
		}
		c.mu.Lock()
		c.fieldIDs = cached
		c.mu.Unlock()
	}

	id, ok := cached[name]
	if !ok {
		return 0, fmt.Errorf("crm: unknown custom field %q", name)
	}
	return id, nil
}

// resolveStageID maps a stage name within the configured pipeline to its id.
func (c *Client) resolveStageID(ctx context.Context, name string) (int, error) {
	c.mu.Lock()
	cached := c.stageIDs
	c.mu.Unlock()

	if cached == nil {
		var out struct {
			Embedded struct {
				Pipelines []struct {
					Name     string `json:"name"`
					Embedded struct {
						Statuses []struct {
							ID   int    `json:"id"`
							Name string `json:"name"`
						} `json:"statuses"`
					} `json:"_embedded"`
				} `json:"pipelines"`
			} `json:"_embedded"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/v4/leads/pipelines", nil, &out); err != nil {
			return 0, fmt.Errorf("failed to fetch pipelines: %w", err)
		}
		cached = make(map[string]int)
		for _, p := range out.Embedded.Pipelines {
			if c.pipeline != "" && p.Name != c.pipeline {
				continue
			}
			for _, s := range p.Embedded.Statuses {
				cached[s.Name] = s.ID
			}
		}
		c.mu.Lock()
		c.stageIDs = cached
		c.mu.Unlock()
	}

	id, ok := cached[name]
	if !ok {
		return 0, fmt.Errorf("crm: unknown pipeline stage %q", name)
	}
	return id, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("crm returned status %d: %s", resp.StatusCode, snippet)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
