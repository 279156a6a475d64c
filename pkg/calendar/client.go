// Package calendar is the meeting-booking collaborator: event CRUD plus
// free/busy lookup over a JSON REST API.
package calendar

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
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
)

const requestTimeout = 10 * time.Second

// ErrEventNotFound is returned for operations on a missing event.
var ErrEventNotFound = errors.New("calendar: event not found")

// Event is one calendar entry. Times are UTC.
type Event struct {
	ID         string    `json:"id,omitempty"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Attendees  []string  `json:"attendees,omitempty"`
	MeetingURL string    `json:"meeting_url,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// BusySlot is one occupied interval from a free/busy lookup.
type BusySlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Client is the calendar REST client.
type Client struct {
	baseURL    string
	token      string
	calendarID string
	client     *http.Client
	logger     *slog.Logger
}

// NewClient creates a calendar client from config.
func NewClient(cfg *config.CalendarConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		calendarID: cfg.CalendarID,
		client:     &http.Client{Timeout: requestTimeout},
		logger:     logger.With("component", "calendar"),
	}
}

// CreateEvent books a meeting and returns the created event, including the
// provider-assigned id and meeting URL.
func (c *Client) CreateEvent(ctx context.Context, event *Event) (*Event, error) {
	var created Event
	path := "/calendars/" + url.PathEscape(c.calendarID) + "/events"
	if err := c.do(ctx, http.MethodPost, path, event, &created); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return &created, nil
}

// UpdateEvent reschedules or edits an existing event.
func (c *Client) UpdateEvent(ctx context.Context, event *Event) error {
	if event.ID == "" {
		return errors.New("calendar: event id is required for update")
	}
	path := "/calendars/" + url.PathEscape(c.calendarID) + "/events/" + url.PathEscape(event.ID)
	if err := c.do(ctx, http.MethodPut, path, event, nil); err != nil {
		return fmt.Errorf("failed to update event %s: %w", event.ID, err)
	}
	return nil
}

// CancelEvent removes an event. Cancelling an already-removed event returns
// ErrEventNotFound.
func (c *Client) CancelEvent(ctx context.Context, eventID string) error {
	path := "/calendars/" + url.PathEscape(c.calendarID) + "/events/" + url.PathEscape(eventID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to cancel event %s: %w", eventID, err)
	}
	return nil
}

// FreeBusy returns the occupied slots between from and to.
func (c *Client) FreeBusy(ctx context.Context, from, to time.Time) ([]BusySlot, error) {
	path := fmt.Sprintf("/calendars/%s/freebusy?from=%s&to=%s",
		url.PathEscape(c.calendarID),
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)))

	var out struct {
		Busy []BusySlot `json:"busy"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch free/busy: %w", err)
	}
	return out.Busy, nil
}

// IsFree reports whether the interval has no overlapping busy slot.
func (c *Client) IsFree(ctx context.Context, start, end time.Time) (bool, error) {
	busy, err := c.FreeBusy(ctx, start, end)
	if err != nil {
		return false, err
	}
	for _, slot := range busy {
		if slot.Start.Before(end) && start.Before(slot.End) {
			return false, nil
		}
	}
	return true, nil
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

	if resp.StatusCode == http.StatusNotFound {
		return ErrEventNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("calendar returned status %d: %s", resp.StatusCode, snippet)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
