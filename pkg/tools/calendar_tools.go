package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/calendar"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

func registerCalendarTools(r *Registry, deps Deps) error {
	return registerAll(r, []*Tool{
		{
			Name:        "check_availability",
			Description: "Check whether the sales team is free in a time interval.",
			InputSchema: objectSchema([]string{"start", "end"}, map[string]any{
				"start": map[string]any{"type": "string", "description": "RFC3339 timestamp"},
				"end":   map[string]any{"type": "string", "description": "RFC3339 timestamp"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				start, end, err := parseInterval(input)
				if err != nil {
					return "", err
				}
				free, err := deps.Calendar.IsFree(ctx, start, end)
				if err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"free": free}), nil
			},
		},
		{
			Name: "create_meeting",
			Description: "Book the qualification meeting for a lead. Marks the lead as scheduled " +
				"and cancels any pending follow-up so the lead stops receiving nudges.",
			InputSchema: objectSchema([]string{"lead_id", "title", "start", "end"}, map[string]any{
				"lead_id":   map[string]any{"type": "string"},
				"title":     map[string]any{"type": "string"},
				"start":     map[string]any{"type": "string", "description": "RFC3339 timestamp"},
				"end":       map[string]any{"type": "string", "description": "RFC3339 timestamp"},
				"attendees": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"notes":     map[string]any{"type": "string"},
			}),
			Class: SideEffectOnce,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					LeadID    string   `json:"lead_id"`
					Title     string   `json:"title"`
					Start     string   `json:"start"`
					End       string   `json:"end"`
					Attendees []string `json:"attendees"`
					Notes     string   `json:"notes"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				start, err := time.Parse(time.RFC3339, args.Start)
				if err != nil {
					return "", fmt.Errorf("invalid start: %w", err)
				}
				end, err := time.Parse(time.RFC3339, args.End)
				if err != nil {
					return "", fmt.Errorf("invalid end: %w", err)
				}

				created, err := deps.Calendar.CreateEvent(ctx, &calendar.Event{
					Title:     args.Title,
					Start:     start.UTC(),
					End:       end.UTC(),
					Attendees: args.Attendees,
					Notes:     args.Notes,
				})
				if err != nil {
					return "", err
				}

				// A booked meeting ends the nudge cadence.
				patch := models.Metadata{
					models.MetaMeetingScheduled: true,
					"meeting_event_id":          created.ID,
				}
				if err := deps.Leads.MergeMetadata(ctx, args.LeadID, patch); err != nil {
					deps.Logger.Error("Meeting booked but lead metadata update failed",
						"lead_id", args.LeadID, "event_id", created.ID, "error", err)
				}
				if err := deps.FollowUps.CancelPending(ctx, args.LeadID); err != nil {
					deps.Logger.Error("Meeting booked but follow-up cancellation failed",
						"lead_id", args.LeadID, "error", err)
				}
				return jsonResult(map[string]any{
					"event_id":    created.ID,
					"meeting_url": created.MeetingURL,
				}), nil
			},
		},
		{
			Name:        "update_meeting",
			Description: "Reschedule or retitle an existing meeting.",
			InputSchema: objectSchema([]string{"event_id", "start", "end"}, map[string]any{
				"event_id": map[string]any{"type": "string"},
				"title":    map[string]any{"type": "string"},
				"start":    map[string]any{"type": "string", "description": "RFC3339 timestamp"},
				"end":      map[string]any{"type": "string", "description": "RFC3339 timestamp"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					EventID string `json:"event_id"`
					Title   string `json:"title"`
					Start   string `json:"start"`
					End     string `json:"end"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				start, err := time.Parse(time.RFC3339, args.Start)
				if err != nil {
					return "", fmt.Errorf("invalid start: %w", err)
				}
				end, err := time.Parse(time.RFC3339, args.End)
				if err != nil {
					return "", fmt.Errorf("invalid end: %w", err)
				}
				err = deps.Calendar.UpdateEvent(ctx, &calendar.Event{
					ID:    args.EventID,
					Title: args.Title,
					Start: start.UTC(),
					End:   end.UTC(),
				})
				if err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"updated": true}), nil
			},
		},
		{
			Name:        "cancel_meeting",
			Description: "Cancel a previously booked meeting.",
			InputSchema: objectSchema([]string{"event_id"}, map[string]any{
				"event_id": map[string]any{"type": "string"},
				"lead_id":  map[string]any{"type": "string", "description": "When given, clears the lead's scheduled flag"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					EventID string `json:"event_id"`
					LeadID  string `json:"lead_id"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				if err := deps.Calendar.CancelEvent(ctx, args.EventID); err != nil {
					return "", err
				}
				if args.LeadID != "" {
					patch := models.Metadata{models.MetaMeetingScheduled: false}
					if err := deps.Leads.MergeMetadata(ctx, args.LeadID, patch); err != nil {
						deps.Logger.Error("Meeting cancelled but lead metadata update failed",
							"lead_id", args.LeadID, "error", err)
					}
				}
				return jsonResult(map[string]any{"cancelled": true}), nil
			},
		},
		{
			Name:        "send_invite",
			Description: "Send the meeting link to the lead over WhatsApp.",
			InputSchema: objectSchema([]string{"phone", "meeting_url"}, map[string]any{
				"phone":       map[string]any{"type": "string"},
				"meeting_url": map[string]any{"type": "string"},
				"when":        map[string]any{"type": "string", "description": "Human-readable date and time"},
			}),
			Class: SideEffectOnce,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					Phone      string `json:"phone"`
					MeetingURL string `json:"meeting_url"`
					When       string `json:"when"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				text := "Prontinho! Aqui está o link da nossa reunião"
				if args.When != "" {
					text += " (" + args.When + ")"
				}
				text += ": " + args.MeetingURL
				if err := deps.Messenger.SendText(ctx, args.Phone, text); err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"sent": true}), nil
			},
		},
	})
}

func parseInterval(input json.RawMessage) (time.Time, time.Time, error) {
	var args struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := time.Parse(time.RFC3339, args.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, args.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
	}
	return start.UTC(), end.UTC(), nil
}
