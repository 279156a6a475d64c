package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/crm"
)

func registerCRMTools(r *Registry, deps Deps) error {
	return registerAll(r, []*Tool{
		{
			Name:        "crm_search_lead",
			Description: "Search the CRM for a lead by phone number.",
			InputSchema: objectSchema([]string{"phone"}, map[string]any{
				"phone": map[string]any{"type": "string"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					Phone string `json:"phone"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				lead, err := deps.CRM.SearchLeadByPhone(ctx, args.Phone)
				if errors.Is(err, crm.ErrLeadNotFound) {
					return jsonResult(map[string]any{"found": false}), nil
				}
				if err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"found": true, "id": lead.ID, "name": lead.Name}), nil
			},
		},
		{
			Name: "crm_upsert_lead",
			Description: "Create the CRM lead or update it if one already exists for the phone. " +
				"custom_fields maps CRM field names to values; tags are attached by name.",
			InputSchema: objectSchema([]string{"phone", "name"}, map[string]any{
				"phone":         map[string]any{"type": "string"},
				"name":          map[string]any{"type": "string"},
				"price":         map[string]any{"type": "integer", "description": "Deal value in whole reais"},
				"custom_fields": map[string]any{"type": "object"},
				"tags":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			}),
			Class: UniqueByKey,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					Phone        string            `json:"phone"`
					Name         string            `json:"name"`
					Price        int               `json:"price"`
					CustomFields map[string]string `json:"custom_fields"`
					Tags         []string          `json:"tags"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				lead := &crm.Lead{
					Name:         args.Name,
					Price:        args.Price,
					CustomFields: args.CustomFields,
					Tags:         args.Tags,
				}

				existing, err := deps.CRM.SearchLeadByPhone(ctx, args.Phone)
				switch {
				case err == nil:
					lead.ID = existing.ID
					if err := deps.CRM.UpdateLead(ctx, lead); err != nil {
						return "", err
					}
				case errors.Is(err, crm.ErrLeadNotFound):
					id, err := deps.CRM.CreateLead(ctx, lead)
					if err != nil {
						return "", err
					}
					lead.ID = id
				default:
					return "", err
				}
				return jsonResult(map[string]any{"id": lead.ID}), nil
			},
		},
		{
			Name:        "crm_move_stage",
			Description: "Move a CRM lead to a named pipeline stage, e.g. reuniao_agendada.",
			InputSchema: objectSchema([]string{"crm_lead_id", "stage"}, map[string]any{
				"crm_lead_id": map[string]any{"type": "integer"},
				"stage":       map[string]any{"type": "string"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					CRMLeadID int    `json:"crm_lead_id"`
					Stage     string `json:"stage"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				if err := deps.CRM.MoveStage(ctx, args.CRMLeadID, args.Stage); err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"moved": true}), nil
			},
		},
		{
			Name:        "crm_add_note",
			Description: "Attach a free-text note to a CRM lead.",
			InputSchema: objectSchema([]string{"crm_lead_id", "text"}, map[string]any{
				"crm_lead_id": map[string]any{"type": "integer"},
				"text":        map[string]any{"type": "string"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					CRMLeadID int    `json:"crm_lead_id"`
					Text      string `json:"text"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				if err := deps.CRM.AddNote(ctx, args.CRMLeadID, args.Text); err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"added": true}), nil
			},
		},
		{
			Name:        "crm_schedule_activity",
			Description: "Create a dated task on a CRM lead for the human sales team.",
			InputSchema: objectSchema([]string{"crm_lead_id", "text", "due"}, map[string]any{
				"crm_lead_id": map[string]any{"type": "integer"},
				"text":        map[string]any{"type": "string"},
				"due":         map[string]any{"type": "string", "description": "RFC3339 timestamp"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					CRMLeadID int    `json:"crm_lead_id"`
					Text      string `json:"text"`
					Due       string `json:"due"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				due, err := time.Parse(time.RFC3339, args.Due)
				if err != nil {
					return "", err
				}
				if err := deps.CRM.ScheduleActivity(ctx, args.CRMLeadID, args.Text, due); err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"scheduled": true}), nil
			},
		},
	})
}
