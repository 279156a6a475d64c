package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/store"
)

func registerStoreTools(r *Registry, deps Deps) error {
	return registerAll(r, []*Tool{
		{
			Name:        "get_lead",
			Description: "Fetch the lead record for a phone number, including collected qualification facts.",
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
				lead, err := deps.Leads.GetByPhone(ctx, args.Phone)
				if errors.Is(err, store.ErrNotFound) {
					return jsonResult(map[string]any{"found": false}), nil
				}
				if err != nil {
					return "", err
				}
				return jsonResult(lead), nil
			},
		},
		{
			Name: "create_or_update_lead",
			Description: "Create the lead for a phone number or merge new facts into it: name, email, " +
				"and qualification metadata such as valor_conta, tipo_imovel, e_decisor.",
			InputSchema: objectSchema([]string{"phone"}, map[string]any{
				"phone":    map[string]any{"type": "string"},
				"name":     map[string]any{"type": "string"},
				"email":    map[string]any{"type": "string"},
				"metadata": map[string]any{"type": "object", "description": "Qualification facts to merge"},
			}),
			Class: UniqueByKey,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					Phone    string          `json:"phone"`
					Name     string          `json:"name"`
					Email    string          `json:"email"`
					Metadata models.Metadata `json:"metadata"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				lead, err := deps.Leads.Upsert(ctx, &models.Lead{
					Phone:    args.Phone,
					Name:     args.Name,
					Email:    args.Email,
					Metadata: args.Metadata,
				})
				if err != nil {
					return "", err
				}
				return jsonResult(lead), nil
			},
		},
		{
			Name:        "save_message",
			Description: "Persist an outbound note or system message into the conversation history.",
			InputSchema: objectSchema([]string{"conversation_id", "phone", "content"}, map[string]any{
				"conversation_id": map[string]any{"type": "string"},
				"phone":           map[string]any{"type": "string"},
				"content":         map[string]any{"type": "string"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					ConversationID string `json:"conversation_id"`
					Phone          string `json:"phone"`
					Content        string `json:"content"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				inserted, err := deps.Messages.Insert(ctx, &models.Message{
					ConversationID: args.ConversationID,
					Phone:          args.Phone,
					Direction:      models.DirectionOutbound,
					Content:        args.Content,
				})
				if err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"saved": inserted}), nil
			},
		},
		{
			Name:        "update_conversation",
			Description: "Mark the conversation as active right now.",
			InputSchema: objectSchema([]string{"conversation_id"}, map[string]any{
				"conversation_id": map[string]any{"type": "string"},
			}),
			Class: SafeRetry,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					ConversationID string `json:"conversation_id"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				if err := deps.Conversations.TouchLastMessage(ctx, args.ConversationID, time.Now().UTC()); err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"ok": true}), nil
			},
		},
		{
			Name: "schedule_follow_up",
			Description: "Schedule a re-engagement message for a lead. Types: reminder, check_in, " +
				"reengagement, nurture. At most one follow-up can be pending per lead.",
			InputSchema: objectSchema([]string{"lead_id", "type", "delay_minutes"}, map[string]any{
				"lead_id":       map[string]any{"type": "string"},
				"type":          map[string]any{"type": "string", "enum": []string{"reminder", "check_in", "reengagement", "nurture"}},
				"delay_minutes": map[string]any{"type": "integer"},
				"message":       map[string]any{"type": "string", "description": "Optional exact message to send instead of a generated one"},
			}),
			Class: UniqueByKey,
			Invoke: func(ctx context.Context, input json.RawMessage) (string, error) {
				var args struct {
					LeadID       string `json:"lead_id"`
					Type         string `json:"type"`
					DelayMinutes int    `json:"delay_minutes"`
					Message      string `json:"message"`
				}
				if err := json.Unmarshal(input, &args); err != nil {
					return "", err
				}
				fu := &models.FollowUp{
					LeadID:          args.LeadID,
					Type:            models.FollowUpType(args.Type),
					ScheduledFor:    time.Now().UTC().Add(time.Duration(args.DelayMinutes) * time.Minute),
					MessageOverride: args.Message,
				}
				err := deps.FollowUps.Schedule(ctx, fu)
				if errors.Is(err, store.ErrFollowUpPending) {
					return jsonResult(map[string]any{"scheduled": false, "reason": "a follow-up is already pending"}), nil
				}
				if err != nil {
					return "", err
				}
				return jsonResult(map[string]any{"scheduled": true, "follow_up_id": fu.ID}), nil
			},
		},
	})
}
