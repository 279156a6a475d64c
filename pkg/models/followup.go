package models

import "time"

// FollowUpType is the kind of re-engagement nudge.
type FollowUpType string

// Follow-up types, in cadence order.
const (
	FollowUpReminder     FollowUpType = "reminder"
	FollowUpCheckIn      FollowUpType = "check_in"
	FollowUpReengagement FollowUpType = "reengagement"
	FollowUpNurture      FollowUpType = "nurture"
)

// FollowUpStatus is the lifecycle state of a follow-up row.
type FollowUpStatus string

// Follow-up statuses. A row transitions pending → executed|failed|skipped
// exactly once.
const (
	FollowUpPending  FollowUpStatus = "pending"
	FollowUpExecuted FollowUpStatus = "executed"
	FollowUpFailed   FollowUpStatus = "failed"
	FollowUpSkipped  FollowUpStatus = "skipped"
)

// FollowUp is a durable re-engagement timer.
type FollowUp struct {
	ID              string         `json:"id"`
	LeadID          string         `json:"lead_id"`
	Type            FollowUpType   `json:"type"`
	ScheduledFor    time.Time      `json:"scheduled_for"`
	Status          FollowUpStatus `json:"status"`
	AttemptNumber   int            `json:"attempt_number"`
	MessageOverride string         `json:"message_override,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	ExecutedAt      *time.Time     `json:"executed_at,omitempty"`
}

// NextFollowUpType returns the next hop in the cadence, or "" when the chain
// ends.
func NextFollowUpType(t FollowUpType) FollowUpType {
	switch t {
	case FollowUpReminder:
		return FollowUpCheckIn
	case FollowUpCheckIn:
		return FollowUpReengagement
	case FollowUpReengagement:
		return FollowUpNurture
	default:
		return ""
	}
}
