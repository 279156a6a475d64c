package models

import "time"

// Direction of a message relative to the engine.
type Direction string

// Message directions.
const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MediaType classifies an attached media payload.
type MediaType string

// Media types.
const (
	MediaNone     MediaType = "none"
	MediaImage    MediaType = "image"
	MediaAudio    MediaType = "audio"
	MediaDocument MediaType = "document"
)

// Conversation is the durable per-phone thread. Exactly one row exists per
// phone; the unique constraint in the store enforces it.
type Conversation struct {
	ID            string    `json:"id"`
	Phone         string    `json:"phone"`
	LeadID        string    `json:"lead_id"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Message is one WhatsApp message, inbound or outbound. ExternalID is the
// gateway-assigned id; unique for inbound messages and used for dedup.
// The record is immutable once stored: conversation linkage travels in the
// per-turn context, never as a mutation of this struct.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Phone          string    `json:"phone"`
	Direction      Direction `json:"direction"`
	Content        string    `json:"content"`
	MediaType      MediaType `json:"media_type"`
	MediaRef       string    `json:"media_ref,omitempty"`
	ExternalID     string    `json:"external_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
