package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// ConversationStore persists the per-phone conversation rows.
type ConversationStore struct {
	db *sql.DB
}

// NewConversationStore creates a ConversationStore.
func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

const conversationColumns = `id, phone, lead_id, last_message_at, created_at`

func scanConversation(row interface{ Scan(...any) error }) (*models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(&conv.ID, &conv.Phone, &conv.LeadID, &conv.LastMessageAt, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// UpsertByPhone returns the single conversation row for a phone, creating it
// atomically when absent. Concurrent first messages for the same phone race on
// the unique key and both callers get the same row back; the DO UPDATE arm
// exists only to make RETURNING yield the winning row.
func (s *ConversationStore) UpsertByPhone(ctx context.Context, phone, leadID string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO conversations (id, phone, lead_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING `+conversationColumns,
		uuid.New().String(), phone, leadID)

	conv, err := scanConversation(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return conv, nil
}

// GetByPhone returns the conversation for a phone, or ErrNotFound.
func (s *ConversationStore) GetByPhone(ctx context.Context, phone string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE phone = $1`, phone)
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// TouchLastMessage bumps last_message_at. Called asynchronously on every
// session update.
func (s *ConversationStore) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET last_message_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return requireRow(res)
}
