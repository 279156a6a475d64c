package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// MessageStore persists conversation messages.
type MessageStore struct {
	db *sql.DB
}

// NewMessageStore creates a MessageStore.
func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, conversation_id, phone, direction, content, media_type, media_ref, external_id, created_at`

// Insert stores a message. For messages carrying an external id the insert is
// idempotent: a redelivered id is silently dropped and inserted=false comes
// back, so webhook redelivery leaves the store unchanged.
func (s *MessageStore) Insert(ctx context.Context, msg *models.Message) (inserted bool, err error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.MediaType == "" {
		msg.MediaType = models.MediaNone
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, phone, direction, content, media_type, media_ref, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
		ON CONFLICT (external_id) DO NOTHING`,
		msg.ID, msg.ConversationID, msg.Phone, msg.Direction, msg.Content,
		msg.MediaType, msg.MediaRef, msg.ExternalID)
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Recent returns the last limit messages of a conversation in chronological
// order.
func (s *MessageStore) Recent(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var (
			msg        models.Message
			mediaRef   sql.NullString
			externalID sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Phone, &msg.Direction,
			&msg.Content, &msg.MediaType, &mediaRef, &externalID, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.MediaRef = mediaRef.String
		msg.ExternalID = externalID.String
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// ExistsByExternalID reports whether a message with the given external id is
// already stored.
func (s *MessageStore) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE external_id = $1)`, externalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}
	return exists, nil
}
