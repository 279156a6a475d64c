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

// ErrFollowUpPending is returned by Schedule when the lead already has a
// pending follow-up; the partial unique index rejects a second one.
var ErrFollowUpPending = errors.New("store: lead already has a pending follow-up")

// FollowUpStore persists re-engagement timers.
type FollowUpStore struct {
	db *sql.DB
}

// NewFollowUpStore creates a FollowUpStore.
func NewFollowUpStore(db *sql.DB) *FollowUpStore {
	return &FollowUpStore{db: db}
}

const followUpColumns = `id, lead_id, type, scheduled_for, status, attempt_number, message_override, error_message, created_at, executed_at`

func scanFollowUp(row interface{ Scan(...any) error }) (*models.FollowUp, error) {
	var (
		fu         models.FollowUp
		override   sql.NullString
		errMsg     sql.NullString
		executedAt sql.NullTime
	)
	err := row.Scan(&fu.ID, &fu.LeadID, &fu.Type, &fu.ScheduledFor, &fu.Status,
		&fu.AttemptNumber, &override, &errMsg, &fu.CreatedAt, &executedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	fu.MessageOverride = override.String
	fu.ErrorMessage = errMsg.String
	if executedAt.Valid {
		fu.ExecutedAt = &executedAt.Time
	}
	return &fu, nil
}

// Schedule inserts a pending follow-up. Insertion is atomic: the row lands
// with status=pending, and the one-pending-per-lead index turns a duplicate
// into ErrFollowUpPending rather than a second timer.
func (s *FollowUpStore) Schedule(ctx context.Context, fu *models.FollowUp) error {
	if fu.ID == "" {
		fu.ID = uuid.New().String()
	}
	if fu.AttemptNumber == 0 {
		fu.AttemptNumber = 1
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO follow_ups (id, lead_id, type, scheduled_for, status, attempt_number, message_override)
		VALUES ($1, $2, $3, $4, 'pending', $5, NULLIF($6, ''))
		ON CONFLICT (lead_id) WHERE status = 'pending' DO NOTHING`,
		fu.ID, fu.LeadID, fu.Type, fu.ScheduledFor, fu.AttemptNumber, fu.MessageOverride)
	if err != nil {
		return fmt.Errorf("failed to schedule follow-up: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFollowUpPending
	}
	return nil
}

// ClaimDue atomically claims up to limit due pending rows by pushing their
// scheduled_for forward by lease. The SKIP LOCKED subquery keeps concurrent
// workers off the same rows; the lease keeps a crashed worker's rows from
// being lost — they simply come due again.
func (s *FollowUpStore) ClaimDue(ctx context.Context, lease time.Duration, limit int) ([]*models.FollowUp, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE follow_ups SET scheduled_for = now() + $1::interval
		WHERE id IN (
			SELECT id FROM follow_ups
			WHERE status = 'pending' AND scheduled_for <= now()
			ORDER BY scheduled_for ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+followUpColumns,
		lease.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due follow-ups: %w", err)
	}
	defer rows.Close()

	var due []*models.FollowUp
	for rows.Next() {
		fu, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		due = append(due, fu)
	}
	return due, rows.Err()
}

// MarkExecuted finishes a follow-up successfully. The status guard makes the
// transition happen at most once.
func (s *FollowUpStore) MarkExecuted(ctx context.Context, id string) error {
	return s.finish(ctx, id, models.FollowUpExecuted, "")
}

// MarkFailed finishes a follow-up with an error.
func (s *FollowUpStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	return s.finish(ctx, id, models.FollowUpFailed, errMsg)
}

// MarkSkipped finishes a follow-up without sending.
func (s *FollowUpStore) MarkSkipped(ctx context.Context, id string) error {
	return s.finish(ctx, id, models.FollowUpSkipped, "")
}

func (s *FollowUpStore) finish(ctx context.Context, id string, status models.FollowUpStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE follow_ups
		SET status = $2, error_message = NULLIF($3, ''), executed_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to finish follow-up: %w", err)
	}
	return requireRow(res)
}

// Reschedule moves a still-pending follow-up to a new time. Used by the
// business-hours gate.
func (s *FollowUpStore) Reschedule(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE follow_ups SET scheduled_for = $2
		WHERE id = $1 AND status = 'pending'`,
		id, at)
	if err != nil {
		return fmt.Errorf("failed to reschedule follow-up: %w", err)
	}
	return requireRow(res)
}

// CancelPending skips any pending follow-up for a lead. Called when a meeting
// is booked so no further reminders fire.
func (s *FollowUpStore) CancelPending(ctx context.Context, leadID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE follow_ups SET status = 'skipped', executed_at = now()
		WHERE lead_id = $1 AND status = 'pending'`,
		leadID)
	if err != nil {
		return fmt.Errorf("failed to cancel pending follow-ups: %w", err)
	}
	return nil
}

// GetByID returns one follow-up row, or ErrNotFound.
func (s *FollowUpStore) GetByID(ctx context.Context, id string) (*models.FollowUp, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+followUpColumns+` FROM follow_ups WHERE id = $1`, id)
	fu, err := scanFollowUp(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get follow-up: %w", err)
	}
	return fu, nil
}
