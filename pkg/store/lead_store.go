package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/models"
)

// LeadStore persists leads.
type LeadStore struct {
	db *sql.DB
}

// NewLeadStore creates a LeadStore.
func NewLeadStore(db *sql.DB) *LeadStore {
	return &LeadStore{db: db}
}

const leadColumns = `id, phone, name, email, stage, score, metadata, external_crm_id, created_at, updated_at`

func scanLead(row interface{ Scan(...any) error }) (*models.Lead, error) {
	var (
		lead     models.Lead
		name     sql.NullString
		email    sql.NullString
		crmID    sql.NullString
		metadata []byte
	)
	err := row.Scan(&lead.ID, &lead.Phone, &name, &email, &lead.Stage, &lead.Score,
		&metadata, &crmID, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	lead.Name = name.String
	lead.Email = email.String
	lead.ExternalCRMID = crmID.String
	lead.Metadata = models.Metadata{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &lead.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode lead metadata: %w", err)
		}
	}
	return &lead, nil
}

// GetByPhone returns the lead for a canonical phone, or ErrNotFound.
func (s *LeadStore) GetByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE phone = $1`, phone)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get lead by phone: %w", err)
	}
	return lead, nil
}

// GetByID returns the lead by id, or ErrNotFound.
func (s *LeadStore) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// Upsert inserts a lead keyed by phone, merging name/email/metadata into an
// existing row on conflict. Returns the resulting row either way.
func (s *LeadStore) Upsert(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Stage == "" {
		lead.Stage = models.StageInitialContact
	}
	if lead.Metadata == nil {
		lead.Metadata = models.Metadata{}
	}
	metadata, err := json.Marshal(lead.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lead metadata: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO leads (id, phone, name, email, stage, score, metadata, external_crm_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''))
		ON CONFLICT (phone) DO UPDATE SET
			name            = COALESCE(NULLIF(EXCLUDED.name, ''), leads.name),
			email           = COALESCE(NULLIF(EXCLUDED.email, ''), leads.email),
			metadata        = leads.metadata || EXCLUDED.metadata,
			external_crm_id = COALESCE(EXCLUDED.external_crm_id, leads.external_crm_id),
			updated_at      = now()
		RETURNING `+leadColumns,
		lead.ID, lead.Phone, lead.Name, lead.Email, lead.Stage, lead.Score, metadata, lead.ExternalCRMID)

	result, err := scanLead(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert lead: %w", err)
	}
	return result, nil
}

// MergeMetadata merges a metadata patch into the lead's JSONB bag.
func (s *LeadStore) MergeMetadata(ctx context.Context, id string, patch models.Metadata) error {
	if len(patch) == 0 {
		return nil
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode metadata patch: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET metadata = metadata || $2, updated_at = now() WHERE id = $1`,
		id, data)
	if err != nil {
		return fmt.Errorf("failed to merge lead metadata: %w", err)
	}
	return requireRow(res)
}

// UpdateStage moves the lead to a new funnel stage.
func (s *LeadStore) UpdateStage(ctx context.Context, id string, stage models.Stage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET stage = $2, updated_at = now() WHERE id = $1`, id, stage)
	if err != nil {
		return fmt.Errorf("failed to update lead stage: %w", err)
	}
	return requireRow(res)
}

// UpdateScore sets the lead's qualification score (0-10).
func (s *LeadStore) UpdateScore(ctx context.Context, id string, score int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET score = $2, updated_at = now() WHERE id = $1`, id, score)
	if err != nil {
		return fmt.Errorf("failed to update lead score: %w", err)
	}
	return requireRow(res)
}

// UpdateContact sets name and/or email; empty strings leave the column alone.
func (s *LeadStore) UpdateContact(ctx context.Context, id, name, email string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET
			name       = COALESCE(NULLIF($2, ''), name),
			email      = COALESCE(NULLIF($3, ''), email),
			updated_at = now()
		WHERE id = $1`, id, name, email)
	if err != nil {
		return fmt.Errorf("failed to update lead contact: %w", err)
	}
	return requireRow(res)
}

// SetExternalCRMID records the CRM-side id after the lead is pushed upstream.
func (s *LeadStore) SetExternalCRMID(ctx context.Context, id, crmID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET external_crm_id = $2, updated_at = now() WHERE id = $1`, id, crmID)
	if err != nil {
		return fmt.Errorf("failed to set external crm id: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
