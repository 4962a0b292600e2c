package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/candorhq/candor/internal/schemas"
	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateCompany inserts a new tenant.
func (db *DB) CreateCompany(ctx context.Context, name, senderName, senderEmail string) (*types.Company, error) {
	var c types.Company
	err := db.pool.QueryRow(ctx,
		`INSERT INTO companies (name, sender_name, sender_email)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, sender_name, sender_email, candor_score, created_at`,
		name, senderName, senderEmail,
	).Scan(&c.ID, &c.Name, &c.SenderName, &c.SenderEmail, &c.CandorScore, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return &c, nil
}

// GetCompany retrieves a company with its voice profile. The stored
// voice_profile blob is schema-validated before it is trusted.
func (db *DB) GetCompany(ctx context.Context, id uuid.UUID) (*types.Company, error) {
	var c types.Company
	var profileJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, sender_name, sender_email, candor_score, voice_profile, created_at
		 FROM companies WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.SenderName, &c.SenderEmail, &c.CandorScore, &profileJSON, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	if len(profileJSON) > 0 {
		if err := schemas.ValidateVoiceProfile(profileJSON); err != nil {
			return nil, fmt.Errorf("stored voice profile for company %s is malformed: %w", id, err)
		}
		var profile types.VoiceProfile
		if err := json.Unmarshal(profileJSON, &profile); err != nil {
			return nil, fmt.Errorf("failed to decode voice profile: %w", err)
		}
		c.Voice = &profile
	}

	return &c, nil
}

// ListCompanyIDs returns every tenant ID, for background jobs that walk all
// companies.
func (db *DB) ListCompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx, `SELECT id FROM companies ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetVoiceProfile returns only a company's validated voice profile, or nil
// when none has been calibrated yet.
func (db *DB) GetVoiceProfile(ctx context.Context, companyID uuid.UUID) (*types.VoiceProfile, error) {
	company, err := db.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &NotFoundError{Entity: "company", ID: companyID}
	}
	return company.Voice, nil
}

// SaveVoiceProfile replaces a company's voice profile in a single write.
// Partial field updates are never issued; recalibration is last-writer-wins
// on the whole document.
func (db *DB) SaveVoiceProfile(ctx context.Context, companyID uuid.UUID, profile *types.VoiceProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal voice profile: %w", err)
	}
	if err := schemas.ValidateVoiceProfile(data); err != nil {
		return fmt.Errorf("refusing to store malformed voice profile: %w", err)
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE companies SET voice_profile = $1 WHERE id = $2`,
		data, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to save voice profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &NotFoundError{Entity: "company", ID: companyID}
	}
	return nil
}

// UpdateCandorScore stores the latest overall score on the company record
// for cheap dashboard reads. The authoritative history stays in snapshots.
func (db *DB) UpdateCandorScore(ctx context.Context, companyID uuid.UUID, score float64) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE companies SET candor_score = $1 WHERE id = $2`,
		score, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update candor score: %w", err)
	}
	return nil
}
