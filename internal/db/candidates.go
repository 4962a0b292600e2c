package db

import (
	"context"
	"fmt"
	"time"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const candidateColumns = `id, company_id, role_id, ats_id, name, email, status, skills,
	resume_url, notes, days_in_stage, last_status_change, added_to_talent_bank,
	reengagement_status, created_at`

func scanCandidate(row pgx.Row) (*types.Candidate, error) {
	var c types.Candidate
	err := row.Scan(&c.ID, &c.CompanyID, &c.RoleID, &c.ATSID, &c.Name, &c.Email,
		&c.Status, &c.Skills, &c.ResumeURL, &c.Notes, &c.DaysInStage,
		&c.LastStatusChange, &c.AddedToTalentBank, &c.ReengagementStatus, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCandidate inserts a candidate for a company.
func (db *DB) CreateCandidate(ctx context.Context, c *types.Candidate) (*types.Candidate, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO candidates (company_id, role_id, ats_id, name, email, status, skills,
		   resume_url, notes, days_in_stage, last_status_change, added_to_talent_bank, reengagement_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+candidateColumns,
		c.CompanyID, c.RoleID, c.ATSID, c.Name, c.Email, c.Status, c.Skills,
		c.ResumeURL, c.Notes, c.DaysInStage, c.LastStatusChange, c.AddedToTalentBank,
		c.ReengagementStatus,
	)
	created, err := scanCandidate(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}
	return created, nil
}

// GetCandidate retrieves a candidate within a company.
func (db *DB) GetCandidate(ctx context.Context, companyID, id uuid.UUID) (*types.Candidate, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE company_id = $1 AND id = $2`,
		companyID, id,
	)
	c, err := scanCandidate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// UpsertCandidateByATSID creates or refreshes a candidate keyed by the
// external ATS identifier. Pipeline-sync events land here. Talent-bank
// membership is sticky: once a sync opts a candidate in, later syncs that
// omit the flag do not revoke it.
func (db *DB) UpsertCandidateByATSID(ctx context.Context, c *types.Candidate) (*types.Candidate, error) {
	if c.ATSID == nil || *c.ATSID == "" {
		return db.CreateCandidate(ctx, c)
	}
	row := db.pool.QueryRow(ctx,
		`INSERT INTO candidates (company_id, role_id, ats_id, name, email, status, skills,
		   days_in_stage, added_to_talent_bank, last_status_change, reengagement_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), 'dormant')
		 ON CONFLICT (company_id, ats_id) DO UPDATE SET
		   role_id = EXCLUDED.role_id,
		   name = EXCLUDED.name,
		   email = EXCLUDED.email,
		   status = EXCLUDED.status,
		   skills = EXCLUDED.skills,
		   days_in_stage = EXCLUDED.days_in_stage,
		   added_to_talent_bank = candidates.added_to_talent_bank OR EXCLUDED.added_to_talent_bank,
		   last_status_change = CASE
		     WHEN candidates.status IS DISTINCT FROM EXCLUDED.status THEN NOW()
		     ELSE candidates.last_status_change
		   END
		 RETURNING `+candidateColumns,
		c.CompanyID, c.RoleID, c.ATSID, c.Name, c.Email, c.Status, c.Skills, c.DaysInStage,
		c.AddedToTalentBank,
	)
	upserted, err := scanCandidate(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert candidate: %w", err)
	}
	return upserted, nil
}

// UpdateCandidateStatus moves a candidate to a new pipeline status and
// stamps last_status_change.
func (db *DB) UpdateCandidateStatus(ctx context.Context, companyID, id uuid.UUID, status types.CandidateStatus) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE candidates SET status = $1, days_in_stage = 0, last_status_change = NOW()
		 WHERE company_id = $2 AND id = $3`,
		status, companyID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update candidate status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &NotFoundError{Entity: "candidate", ID: id}
	}
	return nil
}

// SetReengagementStatus updates a talent-bank candidate's re-engagement state.
func (db *DB) SetReengagementStatus(ctx context.Context, companyID, id uuid.UUID, status types.ReengagementStatus) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE candidates SET reengagement_status = $1
		 WHERE company_id = $2 AND id = $3 AND added_to_talent_bank`,
		status, companyID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update reengagement status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &NotFoundError{Entity: "candidate", ID: id}
	}
	return nil
}

// ListCandidates retrieves all candidates for a company that existed at asOf.
func (db *DB) ListCandidates(ctx context.Context, companyID uuid.UUID, asOf time.Time) ([]types.Candidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE company_id = $1 AND created_at <= $2
		 ORDER BY created_at`,
		companyID, asOf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// ListOverdueCandidates returns active candidates stuck in their current
// stage at least minDays, the trigger population for nudge drafting.
func (db *DB) ListOverdueCandidates(ctx context.Context, companyID uuid.UUID, minDays int) ([]types.Candidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE company_id = $1
		   AND days_in_stage >= $2
		   AND status NOT IN ('offer', 'rejected', 'archived')
		 ORDER BY days_in_stage DESC`,
		companyID, minDays,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue candidates: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// ListTalentBankCandidates returns the candidates eligible for matching
// against newly opened roles.
func (db *DB) ListTalentBankCandidates(ctx context.Context, companyID uuid.UUID) ([]types.Candidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE company_id = $1 AND added_to_talent_bank
		 ORDER BY created_at`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list talent bank candidates: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

func collectCandidates(rows pgx.Rows) ([]types.Candidate, error) {
	var candidates []types.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}
