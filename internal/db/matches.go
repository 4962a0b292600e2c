package db

import (
	"context"
	"fmt"
	"time"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const matchColumns = `id, company_id, candidate_id, role_id, match_score, actioned, actioned_at, suggested_at`

func scanMatch(row pgx.Row) (*types.TalentBankMatch, error) {
	var m types.TalentBankMatch
	err := row.Scan(&m.ID, &m.CompanyID, &m.CandidateID, &m.RoleID, &m.MatchScore,
		&m.Actioned, &m.ActionedAt, &m.SuggestedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMatch creates a talent-bank match or refreshes the score of an
// existing (candidate, role) pair. A duplicate pair is collapsed into an
// update, never a second row and never surfaced as an error.
func (db *DB) UpsertMatch(ctx context.Context, m *types.TalentBankMatch) (*types.TalentBankMatch, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO talent_bank_matches (company_id, candidate_id, role_id, match_score)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (candidate_id, role_id) DO UPDATE SET match_score = EXCLUDED.match_score
		 RETURNING `+matchColumns,
		m.CompanyID, m.CandidateID, m.RoleID, m.MatchScore,
	)
	upserted, err := scanMatch(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert match: %w", err)
	}
	return upserted, nil
}

// GetMatch retrieves a match within a company.
func (db *DB) GetMatch(ctx context.Context, companyID, id uuid.UUID) (*types.TalentBankMatch, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM talent_bank_matches
		 WHERE company_id = $1 AND id = $2`,
		companyID, id,
	)
	m, err := scanMatch(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// ListMatches returns a company's matches suggested up to asOf, highest
// score first.
func (db *DB) ListMatches(ctx context.Context, companyID uuid.UUID, asOf time.Time) ([]types.TalentBankMatch, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+matchColumns+` FROM talent_bank_matches
		 WHERE company_id = $1 AND suggested_at <= $2
		 ORDER BY match_score DESC, candidate_id`,
		companyID, asOf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []types.TalentBankMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// ActionMatch marks a match as actioned by a human. Already-actioned
// matches are left untouched.
func (db *DB) ActionMatch(ctx context.Context, companyID, id uuid.UUID) (*types.TalentBankMatch, error) {
	row := db.pool.QueryRow(ctx,
		`UPDATE talent_bank_matches
		 SET actioned = TRUE, actioned_at = NOW()
		 WHERE company_id = $1 AND id = $2 AND NOT actioned
		 RETURNING `+matchColumns,
		companyID, id,
	)
	m, err := scanMatch(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, &NotFoundError{Entity: "actionable match", ID: id}
		}
		return nil, fmt.Errorf("failed to action match: %w", err)
	}
	return m, nil
}
