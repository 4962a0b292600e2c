package db

import (
	"context"
	"fmt"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertScoreSnapshot appends a snapshot to a company's score time series.
// Snapshots are never updated or deleted.
func (db *DB) InsertScoreSnapshot(ctx context.Context, s *types.ScoreSnapshot) (*types.ScoreSnapshot, error) {
	var created types.ScoreSnapshot
	err := db.pool.QueryRow(ctx,
		`INSERT INTO score_snapshots
		   (company_id, speed_score, quality_score, followthrough_score, reengage_score, overall_score, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, company_id, speed_score, quality_score, followthrough_score, reengage_score, overall_score, recorded_at`,
		s.CompanyID, s.SpeedScore, s.QualityScore, s.FollowthroughScore,
		s.ReengageScore, s.OverallScore, s.RecordedAt,
	).Scan(&created.ID, &created.CompanyID, &created.SpeedScore, &created.QualityScore,
		&created.FollowthroughScore, &created.ReengageScore, &created.OverallScore, &created.RecordedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert score snapshot: %w", err)
	}
	return &created, nil
}

// LatestScoreSnapshot returns a company's most recent snapshot, or nil when
// none has been recorded yet.
func (db *DB) LatestScoreSnapshot(ctx context.Context, companyID uuid.UUID) (*types.ScoreSnapshot, error) {
	var s types.ScoreSnapshot
	err := db.pool.QueryRow(ctx,
		`SELECT id, company_id, speed_score, quality_score, followthrough_score, reengage_score, overall_score, recorded_at
		 FROM score_snapshots WHERE company_id = $1
		 ORDER BY recorded_at DESC LIMIT 1`,
		companyID,
	).Scan(&s.ID, &s.CompanyID, &s.SpeedScore, &s.QualityScore, &s.FollowthroughScore,
		&s.ReengageScore, &s.OverallScore, &s.RecordedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return &s, nil
}
