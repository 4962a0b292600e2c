package types

import (
	"time"

	"github.com/google/uuid"
)

// ScoreSnapshot is an immutable point-in-time Candor Score record for one
// company. Snapshots form an append-only time series; they are created by
// the aggregator and never mutated afterwards.
type ScoreSnapshot struct {
	ID                 uuid.UUID `json:"id"`
	CompanyID          uuid.UUID `json:"company_id"`
	SpeedScore         float64   `json:"speed_score"`
	QualityScore       float64   `json:"quality_score"`
	FollowthroughScore float64   `json:"followthrough_score"`
	ReengageScore      float64   `json:"reengage_score"`
	OverallScore       float64   `json:"overall_score"`
	RecordedAt         time.Time `json:"recorded_at"`
}

// TalentBankMatch pairs a dormant talent-bank candidate with a newly opened
// role. The (candidate, role) pair is unique: re-running the matcher updates
// the score of an existing pair instead of creating a second row.
type TalentBankMatch struct {
	ID          uuid.UUID  `json:"id"`
	CompanyID   uuid.UUID  `json:"company_id"`
	CandidateID uuid.UUID  `json:"candidate_id"`
	RoleID      uuid.UUID  `json:"role_id"`
	MatchScore  float64    `json:"match_score"`
	Actioned    bool       `json:"actioned"`
	ActionedAt  *time.Time `json:"actioned_at,omitempty"`
	SuggestedAt time.Time  `json:"suggested_at"`
}
