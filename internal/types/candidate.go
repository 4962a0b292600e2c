// Package types defines the shared domain entities for the Candor pipeline.
package types

import (
	"time"

	"github.com/google/uuid"
)

// CandidateStatus is the candidate's current position in the hiring pipeline.
type CandidateStatus string

// Candidate pipeline statuses
const (
	StatusApplied   CandidateStatus = "applied"
	StatusScreening CandidateStatus = "screening"
	StatusInterview CandidateStatus = "interview"
	StatusOffer     CandidateStatus = "offer"
	StatusRejected  CandidateStatus = "rejected"
	StatusArchived  CandidateStatus = "archived"
)

// Valid reports whether s is a known candidate status.
func (s CandidateStatus) Valid() bool {
	switch s {
	case StatusApplied, StatusScreening, StatusInterview, StatusOffer, StatusRejected, StatusArchived:
		return true
	}
	return false
}

// Terminal reports whether s is a final ATS outcome. Terminal candidates
// count toward the follow-through score.
func (s CandidateStatus) Terminal() bool {
	return s == StatusOffer || s == StatusRejected || s == StatusArchived
}

// ReengagementStatus tracks a talent-bank candidate through re-engagement.
type ReengagementStatus string

// Re-engagement statuses
const (
	ReengageDormant   ReengagementStatus = "dormant"
	ReengageContacted ReengagementStatus = "contacted"
	ReengageResponded ReengagementStatus = "responded"
	ReengageHired     ReengagementStatus = "hired"
)

// Valid reports whether r is a known re-engagement status.
func (r ReengagementStatus) Valid() bool {
	switch r {
	case ReengageDormant, ReengageContacted, ReengageResponded, ReengageHired:
		return true
	}
	return false
}

// Candidate represents a person moving through a company's hiring pipeline.
// All candidates are scoped to exactly one company.
type Candidate struct {
	ID                 uuid.UUID          `json:"id"`
	CompanyID          uuid.UUID          `json:"company_id"`
	RoleID             *uuid.UUID         `json:"role_id,omitempty"`
	ATSID              *string            `json:"ats_id,omitempty"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	Status             CandidateStatus    `json:"status"`
	Skills             []string           `json:"skills,omitempty"`
	ResumeURL          *string            `json:"resume_url,omitempty"`
	Notes              *string            `json:"notes,omitempty"`
	DaysInStage        int                `json:"days_in_stage"`
	LastStatusChange   *time.Time         `json:"last_status_change,omitempty"`
	AddedToTalentBank  bool               `json:"added_to_talent_bank"`
	ReengagementStatus ReengagementStatus `json:"talent_bank_reengagement_status,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// RoleStatus is the open/closed state of a role.
type RoleStatus string

// Role statuses
const (
	RoleOpen   RoleStatus = "open"
	RoleClosed RoleStatus = "closed"
	RolePaused RoleStatus = "paused"
)

// Role represents an open position candidates are matched against.
type Role struct {
	ID           uuid.UUID  `json:"id"`
	CompanyID    uuid.UUID  `json:"company_id"`
	Title        string     `json:"title"`
	JDText       string     `json:"jd_text,omitempty"`
	Requirements []string   `json:"requirements,omitempty"`
	Status       RoleStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}
