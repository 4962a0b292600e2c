package types

import (
	"time"

	"github.com/google/uuid"
)

// CommunicationStatus is a Communication's position in its send lifecycle.
type CommunicationStatus string

// Communication lifecycle statuses. Sent and discarded are terminal; failed
// may only move forward again through an explicit retry.
const (
	CommDraft     CommunicationStatus = "draft"
	CommQueued    CommunicationStatus = "queued"
	CommSent      CommunicationStatus = "sent"
	CommFailed    CommunicationStatus = "failed"
	CommDiscarded CommunicationStatus = "discarded"
)

// Valid reports whether s is a known communication status.
func (s CommunicationStatus) Valid() bool {
	switch s {
	case CommDraft, CommQueued, CommSent, CommFailed, CommDiscarded:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions at all.
func (s CommunicationStatus) Terminal() bool {
	return s == CommSent || s == CommDiscarded
}

// CommunicationType determines the template family used when drafting.
type CommunicationType string

// Communication types
const (
	TypeRejection    CommunicationType = "rejection"
	TypeNudge        CommunicationType = "nudge"
	TypeReengagement CommunicationType = "reengagement"
)

// Valid reports whether t is a known communication type.
func (t CommunicationType) Valid() bool {
	switch t {
	case TypeRejection, TypeNudge, TypeReengagement:
		return true
	}
	return false
}

// BreakdownSchemaVersion is the current confidence breakdown shape version.
const BreakdownSchemaVersion = 1

// ConfidenceBreakdown holds the named sub-scores behind a Communication's
// confidence score. Each dimension is in [0,1]. The breakdown is stored
// verbatim on the Communication at draft time and is never recomputed in
// place; re-evaluation produces a new breakdown.
type ConfidenceBreakdown struct {
	SchemaVersion int     `json:"schema_version"`
	Specificity   float64 `json:"specificity"`
	VoiceMatch    float64 `json:"voice_match"`
	Safety        float64 `json:"safety"`
	Length        float64 `json:"length"`
	Explanation   string  `json:"explanation,omitempty"`
}

// Communication is the central transactional entity: one drafted (and
// possibly sent) email to one candidate.
//
// OriginalDraft is immutable once set. Subject and Body may diverge from it
// only with Edited=true. Status moves monotonically through the lifecycle;
// a sent or discarded record is never resurrected.
type Communication struct {
	ID              uuid.UUID           `json:"id"`
	CompanyID       uuid.UUID           `json:"company_id"`
	CandidateID     uuid.UUID           `json:"candidate_id"`
	Type            CommunicationType   `json:"type"`
	Status          CommunicationStatus `json:"status"`
	Subject         string              `json:"subject"`
	Body            string              `json:"body"`
	OriginalDraft   string              `json:"original_draft"`
	ConfidenceScore float64             `json:"confidence_score"`
	Breakdown       ConfidenceBreakdown `json:"confidence_breakdown"`
	Edited          bool                `json:"edited"`
	ReviewedBy      *uuid.UUID          `json:"reviewed_by,omitempty"`
	QueuedUntil     *time.Time          `json:"queued_until,omitempty"`
	SentAt          *time.Time          `json:"sent_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}
