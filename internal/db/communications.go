package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/candorhq/candor/internal/schemas"
	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const communicationColumns = `id, company_id, candidate_id, type, status, subject, body,
	original_draft, confidence_score, confidence_breakdown, edited, reviewed_by,
	queued_until, sent_at, created_at`

func scanCommunication(row pgx.Row) (*types.Communication, error) {
	var c types.Communication
	var breakdownJSON []byte
	err := row.Scan(&c.ID, &c.CompanyID, &c.CandidateID, &c.Type, &c.Status, &c.Subject,
		&c.Body, &c.OriginalDraft, &c.ConfidenceScore, &breakdownJSON, &c.Edited,
		&c.ReviewedBy, &c.QueuedUntil, &c.SentAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(breakdownJSON) > 0 {
		if err := schemas.ValidateConfidenceBreakdown(breakdownJSON); err != nil {
			return nil, fmt.Errorf("stored breakdown for communication %s is malformed: %w", c.ID, err)
		}
		if err := json.Unmarshal(breakdownJSON, &c.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to decode confidence breakdown: %w", err)
		}
	}
	return &c, nil
}

// CreateCommunication persists a freshly drafted communication. The original
// draft text is written here and never updated afterwards.
func (db *DB) CreateCommunication(ctx context.Context, c *types.Communication) (*types.Communication, error) {
	breakdownJSON, err := json.Marshal(c.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal confidence breakdown: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO communications (company_id, candidate_id, type, status, subject, body,
		   original_draft, confidence_score, confidence_breakdown, edited)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
		 RETURNING `+communicationColumns,
		c.CompanyID, c.CandidateID, c.Type, c.Status, c.Subject, c.Body,
		c.OriginalDraft, c.ConfidenceScore, breakdownJSON,
	)
	created, err := scanCommunication(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create communication: %w", err)
	}
	return created, nil
}

// GetCommunication retrieves a communication within a company.
func (db *DB) GetCommunication(ctx context.Context, companyID, id uuid.UUID) (*types.Communication, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+communicationColumns+` FROM communications
		 WHERE company_id = $1 AND id = $2`,
		companyID, id,
	)
	c, err := scanCommunication(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get communication: %w", err)
	}
	return c, nil
}

// ListCommunicationsByStatus returns a company's communications in a given
// lifecycle status, newest first. Feeds the review queue. Note that the
// gate claims a send by briefly holding the row in failed, so a failed
// listing can include an in-flight send for the duration of the transport
// call.
func (db *DB) ListCommunicationsByStatus(ctx context.Context, companyID uuid.UUID, status types.CommunicationStatus, limit int) ([]types.Communication, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+communicationColumns+` FROM communications
		 WHERE company_id = $1 AND status = $2
		 ORDER BY created_at DESC LIMIT $3`,
		companyID, status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list communications: %w", err)
	}
	defer rows.Close()
	return collectCommunications(rows)
}

// ListSentCommunications returns all sent communications up to asOf, the
// input window for score aggregation.
func (db *DB) ListSentCommunications(ctx context.Context, companyID uuid.UUID, asOf time.Time) ([]types.Communication, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+communicationColumns+` FROM communications
		 WHERE company_id = $1 AND status = 'sent' AND sent_at <= $2
		 ORDER BY sent_at`,
		companyID, asOf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent communications: %w", err)
	}
	defer rows.Close()
	return collectCommunications(rows)
}

// HasActiveCommunication reports whether a candidate already has a draft or
// queued communication of the given type. The drafting engine uses this to
// keep a single active outreach per candidate and type.
func (db *DB) HasActiveCommunication(ctx context.Context, companyID, candidateID uuid.UUID, commType types.CommunicationType) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM communications
		   WHERE company_id = $1 AND candidate_id = $2 AND type = $3
		     AND status IN ('draft', 'queued')
		 )`,
		companyID, candidateID, commType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active communications: %w", err)
	}
	return exists, nil
}

// CountCommunicationsByCandidate counts all communications ever created for
// a candidate, the prior-interaction signal for re-engagement drafting.
func (db *DB) CountCommunicationsByCandidate(ctx context.Context, companyID, candidateID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM communications WHERE company_id = $1 AND candidate_id = $2`,
		companyID, candidateID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count communications: %w", err)
	}
	return count, nil
}

// TransitionOptions carries the fields a status transition may set.
type TransitionOptions struct {
	QueuedUntil *time.Time
	ReviewedBy  *uuid.UUID
}

// TransitionCommunicationStatus performs an optimistic lifecycle transition:
// the UPDATE matches only while the record still holds the expected
// pre-state, so exactly one of any set of concurrent transition attempts on
// the same communication can succeed. queued_until is carried only while
// queued; sent_at is stamped on entering sent.
func (db *DB) TransitionCommunicationStatus(ctx context.Context, companyID, id uuid.UUID, from, to types.CommunicationStatus, opts TransitionOptions) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE communications SET
		   status = $1,
		   queued_until = CASE WHEN $1 = 'queued' THEN $2 ELSE NULL END,
		   sent_at = CASE WHEN $1 = 'sent' THEN NOW() ELSE sent_at END,
		   reviewed_by = COALESCE($3, reviewed_by)
		 WHERE company_id = $4 AND id = $5 AND status = $6`,
		to, opts.QueuedUntil, opts.ReviewedBy, companyID, id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to transition communication %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return &TransitionConflictError{CommunicationID: id, Expected: from}
	}
	return nil
}

// UpdateCommunicationDraft applies a reviewer's edits. Only drafts are
// editable; the edit marks the record and records the reviewer without
// touching the confidence score or the original draft text.
func (db *DB) UpdateCommunicationDraft(ctx context.Context, companyID, id uuid.UUID, subject, body string, reviewedBy uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE communications
		 SET subject = $1, body = $2, edited = TRUE, reviewed_by = $3
		 WHERE company_id = $4 AND id = $5 AND status = 'draft'`,
		subject, body, reviewedBy, companyID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &TransitionConflictError{CommunicationID: id, Expected: types.CommDraft}
	}
	return nil
}

// ListQueuedCommunications returns all queued communications across
// companies, for the scheduler's startup rescan. Past-due items fire
// immediately; future ones get fresh timers.
func (db *DB) ListQueuedCommunications(ctx context.Context) ([]types.Communication, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+communicationColumns+` FROM communications
		 WHERE status = 'queued' AND queued_until IS NOT NULL
		 ORDER BY queued_until`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued communications: %w", err)
	}
	defer rows.Close()
	return collectCommunications(rows)
}

func collectCommunications(rows pgx.Rows) ([]types.Communication, error) {
	var comms []types.Communication
	for rows.Next() {
		c, err := scanCommunication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan communication: %w", err)
		}
		comms = append(comms, *c)
	}
	return comms, rows.Err()
}
