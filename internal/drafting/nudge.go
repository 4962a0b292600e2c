package drafting

import (
	"context"
	"errors"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NudgeSweep drafts a check-in for every active candidate who has sat in
// the same stage past the threshold and has no nudge in flight. One
// candidate failing to draft does not stop the sweep.
func (e *Engine) NudgeSweep(ctx context.Context, companyID uuid.UUID, minDays int) ([]*types.Communication, error) {
	overdue, err := e.store.ListOverdueCandidates(ctx, companyID, minDays)
	if err != nil {
		return nil, err
	}

	var drafted []*types.Communication
	for i := range overdue {
		cand := &overdue[i]
		comm, err := e.Draft(ctx, cand, types.TypeNudge)
		if err != nil {
			if errors.Is(err, ErrActiveCommunication) {
				continue
			}
			var ice *InsufficientContextError
			if errors.As(err, &ice) {
				e.logger.Warn("skipping overdue candidate",
					zap.String("candidate_id", cand.ID.String()),
					zap.Error(err))
				continue
			}
			return drafted, err
		}
		drafted = append(drafted, comm)
	}

	e.logger.Info("nudge sweep complete",
		zap.String("company_id", companyID.String()),
		zap.Int("overdue", len(overdue)),
		zap.Int("drafted", len(drafted)))
	return drafted, nil
}
