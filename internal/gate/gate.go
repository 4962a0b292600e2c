package gate

import (
	"context"
	"errors"
	"time"

	"github.com/candorhq/candor/internal/db"
	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultAutoSendThreshold is the minimum confidence score at which a
	// draft auto-queues for delayed sending instead of waiting for review.
	DefaultAutoSendThreshold = 0.8

	// DefaultSendDelay is the review window between auto-queueing and
	// actual delivery.
	DefaultSendDelay = 2 * time.Hour
)

// Store is the persistence surface the gate needs.
type Store interface {
	GetCommunication(ctx context.Context, companyID, id uuid.UUID) (*types.Communication, error)
	TransitionCommunicationStatus(ctx context.Context, companyID, id uuid.UUID, from, to types.CommunicationStatus, opts db.TransitionOptions) error
	ListQueuedCommunications(ctx context.Context) ([]types.Communication, error)
}

// Gate decides whether a scored draft auto-queues or waits for human review,
// and owns every status transition after drafting. All transitions are
// optimistic: when two actors race, exactly one wins and the loser gets a
// TransitionConflictError.
type Gate struct {
	store     Store
	transport Transport
	sched     *Scheduler
	threshold float64
	delay     time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func New(store Store, transport Transport, threshold float64, delay time.Duration, logger *zap.Logger) *Gate {
	g := &Gate{
		store:     store,
		transport: transport,
		threshold: threshold,
		delay:     delay,
		logger:    logger,
		now:       time.Now,
	}
	g.sched = NewScheduler(g.fireQueued)
	return g
}

// Submit routes a freshly scored draft. Drafts at or above the threshold
// move to queued with a delivery timer; everything below stays a draft for
// human review. Returns whether the communication was queued.
func (g *Gate) Submit(ctx context.Context, comm *types.Communication) (bool, error) {
	if comm.ConfidenceScore < g.threshold {
		g.logger.Info("draft held for review",
			zap.String("communication_id", comm.ID.String()),
			zap.Float64("score", comm.ConfidenceScore),
			zap.Float64("threshold", g.threshold))
		return false, nil
	}

	until := g.now().Add(g.delay)
	err := g.store.TransitionCommunicationStatus(ctx, comm.CompanyID, comm.ID,
		types.CommDraft, types.CommQueued,
		db.TransitionOptions{QueuedUntil: &until})
	if err != nil {
		return false, err
	}
	g.sched.Schedule(comm.CompanyID, comm.ID, until)
	g.logger.Info("draft auto-queued",
		zap.String("communication_id", comm.ID.String()),
		zap.Float64("score", comm.ConfidenceScore),
		zap.Time("queued_until", until))
	return true, nil
}

// Approve sends a draft immediately on behalf of a reviewer.
func (g *Gate) Approve(ctx context.Context, companyID, id, reviewedBy uuid.UUID) error {
	return g.send(ctx, companyID, id, types.CommDraft, &reviewedBy)
}

// ForceSend delivers a queued communication without waiting out its delay.
func (g *Gate) ForceSend(ctx context.Context, companyID, id, reviewedBy uuid.UUID) error {
	if err := g.send(ctx, companyID, id, types.CommQueued, &reviewedBy); err != nil {
		return err
	}
	g.sched.Cancel(id)
	return nil
}

// Cancel pulls a queued communication back to draft for further editing.
func (g *Gate) Cancel(ctx context.Context, companyID, id, reviewedBy uuid.UUID) error {
	err := g.store.TransitionCommunicationStatus(ctx, companyID, id,
		types.CommQueued, types.CommDraft,
		db.TransitionOptions{ReviewedBy: &reviewedBy})
	if err != nil {
		return err
	}
	g.sched.Cancel(id)
	g.logger.Info("queued send cancelled",
		zap.String("communication_id", id.String()),
		zap.String("reviewed_by", reviewedBy.String()))
	return nil
}

// Discard terminally rejects a draft or an abandoned failed send.
func (g *Gate) Discard(ctx context.Context, companyID, id, reviewedBy uuid.UUID) error {
	opts := db.TransitionOptions{ReviewedBy: &reviewedBy}
	err := g.store.TransitionCommunicationStatus(ctx, companyID, id,
		types.CommDraft, types.CommDiscarded, opts)
	var conflict *db.TransitionConflictError
	if errors.As(err, &conflict) {
		err = g.store.TransitionCommunicationStatus(ctx, companyID, id,
			types.CommFailed, types.CommDiscarded, opts)
	}
	return err
}

// Retry re-attempts delivery of a failed communication.
func (g *Gate) Retry(ctx context.Context, companyID, id, reviewedBy uuid.UUID) error {
	return g.send(ctx, companyID, id, types.CommFailed, &reviewedBy)
}

// Rescan rebuilds delivery timers for every queued communication. Called
// once on startup; queued rows whose delay already elapsed fire immediately.
func (g *Gate) Rescan(ctx context.Context) error {
	queued, err := g.store.ListQueuedCommunications(ctx)
	if err != nil {
		return err
	}
	for _, c := range queued {
		at := g.now()
		if c.QueuedUntil != nil {
			at = *c.QueuedUntil
		}
		g.sched.Schedule(c.CompanyID, c.ID, at)
	}
	g.logger.Info("rebuilt send timers", zap.Int("queued", len(queued)))
	return nil
}

// Stop disarms all timers.
func (g *Gate) Stop() {
	g.sched.Stop()
}

func (g *Gate) fireQueued(companyID, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err := g.send(ctx, companyID, id, types.CommQueued, nil)
	if err == nil {
		return
	}
	var conflict *db.TransitionConflictError
	if errors.As(err, &conflict) {
		// Someone cancelled, force-sent, or discarded first.
		g.logger.Debug("queued send superseded",
			zap.String("communication_id", id.String()))
		return
	}
	g.logger.Error("queued send failed",
		zap.String("communication_id", id.String()),
		zap.Error(err))
}

// send claims delivery by moving the communication to failed, invokes the
// transport, and only then marks it sent. A crash between claim and
// confirmation leaves the row failed, never sent, so an uncertain delivery
// always surfaces for retry instead of being silently recorded as sent.
func (g *Gate) send(ctx context.Context, companyID, id uuid.UUID, from types.CommunicationStatus, reviewedBy *uuid.UUID) error {
	opts := db.TransitionOptions{ReviewedBy: reviewedBy}
	err := g.store.TransitionCommunicationStatus(ctx, companyID, id,
		from, types.CommFailed, opts)
	if err != nil {
		return err
	}

	comm, err := g.store.GetCommunication(ctx, companyID, id)
	if err != nil {
		return err
	}
	if comm == nil {
		return &db.NotFoundError{Entity: "communication", ID: id}
	}

	if err := g.transport.SendEmail(ctx, comm); err != nil {
		g.logger.Warn("delivery failed",
			zap.String("communication_id", id.String()),
			zap.Error(err))
		return err
	}

	err = g.store.TransitionCommunicationStatus(ctx, companyID, id,
		types.CommFailed, types.CommSent, db.TransitionOptions{})
	if err != nil {
		return err
	}
	g.logger.Info("communication sent",
		zap.String("communication_id", id.String()),
		zap.String("type", string(comm.Type)))
	return nil
}
