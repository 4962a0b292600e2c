package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/candorhq/candor/internal/db"
	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu    sync.Mutex
	comms map[uuid.UUID]*types.Communication
}

func newFakeStore(comms ...*types.Communication) *fakeStore {
	s := &fakeStore{comms: make(map[uuid.UUID]*types.Communication)}
	for _, c := range comms {
		s.comms[c.ID] = c
	}
	return s
}

func (s *fakeStore) GetCommunication(_ context.Context, _, id uuid.UUID) (*types.Communication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comms[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) TransitionCommunicationStatus(_ context.Context, _, id uuid.UUID, from, to types.CommunicationStatus, opts db.TransitionOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comms[id]
	if !ok || c.Status != from {
		return &db.TransitionConflictError{CommunicationID: id, Expected: from}
	}
	c.Status = to
	if to == types.CommQueued {
		c.QueuedUntil = opts.QueuedUntil
	} else {
		c.QueuedUntil = nil
	}
	if to == types.CommSent {
		now := time.Now()
		c.SentAt = &now
	}
	if opts.ReviewedBy != nil {
		c.ReviewedBy = opts.ReviewedBy
	}
	return nil
}

func (s *fakeStore) ListQueuedCommunications(_ context.Context) ([]types.Communication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Communication
	for _, c := range s.comms {
		if c.Status == types.CommQueued {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) status(id uuid.UUID) types.CommunicationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comms[id].Status
}

type fakeTransport struct {
	mu    sync.Mutex
	fail  bool
	sent  []uuid.UUID
	calls int
}

func (t *fakeTransport) SendEmail(_ context.Context, comm *types.Communication) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.fail {
		return &TransportError{Message: "provider unavailable"}
	}
	t.sent = append(t.sent, comm.ID)
	return nil
}

func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

func draftComm(score float64) *types.Communication {
	return &types.Communication{
		ID:              uuid.New(),
		CompanyID:       uuid.New(),
		CandidateID:     uuid.New(),
		Type:            types.TypeRejection,
		Status:          types.CommDraft,
		Subject:         "Your application",
		Body:            "Thanks for applying.",
		ConfidenceScore: score,
		CreatedAt:       time.Now(),
	}
}

func newTestGate(store Store, transport Transport, delay time.Duration) *Gate {
	return New(store, transport, DefaultAutoSendThreshold, delay, zap.NewNop())
}

func TestSubmit_AboveThresholdQueues(t *testing.T) {
	comm := draftComm(0.92)
	store := newFakeStore(comm)
	g := newTestGate(store, &fakeTransport{}, time.Hour)
	defer g.Stop()

	queued, err := g.Submit(context.Background(), comm)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, types.CommQueued, store.status(comm.ID))
	assert.Equal(t, 1, g.sched.Pending())
}

func TestSubmit_AtThresholdQueues(t *testing.T) {
	comm := draftComm(0.8)
	store := newFakeStore(comm)
	g := newTestGate(store, &fakeTransport{}, time.Hour)
	defer g.Stop()

	queued, err := g.Submit(context.Background(), comm)
	require.NoError(t, err)
	assert.True(t, queued)
}

func TestSubmit_BelowThresholdStaysDraft(t *testing.T) {
	comm := draftComm(0.79)
	store := newFakeStore(comm)
	g := newTestGate(store, &fakeTransport{}, time.Hour)
	defer g.Stop()

	queued, err := g.Submit(context.Background(), comm)
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, types.CommDraft, store.status(comm.ID))
	assert.Equal(t, 0, g.sched.Pending())
}

func TestQueuedSendsAfterDelay(t *testing.T) {
	comm := draftComm(0.9)
	store := newFakeStore(comm)
	transport := &fakeTransport{}
	g := newTestGate(store, transport, 10*time.Millisecond)
	defer g.Stop()

	_, err := g.Submit(context.Background(), comm)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return store.status(comm.ID) == types.CommSent
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, transport.sentCount())
}

func TestCancel_ReturnsQueuedToDraft(t *testing.T) {
	comm := draftComm(0.9)
	store := newFakeStore(comm)
	transport := &fakeTransport{}
	g := newTestGate(store, transport, time.Hour)
	defer g.Stop()

	_, err := g.Submit(context.Background(), comm)
	require.NoError(t, err)

	reviewer := uuid.New()
	require.NoError(t, g.Cancel(context.Background(), comm.CompanyID, comm.ID, reviewer))
	assert.Equal(t, types.CommDraft, store.status(comm.ID))
	assert.Equal(t, 0, g.sched.Pending())
	assert.Equal(t, 0, transport.sentCount())
}

func TestCancel_AfterTimerFiredConflicts(t *testing.T) {
	comm := draftComm(0.9)
	store := newFakeStore(comm)
	transport := &fakeTransport{}
	g := newTestGate(store, transport, time.Millisecond)
	defer g.Stop()

	_, err := g.Submit(context.Background(), comm)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return store.status(comm.ID) == types.CommSent
	}, time.Second, time.Millisecond)

	err = g.Cancel(context.Background(), comm.CompanyID, comm.ID, uuid.New())
	var conflict *db.TransitionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, types.CommSent, store.status(comm.ID))
}

func TestApprove_SendsDraftImmediately(t *testing.T) {
	comm := draftComm(0.5)
	store := newFakeStore(comm)
	transport := &fakeTransport{}
	g := newTestGate(store, transport, time.Hour)
	defer g.Stop()

	reviewer := uuid.New()
	require.NoError(t, g.Approve(context.Background(), comm.CompanyID, comm.ID, reviewer))
	assert.Equal(t, types.CommSent, store.status(comm.ID))
	assert.Equal(t, 1, transport.sentCount())
	assert.Equal(t, &reviewer, store.comms[comm.ID].ReviewedBy)
}

func TestApprove_SentIsTerminal(t *testing.T) {
	comm := draftComm(0.5)
	comm.Status = types.CommSent
	store := newFakeStore(comm)
	g := newTestGate(store, &fakeTransport{}, time.Hour)
	defer g.Stop()

	err := g.Approve(context.Background(), comm.CompanyID, comm.ID, uuid.New())
	var conflict *db.TransitionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, types.CommSent, store.status(comm.ID))
}

func TestDiscard_DraftAndFailed(t *testing.T) {
	draft := draftComm(0.5)
	failed := draftComm(0.5)
	failed.Status = types.CommFailed
	sent := draftComm(0.5)
	sent.Status = types.CommSent
	store := newFakeStore(draft, failed, sent)
	g := newTestGate(store, &fakeTransport{}, time.Hour)
	defer g.Stop()

	reviewer := uuid.New()
	require.NoError(t, g.Discard(context.Background(), draft.CompanyID, draft.ID, reviewer))
	assert.Equal(t, types.CommDiscarded, store.status(draft.ID))

	require.NoError(t, g.Discard(context.Background(), failed.CompanyID, failed.ID, reviewer))
	assert.Equal(t, types.CommDiscarded, store.status(failed.ID))

	err := g.Discard(context.Background(), sent.CompanyID, sent.ID, reviewer)
	var conflict *db.TransitionConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestTransportFailureLeavesFailed(t *testing.T) {
	comm := draftComm(0.5)
	store := newFakeStore(comm)
	transport := &fakeTransport{fail: true}
	g := newTestGate(store, transport, time.Hour)
	defer g.Stop()

	err := g.Approve(context.Background(), comm.CompanyID, comm.ID, uuid.New())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.CommFailed, store.status(comm.ID))
}

func TestRetry_RecoversFailedSend(t *testing.T) {
	comm := draftComm(0.5)
	store := newFakeStore(comm)
	transport := &fakeTransport{fail: true}
	g := newTestGate(store, transport, time.Hour)
	defer g.Stop()

	reviewer := uuid.New()
	require.Error(t, g.Approve(context.Background(), comm.CompanyID, comm.ID, reviewer))
	require.Equal(t, types.CommFailed, store.status(comm.ID))

	transport.mu.Lock()
	transport.fail = false
	transport.mu.Unlock()

	require.NoError(t, g.Retry(context.Background(), comm.CompanyID, comm.ID, reviewer))
	assert.Equal(t, types.CommSent, store.status(comm.ID))
	assert.Equal(t, 1, transport.sentCount())
}

func TestForceSend_SkipsDelay(t *testing.T) {
	comm := draftComm(0.9)
	store := newFakeStore(comm)
	transport := &fakeTransport{}
	g := newTestGate(store, transport, time.Hour)
	defer g.Stop()

	_, err := g.Submit(context.Background(), comm)
	require.NoError(t, err)

	require.NoError(t, g.ForceSend(context.Background(), comm.CompanyID, comm.ID, uuid.New()))
	assert.Equal(t, types.CommSent, store.status(comm.ID))
	assert.Equal(t, 0, g.sched.Pending())
}

func TestRescan_RebuildsTimers(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	due := draftComm(0.9)
	due.Status = types.CommQueued
	due.QueuedUntil = &past
	later := draftComm(0.9)
	later.Status = types.CommQueued
	later.QueuedUntil = &future

	store := newFakeStore(due, later)
	transport := &fakeTransport{}
	g := newTestGate(store, transport, time.Hour)
	defer g.Stop()

	require.NoError(t, g.Rescan(context.Background()))

	require.Eventually(t, func() bool {
		return store.status(due.ID) == types.CommSent
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, types.CommQueued, store.status(later.ID))
	assert.Equal(t, 1, g.sched.Pending())
}

func TestConcurrentSendAndCancel_ExactlyOneWins(t *testing.T) {
	for i := 0; i < 20; i++ {
		comm := draftComm(0.9)
		comm.Status = types.CommQueued
		store := newFakeStore(comm)
		transport := &fakeTransport{}
		g := newTestGate(store, transport, time.Hour)

		var wg sync.WaitGroup
		var sendErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			sendErr = g.ForceSend(context.Background(), comm.CompanyID, comm.ID, uuid.New())
		}()
		go func() {
			defer wg.Done()
			cancelErr = g.Cancel(context.Background(), comm.CompanyID, comm.ID, uuid.New())
		}()
		wg.Wait()
		g.Stop()

		var conflict *db.TransitionConflictError
		if sendErr == nil {
			require.ErrorAs(t, cancelErr, &conflict)
			assert.Equal(t, types.CommSent, store.status(comm.ID))
		} else {
			require.True(t, errors.As(sendErr, &conflict))
			require.NoError(t, cancelErr)
			assert.Equal(t, types.CommDraft, store.status(comm.ID))
		}
	}
}
