package gate

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scheduler tracks one delivery timer per queued communication. Timers are
// in-memory only; the gate rescans the queued set on startup to rebuild them.
type Scheduler struct {
	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	fire   func(companyID, id uuid.UUID)
}

func NewScheduler(fire func(companyID, id uuid.UUID)) *Scheduler {
	return &Scheduler{
		timers: make(map[uuid.UUID]*time.Timer),
		fire:   fire,
	}
}

// Schedule arms a timer that fires at the given time. Scheduling an already
// scheduled communication replaces its timer. Past times fire immediately.
func (s *Scheduler) Schedule(companyID, id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		s.fire(companyID, id)
	})
}

// Cancel disarms the timer for a communication, if one is armed. A timer
// that already fired is a no-op; the optimistic status transition decides
// the race.
func (s *Scheduler) Cancel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Stop disarms every timer. Called on shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending reports the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
