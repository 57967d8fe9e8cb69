package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// MemoryScheduler keeps one timer per job in process memory. Pending jobs are
// lost on restart.
type MemoryScheduler struct {
	*registry
	mu     sync.Mutex
	timers map[string]*time.Timer
	now    func() time.Time
}

// NewMemoryScheduler creates an in-process scheduler.
func NewMemoryScheduler(logger *logging.Logger) *MemoryScheduler {
	return &MemoryScheduler{
		registry: newRegistry(logger),
		timers:   make(map[string]*time.Timer),
		now:      time.Now,
	}
}

// Schedule arms a timer for job. Rescheduling an id replaces the earlier timer.
func (s *MemoryScheduler) Schedule(ctx context.Context, job Job) error {
	if !s.has(job.Kind) {
		return fmt.Errorf("%w: %s", ErrNoHandler, job.Kind)
	}
	delay := job.RunAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[job.ID]; ok {
		existing.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		if !s.claim(job.ID, &timer) {
			return
		}
		s.dispatch(context.Background(), job)
	})
	s.timers[job.ID] = timer
	return nil
}

// Cancel stops the job's timer. Unknown ids are ignored.
func (s *MemoryScheduler) Cancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[jobID]; ok {
		timer.Stop()
		delete(s.timers, jobID)
	}
	return nil
}

// Pending returns the number of armed timers.
func (s *MemoryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending job.
func (s *MemoryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// claim removes the job if timer is still the one armed for id. The timer
// variable is only read under the lock, after Schedule has assigned it.
func (s *MemoryScheduler) claim(id string, timer **time.Timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.timers[id]; !ok || current != *timer {
		return false
	}
	delete(s.timers, id)
	return true
}
