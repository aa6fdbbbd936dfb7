package document

import (
	"context"
	"sync"
	"time"
)

// Scheduler debounces flushes. At most one flush is pending; a new request
// replaces it. A flush that has started always runs to completion.
type Scheduler struct {
	run func(ctx context.Context) error

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	closed bool
}

func NewScheduler(run func(ctx context.Context) error) *Scheduler {
	return &Scheduler{run: run}
}

// Request schedules a flush after delay, cancelling any pending one.
func (s *Scheduler) Request(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopLocked()
	gen := s.gen
	s.timer = time.AfterFunc(delay, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	// Errors are logged by run.
	_ = s.run(context.Background())
}

// stopLocked cancels the pending flush. Caller holds s.mu.
func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// Cancel drops the pending flush, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

// Pending reports whether a flush is scheduled and not yet started.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// FlushNow cancels the pending flush and runs one on the caller's goroutine.
// It still works after Close.
func (s *Scheduler) FlushNow(ctx context.Context) error {
	s.Cancel()
	return s.run(ctx)
}

// Close cancels the pending flush and rejects future requests.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopLocked()
	s.mu.Unlock()
}
