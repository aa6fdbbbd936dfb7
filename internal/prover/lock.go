package prover

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type holdKey struct{ l *SubmitLock }

// SubmitLock is a session-wide mutex for prover submissions. Ownership
// travels in the context returned by Acquire, so a call path that already
// holds the lock can acquire it again without blocking.
type SubmitLock struct {
	sem *semaphore.Weighted
}

func NewSubmitLock() *SubmitLock {
	return &SubmitLock{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the lock is free or ctx is done. The returned
// context marks ownership and must be passed to nested acquisitions.
// release is idempotent; for a nested acquisition it does nothing.
func (l *SubmitLock) Acquire(ctx context.Context) (context.Context, func(), error) {
	if l.Held(ctx) {
		return ctx, func() {}, nil
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return ctx, func() {}, err
	}
	var once sync.Once
	release := func() { once.Do(func() { l.sem.Release(1) }) }
	return context.WithValue(ctx, holdKey{l}, true), release, nil
}

// TryAcquire is Acquire without blocking; ok is false if the lock is taken.
func (l *SubmitLock) TryAcquire(ctx context.Context) (context.Context, func(), bool) {
	if l.Held(ctx) {
		return ctx, func() {}, true
	}
	if !l.sem.TryAcquire(1) {
		return ctx, func() {}, false
	}
	var once sync.Once
	release := func() { once.Do(func() { l.sem.Release(1) }) }
	return context.WithValue(ctx, holdKey{l}, true), release, true
}

// Held reports whether ctx carries ownership of l.
func (l *SubmitLock) Held(ctx context.Context) bool {
	held, _ := ctx.Value(holdKey{l}).(bool)
	return held
}
