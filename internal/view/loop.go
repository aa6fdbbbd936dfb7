// Package view connects prover output to the decorations of an open
// document: it decides what to recompute when commands change, projects
// off the UI goroutine, and installs the result on it.
package view

import (
	"context"
	"time"

	"github.com/bethropolis/proofsync/internal/logger"
)

// Dispatcher runs functions on the goroutine that owns the UI state.
// Post reports false when cancel closed before fn could be queued; fn
// then never runs. A nil cancel waits until fn is queued.
type Dispatcher interface {
	Post(fn func(), cancel <-chan struct{}) bool
}

const callTimeout = 5 * time.Second

// Loop is a Dispatcher backed by its own goroutine. Functions run in
// posting order.
type Loop struct {
	ctx    context.Context
	cancel context.CancelFunc
	cmdCh  chan func()
	done   chan struct{}
}

func NewLoop() *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{ctx: ctx, cancel: cancel, cmdCh: make(chan func(), 64), done: make(chan struct{})}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.cmdCh:
			fn()
		case <-l.ctx.Done():
			return
		}
	}
}

// Post enqueues fn. It is dropped if the loop is closed or cancel closes
// while the queue is full.
func (l *Loop) Post(fn func(), cancel <-chan struct{}) bool {
	select {
	case l.cmdCh <- fn:
		return true
	case <-l.ctx.Done():
		return false
	case <-cancel:
		return false
	}
}

// Call runs fn on the loop and waits for it. It reports false if the loop
// closed or did not respond within callTimeout.
func (l *Loop) Call(fn func()) bool {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	}, nil)
	select {
	case <-done:
		return true
	case <-l.ctx.Done():
		return false
	case <-time.After(callTimeout):
		logger.WarnTagf("annotations", "Loop call timed out")
		return false
	}
}

// Close stops the loop after the function currently running returns.
func (l *Loop) Close() {
	l.cancel()
	<-l.done
}
