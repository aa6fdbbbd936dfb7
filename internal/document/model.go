// Package document keeps a prover's copy of a buffer in sync. Buffer edits
// are queued as they happen and flushed to the session after the input
// delay, together with the current perspective.
package document

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bethropolis/proofsync/internal/buffer"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/metrics"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/text"
)

var (
	ErrNotInitialized     = errors.New("document: model not initialized")
	ErrAlreadyInitialized = errors.New("document: model already initialized")
	ErrDisposed           = errors.New("document: model disposed")
)

type State int32

const (
	StateUninitialized State = iota
	StateActive
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

// Model mirrors one buffer into one prover session document.
type Model struct {
	ref     prover.DocumentRef
	session prover.Session
	buf     buffer.Buffer

	mu    sync.RWMutex // shared by queue and perspective
	queue *EditQueue
	// handoff is held by a flush from draining the queue until the session
	// has the edits, so Snapshot never sees them in neither place.
	handoff sync.RWMutex
	persp   *PerspectiveTracker
	sched   *Scheduler

	lifeMu     sync.Mutex
	state      atomic.Int32
	listenerID buffer.ListenerID

	// Guarded by the session submit lock.
	lastPerspective text.Perspective
}

// New creates an uninitialized model. Call Init to start syncing.
func New(sess prover.Session, buf buffer.Buffer, ref prover.DocumentRef) *Model {
	m := &Model{ref: ref, session: sess, buf: buf}
	m.queue = NewEditQueue(&m.mu, m.requestFlush)
	m.persp = NewPerspectiveTracker(&m.mu, buf.Len, m.requestFlush)
	m.sched = NewScheduler(m.flushPending)
	return m
}

func (m *Model) Ref() prover.DocumentRef       { return m.ref }
func (m *Model) Session() prover.Session       { return m.session }
func (m *Model) Buffer() buffer.Buffer         { return m.buf }
func (m *Model) State() State                  { return State(m.state.Load()) }
func (m *Model) PendingEdits() int             { return m.queue.Len() }
func (m *Model) Perspective() text.Perspective { return m.persp.Current() }

// Init registers the buffer listener and submits the full buffer with an
// empty perspective. It must run on the goroutine that writes the buffer
// so no edit falls between the listener registration and the text read.
func (m *Model) Init(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	switch m.State() {
	case StateActive:
		return ErrAlreadyInitialized
	case StateDisposed:
		return ErrDisposed
	}

	ctx, release, err := m.session.SubmitLock().Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	m.listenerID = m.buf.AddListener(changeListener{m})
	content := m.buf.Text()
	header := prover.ParseHeader(m.ref, content)
	if !header.OK() {
		logger.WarnTagf("flush", "%s: %v", m.ref, header.Err)
	}
	if err := m.session.InitDocument(ctx, m.ref, header, text.Perspective{}, content); err != nil {
		m.buf.RemoveListener(m.listenerID)
		return err
	}
	m.lastPerspective = text.Perspective{}
	m.state.Store(int32(StateActive))
	logger.InfoTagf("flush", "Initialized %s (%d runes) in session %s", m.ref, len([]rune(content)), m.session.ID())
	return nil
}

// Dispose stops listening to the buffer, cancels the pending flush and
// submits whatever is still queued. A second call does nothing. If ctx
// already holds the submit lock the final flush reuses it.
func (m *Model) Dispose(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	prev := m.State()
	if prev == StateDisposed {
		return nil
	}
	m.state.Store(int32(StateDisposed))
	m.sched.Close()
	if prev == StateUninitialized {
		return nil
	}
	m.buf.RemoveListener(m.listenerID)
	err := m.sched.FlushNow(ctx)
	logger.InfoTagf("flush", "Disposed %s", m.ref)
	return err
}

// Snapshot asks the session for the document state as if the queued edits
// had already been submitted. It waits for a flush that is handing edits
// to the session.
func (m *Model) Snapshot() (prover.Snapshot, error) {
	switch m.State() {
	case StateUninitialized:
		return nil, ErrNotInitialized
	case StateDisposed:
		return nil, ErrDisposed
	}
	m.handoff.RLock()
	defer m.handoff.RUnlock()
	return m.session.Snapshot(m.ref, m.queue.Pending())
}

// SetActivePerspective updates the region the prover should check.
func (m *Model) SetActivePerspective(offset, length int) {
	if m.State() != StateActive {
		return
	}
	if m.persp.SetActive(offset, length) {
		logger.DebugTagf("perspective", "%s: active %v", m.ref, m.persp.Current())
	}
}

// Flush cancels the pending flush and submits now.
func (m *Model) Flush(ctx context.Context) error {
	if m.State() != StateActive {
		return ErrNotInitialized
	}
	return m.sched.FlushNow(ctx)
}

// SubmitFullPerspective flushes queued edits, then asks the prover to
// check the whole document.
func (m *Model) SubmitFullPerspective(ctx context.Context) error {
	if m.State() != StateActive {
		return ErrNotInitialized
	}
	ctx, release, err := m.session.SubmitLock().Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := m.sched.FlushNow(ctx); err != nil {
		return err
	}
	full := text.Full(m.buf.Len())
	header := prover.ParseHeader(m.ref, m.buf.Text())
	if err := m.session.ApplyEdits(ctx, m.ref, header, full, nil); err != nil {
		logger.ErrorTagf("flush", "%s: full perspective: %v", m.ref, err)
		return err
	}
	m.lastPerspective = full
	return nil
}

func (m *Model) requestFlush() {
	if m.State() == StateDisposed {
		return
	}
	m.sched.Request(m.session.InputDelay())
}

// flushPending submits queued edits and the perspective under the
// session-wide submit lock. Failures are logged, counted and returned;
// nothing is retried.
func (m *Model) flushPending(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.FlushDuration.Observe(time.Since(start).Seconds()) }()

	ctx, release, err := m.session.SubmitLock().Acquire(ctx)
	if err != nil {
		metrics.Flushes.WithLabelValues(metrics.FlushFailed).Inc()
		logger.WarnTagf("flush", "%s: submit lock: %v", m.ref, err)
		return err
	}
	defer release()

	m.handoff.Lock()
	edits := m.queue.DrainAndClear()
	perspective, dirty := m.persp.TakeDirty()
	if !dirty {
		perspective = m.lastPerspective
	}
	if len(edits) == 0 && perspective.Equal(m.lastPerspective) {
		m.handoff.Unlock()
		metrics.Flushes.WithLabelValues(metrics.FlushNoop).Inc()
		return nil
	}

	header := prover.ParseHeader(m.ref, m.buf.Text())
	err = m.session.ApplyEdits(ctx, m.ref, header, perspective, edits)
	m.handoff.Unlock()
	if err != nil {
		metrics.Flushes.WithLabelValues(metrics.FlushFailed).Inc()
		logger.ErrorTagf("flush", "%s: submitting %d edits: %v", m.ref, len(edits), err)
		return err
	}
	m.lastPerspective = perspective
	metrics.Flushes.WithLabelValues(metrics.FlushSubmitted).Inc()
	metrics.EditsSubmitted.Add(float64(len(edits)))
	logger.DebugTagf("flush", "%s: submitted %d edits, perspective %v", m.ref, len(edits), perspective)
	return nil
}

// changeListener turns buffer notifications into queued edits. Removals are
// captured before the text disappears, insertions after it arrives.
type changeListener struct{ m *Model }

func (l changeListener) DocumentAboutToBeChanged(ev buffer.ChangeEvent) {
	if ev.Length <= 0 {
		return
	}
	removed, err := l.m.buf.Slice(ev.Offset, ev.Length)
	if err != nil {
		logger.WarnTagf("flush", "%s: reading removed text: %v", l.m.ref, err)
		return
	}
	l.m.queue.Record(text.Remove(ev.Offset, removed))
}

func (l changeListener) DocumentChanged(ev buffer.ChangeEvent) {
	if ev.Text != "" {
		l.m.queue.Record(text.Insert(ev.Offset, ev.Text))
	}
	l.m.persp.Refit()
}
