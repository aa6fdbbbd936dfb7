// Package local is an in-process prover session. It splits a theory into
// blank-line separated commands and "checks" the ones inside the submitted
// perspective in timed steps, producing statuses, markup and messages from
// a few recognisable keywords.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/text"
)

var ErrEditMismatch = errors.New("local: edit does not match document")

// Options tune the simulated prover.
type Options struct {
	InputDelay time.Duration
	StepDelay  time.Duration
}

func DefaultOptions() Options {
	return Options{
		InputDelay: 300 * time.Millisecond,
		StepDelay:  200 * time.Millisecond,
	}
}

type node struct {
	ref         prover.DocumentRef
	content     []rune
	header      prover.HeaderResult
	perspective text.Perspective
	commands    []*command
}

// Session implements prover.Session in memory.
type Session struct {
	id     string
	opts   Options
	events *event.Manager
	lock   *prover.SubmitLock

	mu      sync.Mutex
	nodes   map[prover.DocumentRef]*node
	nextID  prover.CommandID
	version int64
	closed  bool

	startOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New creates a session. Call Start to run background checking, or drive
// it with Step.
func New(opts Options) *Session {
	return &Session{
		id:     uuid.NewString(),
		opts:   opts,
		events: event.NewManager(),
		lock:   prover.NewSubmitLock(),
		nodes:  make(map[prover.DocumentRef]*node),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) InputDelay() time.Duration { return s.opts.InputDelay }

func (s *Session) SubmitLock() *prover.SubmitLock { return s.lock }

func (s *Session) Subscribe(t event.Type, h event.Handler) event.SubscriptionID {
	return s.events.Subscribe(t, h)
}

func (s *Session) Unsubscribe(id event.SubscriptionID) {
	s.events.Unsubscribe(id)
}

// Start runs Step every StepDelay until Close.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

func (s *Session) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.StepDelay)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Close stops background checking. Further submissions fail.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stop)
	started := true
	s.startOnce.Do(func() { started = false })
	if started {
		<-s.done
	}
	logger.InfoTagf("local", "Session %s closed", s.id)
	return nil
}

func (s *Session) InitDocument(ctx context.Context, ref prover.DocumentRef, header prover.HeaderResult, p text.Perspective, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return prover.ErrSessionClosed
	}
	n := &node{ref: ref, content: []rune(content), header: header, perspective: p}
	old := s.nodes[ref]
	s.nodes[ref] = n
	var changed []prover.CommandID
	if old != nil {
		for _, c := range old.commands {
			changed = append(changed, c.id)
		}
	}
	changed = append(changed, s.reparse(n)...)
	s.version++
	s.mu.Unlock()

	logger.DebugTagf("local", "Init %s: %d runes, header ok=%v", ref, len(n.content), header.OK())
	s.publish(ref, changed)
	return nil
}

func (s *Session) ApplyEdits(ctx context.Context, ref prover.DocumentRef, header prover.HeaderResult, p text.Perspective, edits []text.Edit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return prover.ErrSessionClosed
	}
	n, ok := s.nodes[ref]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", prover.ErrUnknownDocument, ref)
	}
	content := n.content
	for i, e := range edits {
		var err error
		if content, err = applyEdit(content, e); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("edit %d of %d (%s): %w", i+1, len(edits), e, err)
		}
	}
	n.content = content
	n.header = header
	n.perspective = append(text.Perspective(nil), p...)
	changed := s.reparse(n)
	s.version++
	s.mu.Unlock()

	logger.DebugTagf("local", "Applied %d edits to %s, perspective %v, %d commands changed", len(edits), ref, p, len(changed))
	s.publish(ref, changed)
	return nil
}

func applyEdit(content []rune, e text.Edit) ([]rune, error) {
	ins := []rune(e.Text)
	if e.IsInsert() {
		if e.Offset < 0 || e.Offset > len(content) {
			return nil, fmt.Errorf("%w: insert at %d of %d", ErrEditMismatch, e.Offset, len(content))
		}
		out := make([]rune, 0, len(content)+len(ins))
		out = append(out, content[:e.Offset]...)
		out = append(out, ins...)
		return append(out, content[e.Offset:]...), nil
	}
	end := e.Offset + len(ins)
	if e.Offset < 0 || end > len(content) || string(content[e.Offset:end]) != e.Text {
		return nil, fmt.Errorf("%w: remove %q at %d", ErrEditMismatch, e.Text, e.Offset)
	}
	out := make([]rune, 0, len(content)-len(ins))
	out = append(out, content[:e.Offset]...)
	return append(out, content[end:]...), nil
}

// Text returns the prover's copy of a document.
func (s *Session) Text(ref prover.DocumentRef) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[ref]
	if !ok {
		return "", prover.ErrUnknownDocument
	}
	return string(n.content), nil
}

// Perspective returns the last perspective submitted for a document.
func (s *Session) Perspective(ref prover.DocumentRef) (text.Perspective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[ref]
	if !ok {
		return nil, prover.ErrUnknownDocument
	}
	return append(text.Perspective(nil), n.perspective...), nil
}

// Step advances every command inside its document's perspective by one
// stage and reports the commands that changed.
func (s *Session) Step() {
	type change struct {
		ref prover.DocumentRef
		ids []prover.CommandID
	}
	var changes []change

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for ref, n := range s.nodes {
		var ids []prover.CommandID
		firstReal := true
		for _, c := range n.commands {
			if c.ignored {
				continue
			}
			headerErr := error(nil)
			if firstReal {
				headerErr = n.header.Err
				firstReal = false
			}
			if !visible(n.perspective, c.span()) {
				continue
			}
			if c.advance(headerErr) {
				ids = append(ids, c.id)
			}
		}
		if len(ids) > 0 {
			changes = append(changes, change{ref: ref, ids: ids})
		}
	}
	if len(changes) > 0 {
		s.version++
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.publish(c.ref, c.ids)
	}
}

func visible(p text.Perspective, r text.Range) bool {
	for _, pr := range p {
		if !pr.IsEmpty() && pr.Overlaps(r) {
			return true
		}
	}
	return false
}

func (s *Session) publish(ref prover.DocumentRef, ids []prover.CommandID) {
	if len(ids) == 0 {
		return
	}
	s.events.Dispatch(event.TypeCommandsChanged, prover.CommandsChanged{
		Nodes:    []prover.DocumentRef{ref},
		Commands: ids,
	})
}

// Snapshot captures the document state as if pending were applied.
func (s *Session) Snapshot(ref prover.DocumentRef, pending []text.Edit) (prover.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", prover.ErrUnknownDocument, ref)
	}
	return newSnapshot(n, s.version, pending), nil
}

var _ prover.Session = (*Session)(nil)
