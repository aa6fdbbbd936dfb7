package document

import (
	"context"
	"sync"
	"time"

	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/text"
)

type submission struct {
	init        bool
	header      prover.HeaderResult
	perspective text.Perspective
	edits       []text.Edit
	content     string
	lockHeld    bool
}

// fakeSession records submissions in order.
type fakeSession struct {
	delay time.Duration
	lock  *prover.SubmitLock
	fail  error

	// When set, ApplyEdits signals applying and then waits for gate.
	applying chan struct{}
	gate     chan struct{}

	mu   sync.Mutex
	subs []submission
}

func newFakeSession(delay time.Duration) *fakeSession {
	return &fakeSession{delay: delay, lock: prover.NewSubmitLock()}
}

func (f *fakeSession) ID() string                     { return "fake" }
func (f *fakeSession) InputDelay() time.Duration      { return f.delay }
func (f *fakeSession) SubmitLock() *prover.SubmitLock { return f.lock }

func (f *fakeSession) Subscribe(event.Type, event.Handler) event.SubscriptionID { return 0 }
func (f *fakeSession) Unsubscribe(event.SubscriptionID)                         {}

func (f *fakeSession) InitDocument(ctx context.Context, ref prover.DocumentRef, h prover.HeaderResult, p text.Perspective, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, submission{init: true, header: h, perspective: p, content: content, lockHeld: f.lock.Held(ctx)})
	return nil
}

func (f *fakeSession) ApplyEdits(ctx context.Context, ref prover.DocumentRef, h prover.HeaderResult, p text.Perspective, edits []text.Edit) error {
	if f.applying != nil {
		f.applying <- struct{}{}
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, submission{header: h, perspective: p, edits: edits, lockHeld: f.lock.Held(ctx)})
	return f.fail
}

func (f *fakeSession) Snapshot(ref prover.DocumentRef, pending []text.Edit) (prover.Snapshot, error) {
	return &fakeSnapshot{ref: ref, pending: pending}, nil
}

func (f *fakeSession) submissions() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submission(nil), f.subs...)
}

// applied returns the non-init submissions.
func (f *fakeSession) applied() []submission {
	var out []submission
	for _, s := range f.submissions() {
		if !s.init {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSession) allEdits() []text.Edit {
	var out []text.Edit
	for _, s := range f.applied() {
		out = append(out, s.edits...)
	}
	return out
}

type fakeSnapshot struct {
	ref     prover.DocumentRef
	pending []text.Edit
}

func (s *fakeSnapshot) Ref() prover.DocumentRef    { return s.ref }
func (s *fakeSnapshot) Version() int64             { return 0 }
func (s *fakeSnapshot) IsOutdated() bool           { return len(s.pending) > 0 }
func (s *fakeSnapshot) Commands() []prover.Command { return nil }
func (s *fakeSnapshot) Command(prover.CommandID) (prover.Command, bool) {
	return prover.Command{}, false
}
func (s *fakeSnapshot) CommandsIn(text.Range) ([]prover.Command, error) { return nil, nil }
func (s *fakeSnapshot) Status(prover.CommandID) (prover.CommandStatus, error) {
	return prover.CommandStatus{}, prover.ErrUnknownCommand
}
func (s *fakeSnapshot) SelectMarkup(text.Range, ...string) ([]prover.Markup, error) { return nil, nil }
func (s *fakeSnapshot) SelectMessages(text.Range, ...string) ([]prover.Message, error) {
	return nil, nil
}
