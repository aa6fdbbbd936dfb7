package view

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/proofsync/internal/annotation"
	"github.com/bethropolis/proofsync/internal/buffer"
	"github.com/bethropolis/proofsync/internal/decoration"
	"github.com/bethropolis/proofsync/internal/document"
	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/prover/local"
	"github.com/bethropolis/proofsync/internal/text"
)

const theory = "theory A imports Main begin\n\nlemma a: True by simp\n\nlemma b: False sorry\n"

var refA = prover.DocumentRef{Name: "A"}

type installCall struct {
	changed []text.Range
	anns    []annotation.Info
}

type recordingInstaller struct {
	calls   chan installCall
	gate    chan struct{}
	entered chan struct{}
}

func (r *recordingInstaller) Update(changed []text.Range, anns []annotation.Info) (decoration.Result, error) {
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.gate != nil {
		<-r.gate
	}
	r.calls <- installCall{changed: changed, anns: anns}
	return decoration.Result{}, nil
}

func (r *recordingInstaller) next(t *testing.T) installCall {
	t.Helper()
	select {
	case c := <-r.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no install")
		return installCall{}
	}
}

type fixture struct {
	sess  *local.Session
	buf   *buffer.RuneBuffer
	model *document.Model
	loop  *Loop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sess := local.New(local.Options{InputDelay: time.Hour, StepDelay: time.Hour})
	buf := buffer.NewRuneBuffer(theory)
	m := document.New(sess, buf, refA)
	require.NoError(t, m.Init(context.Background()))
	loop := NewLoop()
	t.Cleanup(func() {
		loop.Close()
		_ = m.Dispose(context.Background())
		_ = sess.Close()
	})
	return &fixture{sess: sess, buf: buf, model: m, loop: loop}
}

func (f *fixture) command(t *testing.T, name string, nth int) prover.Command {
	t.Helper()
	snap, err := f.model.Snapshot()
	require.NoError(t, err)
	for _, c := range snap.Commands() {
		if c.Name == name {
			if nth == 0 {
				return c
			}
			nth--
		}
	}
	t.Fatalf("no command %s", name)
	return prover.Command{}
}

func kinds(anns []annotation.Info) []annotation.Kind {
	var out []annotation.Kind
	for _, a := range anns {
		out = append(out, a.Kind)
	}
	return out
}

func TestFirstUpdateIsFull(t *testing.T) {
	f := newFixture(t)
	inst := &recordingInstaller{calls: make(chan installCall, 8)}
	a := NewAnnotations(f.model, inst, f.loop, nil)
	defer a.Close()

	a.RequestAll()
	call := inst.next(t)
	assert.Nil(t, call.changed, "full update diffs the whole document")
	assert.Equal(t, []annotation.Kind{annotation.KindUnprocessed, annotation.KindUnprocessed, annotation.KindUnprocessed}, kinds(call.anns))
}

func TestIncrementalThenFullAfterOutdated(t *testing.T) {
	f := newFixture(t)
	inst := &recordingInstaller{calls: make(chan installCall, 8)}
	a := NewAnnotations(f.model, inst, f.loop, nil)
	defer a.Close()

	a.RequestAll()
	inst.next(t)

	require.NoError(t, f.model.SubmitFullPerspective(context.Background()))
	f.sess.Step()
	lemmaB := f.command(t, "lemma", 1)

	a.RequestCommands([]prover.CommandID{lemmaB.ID})
	call := inst.next(t)
	assert.Equal(t, []text.Range{lemmaB.Range}, call.changed)
	assert.Equal(t, []annotation.Kind{annotation.KindTokenRange}, kinds(call.anns))

	// A pending edit makes the snapshot outdated.
	require.NoError(t, f.buf.Insert(0, " "))
	a.RequestCommands([]prover.CommandID{lemmaB.ID})
	call = inst.next(t)
	require.NotNil(t, call.changed)
	assert.Contains(t, kinds(call.anns), annotation.KindOutdated)

	a.RequestCommands([]prover.CommandID{lemmaB.ID})
	call = inst.next(t)
	assert.Nil(t, call.changed, "previous snapshot was outdated")
}

func TestUnknownCommandForcesFullUpdate(t *testing.T) {
	f := newFixture(t)
	inst := &recordingInstaller{calls: make(chan installCall, 8)}
	a := NewAnnotations(f.model, inst, f.loop, nil)
	defer a.Close()

	a.RequestAll()
	inst.next(t)
	a.RequestCommands([]prover.CommandID{9999})
	assert.Nil(t, inst.next(t).changed)
}

func TestPendingRequestsAreMerged(t *testing.T) {
	f := newFixture(t)
	inst := &recordingInstaller{
		calls:   make(chan installCall, 8),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 8),
	}
	a := NewAnnotations(f.model, inst, f.loop, nil)
	defer a.Close()

	a.RequestAll()
	<-inst.entered
	head := f.command(t, "theory", 0)
	lemmaB := f.command(t, "lemma", 1)
	a.RequestCommands([]prover.CommandID{head.ID})
	a.RequestCommands([]prover.CommandID{lemmaB.ID})

	inst.gate <- struct{}{}
	inst.next(t)
	inst.gate <- struct{}{}
	call := inst.next(t)
	assert.Equal(t, []text.Range{head.Range, lemmaB.Range}, call.changed)

	select {
	case c := <-inst.calls:
		t.Fatalf("unexpected third install %v", c.changed)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestEventsForOtherDocumentsAreIgnored(t *testing.T) {
	f := newFixture(t)
	inst := &recordingInstaller{calls: make(chan installCall, 8)}
	a := NewAnnotations(f.model, inst, f.loop, nil)
	defer a.Close()

	a.HandleEvent(event.Event{Type: event.TypeCommandsChanged, Data: prover.CommandsChanged{
		Nodes:    []prover.DocumentRef{{Name: "B"}},
		Commands: []prover.CommandID{1},
	}})
	select {
	case <-inst.calls:
		t.Fatal("installed for another document")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestEndToEndDecorations(t *testing.T) {
	f := newFixture(t)
	store := decoration.NewMemoryStore()
	f.loop.Call(func() { f.buf.AddListener(store) })
	updater := decoration.NewUpdater(decoration.DefaultConfig(), f.buf, store, nil, "A.thy")

	installed := make(chan decoration.Result, 16)
	a := NewAnnotations(f.model, updater, f.loop, func(r decoration.Result) { installed <- r })
	defer a.Close()
	f.sess.Subscribe(event.TypeCommandsChanged, a.HandleEvent)

	require.NoError(t, f.model.SubmitFullPerspective(context.Background()))
	for i := 0; i < 4; i++ {
		f.sess.Step()
	}
	a.RequestAll()

	require.Eventually(t, func() bool {
		var found bool
		f.loop.Call(func() {
			for _, d := range store.All() {
				if d.Type == decoration.DecorationType(annotation.KindWarning) && d.Message == "Skipped proof" {
					found = true
				}
			}
		})
		return found
	}, 2*time.Second, 10*time.Millisecond)

	f.loop.Call(func() {
		for _, d := range store.All() {
			assert.NotEqual(t, decoration.DecorationType(annotation.KindUnprocessed), d.Type)
		}
	})
}

func TestClosedAnnotationsIgnoreRequests(t *testing.T) {
	f := newFixture(t)
	inst := &recordingInstaller{calls: make(chan installCall, 8)}
	a := NewAnnotations(f.model, inst, f.loop, nil)
	a.Close()
	a.Close()
	a.RequestAll()
	select {
	case <-inst.calls:
		t.Fatal("installed after close")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestLoopCallRunsInOrder(t *testing.T) {
	l := NewLoop()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		assert.True(t, l.Post(func() { got = append(got, i) }, nil))
	}
	assert.True(t, l.Call(func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	l.Close()
	assert.False(t, l.Call(func() {}))
}

// stuckDispatcher never runs anything, like a UI goroutine that is busy
// closing the annotations it would install.
type stuckDispatcher struct{ entered chan struct{} }

func (d stuckDispatcher) Post(fn func(), cancel <-chan struct{}) bool {
	d.entered <- struct{}{}
	<-cancel
	return false
}

func TestCloseDoesNotWaitForBlockedInstall(t *testing.T) {
	f := newFixture(t)
	inst := &recordingInstaller{calls: make(chan installCall, 8)}
	ui := stuckDispatcher{entered: make(chan struct{}, 1)}
	a := NewAnnotations(f.model, inst, ui, nil)

	a.RequestAll()
	select {
	case <-ui.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("install never posted")
	}

	closed := make(chan struct{})
	go func() {
		a.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a pending install")
	}
	assert.Empty(t, inst.calls)
}
