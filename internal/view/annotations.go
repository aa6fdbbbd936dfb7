package view

import (
	"sync"

	"github.com/bethropolis/proofsync/internal/annotation"
	"github.com/bethropolis/proofsync/internal/decoration"
	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/metrics"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/text"
)

// Source provides snapshots of one document; *document.Model is a Source.
type Source interface {
	Ref() prover.DocumentRef
	Snapshot() (prover.Snapshot, error)
}

// Installer applies projected annotations; *decoration.Updater is one.
type Installer interface {
	Update(changed []text.Range, anns []annotation.Info) (decoration.Result, error)
}

type request struct {
	all bool
	ids map[prover.CommandID]struct{}
}

// Annotations keeps one document's decorations current. Update requests
// run one at a time on a worker goroutine; a request that has not started
// yet absorbs later ones, so no changed command is ever dropped.
type Annotations struct {
	src         Source
	installer   Installer
	ui          Dispatcher
	onInstalled func(decoration.Result)

	mu      sync.Mutex
	pending *request
	closed  bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}

	// Owned by the worker.
	lastCommandCount int
	lastOutdated     bool
}

// NewAnnotations starts the worker. onInstalled, if not nil, runs on the UI
// goroutine after every install.
func NewAnnotations(src Source, installer Installer, ui Dispatcher, onInstalled func(decoration.Result)) *Annotations {
	a := &Annotations{
		src:         src,
		installer:   installer,
		ui:          ui,
		onInstalled: onInstalled,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go a.worker()
	return a
}

// HandleEvent is an event.Handler for TypeCommandsChanged.
func (a *Annotations) HandleEvent(e event.Event) {
	changed, ok := e.Data.(prover.CommandsChanged)
	if !ok || !changed.Affects(a.src.Ref()) {
		return
	}
	a.RequestCommands(changed.Commands)
}

// RequestAll schedules a recomputation of the whole document.
func (a *Annotations) RequestAll() {
	a.enqueue(true, nil)
}

// RequestCommands schedules a recomputation of the given commands.
func (a *Annotations) RequestCommands(ids []prover.CommandID) {
	if len(ids) == 0 {
		return
	}
	a.enqueue(false, ids)
}

func (a *Annotations) enqueue(all bool, ids []prover.CommandID) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if a.pending == nil {
		a.pending = &request{ids: make(map[prover.CommandID]struct{})}
	}
	a.pending.all = a.pending.all || all
	for _, id := range ids {
		a.pending.ids[id] = struct{}{}
	}
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Close stops the worker after the update in flight, if any, finishes.
// Pending requests are dropped and later installs are skipped.
func (a *Annotations) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.pending = nil
	a.mu.Unlock()

	close(a.stop)
	<-a.done
}

func (a *Annotations) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Annotations) worker() {
	defer close(a.done)
	for {
		select {
		case <-a.stop:
			return
		case <-a.wake:
		}
		a.mu.Lock()
		req := a.pending
		a.pending = nil
		a.mu.Unlock()
		if req != nil {
			a.update(req)
		}
	}
}

func (a *Annotations) update(req *request) {
	ref := a.src.Ref()
	snap, err := a.src.Snapshot()
	if err != nil {
		logger.WarnTagf("annotations", "%s: no snapshot: %v", ref, err)
		return
	}

	count := len(snap.Commands())
	full := req.all || count > a.lastCommandCount || a.lastOutdated
	var changed, regions []text.Range
	if !full {
		ids := make([]prover.CommandID, 0, len(req.ids))
		for id := range req.ids {
			ids = append(ids, id)
		}
		ranges, found := annotation.CommandRanges(snap, ids)
		if found {
			changed = text.Merge(ranges)
			regions = changed
		} else {
			// A changed command is gone; its old region is unknown.
			full = true
		}
	}
	if full {
		changed = nil
		regions = text.Merge(annotation.AllCommandRanges(snap))
	}
	a.lastCommandCount = count
	a.lastOutdated = snap.IsOutdated()

	anns := annotation.Project(snap, regions)
	mode := "incremental"
	if full {
		mode = "full"
	}
	metrics.AnnotationUpdates.WithLabelValues(mode).Inc()
	logger.DebugTagf("annotations", "%s: %s update v%d, %d regions, %d annotations", ref, mode, snap.Version(), len(regions), len(anns))

	a.install(changed, anns)
}

// install runs the installer on the UI goroutine and waits for it. Both the
// post and the wait give up once Close is called, since Close may itself be
// running on the UI goroutine.
func (a *Annotations) install(changed []text.Range, anns []annotation.Info) {
	installed := make(chan struct{})
	posted := a.ui.Post(func() {
		defer close(installed)
		if a.isClosed() {
			return
		}
		res, err := a.installer.Update(changed, anns)
		if err != nil {
			logger.ErrorTagf("annotations", "%s: install: %v", a.src.Ref(), err)
			return
		}
		if a.onInstalled != nil {
			a.onInstalled(res)
		}
	}, a.stop)
	if !posted {
		logger.DebugTagf("annotations", "%s: install abandoned on close", a.src.Ref())
		return
	}
	select {
	case <-installed:
	case <-a.stop:
	}
}
