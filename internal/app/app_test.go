package app

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/proofsync/internal/annotation"
	"github.com/bethropolis/proofsync/internal/config"
	"github.com/bethropolis/proofsync/internal/decoration"
	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/marker"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/prover/local"
	"github.com/bethropolis/proofsync/internal/session"
)

const theory = "theory A imports Main begin\n\nlemma b: False sorry\n"

type harness struct {
	app     *App
	sim     tcell.SimulationScreen
	path    string
	done    chan error
	quitted bool

	mu       sync.Mutex
	sessions []*local.Session
}

func start(t *testing.T, opts local.Options, tweak func(*config.Config)) *harness {
	t.Helper()
	h := &harness{done: make(chan error, 1)}
	h.path = filepath.Join(t.TempDir(), "A.thy")
	require.NoError(t, os.WriteFile(h.path, []byte(theory), 0o644))

	cfg := config.NewDefaultConfig()
	cfg.Editor.SystemClipboard = false
	if tweak != nil {
		tweak(cfg)
	}
	mgr := session.NewManager(event.NewManager(), func() (prover.Session, error) {
		s := local.New(opts)
		s.Start()
		h.mu.Lock()
		h.sessions = append(h.sessions, s)
		h.mu.Unlock()
		return s, nil
	})

	var markers marker.Store
	if cfg.Annotations.Markers {
		markers = marker.NewMemoryStore()
	}
	h.sim = tcell.NewSimulationScreen("UTF-8")
	a, err := New(Options{FilePath: h.path, Config: cfg, Sessions: mgr, Markers: markers, Screen: h.sim})
	require.NoError(t, err)
	h.app = a
	go func() { h.done <- a.Run() }()
	t.Cleanup(func() {
		if !h.quitted {
			h.key(tcell.KeyCtrlQ)
			<-h.done
		}
	})
	return h
}

func (h *harness) key(k tcell.Key) {
	h.sim.InjectKey(k, 0, tcell.ModNone)
}

func (h *harness) typeRune(r rune) {
	h.sim.InjectKey(tcell.KeyRune, r, tcell.ModNone)
}

func (h *harness) session(i int) *local.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i >= len(h.sessions) {
		return nil
	}
	return h.sessions[i]
}

// onUI runs fn on the app's UI goroutine and waits for it.
func (h *harness) onUI(t *testing.T, fn func()) {
	t.Helper()
	ran := make(chan struct{})
	h.app.tuiManager.Post(func() {
		fn()
		close(ran)
	}, nil)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Error("UI goroutine did not run")
	}
}

func (h *harness) hasDecoration(t *testing.T, kind annotation.Kind, msg string) bool {
	found := false
	h.onUI(t, func() {
		for _, d := range h.app.decorations.All() {
			if d.Type == decoration.DecorationType(kind) && d.Message == msg {
				found = true
			}
		}
	})
	return found
}

func (h *harness) quit(t *testing.T) {
	t.Helper()
	h.key(tcell.KeyCtrlQ)
	h.quitted = true
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not quit")
	}
}

var fast = local.Options{InputDelay: 5 * time.Millisecond, StepDelay: 5 * time.Millisecond}

func TestVisibleCommandsGetChecked(t *testing.T) {
	h := start(t, fast, nil)
	require.Eventually(t, func() bool {
		return h.hasDecoration(t, annotation.KindWarning, "Skipped proof")
	}, 3*time.Second, 20*time.Millisecond)

	var msg string
	h.onUI(t, func() {
		off := strings.Index(theory, "sorry")
		msg, _ = h.app.messageAt(off)
	})
	assert.Equal(t, "warning: Skipped proof", msg)

	h.key(tcell.KeyCtrlY)
	h.onUI(t, func() { assert.Equal(t, "", h.app.register, "cursor is not on a message") })
	h.quit(t)
}

func TestTypingReachesProver(t *testing.T) {
	h := start(t, fast, nil)
	h.typeRune('x')
	h.key(tcell.KeyEnter)

	require.Eventually(t, func() bool {
		s := h.session(0)
		if s == nil {
			return false
		}
		got, err := s.Text(h.app.ref)
		return err == nil && got == "x\n"+theory
	}, 3*time.Second, 10*time.Millisecond)
	h.quit(t)
}

func TestQuitFlushesPendingEdits(t *testing.T) {
	h := start(t, local.Options{InputDelay: time.Hour, StepDelay: time.Hour}, nil)
	h.typeRune('y')
	h.quit(t)

	got, err := h.session(0).Text(h.app.ref)
	require.NoError(t, err)
	assert.Equal(t, "y"+theory, got)
}

func TestSaveWritesFile(t *testing.T) {
	h := start(t, fast, nil)
	h.typeRune('z')
	h.key(tcell.KeyCtrlW)
	h.onUI(t, func() { assert.False(t, h.app.buf.IsModified()) })

	data, err := os.ReadFile(h.path)
	require.NoError(t, err)
	assert.Equal(t, "z"+theory, string(data))
	h.quit(t)
}

func TestRestartReattachesDocument(t *testing.T) {
	h := start(t, fast, nil)
	require.Eventually(t, func() bool { return h.session(0) != nil }, time.Second, 5*time.Millisecond)

	h.key(tcell.KeyCtrlR)
	require.Eventually(t, func() bool { return h.session(1) != nil }, 2*time.Second, 5*time.Millisecond)

	h.onUI(t, func() {
		if c := h.app.current(); assert.NotNil(t, c) {
			assert.Same(t, h.session(1), c.sess)
		}
	})
	require.Eventually(t, func() bool {
		got, err := h.session(1).Text(h.app.ref)
		return err == nil && got == theory
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return h.hasDecoration(t, annotation.KindWarning, "Skipped proof")
	}, 3*time.Second, 20*time.Millisecond)
	h.quit(t)
}

func TestMarkersReplaceMessageDecorations(t *testing.T) {
	h := start(t, fast, func(c *config.Config) { c.Annotations.Markers = true })
	require.Eventually(t, func() bool {
		found := false
		h.onUI(t, func() {
			for _, m := range h.app.findMarkers() {
				if m.Message == "Skipped proof" && m.Severity == marker.SeverityWarning && m.Line == 3 {
					found = true
				}
			}
		})
		return found
	}, 3*time.Second, 20*time.Millisecond)

	h.onUI(t, func() {
		f := h.app.collect()
		assert.Equal(t, "warning", f.gutter[2])
		assert.Equal(t, 1, f.counts.Warnings)
	})
	assert.False(t, h.hasDecoration(t, annotation.KindWarning, "Skipped proof"))
	h.quit(t)
}
