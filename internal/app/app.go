// Package app runs the terminal editor: it owns the UI goroutine, follows
// the prover session and keeps one document model attached to the buffer.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/bethropolis/proofsync/internal/buffer"
	"github.com/bethropolis/proofsync/internal/config"
	"github.com/bethropolis/proofsync/internal/core"
	"github.com/bethropolis/proofsync/internal/decoration"
	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/marker"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/session"
	"github.com/bethropolis/proofsync/internal/statusbar"
	"github.com/bethropolis/proofsync/internal/theme"
	"github.com/bethropolis/proofsync/internal/tui"
)

// Options configure an App.
type Options struct {
	FilePath string
	Config   *config.Config
	Theme    *theme.Theme
	Sessions *session.Manager
	// Markers receives message annotations when Config.Annotations.Markers
	// is set. May be nil.
	Markers marker.Store
	// Screen overrides the terminal, for tests.
	Screen tcell.Screen
}

// App encapsulates the core components and main loop of the editor.
type App struct {
	cfg      *config.Config
	theme    *theme.Theme
	sessions *session.Manager
	markers  marker.Store
	decCfg   decoration.Config

	tuiManager  *tui.TUI
	buf         *buffer.RuneBuffer
	editor      *core.Editor
	statusBar   *statusbar.StatusBar
	decorations *decoration.MemoryStore
	ref         prover.DocumentRef
	resource    string
	support     *session.Support
	register    string // clipboard fallback

	// conn is replaced on the UI goroutine and read by session listeners.
	connMu sync.Mutex
	conn   *connection

	ctx    context.Context
	cancel context.CancelFunc
	quit   bool
}

// New loads the file and prepares the screen. A missing file starts empty.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		opts.Config = config.NewDefaultConfig()
	}
	if opts.Theme == nil {
		opts.Theme = theme.ProofDark
	}
	if opts.Sessions == nil {
		return nil, errors.New("app: no session manager")
	}

	buf := buffer.NewRuneBuffer("")
	if opts.FilePath != "" {
		if err := buf.Load(opts.FilePath); err != nil {
			return nil, err
		}
	}

	var (
		ui  *tui.TUI
		err error
	)
	if opts.Screen != nil {
		ui, err = tui.NewWithScreen(opts.Screen, opts.Theme)
	} else {
		ui, err = tui.New(opts.Theme)
	}
	if err != nil {
		return nil, fmt.Errorf("TUI initialization failed: %w", err)
	}

	decorations := decoration.NewMemoryStore()
	buf.AddListener(decorations)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:         opts.Config,
		theme:       opts.Theme,
		sessions:    opts.Sessions,
		decCfg:      decoration.DefaultConfig(),
		tuiManager:  ui,
		buf:         buf,
		editor:      core.NewEditor(buf, core.Options{TabWidth: opts.Config.Editor.TabWidth, ScrollOff: opts.Config.Editor.ScrollOff}),
		statusBar:   statusbar.New(statusbar.Config{MessageTimeout: config.MessageTimeout}),
		decorations: decorations,
		ref:         prover.RefForPath(opts.FilePath),
		resource:    opts.FilePath,
		ctx:         ctx,
		cancel:      cancel,
	}
	if opts.Config.Annotations.Markers {
		a.markers = opts.Markers
	}
	a.resize()
	return a, nil
}

// Run processes terminal events until the user quits. The calling
// goroutine becomes the UI goroutine.
func (a *App) Run() error {
	defer a.tuiManager.Close()
	defer a.cancel()

	events := a.sessions.Events()
	savedID := events.Subscribe(event.TypeBufferSaved, a.handleBufferSaved)
	defer events.Unsubscribe(savedID)

	support, err := session.Subscribe(a.sessions, []event.Type{event.TypeCommandsChanged}, a.listenerFor, a.connected, a.disconnected)
	if err != nil {
		return err
	}
	a.support = support

	if _, err := a.sessions.Start(); err != nil {
		logger.Errorf("Starting session: %v", err)
		a.statusBar.SetTemporaryError("No prover session: %v", err)
	}
	a.statusBar.SetTemporaryMessage("Ctrl-S check all | Ctrl-Y copy message | Ctrl-W save | Ctrl-R restart | Ctrl-Q quit")
	a.draw()

	for !a.quit {
		ev := a.tuiManager.PollEvent()
		if ev == nil {
			break
		}
		a.handleEvent(ev)
		if !a.quit {
			a.draw()
		}
	}

	events.Dispatch(event.TypeAppQuit, nil)
	if err := a.sessions.Stop(); err != nil && !errors.Is(err, session.ErrNoSession) {
		logger.Warnf("Stopping session: %v", err)
	}
	a.support.UnsubscribeAll()
	if a.buf.IsModified() {
		logger.Warnf("Exited with unsaved changes to %s", a.buf.FilePath())
	}
	return nil
}

func (a *App) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.tuiManager.GetScreen().Sync()
		a.resize()
	case *tcell.EventKey:
		a.handleKey(ev)
	case *tcell.EventInterrupt:
		if fn, ok := ev.Data().(func()); ok {
			fn()
		}
	}
}

func (a *App) resize() {
	w, h := a.tuiManager.Size()
	tw, th := a.layout(w, h).TextArea()
	a.editor.SetViewSize(tw, th)
	a.updatePerspective()
}

func (a *App) layout(w, h int) tui.Layout {
	return tui.NewLayout(a.editor, w, h, a.cfg.Editor.StatusBarHeight)
}

func (a *App) handleBufferSaved(e event.Event) {
	if data, ok := e.Data.(event.BufferSavedData); ok {
		logger.Infof("Saved %s", data.FilePath)
	}
}
