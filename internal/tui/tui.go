package tui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/bethropolis/proofsync/internal/theme"
)

const postRetry = 5 * time.Millisecond

// TUI manages the terminal screen using tcell.
type TUI struct {
	screen tcell.Screen
}

// New creates and initializes a terminal screen.
func New(th *theme.Theme) (*TUI, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create tcell screen: %w", err)
	}
	return NewWithScreen(s, th)
}

// NewWithScreen initializes s, which may be a simulation screen.
func NewWithScreen(s tcell.Screen, th *theme.Theme) (*TUI, error) {
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize tcell screen: %w", err)
	}
	s.SetStyle(th.GetStyle("Default"))
	return &TUI{screen: s}, nil
}

// Close finalizes the tcell screen.
func (t *TUI) Close() {
	if t.screen != nil {
		t.screen.Fini()
	}
}

func (t *TUI) PollEvent() tcell.Event { return t.screen.PollEvent() }
func (t *TUI) Clear()                 { t.screen.Clear() }
func (t *TUI) Show()                  { t.screen.Show() }
func (t *TUI) Size() (int, int)       { return t.screen.Size() }
func (t *TUI) GetScreen() tcell.Screen {
	return t.screen
}

// Post runs fn on the goroutine reading PollEvent. It implements the
// view.Dispatcher used to install annotations. While the event queue is full
// it retries every postRetry until the event fits or cancel closes, so a
// caller waiting on the UI goroutine is never left blocked.
func (t *TUI) Post(fn func(), cancel <-chan struct{}) bool {
	ev := tcell.NewEventInterrupt(fn)
	if t.screen.PostEvent(ev) == nil {
		return true
	}
	tick := time.NewTicker(postRetry)
	defer tick.Stop()
	for {
		select {
		case <-cancel:
			return false
		case <-tick.C:
			if t.screen.PostEvent(ev) == nil {
				return true
			}
		}
	}
}
