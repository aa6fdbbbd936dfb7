package statusbar

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/bethropolis/proofsync/internal/theme"
	"github.com/bethropolis/proofsync/internal/types"
)

// Config defines the behavior of the status bar.
type Config struct {
	MessageTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{MessageTimeout: 4 * time.Second}
}

// Counts summarises the diagnostics installed for the document.
type Counts struct {
	Errors   int
	Warnings int
	Infos    int
}

// StatusBar represents the UI component for the status line.
type StatusBar struct {
	config Config
	now    func() time.Time
	mu     sync.RWMutex

	filePath   string
	cursorPos  types.Position
	isModified bool
	session    string
	counts     Counts
	hint       string

	tempMessage     string
	tempIsError     bool
	tempMessageTime time.Time
}

func New(config Config) *StatusBar {
	return &StatusBar{config: config, now: time.Now}
}

// SetFileInfo updates the file path shown in the status bar.
func (sb *StatusBar) SetFileInfo(path string, modified bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.filePath = path
	sb.isModified = modified
}

func (sb *StatusBar) SetCursorInfo(pos types.Position) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.cursorPos = pos
}

// SetSession shows the connection state, e.g. "checking" or "offline".
func (sb *StatusBar) SetSession(state string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.session = state
}

func (sb *StatusBar) SetCounts(c Counts) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.counts = c
}

// SetHint shows the diagnostic under the cursor in place of the position.
func (sb *StatusBar) SetHint(hint string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.hint = hint
}

// SetTemporaryMessage displays a message for the configured duration.
func (sb *StatusBar) SetTemporaryMessage(format string, args ...interface{}) {
	sb.setTemp(false, format, args...)
}

// SetTemporaryError is SetTemporaryMessage in the error style.
func (sb *StatusBar) SetTemporaryError(format string, args ...interface{}) {
	sb.setTemp(true, format, args...)
}

func (sb *StatusBar) setTemp(isError bool, format string, args ...interface{}) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.tempMessage = fmt.Sprintf(format, args...)
	sb.tempIsError = isError
	sb.tempMessageTime = sb.now()
}

// ResetTemporaryMessage clears any temporary message being displayed.
func (sb *StatusBar) ResetTemporaryMessage() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.tempMessage = ""
	sb.tempMessageTime = time.Time{}
}

// left and right build the default status line. Caller holds mu.
func (sb *StatusBar) left() string {
	fPath := sb.filePath
	if fPath == "" {
		fPath = "[No Name]"
	}
	if sb.hint != "" {
		return fmt.Sprintf("%s -- %s", fPath, sb.hint)
	}
	return fmt.Sprintf("%s -- Line: %d, Col: %d", fPath, sb.cursorPos.Line+1, sb.cursorPos.Col+1)
}

func (sb *StatusBar) right() string {
	s := fmt.Sprintf("E:%d W:%d I:%d", sb.counts.Errors, sb.counts.Warnings, sb.counts.Infos)
	if sb.session != "" {
		s += " [" + sb.session + "]"
	}
	return s
}

// Draw renders the status bar on the last screen row.
func (sb *StatusBar) Draw(screen tcell.Screen, width, height int, th *theme.Theme) {
	if height <= 0 || width <= 0 {
		return
	}
	y := height - 1

	sb.mu.Lock()
	active := !sb.tempMessageTime.IsZero() && sb.now().Sub(sb.tempMessageTime) <= sb.config.MessageTimeout
	if !sb.tempMessageTime.IsZero() && !active {
		sb.tempMessage = ""
		sb.tempMessageTime = time.Time{}
	}
	var left, right string
	style := th.GetStyle("StatusBar")
	switch {
	case active && sb.tempIsError:
		left = sb.tempMessage
		style = th.GetStyle("StatusBarError")
	case active:
		left = sb.tempMessage
		style = th.GetStyle("StatusBarMessage")
	default:
		left = sb.left()
		right = sb.right()
	}
	modified := sb.isModified && !active
	sb.mu.Unlock()

	for x := 0; x < width; x++ {
		screen.SetContent(x, y, ' ', nil, style)
	}
	x := drawString(screen, 0, y, width, left, style)
	if modified {
		drawString(screen, x, y, width, " [+]", th.GetStyle("StatusBarModified"))
	}
	if right != "" {
		if rx := width - uniseg.StringWidth(right); rx > x+4 {
			drawString(screen, rx, y, width, right, th.GetStyle("StatusBarSession"))
		}
	}
}

// drawString draws text from x using grapheme widths and returns the
// column after it.
func drawString(screen tcell.Screen, x, y, width int, text string, style tcell.Style) int {
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		w := gr.Width()
		if x+w > width {
			break
		}
		runes := gr.Runes()
		screen.SetContent(x, y, runes[0], runes[1:], style)
		x += w
	}
	return x
}
