// Package core holds the terminal editor's cursor and viewport state over
// a buffer. It is used from the UI goroutine only.
package core

import (
	"unicode/utf8"

	"github.com/bethropolis/proofsync/internal/buffer"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/types"
)

// Options configure cursor movement and scrolling.
type Options struct {
	TabWidth  int
	ScrollOff int
}

type Editor struct {
	buf    buffer.Buffer
	opts   Options
	cursor types.Position

	viewportTop  int
	viewportLeft int // visual columns
	viewWidth    int
	viewHeight   int
}

// NewEditor creates an editor with the cursor at the start of buf.
func NewEditor(buf buffer.Buffer, opts Options) *Editor {
	if opts.TabWidth <= 0 {
		opts.TabWidth = 4
	}
	if opts.ScrollOff < 0 {
		opts.ScrollOff = 0
	}
	return &Editor{buf: buf, opts: opts}
}

func (e *Editor) Buffer() buffer.Buffer  { return e.buf }
func (e *Editor) Cursor() types.Position { return e.cursor }
func (e *Editor) TabWidth() int          { return e.opts.TabWidth }

// Viewport returns the top line and the leftmost visual column.
func (e *Editor) Viewport() (top, left int) {
	return e.viewportTop, e.viewportLeft
}

// SetViewSize sets the text area size in cells.
func (e *Editor) SetViewSize(width, height int) {
	e.viewWidth = max(width, 0)
	e.viewHeight = max(height, 0)
	e.ScrollToCursor()
}

// CursorOffset is the cursor's rune offset in the buffer.
func (e *Editor) CursorOffset() int {
	return e.buf.OffsetOf(e.cursor)
}

// VisibleRange returns the offset and length of the lines in the viewport.
func (e *Editor) VisibleRange() (offset, length int) {
	start := e.buf.OffsetOf(types.Position{Line: e.viewportTop})
	endLine := e.viewportTop + e.viewHeight
	end := e.buf.Len()
	if endLine < e.buf.LineCount() {
		end = e.buf.OffsetOf(types.Position{Line: endLine})
	}
	return start, end - start
}

// InsertText inserts s at the cursor and moves the cursor past it.
func (e *Editor) InsertText(s string) {
	off := e.CursorOffset()
	if err := e.buf.Insert(off, s); err != nil {
		logger.Warnf("Insert at %d: %v", off, err)
		return
	}
	e.SetCursor(e.buf.PositionOf(off + utf8.RuneCountInString(s)))
}

// Backspace deletes the rune before the cursor, joining lines at column 0.
func (e *Editor) Backspace() {
	off := e.CursorOffset()
	if off == 0 {
		return
	}
	if err := e.buf.Delete(off-1, 1); err != nil {
		logger.Warnf("Backspace at %d: %v", off, err)
		return
	}
	e.SetCursor(e.buf.PositionOf(off - 1))
}

// DeleteForward deletes the rune under the cursor.
func (e *Editor) DeleteForward() {
	off := e.CursorOffset()
	if off >= e.buf.Len() {
		return
	}
	if err := e.buf.Delete(off, 1); err != nil {
		logger.Warnf("Delete at %d: %v", off, err)
		return
	}
	e.SetCursor(e.buf.PositionOf(off))
}
