package core

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/bethropolis/proofsync/internal/types"
)

// SetCursor clamps pos to the buffer and scrolls it into view.
func (e *Editor) SetCursor(pos types.Position) {
	lineCount := e.buf.LineCount()
	pos.Line = min(max(pos.Line, 0), lineCount-1)
	line, err := e.buf.Line(pos.Line)
	if err != nil {
		return
	}
	pos.Col = min(max(pos.Col, 0), utf8.RuneCountInString(line))
	e.cursor = pos
	e.ScrollToCursor()
}

// Move moves the cursor by whole lines and columns, clamping at the edges.
func (e *Editor) Move(deltaLine, deltaCol int) {
	e.SetCursor(types.Position{Line: e.cursor.Line + deltaLine, Col: e.cursor.Col + deltaCol})
}

// Left moves back one rune, wrapping to the end of the previous line.
func (e *Editor) Left() {
	if off := e.CursorOffset(); off > 0 {
		e.SetCursor(e.buf.PositionOf(off - 1))
	}
}

// Right moves forward one rune, wrapping to the next line.
func (e *Editor) Right() {
	if off := e.CursorOffset(); off < e.buf.Len() {
		e.SetCursor(e.buf.PositionOf(off + 1))
	}
}

// PageMove moves the cursor by whole screens.
func (e *Editor) PageMove(deltaPages int) {
	if e.viewHeight <= 0 {
		return
	}
	e.Move(deltaPages*e.viewHeight, 0)
}

// MoveToLineStart moves to the first non-blank rune, or column 0 when
// already there.
func (e *Editor) MoveToLineStart() {
	line, err := e.buf.Line(e.cursor.Line)
	if err != nil {
		return
	}
	first := 0
	for _, ch := range line {
		if ch != ' ' && ch != '\t' {
			break
		}
		first++
	}
	if e.cursor.Col == first {
		first = 0
	}
	e.SetCursor(types.Position{Line: e.cursor.Line, Col: first})
}

func (e *Editor) MoveToLineEnd() {
	line, err := e.buf.Line(e.cursor.Line)
	if err != nil {
		return
	}
	e.SetCursor(types.Position{Line: e.cursor.Line, Col: utf8.RuneCountInString(line)})
}

// ScrollToCursor keeps the cursor ScrollOff lines inside the viewport and
// horizontally visible.
func (e *Editor) ScrollToCursor() {
	if e.viewHeight <= 0 {
		return
	}
	scrollOff := min(e.opts.ScrollOff, (e.viewHeight-1)/2)
	if e.cursor.Line < e.viewportTop+scrollOff {
		e.viewportTop = max(e.cursor.Line-scrollOff, 0)
	} else if e.cursor.Line >= e.viewportTop+e.viewHeight-scrollOff {
		e.viewportTop = max(e.cursor.Line-e.viewHeight+scrollOff+1, 0)
	}

	if e.viewWidth <= 0 {
		return
	}
	line, _ := e.buf.Line(e.cursor.Line)
	col := VisualCol(line, e.cursor.Col, e.opts.TabWidth)
	if col < e.viewportLeft {
		e.viewportLeft = col
	} else if col >= e.viewportLeft+e.viewWidth {
		e.viewportLeft = col - e.viewWidth + 1
	}
}

// VisualCol translates a rune column to a visual column, expanding tabs
// and counting wide runes as two cells.
func VisualCol(line string, col, tabWidth int) int {
	visual := 0
	i := 0
	for _, ch := range line {
		if i >= col {
			break
		}
		if ch == '\t' {
			visual = (visual/tabWidth + 1) * tabWidth
		} else {
			visual += uniseg.StringWidth(string(ch))
		}
		i++
	}
	return visual
}
