package tui

import (
	"fmt"
	"math"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/bethropolis/proofsync/internal/core"
	"github.com/bethropolis/proofsync/internal/text"
	"github.com/bethropolis/proofsync/internal/theme"
	"github.com/bethropolis/proofsync/internal/types"
)

// Span styles a rune range of the buffer. Higher layers paint over lower ones.
type Span struct {
	Range text.Range
	Style string
	Layer int
}

// Layout is the text area geometry for one frame.
type Layout struct {
	Width, Height int
	StatusHeight  int
	digits        int
}

func (l Layout) viewHeight() int { return l.Height - l.StatusHeight }

// gutterWidth is the marker column, the line number and a space.
func (l Layout) gutterWidth() int {
	g := 1 + l.digits + 1
	if g >= l.Width {
		return 0
	}
	return g
}

// TextArea returns the width and height available for text.
func (l Layout) TextArea() (int, int) {
	return l.Width - l.gutterWidth(), max(l.viewHeight(), 0)
}

// NewLayout computes the geometry for ed on a screen of the given size.
func NewLayout(ed *core.Editor, width, height, statusHeight int) Layout {
	lineCount := max(ed.Buffer().LineCount(), 1)
	return Layout{
		Width:        width,
		Height:       height,
		StatusHeight: statusHeight,
		digits:       int(math.Log10(float64(lineCount))) + 1,
	}
}

// DrawBuffer draws the visible lines of ed with spans applied and a marker
// glyph in the gutter for each line in gutter (line to severity name).
func DrawBuffer(t *TUI, ed *core.Editor, th *theme.Theme, layout Layout, spans []Span, gutter map[int]string) {
	viewHeight := layout.viewHeight()
	if viewHeight <= 0 || layout.Width <= 0 {
		return
	}
	defaultStyle := th.GetStyle("Default")
	lineNumberStyle := th.GetStyle("LineNumber")
	gutterWidth := layout.gutterWidth()
	textWidth := layout.Width - gutterWidth

	buf := ed.Buffer()
	viewY, viewX := ed.Viewport()
	visOff, visLen := ed.VisibleRange()
	visible := visibleSpans(spans, text.R(visOff, visOff+visLen))

	for screenY := 0; screenY < viewHeight; screenY++ {
		lineIdx := viewY + screenY
		for x := 0; x < layout.Width; x++ {
			t.screen.SetContent(x, screenY, ' ', nil, defaultStyle)
		}
		if lineIdx >= buf.LineCount() {
			continue
		}

		if gutterWidth > 0 {
			if sev, ok := gutter[lineIdx]; ok {
				t.screen.SetContent(0, screenY, '●', nil, th.GetStyle("Marker."+sev))
			}
			style := lineNumberStyle
			if ed.Cursor().Line == lineIdx {
				style = style.Bold(true)
			}
			num := fmt.Sprintf("%*d", layout.digits, lineIdx+1)
			for i, r := range num {
				t.screen.SetContent(1+i, screenY, r, nil, style)
			}
		}

		line, err := buf.Line(lineIdx)
		if err != nil {
			continue
		}
		lineOff := buf.OffsetOf(types.Position{Line: lineIdx})

		visualX := 0
		runeIdx := 0
		gr := uniseg.NewGraphemes(line)
		for gr.Next() {
			runes := gr.Runes()
			width := gr.Width()
			if runes[0] == '\t' {
				width = ed.TabWidth() - visualX%ed.TabWidth()
			}
			if visualX+width > viewX && visualX < viewX+textWidth {
				style := styleAt(th, defaultStyle, visible, lineOff+runeIdx)
				screenX := visualX - viewX + gutterWidth
				if runes[0] == '\t' {
					for i := 0; i < width; i++ {
						setCell(t.screen, screenX+i, screenY, gutterWidth, layout.Width, ' ', nil, style)
					}
				} else {
					setCell(t.screen, screenX, screenY, gutterWidth, layout.Width, runes[0], runes[1:], style)
					for i := 1; i < width; i++ {
						setCell(t.screen, screenX+i, screenY, gutterWidth, layout.Width, ' ', nil, style)
					}
				}
			}
			visualX += width
			runeIdx += len(runes)
			if visualX >= viewX+textWidth {
				break
			}
		}
	}
}

func setCell(s tcell.Screen, x, y, minX, maxX int, r rune, combining []rune, style tcell.Style) {
	if x >= minX && x < maxX {
		s.SetContent(x, y, r, combining, style)
	}
}

// visibleSpans keeps spans overlapping r, lowest layer first.
func visibleSpans(spans []Span, r text.Range) []Span {
	var out []Span
	for _, s := range spans {
		if !s.Range.IsEmpty() && s.Range.Overlaps(r) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Layer < out[j].Layer })
	return out
}

// styleAt returns the style of the topmost span covering offset.
func styleAt(th *theme.Theme, def tcell.Style, spans []Span, offset int) tcell.Style {
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].Range.Start <= offset && offset < spans[i].Range.End {
			return th.GetStyle(spans[i].Style)
		}
	}
	return def
}

// DrawCursor positions the terminal cursor, hiding it outside the text area.
func DrawCursor(t *TUI, ed *core.Editor, layout Layout) {
	cursor := ed.Cursor()
	viewY, viewX := ed.Viewport()
	gutterWidth := layout.gutterWidth()

	line, _ := ed.Buffer().Line(cursor.Line)
	screenX := core.VisualCol(line, cursor.Col, ed.TabWidth()) - viewX + gutterWidth
	screenY := cursor.Line - viewY

	if screenX < gutterWidth || screenX >= layout.Width || screenY < 0 || screenY >= layout.viewHeight() {
		t.screen.HideCursor()
		return
	}
	t.screen.ShowCursor(screenX, screenY)
}
