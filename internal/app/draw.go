package app

import (
	"fmt"

	"github.com/bethropolis/proofsync/internal/annotation"
	"github.com/bethropolis/proofsync/internal/decoration"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/marker"
	"github.com/bethropolis/proofsync/internal/statusbar"
	"github.com/bethropolis/proofsync/internal/text"
	"github.com/bethropolis/proofsync/internal/tui"
)

// layer orders overlapping styles: status backgrounds, then highlights,
// then messages on top.
func layer(k annotation.Kind) int {
	switch {
	case k.IsStatus():
		return 0
	case k.IsMessage():
		return 2
	}
	return 1
}

// frame is what one redraw shows of the annotations.
type frame struct {
	spans  []tui.Span
	gutter map[int]string
	counts statusbar.Counts
}

func (a *App) collect() frame {
	f := frame{gutter: make(map[int]string)}
	for _, d := range a.decorations.All() {
		k, ok := a.decCfg.KindForDecoration(d.Type)
		if !ok {
			continue
		}
		f.spans = append(f.spans, tui.Span{Range: d.Range, Style: d.Type, Layer: layer(k)})
		f.count(k)
	}
	for _, m := range a.findMarkers() {
		k, ok := a.decCfg.KindForMarker(decoration.MarkerKey{Type: m.Type, Severity: m.Severity})
		if !ok {
			continue
		}
		f.spans = append(f.spans, tui.Span{Range: text.R(m.CharStart, m.CharEnd), Style: decoration.DecorationType(k), Layer: 2})
		f.count(k)
		line := m.Line - 1
		if prev, ok := f.gutter[line]; !ok || severityRank(prev) < int(m.Severity) {
			f.gutter[line] = m.Severity.String()
		}
	}
	return f
}

func (f *frame) count(k annotation.Kind) {
	switch k {
	case annotation.KindError:
		f.counts.Errors++
	case annotation.KindWarning, annotation.KindLegacy:
		f.counts.Warnings++
	case annotation.KindInfo:
		f.counts.Infos++
	}
}

func severityRank(name string) int {
	s, err := marker.ParseSeverity(name)
	if err != nil {
		return -1
	}
	return int(s)
}

func (a *App) findMarkers() []marker.Marker {
	if a.markers == nil {
		return nil
	}
	ms, err := a.markers.Find(a.resource, a.decCfg.MarkerTypes()...)
	if err != nil {
		logger.Warnf("Reading markers for %s: %v", a.resource, err)
		return nil
	}
	return ms
}

func severityOf(k annotation.Kind) int {
	switch k {
	case annotation.KindError:
		return 3
	case annotation.KindWarning, annotation.KindLegacy:
		return 2
	case annotation.KindInfo:
		return 1
	}
	return 0
}

// messageAt returns the most severe message covering offset.
func (a *App) messageAt(offset int) (string, bool) {
	at := text.R(offset, offset)
	best, bestRank := "", 0
	consider := func(k annotation.Kind, msg string) {
		if rank := severityOf(k); rank > bestRank {
			best, bestRank = fmt.Sprintf("%s: %s", k, msg), rank
		}
	}
	for _, d := range a.decorations.Overlapping(at) {
		if !d.HasMessage {
			continue
		}
		if k, ok := a.decCfg.KindForDecoration(d.Type); ok {
			consider(k, d.Message)
		}
	}
	for _, m := range a.findMarkers() {
		if !m.HasMessage || !text.R(m.CharStart, m.CharEnd).Overlaps(at) {
			continue
		}
		if k, ok := a.decCfg.KindForMarker(decoration.MarkerKey{Type: m.Type, Severity: m.Severity}); ok {
			consider(k, m.Message)
		}
	}
	return best, bestRank > 0
}

// draw redraws all components. UI goroutine only.
func (a *App) draw() {
	w, h := a.tuiManager.Size()
	layout := a.layout(w, h)
	f := a.collect()

	a.statusBar.SetFileInfo(a.buf.FilePath(), a.buf.IsModified())
	a.statusBar.SetCursorInfo(a.editor.Cursor())
	a.statusBar.SetCounts(f.counts)
	hint, _ := a.messageAt(a.editor.CursorOffset())
	a.statusBar.SetHint(hint)

	a.tuiManager.Clear()
	tui.DrawBuffer(a.tuiManager, a.editor, a.theme, layout, f.spans, f.gutter)
	a.statusBar.Draw(a.tuiManager.GetScreen(), w, h, a.theme)
	tui.DrawCursor(a.tuiManager, a.editor, layout)
	a.tuiManager.Show()
}
