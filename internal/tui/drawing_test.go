package tui

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/proofsync/internal/buffer"
	"github.com/bethropolis/proofsync/internal/core"
	"github.com/bethropolis/proofsync/internal/text"
	"github.com/bethropolis/proofsync/internal/theme"
	"github.com/bethropolis/proofsync/internal/types"
)

func setup(t *testing.T, content string, w, h int) (*TUI, tcell.SimulationScreen, *core.Editor, Layout) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	ui, err := NewWithScreen(sim, theme.ProofDark)
	require.NoError(t, err)
	sim.SetSize(w, h)
	t.Cleanup(ui.Close)

	ed := core.NewEditor(buffer.NewRuneBuffer(content), core.Options{TabWidth: 4})
	layout := NewLayout(ed, w, h, 1)
	tw, th := layout.TextArea()
	ed.SetViewSize(tw, th)
	return ui, sim, ed, layout
}

func cell(sim tcell.SimulationScreen, x, y int) tcell.SimCell {
	cells, w, _ := sim.GetContents()
	return cells[y*w+x]
}

func TestDrawBufferAppliesSpans(t *testing.T) {
	ui, sim, ed, layout := setup(t, "lemma a\nb", 20, 4)
	spans := []Span{
		{Range: text.R(0, 7), Style: "proofsync.unprocessed", Layer: 0},
		{Range: text.R(0, 5), Style: "proofsync.warning", Layer: 2},
	}
	DrawBuffer(ui, ed, theme.ProofDark, layout, spans, map[int]string{0: "error"})
	sim.Show()

	// Gutter: marker, one digit, space.
	assert.Equal(t, []rune{'●'}, cell(sim, 0, 0).Runes)
	assert.Equal(t, theme.ProofDark.GetStyle("Marker.error"), cell(sim, 0, 0).Style)
	assert.Equal(t, []rune{'1'}, cell(sim, 1, 0).Runes)

	assert.Equal(t, []rune{'l'}, cell(sim, 3, 0).Runes)
	assert.Equal(t, theme.ProofDark.GetStyle("proofsync.warning"), cell(sim, 3, 0).Style)
	assert.Equal(t, theme.ProofDark.GetStyle("proofsync.unprocessed"), cell(sim, 8, 0).Style)
	assert.Equal(t, theme.ProofDark.GetStyle("Default"), cell(sim, 3, 1).Style)
	assert.Equal(t, []rune{'b'}, cell(sim, 3, 1).Runes)
}

func TestDrawBufferExpandsTabs(t *testing.T) {
	ui, sim, ed, layout := setup(t, "\tx", 20, 3)
	DrawBuffer(ui, ed, theme.ProofDark, layout, nil, nil)
	sim.Show()
	assert.Equal(t, []rune{'x'}, cell(sim, 3+4, 0).Runes)
}

func TestDrawCursor(t *testing.T) {
	ui, sim, ed, layout := setup(t, "ab\ncd", 20, 3)
	ed.SetCursor(types.Position{Line: 1, Col: 1})
	DrawCursor(ui, ed, layout)
	sim.Show()
	x, y, visible := sim.GetCursor()
	assert.True(t, visible)
	assert.Equal(t, 3+1, x)
	assert.Equal(t, 1, y)
}

func TestPostRunsOnPollingGoroutine(t *testing.T) {
	ui, _, _, _ := setup(t, "", 10, 2)
	ran := false
	require.True(t, ui.Post(func() { ran = true }, nil))
	ev := ui.PollEvent()
	intr, ok := ev.(*tcell.EventInterrupt)
	require.True(t, ok)
	intr.Data().(func())()
	assert.True(t, ran)
}

func TestPostGivesUpWhenCancelledOnFullQueue(t *testing.T) {
	ui, _, _, _ := setup(t, "", 10, 2)
	closed := make(chan struct{})
	close(closed)
	posted := 0
	for ui.Post(func() {}, closed) {
		posted++
		require.Less(t, posted, 10000, "event queue never filled")
	}
	require.Positive(t, posted)

	cancel := make(chan struct{})
	res := make(chan bool, 1)
	go func() { res <- ui.Post(func() {}, cancel) }()
	select {
	case <-res:
		t.Fatal("post returned while the queue was full")
	case <-time.After(30 * time.Millisecond):
	}
	close(cancel)
	select {
	case ok := <-res:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("post did not give up after cancel")
	}
}

func TestPostWaitsForRoomInQueue(t *testing.T) {
	ui, _, _, _ := setup(t, "", 10, 2)
	closed := make(chan struct{})
	close(closed)
	for n := 0; ui.Post(func() {}, closed); n++ {
		require.Less(t, n, 10000, "event queue never filled")
	}

	res := make(chan bool, 1)
	go func() { res <- ui.Post(func() {}, nil) }()
	ui.PollEvent()
	select {
	case ok := <-res:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("post did not use freed room")
	}
}
