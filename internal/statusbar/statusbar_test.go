package statusbar

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/proofsync/internal/theme"
	"github.com/bethropolis/proofsync/internal/types"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func row(s tcell.SimulationScreen, y int) string {
	cells, w, _ := s.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) > 0 {
			b.WriteString(string(c.Runes))
		}
	}
	return b.String()
}

func TestDrawDefaultLine(t *testing.T) {
	s := newScreen(t, 60, 2)
	sb := New(DefaultConfig())
	sb.SetFileInfo("A.thy", true)
	sb.SetCursorInfo(types.Position{Line: 2, Col: 4})
	sb.SetSession("checking")
	sb.SetCounts(Counts{Errors: 1, Warnings: 2})
	sb.Draw(s, 60, 2, theme.ProofDark)
	s.Show()

	line := row(s, 1)
	assert.True(t, strings.HasPrefix(line, "A.thy -- Line: 3, Col: 5 [+]"), line)
	assert.True(t, strings.HasSuffix(strings.TrimRight(line, " "), "E:1 W:2 I:0 [checking]"), line)
}

func TestHintReplacesPosition(t *testing.T) {
	s := newScreen(t, 60, 1)
	sb := New(DefaultConfig())
	sb.SetFileInfo("A.thy", false)
	sb.SetHint("warning: Skipped proof")
	sb.Draw(s, 60, 1, theme.ProofDark)
	s.Show()
	assert.Contains(t, row(s, 0), "A.thy -- warning: Skipped proof")
}

func TestTemporaryMessageExpires(t *testing.T) {
	s := newScreen(t, 40, 1)
	now := time.Unix(0, 0)
	sb := New(Config{MessageTimeout: time.Second})
	sb.now = func() time.Time { return now }
	sb.SetFileInfo("A.thy", false)

	sb.SetTemporaryError("save failed: %s", "denied")
	sb.Draw(s, 40, 1, theme.ProofDark)
	s.Show()
	assert.True(t, strings.HasPrefix(row(s, 0), "save failed: denied"))

	now = now.Add(2 * time.Second)
	sb.Draw(s, 40, 1, theme.ProofDark)
	s.Show()
	assert.True(t, strings.HasPrefix(row(s, 0), "A.thy"))
}
