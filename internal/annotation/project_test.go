package annotation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/text"
)

type stubSnapshot struct {
	outdated bool
	commands []prover.Command
	status   map[prover.CommandID]prover.CommandStatus
	markup   []prover.Markup
	messages []prover.Message
	failAt   *text.Range
}

func (s *stubSnapshot) Ref() prover.DocumentRef { return prover.DocumentRef{Name: "A"} }
func (s *stubSnapshot) Version() int64          { return 1 }
func (s *stubSnapshot) IsOutdated() bool        { return s.outdated }
func (s *stubSnapshot) Commands() []prover.Command {
	return s.commands
}

func (s *stubSnapshot) Command(id prover.CommandID) (prover.Command, bool) {
	for _, c := range s.commands {
		if c.ID == id {
			return c, true
		}
	}
	return prover.Command{}, false
}

func (s *stubSnapshot) fails(r text.Range) error {
	if s.failAt != nil && *s.failAt == r {
		return errors.New("broken region")
	}
	return nil
}

func (s *stubSnapshot) CommandsIn(r text.Range) ([]prover.Command, error) {
	if err := s.fails(r); err != nil {
		return nil, err
	}
	var out []prover.Command
	for _, c := range s.commands {
		if c.Range.Overlaps(r) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubSnapshot) Status(id prover.CommandID) (prover.CommandStatus, error) {
	st, ok := s.status[id]
	if !ok {
		return st, prover.ErrUnknownCommand
	}
	return st, nil
}

func (s *stubSnapshot) SelectMarkup(r text.Range, names ...string) ([]prover.Markup, error) {
	var out []prover.Markup
	for _, m := range s.markup {
		if m.Range.Overlaps(r) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubSnapshot) SelectMessages(r text.Range, names ...string) ([]prover.Message, error) {
	var out []prover.Message
	for _, m := range s.messages {
		if m.Range.Overlaps(r) {
			out = append(out, m)
		}
	}
	return out, nil
}

func fourCommands() *stubSnapshot {
	return &stubSnapshot{
		commands: []prover.Command{
			{ID: 1, Range: text.R(0, 10)},
			{ID: 2, Range: text.R(10, 12), Ignored: true},
			{ID: 3, Range: text.R(12, 30)},
			{ID: 4, Range: text.R(30, 50)},
			{ID: 5, Range: text.R(50, 60)},
		},
		status: map[prover.CommandID]prover.CommandStatus{
			1: {Kind: prover.StatusFinished},
			2: {Kind: prover.StatusUnprocessed},
			3: {Kind: prover.StatusUnprocessed},
			4: {Kind: prover.StatusRunning, Forks: 2},
			5: {Kind: prover.StatusRunning},
		},
	}
}

func TestStatusPass(t *testing.T) {
	got := Project(fourCommands(), []text.Range{text.R(0, 60)})
	assert.Equal(t, []Info{
		{Kind: KindUnprocessed, Range: text.R(12, 30)},
		{Kind: KindUnfinished, Range: text.R(30, 50)},
	}, got)
}

func TestOutdatedSnapshotOverridesStatus(t *testing.T) {
	snap := fourCommands()
	snap.outdated = true
	got := Project(snap, []text.Range{text.R(0, 60)})
	require.Len(t, got, 4)
	for _, info := range got {
		assert.Equal(t, KindOutdated, info.Kind)
	}
}

func TestHighlightAndMessagePasses(t *testing.T) {
	snap := &stubSnapshot{
		markup: []prover.Markup{
			{Name: prover.MarkupTokenRange, Range: text.R(0, 5)},
			{Name: prover.MarkupBad, Range: text.R(20, 24)},
			{Name: prover.MarkupBad, Range: text.R(24, 26)},
			{Name: prover.MarkupHilite, Range: text.R(30, 31)},
		},
		messages: []prover.Message{
			{Name: prover.MarkupWriteln, Range: text.R(6, 8), Text: "out"},
			{Name: prover.MarkupWarning, Range: text.R(8, 9), Text: "w"},
			{Name: prover.MarkupWarning, Range: text.R(9, 11), Text: "old", Legacy: true},
			{Name: prover.MarkupError, Range: text.R(20, 26), Text: "e"},
		},
	}
	got := Project(snap, []text.Range{text.R(0, 40)})
	assert.Equal(t, []Info{
		{Kind: KindTokenRange, Range: text.R(0, 5)},
		{Kind: KindInfo, Range: text.R(6, 8), Message: "out", HasMessage: true},
		{Kind: KindWarning, Range: text.R(8, 9), Message: "w", HasMessage: true},
		{Kind: KindLegacy, Range: text.R(9, 11), Message: "old", HasMessage: true},
		{Kind: KindBad, Range: text.R(20, 26)},
		{Kind: KindError, Range: text.R(20, 26), Message: "e", HasMessage: true},
		{Kind: KindHilite, Range: text.R(30, 31)},
	}, got)
}

func TestOverlappingRegionsAreDeduplicated(t *testing.T) {
	got := Project(fourCommands(), []text.Range{text.R(0, 35), text.R(20, 60)})
	assert.Len(t, got, 2)
}

func TestFailingRegionIsSkipped(t *testing.T) {
	snap := fourCommands()
	bad := text.R(12, 20)
	snap.failAt = &bad
	got := Project(snap, []text.Range{bad, text.R(30, 40)})
	assert.Equal(t, []Info{{Kind: KindUnfinished, Range: text.R(30, 50)}}, got)
}

func TestCommandRanges(t *testing.T) {
	snap := fourCommands()
	ranges, all := CommandRanges(snap, []prover.CommandID{3, 1})
	assert.True(t, all)
	assert.Equal(t, []text.Range{text.R(12, 30), text.R(0, 10)}, ranges)

	_, all = CommandRanges(snap, []prover.CommandID{3, 99})
	assert.False(t, all)
	assert.Len(t, AllCommandRanges(snap), 5)
}

func TestKindNames(t *testing.T) {
	for _, k := range Kinds() {
		parsed, ok := ParseKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	assert.True(t, KindUnfinished.IsStatus())
	assert.True(t, KindLegacy.IsMessage())
	assert.False(t, KindBad.IsMessage())
}
