package local

import (
	"fmt"
	"sort"

	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/text"
)

type snapshot struct {
	ref      prover.DocumentRef
	version  int64
	outdated bool

	commands []prover.Command
	index    map[prover.CommandID]int
	status   map[prover.CommandID]prover.CommandStatus
	markup   []prover.Markup
	messages []prover.Message
}

// newSnapshot copies n, mapping node offsets through pending. Caller holds s.mu.
func newSnapshot(n *node, version int64, pending []text.Edit) *snapshot {
	snap := &snapshot{
		ref:      n.ref,
		version:  version,
		outdated: len(pending) > 0,
		index:    make(map[prover.CommandID]int, len(n.commands)),
		status:   make(map[prover.CommandID]prover.CommandStatus, len(n.commands)),
	}
	conv := func(r text.Range) text.Range { return text.ConvertAll(pending, r) }

	for _, c := range n.commands {
		snap.index[c.id] = len(snap.commands)
		snap.commands = append(snap.commands, prover.Command{
			ID:      c.id,
			Name:    c.name,
			Range:   conv(c.span()),
			Ignored: c.ignored,
		})
		snap.status[c.id] = c.status
		for _, m := range c.markup {
			m.Range = conv(m.Range.Shift(c.start))
			snap.markup = append(snap.markup, m)
		}
		for _, m := range c.messages {
			m.Range = conv(m.Range.Shift(c.start))
			snap.messages = append(snap.messages, m)
		}
	}
	sort.SliceStable(snap.markup, func(i, j int) bool { return snap.markup[i].Range.Start < snap.markup[j].Range.Start })
	sort.SliceStable(snap.messages, func(i, j int) bool { return snap.messages[i].Range.Start < snap.messages[j].Range.Start })
	return snap
}

func (s *snapshot) Ref() prover.DocumentRef { return s.ref }
func (s *snapshot) Version() int64          { return s.version }
func (s *snapshot) IsOutdated() bool        { return s.outdated }

func (s *snapshot) Commands() []prover.Command {
	return append([]prover.Command(nil), s.commands...)
}

func (s *snapshot) Command(id prover.CommandID) (prover.Command, bool) {
	i, ok := s.index[id]
	if !ok {
		return prover.Command{}, false
	}
	return s.commands[i], true
}

func checkRange(r text.Range) error {
	if !r.Valid() {
		return fmt.Errorf("invalid range %v", r)
	}
	return nil
}

func (s *snapshot) CommandsIn(r text.Range) ([]prover.Command, error) {
	if err := checkRange(r); err != nil {
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

func (s *snapshot) Status(id prover.CommandID) (prover.CommandStatus, error) {
	st, ok := s.status[id]
	if !ok {
		return prover.CommandStatus{}, fmt.Errorf("%w: %d", prover.ErrUnknownCommand, id)
	}
	return st, nil
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func (s *snapshot) SelectMarkup(r text.Range, names ...string) ([]prover.Markup, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	want := nameSet(names)
	var out []prover.Markup
	for _, m := range s.markup {
		if want[m.Name] && m.Range.Overlaps(r) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *snapshot) SelectMessages(r text.Range, names ...string) ([]prover.Message, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	want := nameSet(names)
	var out []prover.Message
	for _, m := range s.messages {
		if want[m.Name] && m.Range.Overlaps(r) {
			out = append(out, m)
		}
	}
	return out, nil
}
