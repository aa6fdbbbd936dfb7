package annotation

import (
	"sort"

	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/text"
)

var highlightKinds = map[string]Kind{
	prover.MarkupBad:        KindBad,
	prover.MarkupHilite:     KindHilite,
	prover.MarkupTokenRange: KindTokenRange,
}

// Project computes the annotations for regions of snap. The result has no
// duplicates and is ordered by range end, so a consumer that runs out of
// buffer drops only the tail. A region whose queries fail is skipped.
func Project(snap prover.Snapshot, regions []text.Range) []Info {
	set := make(map[Info]struct{})
	for _, r := range regions {
		if err := projectRegion(snap, r, set); err != nil {
			logger.WarnTagf("annotations", "Skipping region %v of %s: %v", r, snap.Ref(), err)
		}
	}

	out := make([]Info, 0, len(set))
	for info := range set {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Range.End != b.Range.End {
			return a.Range.End < b.Range.End
		}
		if a.Range.Start != b.Range.Start {
			return a.Range.Start < b.Range.Start
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Message < b.Message
	})
	return out
}

func projectRegion(snap prover.Snapshot, r text.Range, set map[Info]struct{}) error {
	cmds, err := snap.CommandsIn(r)
	if err != nil {
		return err
	}
	outdated := snap.IsOutdated()
	for _, c := range cmds {
		if c.Ignored {
			continue
		}
		if outdated {
			set[Info{Kind: KindOutdated, Range: c.Range}] = struct{}{}
			continue
		}
		st, err := snap.Status(c.ID)
		if err != nil {
			logger.DebugTagf("annotations", "No status for command %d: %v", c.ID, err)
			continue
		}
		switch {
		case st.IsUnprocessed():
			set[Info{Kind: KindUnprocessed, Range: c.Range}] = struct{}{}
		case st.IsUnfinished():
			set[Info{Kind: KindUnfinished, Range: c.Range}] = struct{}{}
		}
	}

	markup, err := snap.SelectMarkup(r, prover.MarkupBad, prover.MarkupHilite, prover.MarkupTokenRange)
	if err != nil {
		return err
	}
	for _, m := range joinContiguous(markup) {
		set[Info{Kind: highlightKinds[m.Name], Range: m.Range}] = struct{}{}
	}

	msgs, err := snap.SelectMessages(r, prover.MarkupWriteln, prover.MarkupWarning, prover.MarkupError)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		kind, ok := messageKind(m)
		if !ok {
			continue
		}
		set[Info{Kind: kind, Range: m.Range, Message: m.Text, HasMessage: true}] = struct{}{}
	}
	return nil
}

func messageKind(m prover.Message) (Kind, bool) {
	switch m.Name {
	case prover.MarkupWriteln:
		return KindInfo, true
	case prover.MarkupError:
		return KindError, true
	case prover.MarkupWarning:
		if m.Legacy {
			return KindLegacy, true
		}
		return KindWarning, true
	}
	return 0, false
}

// joinContiguous merges abutting or overlapping spans that carry the same
// markup name. Input is ordered by start.
func joinContiguous(spans []prover.Markup) []prover.Markup {
	byName := make(map[string][]prover.Markup)
	var order []string
	for _, m := range spans {
		if _, seen := byName[m.Name]; !seen {
			order = append(order, m.Name)
		}
		byName[m.Name] = append(byName[m.Name], m)
	}

	var out []prover.Markup
	for _, name := range order {
		list := byName[name]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Range.Start < list[j].Range.Start })
		cur := list[0]
		for _, m := range list[1:] {
			if m.Range.Start <= cur.Range.End {
				cur.Range.End = max(cur.Range.End, m.Range.End)
				continue
			}
			out = append(out, cur)
			cur = m
		}
		out = append(out, cur)
	}
	return out
}

// CommandRanges returns the ranges of the given commands in snap, and
// whether every ID was found.
func CommandRanges(snap prover.Snapshot, ids []prover.CommandID) ([]text.Range, bool) {
	ranges := make([]text.Range, 0, len(ids))
	all := true
	for _, id := range ids {
		c, ok := snap.Command(id)
		if !ok {
			all = false
			continue
		}
		ranges = append(ranges, c.Range)
	}
	return ranges, all
}

// AllCommandRanges returns the range of every command in snap.
func AllCommandRanges(snap prover.Snapshot) []text.Range {
	cmds := snap.Commands()
	ranges := make([]text.Range, 0, len(cmds))
	for _, c := range cmds {
		ranges = append(ranges, c.Range)
	}
	return ranges
}
