package text

import "fmt"

// EditKind tags an Edit as an insertion or a removal.
type EditKind int

const (
	KindInsert EditKind = iota
	KindRemove
)

func (k EditKind) String() string {
	if k == KindRemove {
		return "remove"
	}
	return "insert"
}

// Edit is one atomic buffer mutation in the form the prover consumes:
// the offset where it happened and the text inserted or removed.
type Edit struct {
	Kind   EditKind
	Offset int
	Text   string
}

func Insert(offset int, s string) Edit {
	return Edit{Kind: KindInsert, Offset: offset, Text: s}
}

func Remove(offset int, s string) Edit {
	return Edit{Kind: KindRemove, Offset: offset, Text: s}
}

// Len is the length of the affected text in characters.
func (e Edit) Len() int {
	return len([]rune(e.Text))
}

func (e Edit) IsInsert() bool { return e.Kind == KindInsert }

// Convert maps an offset from before the edit to after it. Offsets inside
// a removed span collapse onto the removal start.
func (e Edit) Convert(i int) int {
	if i < e.Offset {
		return i
	}
	if e.IsInsert() {
		return i + e.Len()
	}
	return max(i-e.Len(), e.Offset)
}

// Revert maps an offset from after the edit back to before it.
func (e Edit) Revert(i int) int {
	if i < e.Offset {
		return i
	}
	if e.IsInsert() {
		return max(i-e.Len(), e.Offset)
	}
	return i + e.Len()
}

// ConvertRange maps both ends of r through the edit.
func (e Edit) ConvertRange(r Range) Range {
	return Range{Start: e.Convert(r.Start), End: e.Convert(r.End)}
}

func (e Edit) String() string {
	return fmt.Sprintf("%s(%d,%q)", e.Kind, e.Offset, e.Text)
}

// ConvertAll folds r through edits in order.
func ConvertAll(edits []Edit, r Range) Range {
	for _, e := range edits {
		r = e.ConvertRange(r)
	}
	return r
}

// RevertAll maps r back through edits, last edit first.
func RevertAll(edits []Edit, r Range) Range {
	for i := len(edits) - 1; i >= 0; i-- {
		r = Range{Start: edits[i].Revert(r.Start), End: edits[i].Revert(r.End)}
	}
	return r
}
