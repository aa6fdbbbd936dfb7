// Package text holds the offset-space value types shared by the buffer,
// the document model and the prover session: ranges, perspectives and edits.
package text

import (
	"fmt"
	"sort"
)

// Range is a half-open interval [Start, End) of character offsets.
type Range struct {
	Start int
	End   int
}

// R is shorthand for Range{start, end}.
func R(start, end int) Range {
	return Range{Start: start, End: end}
}

func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) IsEmpty() bool {
	return r.End <= r.Start
}

// Valid reports whether the range is non-negative and ordered.
func (r Range) Valid() bool {
	return r.Start >= 0 && r.Start <= r.End
}

// Contains reports whether offset i lies in the range. An empty range
// contains its own start so zero-length ranges can still be hit.
func (r Range) Contains(i int) bool {
	return r.Start == i || (r.Start <= i && i < r.End)
}

// Overlaps reports whether the two ranges share any offset, using the
// Contains convention for empty ranges.
func (r Range) Overlaps(o Range) bool {
	return r.Contains(o.Start) || o.Contains(r.Start)
}

// TryRestrict clamps r to bound. ok is false when r does not overlap bound,
// so a range starting at or past the end of bound is rejected rather than
// collapsed onto it.
func (r Range) TryRestrict(bound Range) (Range, bool) {
	if !r.Overlaps(bound) {
		return Range{}, false
	}
	return Range{Start: max(r.Start, bound.Start), End: min(r.End, bound.End)}, true
}

// Shift moves both ends by delta.
func (r Range) Shift(delta int) Range {
	return Range{Start: r.Start + delta, End: r.End + delta}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Merge sorts ranges by start and joins neighbours whose gap is at most one
// offset. The input slice is not modified.
func Merge(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := make([]Range, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start-cur.End <= 1 {
			cur.End = max(cur.End, next.End)
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}

// Perspective is the set of ranges the prover should fully check.
type Perspective []Range

// Full returns a single-range perspective covering [0, length).
func Full(length int) Perspective {
	return Perspective{R(0, length)}
}

// Equal compares perspectives by value; nil and empty are equal.
func (p Perspective) Equal(o Perspective) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}
