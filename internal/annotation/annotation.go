// Package annotation projects a prover snapshot onto abstract annotations:
// command statuses, highlight markup and diagnostic messages.
package annotation

import (
	"fmt"

	"github.com/bethropolis/proofsync/internal/text"
)

// Kind classifies an annotation.
type Kind int

const (
	// Status kinds.
	KindOutdated Kind = iota
	KindUnfinished
	KindUnprocessed

	// Highlight kinds.
	KindBad
	KindHilite
	KindTokenRange

	// Message kinds.
	KindError
	KindWarning
	KindLegacy
	KindInfo
)

var kindNames = [...]string{
	KindOutdated:    "outdated",
	KindUnfinished:  "unfinished",
	KindUnprocessed: "unprocessed",
	KindBad:         "bad",
	KindHilite:      "hilite",
	KindTokenRange:  "token_range",
	KindError:       "error",
	KindWarning:     "warning",
	KindLegacy:      "legacy",
	KindInfo:        "info",
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of String.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

func (k Kind) IsStatus() bool  { return k <= KindUnprocessed }
func (k Kind) IsMessage() bool { return k >= KindError }

// Info is one annotation. It is a comparable value: two Infos are the same
// annotation iff all fields are equal.
type Info struct {
	Kind       Kind
	Range      text.Range
	Message    string
	HasMessage bool
}

func (i Info) String() string {
	if i.HasMessage {
		return fmt.Sprintf("%s%v %q", i.Kind, i.Range, i.Message)
	}
	return fmt.Sprintf("%s%v", i.Kind, i.Range)
}
