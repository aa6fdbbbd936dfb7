package decoration

import (
	"sort"
	"sync"

	"github.com/bethropolis/proofsync/internal/buffer"
	"github.com/bethropolis/proofsync/internal/text"
)

// Decoration is an installed, non-persistent annotation.
type Decoration struct {
	ID         uint64
	Type       string
	Range      text.Range
	Message    string
	HasMessage bool
}

// Store holds the decorations of one buffer.
type Store interface {
	Overlapping(r text.Range) []Decoration
	// Apply removes the decorations with the given IDs and installs add.
	Apply(remove []uint64, add []Decoration)
}

// MemoryStore is a Store whose decorations follow buffer edits. Register it
// with buffer.AddListener.
type MemoryStore struct {
	mu     sync.RWMutex
	decs   map[uint64]Decoration
	nextID uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{decs: make(map[uint64]Decoration)}
}

func (s *MemoryStore) Overlapping(r text.Range) []Decoration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Decoration
	for _, d := range s.decs {
		if d.Range.Overlaps(r) {
			out = append(out, d)
		}
	}
	sortDecorations(out)
	return out
}

// All returns every decoration ordered by start.
func (s *MemoryStore) All() []Decoration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Decoration, 0, len(s.decs))
	for _, d := range s.decs {
		out = append(out, d)
	}
	sortDecorations(out)
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.decs)
}

func (s *MemoryStore) Apply(remove []uint64, add []Decoration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range remove {
		delete(s.decs, id)
	}
	for _, d := range add {
		s.nextID++
		d.ID = s.nextID
		s.decs[d.ID] = d
	}
}

func (s *MemoryStore) DocumentAboutToBeChanged(ev buffer.ChangeEvent) {
	if ev.Length == 0 {
		return
	}
	removed := text.R(ev.Offset, ev.Offset+ev.Length)
	conv := func(i int) int {
		if i < ev.Offset {
			return i
		}
		return max(i-ev.Length, ev.Offset)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.decs {
		if !d.Range.IsEmpty() && d.Range.Start >= removed.Start && d.Range.End <= removed.End {
			delete(s.decs, id)
			continue
		}
		d.Range = text.R(conv(d.Range.Start), conv(d.Range.End))
		s.decs[id] = d
	}
}

// DocumentChanged shifts decorations after an insertion. Text inserted at
// either end of a decoration is not absorbed by it.
func (s *MemoryStore) DocumentChanged(ev buffer.ChangeEvent) {
	if ev.Text == "" {
		return
	}
	ins := text.Insert(ev.Offset, ev.Text)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.decs {
		r := text.R(ins.Convert(d.Range.Start), d.Range.End)
		if d.Range.End > ev.Offset {
			r.End = ins.Convert(d.Range.End)
		}
		r.End = max(r.End, r.Start)
		d.Range = r
		s.decs[id] = d
	}
}

func sortDecorations(ds []Decoration) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Range.Start != ds[j].Range.Start {
			return ds[i].Range.Start < ds[j].Range.Start
		}
		return ds[i].ID < ds[j].ID
	})
}

var (
	_ Store           = (*MemoryStore)(nil)
	_ buffer.Listener = (*MemoryStore)(nil)
)
