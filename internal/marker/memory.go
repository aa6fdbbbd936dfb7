package marker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	markers map[string]map[string]Marker // resource -> id -> marker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markers: make(map[string]map[string]Marker)}
}

func (s *MemoryStore) Find(resource string, types ...string) ([]Marker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match := typeFilter(types)
	var out []Marker
	for _, m := range s.markers[resource] {
		if match(m.Type) {
			out = append(out, m)
		}
	}
	sortMarkers(out)
	return out, nil
}

type memoryTx struct {
	resource string
	deletes  []string
	creates  []Marker
	existing map[string]Marker
}

func (tx *memoryTx) Delete(id string) error {
	if _, ok := tx.existing[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	tx.deletes = append(tx.deletes, id)
	return nil
}

func (tx *memoryTx) Create(m Marker) (Marker, error) {
	m.ID = uuid.NewString()
	m.Resource = tx.resource
	tx.creates = append(tx.creates, m)
	return m, nil
}

func (s *MemoryStore) Update(resource string, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{resource: resource, existing: s.markers[resource]}
	if err := fn(tx); err != nil {
		return err
	}
	byID := s.markers[resource]
	if byID == nil {
		byID = make(map[string]Marker)
		s.markers[resource] = byID
	}
	for _, id := range tx.deletes {
		delete(byID, id)
	}
	for _, m := range tx.creates {
		byID[m.ID] = m
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func sortMarkers(ms []Marker) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].CharStart != ms[j].CharStart {
			return ms[i].CharStart < ms[j].CharStart
		}
		return ms[i].ID < ms[j].ID
	})
}

var _ Store = (*MemoryStore)(nil)
