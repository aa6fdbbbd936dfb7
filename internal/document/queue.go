package document

import (
	"sync"

	"github.com/bethropolis/proofsync/internal/text"
)

// EditQueue accumulates edits between flushes, in capture order.
type EditQueue struct {
	mu       *sync.RWMutex
	edits    []text.Edit
	onRecord func()
}

// NewEditQueue creates a queue guarded by mu. onRecord runs after every
// Record, outside the lock.
func NewEditQueue(mu *sync.RWMutex, onRecord func()) *EditQueue {
	return &EditQueue{mu: mu, onRecord: onRecord}
}

// Record appends e.
func (q *EditQueue) Record(e text.Edit) {
	q.mu.Lock()
	q.edits = append(q.edits, e)
	q.mu.Unlock()
	if q.onRecord != nil {
		q.onRecord()
	}
}

// DrainAndClear returns the queued edits in FIFO order and empties the queue.
// The returned slice is owned by the caller.
func (q *EditQueue) DrainAndClear() []text.Edit {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.edits
	q.edits = nil
	return out
}

// Pending returns a copy of the queued edits without draining them.
func (q *EditQueue) Pending() []text.Edit {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.edits) == 0 {
		return nil
	}
	return append([]text.Edit(nil), q.edits...)
}

func (q *EditQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.edits)
}
