package document

import (
	"sync"

	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/text"
)

// PerspectiveTracker holds the active region of the document, normally the
// visible viewport, and whether it changed since the last flush.
type PerspectiveTracker struct {
	mu      *sync.RWMutex
	length  func() int
	onDirty func()

	active    text.Range
	hasActive bool
	dirty     bool
}

// NewPerspectiveTracker creates a tracker guarded by mu. length reports the
// current buffer length; onDirty runs outside the lock when the active
// range changes.
func NewPerspectiveTracker(mu *sync.RWMutex, length func() int, onDirty func()) *PerspectiveTracker {
	return &PerspectiveTracker{mu: mu, length: length, onDirty: onDirty}
}

// clampActive keeps the start inside the buffer and the length non-negative.
// ok is false when the start is at or past the end of the buffer.
func clampActive(offset, length, bufLen int) (text.Range, bool) {
	start := max(offset, 0)
	if start >= bufLen {
		return text.Range{}, false
	}
	end := min(start+max(length, 0), bufLen)
	return text.R(start, end), true
}

// SetActive records [offset, offset+length) as the active range. It reports
// whether the stored range changed.
func (p *PerspectiveTracker) SetActive(offset, length int) bool {
	r, ok := clampActive(offset, length, p.length())
	if !ok {
		logger.DebugTagf("perspective", "Dropping active range (%d,%d) outside buffer", offset, length)
		return false
	}

	p.mu.Lock()
	if p.hasActive && p.active == r {
		p.mu.Unlock()
		return false
	}
	p.active = r
	p.hasActive = true
	p.dirty = true
	p.mu.Unlock()

	if p.onDirty != nil {
		p.onDirty()
	}
	return true
}

// Current returns the active range, or the whole buffer if none was set.
func (p *PerspectiveTracker) Current() text.Perspective {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current()
}

func (p *PerspectiveTracker) current() text.Perspective {
	if !p.hasActive {
		return text.Full(p.length())
	}
	return text.Perspective{p.active}
}

// TakeDirty returns the current perspective and clears the dirty flag.
// ok is false, and the perspective nil, if nothing changed.
func (p *PerspectiveTracker) TakeDirty() (text.Perspective, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dirty {
		return nil, false
	}
	p.dirty = false
	return p.current(), true
}

func (p *PerspectiveTracker) IsDirty() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dirty
}

// Refit shrinks the active range after the buffer got shorter.
func (p *PerspectiveTracker) Refit() {
	n := p.length()
	p.mu.Lock()
	if !p.hasActive || p.active.End <= n {
		p.mu.Unlock()
		return
	}
	p.active = text.R(min(p.active.Start, n), n)
	p.dirty = true
	p.mu.Unlock()

	if p.onDirty != nil {
		p.onDirty()
	}
}
