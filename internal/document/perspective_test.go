package document

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bethropolis/proofsync/internal/text"
)

func newTracker(length *int) (*PerspectiveTracker, *int) {
	dirtyCalls := new(int)
	var mu sync.RWMutex
	return NewPerspectiveTracker(&mu, func() int { return *length }, func() { *dirtyCalls++ }), dirtyCalls
}

func TestSetActiveClampsToBuffer(t *testing.T) {
	n := 100
	p, _ := newTracker(&n)
	assert.Equal(t, text.Full(100), p.Current())

	assert.True(t, p.SetActive(-5, 10))
	assert.Equal(t, text.Perspective{text.R(0, 10)}, p.Current())

	assert.True(t, p.SetActive(95, 50))
	assert.Equal(t, text.Perspective{text.R(95, 100)}, p.Current())

	assert.False(t, p.SetActive(100, 5))
	assert.False(t, p.SetActive(150, 5))
	assert.Equal(t, text.Perspective{text.R(95, 100)}, p.Current())
}

func TestSetActiveOnEmptyBufferIsDropped(t *testing.T) {
	n := 0
	p, dirty := newTracker(&n)
	assert.False(t, p.SetActive(0, 10))
	assert.Equal(t, 0, *dirty)
	assert.False(t, p.IsDirty())
}

func TestUnchangedActiveRangeIsNotDirty(t *testing.T) {
	n := 50
	p, dirty := newTracker(&n)
	p.SetActive(10, 5)
	got, ok := p.TakeDirty()
	assert.True(t, ok)
	assert.Equal(t, text.Perspective{text.R(10, 15)}, got)

	assert.False(t, p.SetActive(10, 5))
	_, ok = p.TakeDirty()
	assert.False(t, ok)
	assert.Equal(t, 1, *dirty)
}

func TestRefitAfterShrink(t *testing.T) {
	n := 50
	p, dirty := newTracker(&n)
	p.SetActive(40, 10)
	p.TakeDirty()

	n = 45
	p.Refit()
	assert.Equal(t, text.Perspective{text.R(40, 45)}, p.Current())
	assert.True(t, p.IsDirty())
	assert.Equal(t, 2, *dirty)

	n = 60
	p.Refit()
	assert.Equal(t, 2, *dirty, "growing never refits")
}
