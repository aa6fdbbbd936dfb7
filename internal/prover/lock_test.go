package prover

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitLockIsReentrantThroughContext(t *testing.T) {
	l := NewSubmitLock()
	ctx, release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, l.Held(ctx))

	inner, innerRelease, err := l.Acquire(ctx)
	require.NoError(t, err)
	innerRelease()
	assert.True(t, l.Held(inner))

	_, _, ok := l.TryAcquire(context.Background())
	assert.False(t, ok, "still held by the outer acquisition")

	release()
	release()
	_, r2, ok := l.TryAcquire(context.Background())
	assert.True(t, ok)
	r2()
}

func TestSubmitLockAcquireHonoursContext(t *testing.T) {
	l := NewSubmitLock()
	_, release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
