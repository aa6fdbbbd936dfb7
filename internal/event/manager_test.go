package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchReachesSubscribers(t *testing.T) {
	m := NewManager()
	var got []interface{}
	m.Subscribe(TypeCommandsChanged, func(e Event) { got = append(got, e.Data) })
	m.Subscribe(TypeSessionStarted, func(e Event) { t.Fatal("wrong type") })

	m.Dispatch(TypeCommandsChanged, 1)
	m.Dispatch(TypeCommandsChanged, 2)
	assert.Equal(t, []interface{}{1, 2}, got)
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	m := NewManager()
	calls := 0
	m.Subscribe(TypeAppQuit, func(Event) { panic("boom") })
	m.Subscribe(TypeAppQuit, func(Event) { calls++ })

	assert.NotPanics(t, func() { m.Dispatch(TypeAppQuit, nil) })
	assert.Equal(t, 1, calls)
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	m := NewManager()
	var second SubscriptionID
	calls := 0
	m.Subscribe(TypeBufferSaved, func(Event) { m.Unsubscribe(second) })
	second = m.Subscribe(TypeBufferSaved, func(Event) { calls++ })

	m.Dispatch(TypeBufferSaved, nil)
	assert.Equal(t, 1, calls, "removal applies from the next dispatch")
	m.Dispatch(TypeBufferSaved, nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, m.Count(TypeBufferSaved))

	m.Unsubscribe(9999)
}
