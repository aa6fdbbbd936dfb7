// internal/event/manager.go
package event

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/bethropolis/proofsync/internal/logger"
)

// Handler receives dispatched events. A panicking handler is recovered and
// logged; other handlers still run.
type Handler func(e Event)

// SubscriptionID is returned by Subscribe and used to Unsubscribe.
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Manager handles event subscriptions and dispatching.
type Manager struct {
	mu       sync.RWMutex
	handlers map[Type][]subscription
	byID     map[SubscriptionID]Type
	nextID   SubscriptionID
}

// NewManager creates a new event manager.
func NewManager() *Manager {
	return &Manager{
		handlers: make(map[Type][]subscription),
		byID:     make(map[SubscriptionID]Type),
	}
}

// Subscribe adds a handler for eventType.
func (m *Manager) Subscribe(eventType Type, handler Handler) SubscriptionID {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.handlers[eventType] = append(m.handlers[eventType], subscription{id: id, handler: handler})
	m.byID[id] = eventType
	logger.DebugTagf("event", "Handler %d subscribed to %v", id, eventType)
	return id
}

// Unsubscribe removes a handler. Unknown IDs are ignored.
func (m *Manager) Unsubscribe(id SubscriptionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	eventType, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byID, id)
	subs := m.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			// Fresh slice so an in-progress Dispatch keeps its own view.
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			m.handlers[eventType] = append(next, subs[i+1:]...)
			break
		}
	}
	logger.DebugTagf("event", "Handler %d unsubscribed from %v", id, eventType)
}

// Count returns the number of handlers subscribed to eventType.
func (m *Manager) Count(eventType Type) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[eventType])
}

// Dispatch sends an event to all handlers registered for its type,
// synchronously on the caller's goroutine.
func (m *Manager) Dispatch(eventType Type, data interface{}) {
	e := Event{Type: eventType, Data: data}

	m.mu.RLock()
	subs := m.handlers[eventType]
	m.mu.RUnlock()

	if len(subs) == 0 {
		return
	}
	for _, s := range subs {
		m.invoke(s, e)
	}
}

func (m *Manager) invoke(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorTagf("event", "Handler %d panicked on %v: %v\n%s", s.id, e.Type, fmt.Sprint(r), debug.Stack())
		}
	}()
	s.handler(e)
}
