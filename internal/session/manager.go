// Package session owns the current prover session and lets components
// follow it across restarts.
package session

import (
	"errors"
	"io"
	"sync"

	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/prover"
)

var (
	ErrAlreadyRunning = errors.New("session: already running")
	ErrNoSession      = errors.New("session: no session running")
)

// Factory starts a new prover session.
type Factory func() (prover.Session, error)

// Manager tracks the live session and publishes TypeSessionStarted and
// TypeSessionStopped on its event manager.
type Manager struct {
	events  *event.Manager
	factory Factory

	// lifecycle serializes start/stop notifications with registry setup.
	lifecycle sync.Mutex

	mu      sync.RWMutex
	current prover.Session
}

func NewManager(events *event.Manager, factory Factory) *Manager {
	return &Manager{events: events, factory: factory}
}

func (m *Manager) Events() *event.Manager { return m.events }

// Current returns the running session or nil.
func (m *Manager) Current() prover.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Start creates a session and announces it.
func (m *Manager) Start() (prover.Session, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.Current() != nil {
		return nil, ErrAlreadyRunning
	}
	s, err := m.factory()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	logger.InfoTagf("session", "Session %s started", s.ID())
	m.events.Dispatch(event.TypeSessionStarted, s)
	return s, nil
}

// Stop announces the session's end, then closes it. Listeners run while
// the session is still usable so documents can submit final edits.
func (m *Manager) Stop() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	s := m.Current()
	if s == nil {
		return ErrNoSession
	}
	m.events.Dispatch(event.TypeSessionStopped, s)

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	logger.InfoTagf("session", "Session %s stopped", s.ID())
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Restart stops the running session, if any, and starts a new one.
func (m *Manager) Restart() (prover.Session, error) {
	if err := m.Stop(); err != nil && !errors.Is(err, ErrNoSession) {
		logger.WarnTagf("session", "Stopping session before restart: %v", err)
	}
	return m.Start()
}

// observe runs fn with the current session while no start or stop can
// interleave.
func (m *Manager) observe(fn func(current prover.Session)) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	fn(m.Current())
}
