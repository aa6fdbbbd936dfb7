package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bethropolis/proofsync/internal/event"
	"github.com/bethropolis/proofsync/internal/logger"
	"github.com/bethropolis/proofsync/internal/prover"
)

var ErrAlreadyAttached = errors.New("session: listener already attached to this session")

// ListenerFactory builds the handler attached to one session.
type ListenerFactory func(s prover.Session) event.Handler

// Hook is called after attaching to, or before detaching from, a session.
type Hook func(s prover.Session)

// Support attaches a listener to whichever session is live, following
// restarts until UnsubscribeAll.
type Support struct {
	mgr            *Manager
	types          []event.Type
	factory        ListenerFactory
	onConnected    Hook
	onDisconnected Hook

	mu        sync.Mutex
	attached  prover.Session
	subs      []event.SubscriptionID
	lifecycle []event.SubscriptionID
	closed    bool
}

// Subscribe attaches to the current session (if any) and to every future
// one. onConnected and onDisconnected may be nil.
func Subscribe(mgr *Manager, types []event.Type, factory ListenerFactory, onConnected, onDisconnected Hook) (*Support, error) {
	if len(types) == 0 {
		return nil, errors.New("session: no event types to subscribe")
	}
	s := &Support{
		mgr:            mgr,
		types:          append([]event.Type(nil), types...),
		factory:        factory,
		onConnected:    onConnected,
		onDisconnected: onDisconnected,
	}

	var err error
	mgr.observe(func(current prover.Session) {
		events := mgr.Events()
		s.lifecycle = []event.SubscriptionID{
			events.Subscribe(event.TypeSessionStarted, s.handleStarted),
			events.Subscribe(event.TypeSessionStopped, s.handleStopped),
		}
		if current != nil {
			err = s.attach(current)
		}
	})
	if err != nil {
		s.UnsubscribeAll()
		return nil, err
	}
	return s, nil
}

func (s *Support) handleStarted(e event.Event) {
	sess, ok := e.Data.(prover.Session)
	if !ok {
		return
	}
	if err := s.attach(sess); err != nil {
		logger.ErrorTagf("session", "Attach to %s: %v", sess.ID(), err)
	}
}

func (s *Support) handleStopped(e event.Event) {
	sess, ok := e.Data.(prover.Session)
	if !ok {
		return
	}
	s.detach(sess)
}

func (s *Support) attach(sess prover.Session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.attached == sess {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyAttached, sess.ID())
	}
	if s.attached != nil {
		s.mu.Unlock()
		s.detach(s.attached)
		s.mu.Lock()
	}
	handler := s.factory(sess)
	subs := make([]event.SubscriptionID, 0, len(s.types))
	for _, t := range s.types {
		subs = append(subs, sess.Subscribe(t, handler))
	}
	s.attached = sess
	s.subs = subs
	s.mu.Unlock()

	logger.DebugTagf("session", "Attached %d listener(s) to %s", len(subs), sess.ID())
	if s.onConnected != nil {
		s.onConnected(sess)
	}
	return nil
}

func (s *Support) detach(sess prover.Session) {
	s.mu.Lock()
	if s.attached == nil || s.attached != sess {
		s.mu.Unlock()
		return
	}
	for _, id := range s.subs {
		sess.Unsubscribe(id)
	}
	s.attached = nil
	s.subs = nil
	s.mu.Unlock()

	logger.DebugTagf("session", "Detached from %s", sess.ID())
	if s.onDisconnected != nil {
		s.onDisconnected(sess)
	}
}

// Attached returns the session currently listened to, or nil.
func (s *Support) Attached() prover.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// UnsubscribeAll detaches from the current session and stops following
// session changes. It is safe to call more than once.
func (s *Support) UnsubscribeAll() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	lifecycle := s.lifecycle
	s.lifecycle = nil
	attached := s.attached
	s.mu.Unlock()

	for _, id := range lifecycle {
		s.mgr.Events().Unsubscribe(id)
	}
	if attached != nil {
		s.detach(attached)
	}
}
