package wallet

import (
	"fmt"
	"sync"

	"autolearner-go/internal/learner"
)

// Session holds the connected identity and notifies subscribers of changes.
// It is safe for concurrent use. Notifications are delivered in the order
// the changes were made; subscribers must not call Connect or Disconnect
// from within a callback.
type Session struct {
	notifyMu sync.Mutex // serialises change+notify sequences

	mu      sync.Mutex
	current learner.Identity
	present bool
	nextSub int
	subs    map[int]func(learner.Identity, bool)
}

var _ learner.IdentitySource = (*Session)(nil)

// NewSession creates a session with no identity connected.
func NewSession() *Session {
	return &Session{subs: make(map[int]func(learner.Identity, bool))}
}

// Current returns the connected identity.
func (s *Session) Current() (learner.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.present
}

// Subscribe registers fn for identity changes. If an identity is already
// connected, fn is called with it before Subscribe returns, so no change
// can slip between reading the current identity and subscribing.
func (s *Session) Subscribe(fn func(identity learner.Identity, present bool)) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current, present := s.current, s.present
	s.mu.Unlock()

	if present {
		fn(current, true)
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Connect makes identity the active one. Reconnecting the same address with
// the same signing capability does not notify subscribers.
func (s *Session) Connect(identity learner.Identity) error {
	if identity.IsZero() {
		return fmt.Errorf("cannot connect an empty identity")
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	unchanged := s.present &&
		learner.SameAddress(s.current.Address, identity.Address) &&
		s.current.CanSign() == identity.CanSign()
	s.current = identity
	s.present = true
	subs := s.snapshot()
	s.mu.Unlock()

	if unchanged {
		return nil
	}
	for _, fn := range subs {
		fn(identity, true)
	}
	return nil
}

// Disconnect clears the active identity.
func (s *Session) Disconnect() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	wasPresent := s.present
	s.current = learner.Identity{}
	s.present = false
	subs := s.snapshot()
	s.mu.Unlock()

	if !wasPresent {
		return
	}
	for _, fn := range subs {
		fn(learner.Identity{}, false)
	}
}

// snapshot copies the subscriber list. Callers hold s.mu.
func (s *Session) snapshot() []func(learner.Identity, bool) {
	subs := make([]func(learner.Identity, bool), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}
