package core

import (
	"context"
	"sync"
)

// SessionState is the lifecycle state of a connection.
type SessionState int

const (
	SessionUnjoined SessionState = iota
	SessionJoined
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionUnjoined:
		return "unjoined"
	case SessionJoined:
		return "joined"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session translates connection events for one channel into registry and
// dispatcher calls. Closed is terminal.
type Session struct {
	mu         sync.Mutex
	channel    Channel
	registry   *Registry
	dispatcher *Dispatcher
	state      SessionState
	identity   string
}

func newSession(ch Channel, registry *Registry, dispatcher *Dispatcher) *Session {
	return &Session{
		channel:    ch,
		registry:   registry,
		dispatcher: dispatcher,
		state:      SessionUnjoined,
	}
}

// Join binds the channel to identity. Joining again rebinds it to the new
// identity (last write wins).
func (s *Session) Join(identity string) error {
	if identity == "" {
		return validationError(ErrCodeBadRequest, "identity is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionClosed {
		return ErrSessionClosed
	}
	// Registering under the lock keeps a concurrent Close from leaving a stale entry.
	s.registry.Register(identity, s.channel)
	s.identity = identity
	s.state = SessionJoined
	return nil
}

// Submit dispatches body to the joined identity.
func (s *Session) Submit(ctx context.Context, body string) (Message, error) {
	identity, err := s.joinedIdentity()
	if err != nil {
		return Message{}, err
	}
	return s.dispatcher.Submit(ctx, identity, body)
}

// History returns the joined identity's message history.
func (s *Session) History(ctx context.Context) ([]Message, error) {
	identity, err := s.joinedIdentity()
	if err != nil {
		return nil, err
	}
	return s.dispatcher.History(ctx, identity)
}

// Close unregisters the channel. Calling it more than once is safe.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionClosed {
		return
	}
	s.state = SessionClosed
	s.registry.Unregister(s.channel)
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the joined identity, or "" before the first join.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) joinedIdentity() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case SessionJoined:
		return s.identity, nil
	case SessionClosed:
		return "", ErrSessionClosed
	default:
		return "", validationError(ErrCodeNotJoined, "join before sending")
	}
}
