package service

import (
	"sync"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"
)

// SessionState is the authentication context of one store scope.
// It implements port.AuthContext.
type SessionState struct {
	ready chan struct{}
	once  sync.Once
	clock port.Clock

	mu      sync.RWMutex
	session *domain.Session
}

// NewSessionState creates an unresolved auth context.
func NewSessionState(clock port.Clock) *SessionState {
	if clock == nil {
		clock = time.Now
	}
	return &SessionState{
		ready: make(chan struct{}),
		clock: clock,
	}
}

// Ready is closed by the first Resolve call.
func (s *SessionState) Ready() <-chan struct{} {
	return s.ready
}

// Resolve records the current session, or nil for signed-out, and marks
// authentication as resolved.
func (s *SessionState) Resolve(session *domain.Session) {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.once.Do(func() { close(s.ready) })
}

// Session returns the session if it is still active.
func (s *SessionState) Session() (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.session.Active(s.clock()) {
		return nil, false
	}
	return s.session, true
}
