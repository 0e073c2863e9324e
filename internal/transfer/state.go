package transfer

import (
	"sync/atomic"
	"time"
)

// Clock abstracts time so idle handling can be tested
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// SessionState tracks the live connection and when it was last used.
// A zero lastActive means "never connected" and implies conn == nil.
type SessionState struct {
	conn       Conn
	lastActive time.Time
	clock      Clock
	// live mirrors conn != nil for readers outside the sync goroutine
	live atomic.Bool
}

func newSessionState(clock Clock) *SessionState {
	if clock == nil {
		clock = RealClock{}
	}
	return &SessionState{clock: clock}
}

// Touch marks the connection as used now
func (s *SessionState) Touch() {
	s.lastActive = s.clock.Now()
}

// ResetIdle forgets the last-active timestamp
func (s *SessionState) ResetIdle() {
	s.lastActive = time.Time{}
}

// Idle is the time since the connection was last used, zero if never connected
func (s *SessionState) Idle() time.Duration {
	if s.NeverConnected() {
		return 0
	}
	return s.clock.Now().Sub(s.lastActive)
}

// NeverConnected reports whether no connection has been used since the last reset
func (s *SessionState) NeverConnected() bool {
	return s.lastActive.IsZero()
}

// Connected reports whether a connection is held. Safe from any goroutine.
func (s *SessionState) Connected() bool {
	return s.live.Load()
}

func (s *SessionState) attach(conn Conn) {
	s.conn = conn
	s.live.Store(true)
	s.Touch()
}

func (s *SessionState) detach() Conn {
	conn := s.conn
	s.conn = nil
	s.live.Store(false)
	s.ResetIdle()
	return conn
}
