// Package manager orchestrates the engine's single Discord account: the
// gateway session, its REST counterpart, the controller that drains them,
// and an optional voice sub-session.
package manager

import "time"

// ConnectionStatus is the current state of the engine's one gateway session.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
	StatusBackoff      ConnectionStatus = "backoff"
)

// SessionState is the runtime state of the engine's gateway session. Not
// persisted — it exists only while the process is running; resumable fields
// (SessionID/Sequence) are mirrored out to config.SessionState on change so
// a restart can attempt a RESUME instead of a fresh IDENTIFY.
type SessionState struct {
	ConnectionStatus ConnectionStatus
	LastError        string
	BackoffAttempt   int
	LastConnectTime  time.Time
	SessionID        string
	Sequence         int
	InVoiceCall      bool
}

// NewSessionState creates a fresh, disconnected session state.
func NewSessionState() *SessionState {
	return &SessionState{ConnectionStatus: StatusDisconnected}
}

// Reset clears the session state for a fresh connection attempt.
func (s *SessionState) Reset() {
	s.ConnectionStatus = StatusDisconnected
	s.LastError = ""
	s.BackoffAttempt = 0
	s.SessionID = ""
	s.Sequence = 0
}

// MarkConnecting updates the state to connecting.
func (s *SessionState) MarkConnecting() {
	s.ConnectionStatus = StatusConnecting
}

// MarkConnected updates the state to connected.
func (s *SessionState) MarkConnected(sessionID string) {
	s.ConnectionStatus = StatusConnected
	s.LastConnectTime = time.Now()
	s.SessionID = sessionID
	s.BackoffAttempt = 0
	s.LastError = ""
}

// MarkError updates the state to error with a message.
func (s *SessionState) MarkError(err string) {
	s.ConnectionStatus = StatusError
	s.LastError = err
}

// MarkBackoff updates the state to backoff and increments the attempt counter.
func (s *SessionState) MarkBackoff() {
	s.ConnectionStatus = StatusBackoff
	s.BackoffAttempt++
}

// MarkDisconnected updates the state to disconnected.
func (s *SessionState) MarkDisconnected() {
	s.ConnectionStatus = StatusDisconnected
	s.LastError = ""
}

// UpdateSequence updates the last received sequence number.
func (s *SessionState) UpdateSequence(seq int) {
	if seq > 0 {
		s.Sequence = seq
	}
}
