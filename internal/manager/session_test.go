package manager

import "testing"

func TestNewSessionStateStartsDisconnected(t *testing.T) {
	s := NewSessionState()
	if s.ConnectionStatus != StatusDisconnected {
		t.Errorf("expected StatusDisconnected, got %v", s.ConnectionStatus)
	}
}

func TestSessionStateMarkConnectedResetsBackoffAndError(t *testing.T) {
	s := NewSessionState()
	s.MarkBackoff()
	s.MarkBackoff()
	s.MarkError("boom")

	s.MarkConnected("sess123")

	if s.ConnectionStatus != StatusConnected {
		t.Errorf("expected StatusConnected, got %v", s.ConnectionStatus)
	}
	if s.SessionID != "sess123" {
		t.Errorf("expected SessionID to be set, got %q", s.SessionID)
	}
	if s.BackoffAttempt != 0 {
		t.Errorf("expected BackoffAttempt reset to 0, got %d", s.BackoffAttempt)
	}
	if s.LastError != "" {
		t.Errorf("expected LastError cleared, got %q", s.LastError)
	}
}

func TestSessionStateMarkBackoffIncrements(t *testing.T) {
	s := NewSessionState()
	s.MarkBackoff()
	s.MarkBackoff()
	s.MarkBackoff()

	if s.ConnectionStatus != StatusBackoff {
		t.Errorf("expected StatusBackoff, got %v", s.ConnectionStatus)
	}
	if s.BackoffAttempt != 3 {
		t.Errorf("expected BackoffAttempt 3, got %d", s.BackoffAttempt)
	}
}

func TestSessionStateUpdateSequenceIgnoresNonPositive(t *testing.T) {
	s := NewSessionState()
	s.UpdateSequence(5)
	s.UpdateSequence(0)
	s.UpdateSequence(-1)

	if s.Sequence != 5 {
		t.Errorf("expected Sequence to stay at 5, got %d", s.Sequence)
	}
}

func TestSessionStateResetClearsResumeData(t *testing.T) {
	s := NewSessionState()
	s.MarkConnected("sess123")
	s.UpdateSequence(42)

	s.Reset()

	if s.ConnectionStatus != StatusDisconnected {
		t.Errorf("expected StatusDisconnected after reset, got %v", s.ConnectionStatus)
	}
	if s.SessionID != "" || s.Sequence != 0 {
		t.Errorf("expected resume data cleared, got session=%q seq=%d", s.SessionID, s.Sequence)
	}
}

func TestSessionStateMarkDisconnectedClearsError(t *testing.T) {
	s := NewSessionState()
	s.MarkError("boom")
	s.MarkDisconnected()

	if s.ConnectionStatus != StatusDisconnected {
		t.Errorf("expected StatusDisconnected, got %v", s.ConnectionStatus)
	}
	if s.LastError != "" {
		t.Errorf("expected LastError cleared, got %q", s.LastError)
	}
}
