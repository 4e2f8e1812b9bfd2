package state

// UpsertCall records (or replaces) a DM/group-DM call's ringing or active
// participant list, sourced from CALL_CREATE/CALL_UPDATE.
func (s *Store) UpsertCall(channelID string, participants []string, ringing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]Call)
	}
	s.calls[channelID] = Call{ChannelID: channelID, Participants: participants, Ringing: ringing}
}

// RemoveCall drops a call on CALL_DELETE (the last participant left, or the
// call was declined/timed out).
func (s *Store) RemoveCall(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.calls, channelID)
}

// Call returns a DM channel's active/ringing call, if any.
func (s *Store) Call(channelID string) (Call, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calls[channelID]
	return c, ok
}
