package state

// readStateLocked returns the channel's read-state, creating it if
// absent. Caller must hold s.mu.
func (s *Store) readStateLocked(channelID string) *ReadState {
	rs, ok := s.readStates[channelID]
	if !ok {
		rs = &ReadState{ChannelID: channelID}
		s.readStates[channelID] = rs
	}
	return rs
}

// ReadState returns a copy of a channel's read state.
func (s *Store) ReadState(channelID string) ReadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rs, ok := s.readStates[channelID]; ok {
		return *rs
	}
	return ReadState{ChannelID: channelID}
}

// Ack advances a channel's last-acked id to messageID, never regressing
// it, and clears any unread mentions at or before it. Preserves
// invariant (i): last_acked_message_id never exceeds last_message_id.
func (s *Store) Ack(channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.readStateLocked(channelID)
	if snowflakeLess(rs.LastMessageID, messageID) {
		rs.LastMessageID = messageID
	}
	if snowflakeLess(rs.LastAckedMessageID, messageID) {
		rs.LastAckedMessageID = messageID
	}
	kept := rs.Mentions[:0:0]
	for _, id := range rs.Mentions {
		if snowflakeLess(rs.LastAckedMessageID, id) {
			kept = append(kept, id)
		}
	}
	rs.Mentions = kept
}

// SetUnreadsLine records the boundary above which messages are already
// considered seen, regardless of subsequent acks, until cleared on the
// next channel switch that reaches bottom.
func (s *Store) SetUnreadsLine(channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readStateLocked(channelID).LastAckedUnreadsLine = messageID
}

// ClearUnreadsLine clears a channel's unreads-line anchor.
func (s *Store) ClearUnreadsLine(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readStateLocked(channelID).LastAckedUnreadsLine = ""
}

// AddMention records messageID as an unacked mention on channelID, §4.6
// ping handling.
func (s *Store) AddMention(channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.readStateLocked(channelID)
	for _, id := range rs.Mentions {
		if id == messageID {
			return
		}
	}
	rs.Mentions = append(rs.Mentions, messageID)
}

// RemoveMention drops messageID from a channel's unacked-mention list, used
// when a ping's source message is deleted before it is seen, §8 scenario 2
// "Ghost ping". Reports whether it was present.
func (s *Store) RemoveMention(channelID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.readStateLocked(channelID)
	for i, id := range rs.Mentions {
		if id == messageID {
			rs.Mentions = append(rs.Mentions[:i], rs.Mentions[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyRemoteAck applies a MESSAGE_ACK received from another client
// session for the same account, advancing last-acked without touching
// last-message.
func (s *Store) ApplyRemoteAck(channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.readStateLocked(channelID)
	if snowflakeLess(rs.LastAckedMessageID, messageID) {
		rs.LastAckedMessageID = messageID
	}
}
