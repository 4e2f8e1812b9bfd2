package state

// HandleMessageCreate prepends a new message to its channel's buffer
// (messages are held newest-first) and advances the channel's
// last_message_id, evicting the oldest entry once the buffer exceeds its
// configured cap.
func (s *Store) HandleMessageCreate(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := s.messages[m.ChannelID]
	buf = append([]Message{m}, buf...)
	if len(buf) > s.chatBufferCap {
		buf = buf[:s.chatBufferCap]
	}
	s.messages[m.ChannelID] = buf

	rs := s.readStateLocked(m.ChannelID)
	if snowflakeLess(rs.LastMessageID, m.ID) {
		rs.LastMessageID = m.ID
	}
	for _, mention := range m.Mentions {
		if mention.ID == s.myID {
			rs.Mentions = append(rs.Mentions, m.ID)
			break
		}
	}
}

// HandleMessageUpdate locates a message by id and overwrites its
// content/mentions/embed-derived fields, setting Edited. Spoiler-reveal
// state (a renderer-local concern) is implicitly dropped because the
// renderer re-derives it from content on every redraw.
func (s *Store) HandleMessageUpdate(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.messages[m.ChannelID]
	for i := range buf {
		if buf[i].ID == m.ID {
			m.Edited = true
			m.Reactions = buf[i].Reactions // reactions arrive via separate events
			m.Poll = buf[i].Poll
			buf[i] = m
			return true
		}
	}
	return false
}

// HandleMessageDelete marks a message deleted (if keep-deleted is
// enabled) or drops it outright, and moves it into the per-channel
// deleted cache when kept.
func (s *Store) HandleMessageDelete(channelID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.messages[channelID]
	for i := range buf {
		if buf[i].ID != messageID {
			continue
		}
		if s.keepDeleted {
			buf[i].Deleted = true
			s.pushDeletedLocked(channelID, buf[i])
		} else {
			buf = append(buf[:i], buf[i+1:]...)
			s.messages[channelID] = buf
		}
		return true
	}
	return false
}

func (s *Store) pushDeletedLocked(channelID string, m Message) {
	d := s.deleted[channelID]
	d = append([]Message{m}, d...)
	if len(d) > deletedCacheCap {
		d = d[:deletedCacheCap]
	}
	s.deleted[channelID] = d
}

// DeletedMessages returns a channel's bounded deleted-message cache,
// restored into a page on load when keep-deleted is enabled.
func (s *Store) DeletedMessages(channelID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.deleted[channelID]))
	copy(out, s.deleted[channelID])
	return out
}

// HandleReactionAdd increments the matching (emoji, emoji_id) bucket on a
// message, creating it if this is the first reaction of its kind, and
// tracks whether the local user is among the reactors.
func (s *Store) HandleReactionAdd(channelID, messageID, emoji, emojiID, userID string) bool {
	return s.adjustReaction(channelID, messageID, emoji, emojiID, userID, 1)
}

// HandleReactionRemove decrements the matching bucket, removing it
// entirely once its count reaches zero.
func (s *Store) HandleReactionRemove(channelID, messageID, emoji, emojiID, userID string) bool {
	return s.adjustReaction(channelID, messageID, emoji, emojiID, userID, -1)
}

func (s *Store) adjustReaction(channelID, messageID, emoji, emojiID, userID string, delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.messages[channelID]
	for i := range buf {
		if buf[i].ID != messageID {
			continue
		}
		reactions := buf[i].Reactions
		for j := range reactions {
			if reactions[j].Emoji == emoji && reactions[j].EmojiID == emojiID {
				reactions[j].Count += delta
				if userID == s.myID {
					reactions[j].Me = delta > 0
				}
				if reactions[j].Count <= 0 {
					reactions = append(reactions[:j], reactions[j+1:]...)
				}
				buf[i].Reactions = reactions
				return true
			}
		}
		if delta > 0 {
			buf[i].Reactions = append(reactions, Reaction{
				Emoji:   emoji,
				EmojiID: emojiID,
				Count:   1,
				Me:      userID == s.myID,
			})
			return true
		}
		return false
	}
	return false
}

// HandlePollVote adjusts a poll option's tally; delta is +1 for
// MESSAGE_POLL_VOTE_ADD, -1 for MESSAGE_POLL_VOTE_REMOVE.
func (s *Store) HandlePollVote(channelID, messageID string, optionID int, userID string, delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.messages[channelID]
	for i := range buf {
		if buf[i].ID != messageID {
			continue
		}
		for j := range buf[i].Poll {
			if buf[i].Poll[j].ID == optionID {
				buf[i].Poll[j].Count += delta
				if userID == s.myID {
					buf[i].Poll[j].MeVoted = delta > 0
				}
				return true
			}
		}
	}
	return false
}

// Messages returns a channel's live buffer, newest first.
func (s *Store) Messages(channelID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := s.messages[channelID]
	out := make([]Message, len(buf))
	copy(out, buf)
	return out
}

// ReplaceMessages overwrites a channel's buffer wholesale, used when the
// controller loads a page from REST (cache miss or explicit fetch).
func (s *Store) ReplaceMessages(channelID string, msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(msgs) > s.chatBufferCap {
		msgs = msgs[:s.chatBufferCap]
	}
	s.messages[channelID] = msgs
}
