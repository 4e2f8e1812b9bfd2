package state

// UpsertChannel applies CHANNEL_CREATE/CHANNEL_UPDATE for a guild
// channel: updates in place if already present, appends otherwise, and
// re-sorts by position.
func (s *Store) UpsertChannel(guildID string, ch Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guilds {
		if s.guilds[i].ID != guildID {
			continue
		}
		for j := range s.guilds[i].Channels {
			if s.guilds[i].Channels[j].ID == ch.ID {
				ch.Hidden = s.guilds[i].Channels[j].Hidden // preserve resolved visibility
				s.guilds[i].Channels[j] = ch
				sortChannels(s.guilds[i].Channels)
				return true
			}
		}
		s.guilds[i].Channels = append(s.guilds[i].Channels, ch)
		sortChannels(s.guilds[i].Channels)
		return true
	}
	return false
}

// RemoveChannel handles CHANNEL_DELETE for a guild channel.
func (s *Store) RemoveChannel(guildID, channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guilds {
		if s.guilds[i].ID != guildID {
			continue
		}
		for j, ch := range s.guilds[i].Channels {
			if ch.ID == channelID {
				s.guilds[i].Channels = append(s.guilds[i].Channels[:j], s.guilds[i].Channels[j+1:]...)
				return true
			}
		}
	}
	return false
}

// Channel looks up a guild channel by id across every joined guild.
func (s *Store) Channel(channelID string) (Channel, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guilds {
		for _, ch := range g.Channels {
			if ch.ID == channelID {
				return ch, g.ID, true
			}
		}
	}
	return Channel{}, "", false
}

// PinTab marks a channel's tab-cache entry pinned (never evicted except
// by an explicit unpin, invariant ii) or unpins it.
func (s *Store) PinTab(channelID string, pinned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.channelTabs {
		if s.channelTabs[i].ChannelID == channelID {
			s.channelTabs[i].Pinned = pinned
			return
		}
	}
}

// SnapshotTab stores the given channel's current message buffer into the
// tab cache, evicting the oldest unpinned entry if the cache is full.
func (s *Store) SnapshotTab(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[channelID]
	snapshot := make([]Message, len(msgs))
	copy(snapshot, msgs)

	for i := range s.channelTabs {
		if s.channelTabs[i].ChannelID == channelID {
			s.channelTabs[i].Messages = snapshot
			return
		}
	}

	if len(s.channelTabs) >= channelCacheCap {
		for i, tab := range s.channelTabs {
			if !tab.Pinned {
				s.channelTabs = append(s.channelTabs[:i], s.channelTabs[i+1:]...)
				break
			}
		}
	}
	if len(s.channelTabs) < channelCacheCap {
		s.channelTabs = append(s.channelTabs, ChannelTab{ChannelID: channelID, Messages: snapshot})
	}
}

// CachedTab returns a channel's cached message buffer, if any.
func (s *Store) CachedTab(channelID string) ([]Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tab := range s.channelTabs {
		if tab.ChannelID == channelID {
			out := make([]Message, len(tab.Messages))
			copy(out, tab.Messages)
			return out, true
		}
	}
	return nil, false
}
