package state

// ChannelOverride is one channel_overrides entry from a
// USER_GUILD_SETTINGS_UPDATE payload.
type ChannelOverride struct {
	ChannelID     string
	Muted         bool
	Suppressed    bool
}

// ApplyGuildSettings recomputes mute/suppress flags for a guild and its
// channels from a USER_GUILD_SETTINGS_UPDATE payload, resetting to
// default (unmuted) whatever the payload omits, matching the reference
// client's pop-then-reapply behavior.
func (s *Store) ApplyGuildSettings(guildID string, suppressEveryone, suppressRoles, guildMuted bool, overrides []ChannelOverride) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guilds {
		if s.guilds[i].ID != guildID {
			continue
		}
		s.guilds[i].SuppressEveryone = suppressEveryone
		s.guilds[i].SuppressRoles = suppressRoles
		for j := range s.guilds[i].Channels {
			s.guilds[i].Channels[j].Muted = guildMuted
			s.guilds[i].Channels[j].Suppressed = false
		}
		for _, o := range overrides {
			for j := range s.guilds[i].Channels {
				if s.guilds[i].Channels[j].ID == o.ChannelID {
					s.guilds[i].Channels[j].Muted = o.Muted
					s.guilds[i].Channels[j].Suppressed = o.Suppressed
				}
			}
		}
		return true
	}
	return false
}

// ApplyDMMute handles a USER_GUILD_SETTINGS_UPDATE targeting DM channel
// overrides (no guild_id in the payload).
func (s *Store) ApplyDMMute(channelID string, muted bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.dms {
		if s.dms[i].ID == channelID {
			s.dms[i].Muted = muted
			return true
		}
	}
	return false
}
