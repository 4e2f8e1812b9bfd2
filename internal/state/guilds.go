package state

// AddGuild processes a GUILD_CREATE payload: builds the guild's channel
// and role collections and appends it, matching add_guild's shape in the
// reference client. Unavailable guild stubs are skipped.
func (s *Store) AddGuild(g Guild, unavailable bool) {
	if unavailable {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.myUserData.Bot {
		for i, ch := range g.Channels {
			if ch.Type == 0 || ch.Type == 2 || ch.Type == 4 || ch.Type == 5 || ch.Type == 15 {
				g.Channels[i].Hidden = true
			}
		}
	}
	sortChannels(g.Channels)
	sortRoles(g.Roles)
	for _, r := range g.Roles {
		if r.ID == g.ID {
			g.BasePerms = r.Permissions
		}
	}
	s.guilds = append(s.guilds, g)
}

// UpdateGuild applies a GUILD_UPDATE delta (name/description/community/
// premium/owned) to an already-known guild.
func (s *Store) UpdateGuild(id, name, description string, ownerID string, community bool, premium int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guilds {
		if s.guilds[i].ID == id {
			s.guilds[i].Name = name
			s.guilds[i].Description = description
			s.guilds[i].Owned = s.myID == ownerID
			s.guilds[i].Community = community
			s.guilds[i].Premium = premium
			return true
		}
	}
	return false
}

// RemoveGuild drops a guild on GUILD_DELETE.
func (s *Store) RemoveGuild(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.guilds {
		if g.ID == id {
			s.guilds = append(s.guilds[:i], s.guilds[i+1:]...)
			return true
		}
	}
	return false
}

// Guild returns a copy of a known guild by id.
func (s *Store) Guild(id string) (Guild, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guilds {
		if g.ID == id {
			return g, true
		}
	}
	return Guild{}, false
}

// Guilds returns a snapshot of every joined guild.
func (s *Store) Guilds() []Guild {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Guild, len(s.guilds))
	copy(out, s.guilds)
	return out
}

// ProcessHiddenChannels resolves each guild's pending opt-in visibility
// state into concrete per-channel Hidden flags: owned, non-community or
// OptInChannels guilds never hide channels; otherwise every channel with a
// parent category takes that category's Hidden flag. Per-channel explicit
// overrides are not consulted, so a child's own flag does not survive a
// hidden or visible parent.
func (s *Store) ProcessHiddenChannels() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for gi := range s.guilds {
		g := &s.guilds[gi]
		if g.Owned || !g.Community || g.OptInChannels {
			for ci := range g.Channels {
				g.Channels[ci].Hidden = false
			}
			continue
		}
		categoryHidden := make(map[string]bool)
		for _, ch := range g.Channels {
			if ch.Type == 4 {
				categoryHidden[ch.ID] = ch.Hidden
			}
		}
		for ci := range g.Channels {
			ch := &g.Channels[ci]
			if ch.ParentID == "" {
				continue
			}
			if hidden, ok := categoryHidden[ch.ParentID]; ok {
				ch.Hidden = hidden
			}
		}
	}
}

// UpsertRoles replaces a guild's role list on GUILD_CREATE/READY, keeping
// it sorted by position desc then colored-first.
func (s *Store) UpsertRoles(guildID string, roles []Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sortRoles(roles)
	for i := range s.guilds {
		if s.guilds[i].ID == guildID {
			s.guilds[i].Roles = roles
			return
		}
	}
}

// AddRole handles GUILD_ROLE_CREATE.
func (s *Store) AddRole(guildID string, r Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guilds {
		if s.guilds[i].ID == guildID {
			s.guilds[i].Roles = append(s.guilds[i].Roles, r)
			sortRoles(s.guilds[i].Roles)
			s.invalidatePermissions(i)
			return
		}
	}
}

// UpdateRole handles GUILD_ROLE_UPDATE; updating the @everyone role (role
// id == guild id) also refreshes the guild's base permissions.
func (s *Store) UpdateRole(guildID string, r Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guilds {
		if s.guilds[i].ID != guildID {
			continue
		}
		for j := range s.guilds[i].Roles {
			if s.guilds[i].Roles[j].ID == r.ID {
				s.guilds[i].Roles[j] = r
				sortRoles(s.guilds[i].Roles)
				if r.ID == guildID {
					s.guilds[i].BasePerms = r.Permissions
				}
				s.invalidatePermissions(i)
				return
			}
		}
	}
}

// RemoveRole handles GUILD_ROLE_DELETE.
func (s *Store) RemoveRole(guildID, roleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guilds {
		if s.guilds[i].ID != guildID {
			continue
		}
		for j, r := range s.guilds[i].Roles {
			if r.ID == roleID {
				s.guilds[i].Roles = append(s.guilds[i].Roles[:j], s.guilds[i].Roles[j+1:]...)
				s.invalidatePermissions(i)
				return
			}
		}
	}
}

// invalidatePermissions clears every channel's computed permission field
// in the given guild (caller holds s.mu). Nothing in the engine writes
// the field back, so it stays nil afterwards.
func (s *Store) invalidatePermissions(guildIndex int) {
	g := &s.guilds[guildIndex]
	for i := range g.Channels {
		g.Channels[i].Permissions = nil
	}
}
