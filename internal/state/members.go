package state

// AddMemberRoles caches a member's role list for a guild, used to render
// author role color/name without a fresh REST lookup. The cache is
// bounded per guild and FIFO-evicted (invariant iii): a member already
// present is updated in place rather than pushed to the back.
func (s *Store) AddMemberRoles(guildID, userID string, roles []string) {
	if guildID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cache := s.memberRoles[guildID]
	for i := range cache {
		if cache[i].UserID == userID {
			cache[i].Roles = roles
			s.memberRoles[guildID] = cache
			return
		}
	}
	cache = append(cache, MemberRoles{UserID: userID, Roles: roles})
	if len(cache) > memberRoleCacheCap {
		cache = cache[len(cache)-memberRoleCacheCap:]
	}
	s.memberRoles[guildID] = cache
}

// MemberRoles returns a cached member's roles in a guild, if known.
func (s *Store) MemberRoles(guildID, userID string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberRoles[guildID] {
		if m.UserID == userID {
			return m.Roles, true
		}
	}
	return nil, false
}

// activitiesLocked returns a guild's activity slice, creating it if
// absent. Caller must hold s.mu.
func (s *Store) activitiesLocked(guildID string) *GuildActivities {
	a, ok := s.activities[guildID]
	if !ok {
		a = &GuildActivities{GuildID: guildID}
		s.activities[guildID] = a
	}
	return a
}

// SyncMemberList replaces a guild's activity slice on a SYNC op from
// GUILD_MEMBER_LIST_UPDATE (first chunk only, per the 100-entry cap).
func (s *Store) SyncMemberList(guildID string, members []MemberActivity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.activitiesLocked(guildID)
	if len(members) > memberListCap {
		members = members[:memberListCap]
	}
	a.Members = members
	a.LastIndex = 0
}

// InsertMemberListEntry applies an INSERT op at the given index, dropping
// the tail entry if the cap is exceeded.
func (s *Store) InsertMemberListEntry(guildID string, index int, entry MemberActivity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.activitiesLocked(guildID)
	if index < 0 || index > len(a.Members) {
		index = len(a.Members)
	}
	a.Members = append(a.Members, MemberActivity{})
	copy(a.Members[index+1:], a.Members[index:])
	a.Members[index] = entry
	if len(a.Members) > memberListCap {
		a.Members = a.Members[:memberListCap]
	}
	a.LastIndex = index
}

// UpdateMemberListEntry applies an UPDATE op at the given index, falling
// back to a linear id search if the index no longer matches (the
// reference client's own failsafe for out-of-order ops).
func (s *Store) UpdateMemberListEntry(guildID string, index int, entry MemberActivity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.activitiesLocked(guildID)
	if index >= 0 && index < len(a.Members) && a.Members[index].ID == entry.ID {
		a.Members[index] = entry
		a.LastIndex = index
		return
	}
	for i := range a.Members {
		if a.Members[i].ID == entry.ID {
			a.Members[i] = entry
			a.LastIndex = i
			return
		}
	}
}

// DeleteMemberListEntry applies a DELETE op at the given index.
func (s *Store) DeleteMemberListEntry(guildID string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.activitiesLocked(guildID)
	if index < 0 || index >= len(a.Members) {
		return
	}
	a.Members = append(a.Members[:index], a.Members[index+1:]...)
}

// UpdatePresence patches a cached member-list entry's status/custom-status
// for a single PRESENCE_UPDATE, a no-op if the member isn't currently
// paged into the sidebar cache.
func (s *Store) UpdatePresence(guildID, userID, status, customStatus string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[guildID]
	if !ok {
		return
	}
	for i := range a.Members {
		if a.Members[i].ID == userID {
			a.Members[i].Status = status
			a.Members[i].CustomStatus = customStatus
			return
		}
	}
}

// Activities returns a guild's bounded member-list slice.
func (s *Store) Activities(guildID string) GuildActivities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.activities[guildID]; ok {
		out := GuildActivities{GuildID: a.GuildID, LastIndex: a.LastIndex}
		out.Members = make([]MemberActivity, len(a.Members))
		copy(out.Members, a.Members)
		return out
	}
	return GuildActivities{GuildID: guildID}
}
