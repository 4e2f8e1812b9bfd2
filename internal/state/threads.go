package state

// UpsertThread handles THREAD_CREATE/THREAD_UPDATE: inserts or replaces
// the thread in its guild's thread list, keeping the list sorted by id
// desc (newest first).
func (s *Store) UpsertThread(t Thread) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guilds {
		if s.guilds[i].ID != t.GuildID {
			continue
		}
		for j := range s.guilds[i].Threads {
			if s.guilds[i].Threads[j].ID == t.ID {
				s.guilds[i].Threads[j] = t
				sortThreads(s.guilds[i].Threads)
				return true
			}
		}
		s.guilds[i].Threads = append(s.guilds[i].Threads, t)
		sortThreads(s.guilds[i].Threads)
		return true
	}
	return false
}

// RemoveThread handles THREAD_DELETE.
func (s *Store) RemoveThread(guildID, threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guilds {
		if s.guilds[i].ID != guildID {
			continue
		}
		for j, t := range s.guilds[i].Threads {
			if t.ID == threadID {
				s.guilds[i].Threads = append(s.guilds[i].Threads[:j], s.guilds[i].Threads[j+1:]...)
				return true
			}
		}
	}
	return false
}

// Threads returns a guild's thread list, sorted newest-first.
func (s *Store) Threads(guildID string) []Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guilds {
		if g.ID == guildID {
			out := make([]Thread, len(g.Threads))
			copy(out, g.Threads)
			return out
		}
	}
	return nil
}
