package state

// AddDM processes a DM channel object: derives a display name when the
// channel carries none (owner + other members for an unnamed group DM,
// the sole other recipient's name for a 1:1), and upserts it by id.
// Mirrors add_dm's derivation rules in the reference client.
func (s *Store) AddDM(dm DM) {
	if dm.Name == "" {
		dm.Name = deriveDMName(dm)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.dms {
		if s.dms[i].ID == dm.ID {
			s.dms[i] = dm
			sortDMs(s.dms)
			return
		}
	}
	s.dms = append(s.dms, dm)
	sortDMs(s.dms)
}

// RemoveDM handles CHANNEL_DELETE for a DM channel.
func (s *Store) RemoveDM(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, dm := range s.dms {
		if dm.ID == id {
			s.dms = append(s.dms[:i], s.dms[i+1:]...)
			return true
		}
	}
	return false
}

// DMs returns every known DM channel, sorted by last_message_id desc.
func (s *Store) DMs() []DM {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DM, len(s.dms))
	copy(out, s.dms)
	return out
}

func recipientDisplayName(r DMRecipient) string {
	if r.GlobalName != "" {
		return r.GlobalName
	}
	return r.Username
}

// deriveDMName builds a display name for a DM that arrived without one:
// an unnamed group DM becomes "<owner>; <others>" or "<owner>'s Group" if
// solo, and a regular 1:1 DM takes the other party's name.
func deriveDMName(dm DM) string {
	if len(dm.Recipients) == 0 {
		return "Unknown DM"
	}
	if dm.Type != 3 {
		return recipientDisplayName(dm.Recipients[0])
	}
	var owner DMRecipient
	var ownerFound bool
	for _, r := range dm.Recipients {
		if r.ID == dm.OwnerID {
			owner = r
			ownerFound = true
			break
		}
	}
	if !ownerFound {
		owner = dm.Recipients[0]
	}
	ownerName := recipientDisplayName(owner)

	names := ""
	for _, r := range dm.Recipients {
		if r.ID == owner.ID {
			continue
		}
		if names != "" {
			names += ", "
		}
		names += recipientDisplayName(r)
	}
	if names != "" {
		return ownerName + "; " + names
	}
	return ownerName + "'s Group"
}
