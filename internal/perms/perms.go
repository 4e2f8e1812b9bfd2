// Package perms computes effective channel permissions from a guild's
// base permissions, role overwrites, and member overwrites, and resolves
// application-command permission masks against that result.
package perms

import "github.com/discord-terminal/engine/internal/state"

// Useful permission bits (a small subset named for the channel-level
// fields this package derives; the full bitmask space is an opaque
// int64 otherwise).
const (
	Administrator     int64 = 0x8
	ManageMessages    int64 = 0x10
	AddReactions      int64 = 0x40
	ViewChannel       int64 = 0x400
	SendMessages      int64 = 0x800
	EmbedLinks        int64 = 0x4000
	AttachFiles       int64 = 0x8000
	MentionEveryone   int64 = 0x20000
	UseExternalEmojis int64 = 0x40000
)

// hasPermission reports whether permissions carries every bit in flag.
func hasPermission(permissions, flag int64) bool {
	return permissions&flag == flag
}

// hasFlag reports whether the bit at position n is set in flags.
func hasFlag(flags int64, n int) bool {
	return flags&(int64(1)<<uint(n)) != 0
}

// Channel is the computed permission result for one channel.
type Channel struct {
	Computed    int64
	Permitted   bool // VIEW_CHANNEL
	AllowWrite  bool // SEND_MESSAGES
	AllowManage bool // MANAGE_MESSAGES
	AllowAttach bool // ATTACH_FILES
}

// Compute recomputes every channel's permission result for one guild,
// given the local user's id and the roles they hold there. Guild owners
// and members holding an ADMINISTRATOR role short-circuit to full access
// on every channel without walking overwrites; otherwise @everyone, then
// role, then member overwrites are applied in that order on top of the
// guild's base permissions.
//
// Returns (results keyed by channel id, isAdmin).
func Compute(g state.Guild, myID string, myRoles []string) (map[string]Channel, bool) {
	results := make(map[string]Channel, len(g.Channels))
	roleSet := toSet(myRoles)

	admin := g.Owned
	if !admin {
		for _, r := range g.Roles {
			if roleSet[r.ID] && hasPermission(r.Permissions, Administrator) {
				admin = true
				break
			}
		}
	}

	if admin {
		for _, ch := range g.Channels {
			results[ch.ID] = Channel{Permitted: true, AllowManage: true, AllowAttach: true, AllowWrite: true}
		}
		return results, true
	}

	base := g.BasePerms
	for _, r := range g.Roles {
		if roleSet[r.ID] {
			base |= r.Permissions
		}
	}

	for _, ch := range g.Channels {
		permissions := base

		for _, ow := range ch.Overwrites {
			if ow.ID == g.ID { // @everyone
				permissions &^= ow.Deny
				permissions |= ow.Allow
				break
			}
		}

		var allow, deny int64
		for _, ow := range ch.Overwrites {
			if ow.Type == 0 && roleSet[ow.ID] {
				allow |= ow.Allow
				deny |= ow.Deny
			}
		}
		permissions &^= deny
		permissions |= allow

		for _, ow := range ch.Overwrites {
			if ow.Type == 1 && ow.ID == myID {
				permissions &^= ow.Deny
				permissions |= ow.Allow
			}
		}

		results[ch.ID] = Channel{
			Computed:    permissions,
			Permitted:   hasPermission(permissions, ViewChannel),
			AllowManage: hasPermission(permissions, ManageMessages),
			AllowWrite:  hasPermission(permissions, SendMessages),
			AllowAttach: hasPermission(permissions, AttachFiles),
		}
	}
	return results, false
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
