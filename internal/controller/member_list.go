package controller

import (
	"github.com/discord-terminal/engine/internal/codec"
	"github.com/discord-terminal/engine/internal/gateway"
	"github.com/discord-terminal/engine/internal/state"
)

type wireMemberListItem struct {
	Member *struct {
		Roles []string `json:"roles"`
		User  struct {
			ID         string `json:"id"`
			Username   string `json:"username"`
			GlobalName string `json:"global_name"`
		} `json:"user"`
		Nick     string `json:"nick"`
		Presence *struct {
			Status      string `json:"status"`
			ClientStatus struct {
			} `json:"client_status"`
			Activities []struct {
				State string `json:"state"`
			} `json:"activities"`
		} `json:"presence"`
	} `json:"member,omitempty"`
	Group *struct {
		ID string `json:"id"`
	} `json:"group,omitempty"`
}

func (i wireMemberListItem) toActivity() state.MemberActivity {
	if i.Group != nil {
		return state.MemberActivity{GroupID: i.Group.ID}
	}
	if i.Member == nil {
		return state.MemberActivity{}
	}
	status := ""
	custom := ""
	if i.Member.Presence != nil {
		status = i.Member.Presence.Status
		if len(i.Member.Presence.Activities) > 0 {
			custom = i.Member.Presence.Activities[0].State
		}
	}
	return state.MemberActivity{
		ID: i.Member.User.ID, Username: i.Member.User.Username, GlobalName: i.Member.User.GlobalName,
		Nick: i.Member.Nick, Roles: i.Member.Roles, Status: status, CustomStatus: custom,
	}
}

type wireMemberListOp struct {
	Op    string               `json:"op"`
	Range [2]int               `json:"range"`
	Index int                  `json:"index"`
	Item  wireMemberListItem   `json:"item"`
	Items []wireMemberListItem `json:"items"`
}

type wireMemberListUpdate struct {
	GuildID string             `json:"guild_id"`
	Ops     []wireMemberListOp `json:"ops"`
}

// applyMemberListUpdate applies GUILD_MEMBER_LIST_UPDATE's SYNC/INSERT/
// UPDATE/DELETE ops to the bounded per-guild activity slice, §4.4.
func (c *Controller) applyMemberListUpdate(evt gateway.Event) {
	var u wireMemberListUpdate
	if err := codec.Unmarshal(evt.Data, &u); err != nil {
		c.logger.Warn().Err(err).Msg("decode GUILD_MEMBER_LIST_UPDATE")
		return
	}
	for _, op := range u.Ops {
		switch op.Op {
		case "SYNC":
			members := make([]state.MemberActivity, 0, len(op.Items))
			for _, it := range op.Items {
				members = append(members, it.toActivity())
			}
			c.store.SyncMemberList(u.GuildID, members)
		case "INSERT":
			c.store.InsertMemberListEntry(u.GuildID, op.Index, op.Item.toActivity())
		case "UPDATE":
			c.store.UpdateMemberListEntry(u.GuildID, op.Index, op.Item.toActivity())
		case "DELETE":
			c.store.DeleteMemberListEntry(u.GuildID, op.Index)
		}
	}
}

type wireChannelOverride struct {
	ChannelID string `json:"channel_id"`
	Muted     bool   `json:"muted"`
	Suppressed bool  `json:"suppress_roles"`
}

type wireGuildSettings struct {
	GuildID          string                `json:"guild_id"`
	Muted            bool                  `json:"muted"`
	SuppressEveryone bool                  `json:"suppress_everyone"`
	SuppressRoles    bool                  `json:"suppress_roles"`
	ChannelOverrides []wireChannelOverride `json:"channel_overrides"`
}

// applyGuildSettings applies USER_GUILD_SETTINGS_UPDATE's mute/suppress
// flags and resorts the guild's channels, §4.4.
func (c *Controller) applyGuildSettings(evt gateway.Event) {
	var s wireGuildSettings
	if err := codec.Unmarshal(evt.Data, &s); err != nil {
		c.logger.Warn().Err(err).Msg("decode USER_GUILD_SETTINGS_UPDATE")
		return
	}
	overrides := make([]state.ChannelOverride, 0, len(s.ChannelOverrides))
	for _, o := range s.ChannelOverrides {
		overrides = append(overrides, state.ChannelOverride{ChannelID: o.ChannelID, Muted: o.Muted, Suppressed: o.Suppressed})
	}
	c.store.ApplyGuildSettings(s.GuildID, s.SuppressEveryone, s.SuppressRoles, s.Muted, overrides)
}
