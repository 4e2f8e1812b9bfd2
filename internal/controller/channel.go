package controller

import (
	"context"
	"fmt"

	"github.com/discord-terminal/engine/internal/gateway"
	"github.com/discord-terminal/engine/internal/rest"
	"github.com/discord-terminal/engine/internal/state"
)

const forumChannelType = 15

// ErrOffline is returned by SwitchChannel when the target channel cannot be
// loaded because the session is disconnected, §4.3 "Channel switch" step 4.
var ErrOffline = fmt.Errorf("controller: offline, cannot load channel")

// SwitchChannel runs the ordered channel-switch steps of §4.3.
func (c *Controller) SwitchChannel(ctx context.Context, guildID, channelID string) error {
	prev := c.activeChannelID
	if prev != "" && prev != channelID {
		if ch, _, ok := c.store.Channel(prev); !ok || ch.Type != forumChannelType {
			c.store.SnapshotTab(prev)
		}
		rs := c.store.ReadState(prev)
		if !rs.Unread() {
			c.store.SetUnreadsLine(prev, rs.LastMessageID)
		}
	}

	c.activeChannelID = channelID
	c.activeGuildID = guildID

	ch, _, chOK := c.store.Channel(channelID)
	isForum := chOK && ch.Type == forumChannelType

	switch {
	case isForum:
		res := c.rest.GetThreads(ctx, channelID, 25, 0, false)
		if res.Err != nil {
			if res.Err == rest.ErrOffline {
				return ErrOffline
			}
			return res.Err
		}
		for _, t := range res.Value {
			c.store.UpsertThread(state.Thread{ID: t.ID, GuildID: guildID, ParentID: channelID, Type: forumChannelType, Name: t.Name})
		}
	default:
		if cached, ok := c.store.CachedTab(channelID); ok {
			c.store.ReplaceMessages(channelID, cached)
		} else {
			res := c.rest.GetMessages(ctx, rest.MessagePage{ChannelID: channelID, Limit: 50})
			if res.Err != nil {
				if res.Err == rest.ErrOffline {
					return ErrOffline
				}
				return res.Err
			}
			c.store.ReplaceMessages(channelID, fromRESTMessages(res.Value))
		}
	}

	if guildID != "" {
		c.invalidatePermissions(guildID)
	}
	delete(c.typingUsers, channelID)

	c.subscribeActiveChannel(ctx)
	if guildID != "" {
		c.persistLastChannel(guildID, channelID)
	}
	c.requestViewRegen()
	return nil
}

// subscribeActiveChannel declares the active channel to the gateway so
// typing/thread updates for it start flowing, §4.1 Subscriptions.
func (c *Controller) subscribeActiveChannel(ctx context.Context) {
	if c.activeGuildID == "" || c.gw == nil {
		return
	}
	subs := map[string]gateway.GuildSubscription{
		c.activeGuildID: {
			Typing:     true,
			Threads:    true,
			Activities: true,
			Channels:   [][2]int64{{0, 99}},
		},
	}
	_ = c.gw.SendSubscription(ctx, subs)
}

// persistLastChannel is a hook point for the config layer's per-profile
// last_guild_id/last_channel_id persistence; it is a no-op until wired.
func (c *Controller) persistLastChannel(guildID, channelID string) {
}

// ScrollAnchor computes the nearest loaded message id at-or-before the
// channel's last acked message, or "" meaning "scroll to bottom", §4.3 step 5.
func (c *Controller) ScrollAnchor(channelID string) string {
	rs := c.store.ReadState(channelID)
	msgs := c.store.Messages(channelID)
	for _, m := range msgs { // newest-first buffer
		if !state.SnowflakeLess(rs.LastAckedMessageID, m.ID) {
			return m.ID
		}
	}
	return ""
}
