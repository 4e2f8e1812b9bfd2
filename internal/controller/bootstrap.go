package controller

import (
	"github.com/discord-terminal/engine/internal/codec"
	"github.com/discord-terminal/engine/internal/gateway"
	"github.com/discord-terminal/engine/internal/state"
)

type wireReadyUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Bot        bool   `json:"bot"`
}

type wireReadState struct {
	ChannelID     string `json:"id"`
	LastMessageID string `json:"last_message_id"`
	MentionCount  int    `json:"mention_count"`
}

type wireDMChannel struct {
	ID         string `json:"id"`
	Type       int    `json:"type"`
	OwnerID    string `json:"owner_id"`
	Name       string `json:"name"`
	Recipients []struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
	} `json:"recipients"`
	LastMessageID string `json:"last_message_id"`
}

// applyReady hydrates the store from the READY payload: local user
// identity, joined guilds, open DMs, and per-channel read state, §6
// "Ready/Ready supplemental" glossary entry.
func (c *Controller) applyReady(evt gateway.Event) {
	var ready gateway.ReadyData
	if err := codec.Unmarshal(evt.Data, &ready); err != nil {
		c.logger.Warn().Err(err).Msg("decode READY")
		return
	}

	var user wireReadyUser
	if len(ready.User) > 0 {
		if err := codec.Unmarshal(ready.User, &user); err == nil {
			c.store.SetMyUserData(state.MyUser{ID: user.ID, Username: user.Username, GlobalName: user.GlobalName, Bot: user.Bot})
		}
	}

	if len(ready.Guilds) > 0 {
		var guilds []wireGuild
		if err := codec.Unmarshal(ready.Guilds, &guilds); err == nil {
			for _, g := range guilds {
				c.store.AddGuild(g.toState(c.store.MyID()), g.Unavailable)
				c.invalidatePermissions(g.ID)
			}
		}
	}

	if len(ready.PrivateChan) > 0 {
		var dms []wireDMChannel
		if err := codec.Unmarshal(ready.PrivateChan, &dms); err == nil {
			for _, d := range dms {
				dm := state.DM{ID: d.ID, Type: d.Type, OwnerID: d.OwnerID, Name: d.Name, LastMessageID: d.LastMessageID}
				for _, r := range d.Recipients {
					dm.Recipients = append(dm.Recipients, state.DMRecipient{ID: r.ID, Username: r.Username, GlobalName: r.GlobalName})
				}
				c.store.AddDM(dm)
			}
		}
	}

	if len(ready.ReadState) > 0 {
		var payload struct {
			Entries []wireReadState `json:"entries"`
		}
		if err := codec.Unmarshal(ready.ReadState, &payload); err == nil {
			for _, rs := range payload.Entries {
				c.store.Ack(rs.ChannelID, rs.LastMessageID)
			}
		}
	}

	c.store.ProcessHiddenChannels()
	c.requestViewRegen()
}
