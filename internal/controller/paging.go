package controller

import (
	"context"

	"github.com/discord-terminal/engine/internal/rest"
	"github.com/discord-terminal/engine/internal/state"
)

// fromRESTMessages converts a REST message page into the store's message
// shape. REST responses carry far less structure than gateway dispatch
// payloads (no reactions/poll on a plain history fetch), so those fields are
// simply left at their zero value until a gateway event backfills them.
func fromRESTMessages(msgs []rest.Message) []state.Message {
	out := make([]state.Message, 0, len(msgs))
	for _, m := range msgs {
		sm := state.Message{
			ID:        m.ID,
			ChannelID: m.ChannelID,
			Timestamp: m.Timestamp,
			Content:   m.Content,
		}
		if m.ReferencedMessage != nil {
			sm.ReferenceID = m.ReferencedMessage.ID
		}
		out = append(out, sm)
	}
	return out
}

// edgeThreshold is how many lines of slack §4.3 "Message paging" allows
// before triggering a past/future chunk fetch near a buffer edge.
const edgeThreshold = 2

// PageBefore fetches the chunk immediately older than the channel's oldest
// loaded message, when the selection index is within edgeThreshold lines of
// the top of the buffer.
func (c *Controller) PageBefore(ctx context.Context, channelID string, selectionIndex int) error {
	msgs := c.store.Messages(channelID)
	if len(msgs) == 0 || selectionIndex > edgeThreshold {
		return nil
	}
	oldest := msgs[len(msgs)-1].ID
	res := c.rest.GetMessages(ctx, rest.MessagePage{ChannelID: channelID, Limit: 50, Before: oldest})
	if res.Err != nil {
		return res.Err
	}
	fetched := fromRESTMessages(res.Value)
	combined := append(msgs, fetched...)
	if len(combined) > c.chatBufferCap {
		combined = combined[len(combined)-c.chatBufferCap:]
	}
	c.store.ReplaceMessages(channelID, combined)
	c.requestAbsentMembers(ctx, channelID, fetched)
	return nil
}

// PageAfter fetches the chunk immediately newer than the channel's newest
// loaded message, when the selection is within edgeThreshold lines of the
// bottom and the channel is not already caught up to last_message_id.
func (c *Controller) PageAfter(ctx context.Context, channelID string, selectionIndex, totalLines int) error {
	msgs := c.store.Messages(channelID)
	if len(msgs) == 0 || selectionIndex < totalLines-edgeThreshold {
		return nil
	}
	rs := c.store.ReadState(channelID)
	newest := msgs[0].ID
	if newest == rs.LastMessageID {
		return nil
	}
	res := c.rest.GetMessages(ctx, rest.MessagePage{ChannelID: channelID, Limit: 50, After: newest})
	if res.Err != nil {
		return res.Err
	}
	fetched := fromRESTMessages(res.Value)
	combined := append(fetched, msgs...)
	if len(combined) > c.chatBufferCap {
		combined = combined[:c.chatBufferCap]
	}
	c.store.ReplaceMessages(channelID, combined)
	c.requestAbsentMembers(ctx, channelID, fetched)
	return nil
}

// GotoMessage loads the chunk centered on id if it is not already present in
// the buffer, §4.3 "Message paging": "Go to message" fetches with around=id.
func (c *Controller) GotoMessage(ctx context.Context, channelID, id string) error {
	for _, m := range c.store.Messages(channelID) {
		if m.ID == id {
			return nil
		}
	}
	res := c.rest.GetMessages(ctx, rest.MessagePage{ChannelID: channelID, Limit: 50, Around: id})
	if res.Err != nil {
		return res.Err
	}
	fetched := fromRESTMessages(res.Value)
	c.store.ReplaceMessages(channelID, fetched)
	c.requestAbsentMembers(ctx, channelID, fetched)
	return nil
}

// requestAbsentMembers issues a guild-members request carrying a
// client-generated nonce for authors of a just-fetched page the member-role
// cache does not yet know about, §4.3 "Message paging" closing sentence.
func (c *Controller) requestAbsentMembers(ctx context.Context, channelID string, fetched []state.Message) {
	if c.activeGuildID == "" || len(fetched) == 0 || c.gw == nil {
		return
	}
	var missing []string
	seen := map[string]bool{}
	for _, m := range fetched {
		if m.AuthorID == "" || seen[m.AuthorID] {
			continue
		}
		seen[m.AuthorID] = true
		if _, ok := c.store.MemberRoles(c.activeGuildID, m.AuthorID); !ok {
			missing = append(missing, m.AuthorID)
		}
	}
	if len(missing) == 0 {
		return
	}
	nonce, err := c.gw.SendRequestMembers(ctx, c.activeGuildID, missing, "", 0, false)
	if err == nil {
		c.pendingMemberNonce = nonce
	}
}
