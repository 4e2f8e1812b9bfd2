package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/discord-terminal/engine/internal/parser"
	"github.com/discord-terminal/engine/internal/rest"
)

const maxMessageContentLength = 4000

// ErrNoPermission is returned when a send/edit/delete/react intent fails a
// local permission precondition, §4.3 "Send/edit/delete/react".
var ErrNoPermission = fmt.Errorf("controller: missing permission")

// ErrSlowmode is returned when the channel's slow-mode countdown has not
// yet elapsed for the local user.
var ErrSlowmode = fmt.Errorf("controller: slow-mode active")

// ErrContentTooLong is returned when message content exceeds the service's
// length limit.
var ErrContentTooLong = fmt.Errorf("controller: content too long")

// SendOptions collects the optional parts of a send intent: a reply target,
// attachment references already uploaded through internal/rest's two-phase
// flow, and sticker ids.
type SendOptions struct {
	ReplyID      string
	ReplyChannel string
	ReplyGuild   string
	ReplyPing    bool
	Attachments  []rest.AttachmentRef
	StickerIDs   []string
}

// Send validates local preconditions and dispatches a new message to the
// active channel. The authoritative row is never inserted locally; it
// arrives via the MESSAGE_CREATE the gateway echoes back (§9 Open Question
// decision 2) carrying the REST response's nonce.
func (c *Controller) Send(ctx context.Context, channelID, content string, opts SendOptions) (rest.Message, error) {
	if len(content) > maxMessageContentLength {
		return rest.Message{}, ErrContentTooLong
	}
	_, guildID, _ := c.store.Channel(channelID)
	perm := c.channelPermission(guildID, channelID)
	if !perm.AllowWrite {
		return rest.Message{}, ErrNoPermission
	}
	if len(opts.Attachments) > 0 && !perm.AllowAttach {
		return rest.Message{}, ErrNoPermission
	}
	if remaining, ok := c.slowmodeRemaining[channelID]; ok && remaining > 0 {
		return rest.Message{}, ErrSlowmode
	}

	content = parser.DemojizeShortcodes(content)

	res := c.rest.SendMessage(ctx, rest.SendMessageParams{
		ChannelID:    channelID,
		Content:      content,
		ReplyID:      opts.ReplyID,
		ReplyChannel: opts.ReplyChannel,
		ReplyGuild:   opts.ReplyGuild,
		ReplyPing:    opts.ReplyPing,
		Attachments:  opts.Attachments,
		StickerIDs:   opts.StickerIDs,
	})
	if res.Err != nil {
		return rest.Message{}, res.Err
	}
	if res.Value.Nonce != "" {
		c.pendingSends[res.Value.Nonce] = true
	}
	return res.Value, nil
}

// Edit validates ownership implicitly via the REST 403 the server would
// return, then dispatches the edit. Editing a thread's first message also
// joins the thread locally, §4.3.
func (c *Controller) Edit(ctx context.Context, channelID, messageID, content string) error {
	if len(content) > maxMessageContentLength {
		return ErrContentTooLong
	}
	content = parser.DemojizeShortcodes(content)
	res := c.rest.UpdateMessage(ctx, channelID, messageID, content)
	if res.Err != nil {
		return res.Err
	}
	if ch, _, ok := c.store.Channel(channelID); ok && (ch.Type == 11 || ch.Type == 12) && messageID == channelID {
		c.rest.JoinThread(ctx, channelID)
	}
	return nil
}

// Delete dispatches a message delete, validating manage-messages permission
// when the caller is not the message's author.
func (c *Controller) Delete(ctx context.Context, channelID, messageID, authorID string) error {
	_, guildID, _ := c.store.Channel(channelID)
	perm := c.channelPermission(guildID, channelID)
	if authorID != c.store.MyID() && !perm.AllowManage {
		return ErrNoPermission
	}
	res := c.rest.DeleteMessage(ctx, channelID, messageID)
	if res.Err != nil {
		return res.Err
	}
	return nil
}

// React toggles a reaction on a message, adding it if not already present
// from the local user, removing it otherwise.
func (c *Controller) React(ctx context.Context, channelID, messageID, emoji string) error {
	_, guildID, _ := c.store.Channel(channelID)
	perm := c.channelPermission(guildID, channelID)
	if !perm.Permitted {
		return ErrNoPermission
	}
	for _, m := range c.store.Messages(channelID) {
		if m.ID != messageID {
			continue
		}
		for _, r := range m.Reactions {
			if r.Emoji == emoji && r.Me {
				res := c.rest.RemoveReaction(ctx, channelID, messageID, emoji)
				return res.Err
			}
		}
		break
	}
	res := c.rest.SendReaction(ctx, channelID, messageID, emoji)
	return res.Err
}

// StartTyping records local typing-composition state for the heartbeat
// check in §4.3 step 4.
func (c *Controller) StartTyping(channelID string) {
	c.typingStartedAt[channelID] = time.Now()
}

// StopTyping clears local typing-composition state, e.g. once the message
// is sent or the input is cleared.
func (c *Controller) StopTyping(channelID string) {
	delete(c.typingStartedAt, channelID)
}
