package controller

import (
	"context"
	"time"

	"github.com/discord-terminal/engine/internal/rest"
)

// Ack marks a channel read up to messageID locally and queues it for the
// next throttled flush, §4.6 "Ack throttling". Manual marks go through
// AckManual instead.
func (c *Controller) Ack(channelID, messageID string) {
	c.store.Ack(channelID, messageID)
	c.pendingAcks[channelID] = pendingAck{messageID: messageID, queuedAt: time.Now()}
}

// AckManual marks a channel unread (or read) with the manual flag set,
// bypassing the throttle window -- a user-initiated "mark as unread"/
// "mark as read" always sends immediately.
func (c *Controller) AckManual(ctx context.Context, channelID, messageID string) error {
	c.store.Ack(channelID, messageID)
	res := c.rest.SendAck(ctx, channelID, messageID, true)
	return res.Err
}

// flushAcks sends queued acks once the throttle window has elapsed: a
// single-channel ack if only one is pending, a bulk ack otherwise, §4.6.
func (c *Controller) flushAcks(ctx context.Context) {
	if len(c.pendingAcks) == 0 {
		return
	}
	if time.Since(c.lastAckFlush) < ackThrottleInterval {
		return
	}

	if len(c.pendingAcks) == 1 {
		for channelID, ack := range c.pendingAcks {
			c.rest.SendAck(ctx, channelID, ack.messageID, false)
		}
	} else {
		entries := make([]rest.AckEntry, 0, len(c.pendingAcks))
		for channelID, ack := range c.pendingAcks {
			entries = append(entries, rest.AckEntry{ChannelID: channelID, MessageID: ack.messageID})
		}
		c.rest.SendAckBulk(ctx, entries)
	}
	c.pendingAcks = make(map[string]pendingAck)
	c.lastAckFlush = time.Now()
}

// checkTypingHeartbeat sends a typing REST call for the active channel if
// the user is composing and the 7s heartbeat window has elapsed, §4.3 step 4.
func (c *Controller) checkTypingHeartbeat(ctx context.Context) {
	startedAt, composing := c.typingStartedAt[c.activeChannelID]
	if !composing {
		return
	}
	last, ok := c.lastTypingSent[c.activeChannelID]
	if ok && time.Since(last) < typingHeartbeatWindow {
		return
	}
	if time.Since(startedAt) == 0 {
		return
	}
	res := c.rest.SendTyping(ctx, c.activeChannelID)
	if res.Err == nil {
		if c.lastTypingSent == nil {
			c.lastTypingSent = make(map[string]time.Time)
		}
		c.lastTypingSent[c.activeChannelID] = time.Now()
	}
}

// SetSlowmode starts (or restarts) a channel's slow-mode countdown in
// seconds; seconds <= 0 clears it. No event handler in this package calls
// it: neither TYPING_START responses nor a CHANNEL_UPDATE's
// rate_limit_per_user feed the countdown.
func (c *Controller) SetSlowmode(channelID string, seconds int) {
	if seconds <= 0 {
		delete(c.slowmodeRemaining, channelID)
		return
	}
	c.slowmodeRemaining[channelID] = seconds
	c.lastSlowmodeTick = time.Now()
}

// SlowmodeRemaining returns the seconds left on a channel's slow-mode
// countdown, for status-line bindings that reference %slowmode.
func (c *Controller) SlowmodeRemaining(channelID string) int {
	return c.slowmodeRemaining[channelID]
}

// tickSlowmode decrements every tracked channel's slow-mode countdown once
// per elapsed second, §4.3 "Slow-mode".
func (c *Controller) tickSlowmode() {
	if len(c.slowmodeRemaining) == 0 {
		return
	}
	elapsed := int(time.Since(c.lastSlowmodeTick) / time.Second)
	if elapsed <= 0 {
		return
	}
	c.lastSlowmodeTick = time.Now()
	for id, remaining := range c.slowmodeRemaining {
		remaining -= elapsed
		if remaining <= 0 {
			delete(c.slowmodeRemaining, id)
		} else {
			c.slowmodeRemaining[id] = remaining
		}
	}
}
