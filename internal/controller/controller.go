// Package controller is the engine's single state mutator and intent
// dispatcher: it drains the gateway's typed event queues, applies them into
// internal/state, and turns user commands into validated REST calls, per
// SPEC_FULL.md §4.3. Exactly one goroutine ever calls Tick; every other task
// talks to the controller through bounded queues or exported callback hooks,
// matching the teacher's manager.SessionManager supporting-goroutine model
// generalized to a single account.
package controller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/assist"
	"github.com/discord-terminal/engine/internal/gateway"
	"github.com/discord-terminal/engine/internal/perms"
	"github.com/discord-terminal/engine/internal/rest"
	"github.com/discord-terminal/engine/internal/state"
	"github.com/discord-terminal/engine/internal/voice"
)

const (
	tickDelay             = 100 * time.Millisecond
	ackThrottleInterval   = 3 * time.Second
	typingHeartbeatWindow = 7 * time.Second
)

// pendingAck is one channel's outstanding ack, waiting for the throttle
// window before it is flushed to REST.
type pendingAck struct {
	messageID string
	queuedAt  time.Time
}

// Controller owns the state store exclusively and is the only caller of its
// mutators (§4.4).
type Controller struct {
	store  *state.Store
	gw     *gateway.Client
	queues *gateway.Queues
	rest   *rest.Client
	logger zerolog.Logger

	chatBufferCap int

	activeGuildID   string
	activeChannelID string

	// permissions cache: guildID -> channelID -> computed permission result.
	channelPerms map[string]map[string]perms.Channel
	guildAdmin   map[string]bool

	typingUsers        map[string][]string
	typingStartedAt    map[string]time.Time
	lastTypingSent     map[string]time.Time
	pendingAcks        map[string]pendingAck
	lastAckFlush       time.Time
	pendingMemberNonce string

	slowmodeRemaining map[string]int
	lastSlowmodeTick  time.Time

	// pendingSends records the client nonce of every message Send has
	// dispatched (§9 Open Question decision 2); entries are never removed,
	// not even when the gateway echo arrives.
	pendingSends map[string]bool

	mentionNotify  func(channelID, messageID string)
	mentionRetract func(channelID, messageID string)
	viewRegen      func()

	// resizePending is set by Resize (called from the renderer's resize
	// event) and cleared on the next Tick, which recomputes layout-sensitive
	// derived state via the same viewRegen hook, §4.3 step 5.
	resizePending bool

	// pendingAssist holds one outstanding assist query, polled once per
	// Tick (§4.3 step 6) and resolved through the assistResult hook.
	pendingAssist *pendingAssistQuery
	assistResult  func(results []assist.Result)

	// JoinVoice is invoked once a VOICE_SERVER_UPDATE completes the latch for
	// an in-progress call; the manager wires this to dial internal/voice.
	JoinVoice func(ctx context.Context, data voice.ServerData)
}

// pendingAssistQuery is one queued assist/autocomplete request, submitted by
// RequestAssist and resolved on the next Tick.
type pendingAssistQuery struct {
	kind  assistKind
	query string
}

// New builds a controller over an already-connected gateway client and REST
// client, sharing the client's event queues.
func New(store *state.Store, gw *gateway.Client, queues *gateway.Queues, restClient *rest.Client, chatBufferCap int, logger zerolog.Logger) *Controller {
	return &Controller{
		store:             store,
		gw:                gw,
		queues:            queues,
		rest:              restClient,
		logger:            logger.With().Str("component", "controller").Logger(),
		chatBufferCap:     chatBufferCap,
		channelPerms:      make(map[string]map[string]perms.Channel),
		guildAdmin:        make(map[string]bool),
		typingUsers:       make(map[string][]string),
		typingStartedAt:   make(map[string]time.Time),
		pendingAcks:       make(map[string]pendingAck),
		slowmodeRemaining: make(map[string]int),
		pendingSends:      make(map[string]bool),
	}
}

// OnMention sets the notify/retract hooks used by the unread/ping logic
// (§4.6). Both may be nil.
func (c *Controller) OnMention(notify, retract func(channelID, messageID string)) {
	c.mentionNotify = notify
	c.mentionRetract = retract
}

// OnViewRegen sets the hook invoked whenever the controller believes the
// renderer should redraw (channel switch, member chunk arrival, tick drain).
func (c *Controller) OnViewRegen(fn func()) {
	c.viewRegen = fn
}

func (c *Controller) requestViewRegen() {
	if c.viewRegen != nil {
		c.viewRegen()
	}
}

// Resize records that the terminal renderer reported a resize; the next
// Tick recomputes layout-sensitive derived state via viewRegen, §4.3 step 5.
// The renderer owns the actual layout math (tree/chat/extra-line geometry)
// since the engine does not hold a frame buffer -- this is only the signal.
func (c *Controller) Resize() {
	c.resizePending = true
}

// OnAssistResult sets the hook invoked once a RequestAssist query resolves.
func (c *Controller) OnAssistResult(fn func(results []assist.Result)) {
	c.assistResult = fn
}

// RequestAssist queues one assist/autocomplete query (§4.7), replacing any
// query still unresolved from a prior keystroke -- only the latest matters.
func (c *Controller) RequestAssist(kind assistKind, query string) {
	c.pendingAssist = &pendingAssistQuery{kind: kind, query: query}
}

// pollAssist resolves the queued assist request, if any, §4.3 step 6.
func (c *Controller) pollAssist() {
	if c.pendingAssist == nil {
		return
	}
	q := c.pendingAssist
	c.pendingAssist = nil
	results := c.assistQuery(q.kind, q.query)
	if c.assistResult != nil {
		c.assistResult(results)
	}
}

// Run drives the tick loop until ctx is cancelled, matching the teacher's
// select-on-ctx-then-sleep reconnect idiom generalized to a fixed-delay loop
// instead of backoff.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(tickDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick runs one iteration of the controller's fixed sequence, §4.3 "Tick".
func (c *Controller) Tick(ctx context.Context) {
	c.queues.DrainAll(c.applyEvent)
	c.flushAcks(ctx)
	c.checkTypingHeartbeat(ctx)
	c.tickSlowmode()
	if c.resizePending {
		c.resizePending = false
		c.requestViewRegen()
	}
	c.pollAssist()
}

// invalidatePermissions recomputes a guild's channel permission set from the
// local user's currently cached roles, clearing the guild's admin flag if it
// can no longer be confirmed -- invariant (iv).
func (c *Controller) invalidatePermissions(guildID string) {
	g, ok := c.store.Guild(guildID)
	if !ok {
		return
	}
	roles, _ := c.store.MemberRoles(guildID, c.store.MyID())
	computed, admin := perms.Compute(g, c.store.MyID(), roles)
	c.channelPerms[guildID] = computed
	c.guildAdmin[guildID] = admin
}

// channelPermission returns the cached permission result for a channel,
// computing the guild's permission set first if it has not been cached yet.
func (c *Controller) channelPermission(guildID, channelID string) perms.Channel {
	if guildID == "" {
		// DMs: always permitted, writable, not manageable.
		return perms.Channel{Permitted: true, AllowWrite: true, AllowAttach: true}
	}
	byChannel, ok := c.channelPerms[guildID]
	if !ok {
		c.invalidatePermissions(guildID)
		byChannel = c.channelPerms[guildID]
	}
	return byChannel[channelID]
}

// notifyIncoming applies the ping/unread logic of §4.6 to a freshly created
// message that landed in a channel other than the active one.
func (c *Controller) notifyIncoming(m state.Message) {
	if m.ChannelID == c.activeChannelID {
		return
	}
	ch, guildID, ok := c.store.Channel(m.ChannelID)
	if ok && (ch.Muted || ch.Hidden) {
		return
	}

	pinged := false
	if m.MentionEveryone {
		g, ok := c.store.Guild(guildID)
		if !ok || !g.SuppressEveryone {
			pinged = true
		}
	}
	if !pinged && len(m.MentionRoles) > 0 {
		roles, _ := c.store.MemberRoles(guildID, c.store.MyID())
		roleSet := make(map[string]bool, len(roles))
		for _, r := range roles {
			roleSet[r] = true
		}
		for _, r := range m.MentionRoles {
			if roleSet[r] {
				pinged = true
				break
			}
		}
	}
	if !pinged {
		for _, mention := range m.Mentions {
			if mention.ID == c.store.MyID() {
				pinged = true
				break
			}
		}
	}
	if !pinged && guildID == "" {
		pinged = true // DM, always notifies
	}

	if !pinged {
		return
	}
	c.store.AddMention(m.ChannelID, m.ID)
	if c.mentionNotify != nil {
		c.mentionNotify(m.ChannelID, m.ID)
	}
}

// retractMention undoes notifyIncoming's bookkeeping for a message that was
// deleted before it was seen, §8 scenario 2 "Ghost ping".
func (c *Controller) retractMention(channelID, messageID string) {
	if c.store.RemoveMention(channelID, messageID) && c.mentionRetract != nil {
		c.mentionRetract(channelID, messageID)
	}
}

// onVoiceReady fires once both VOICE_STATE_UPDATE and VOICE_SERVER_UPDATE
// have latched for the local user, handing off to the injected JoinVoice
// hook (normally wired by internal/manager to dial internal/voice).
func (c *Controller) onVoiceReady(guildID, token, endpoint string) {
	session, ok := c.store.VoiceSession()
	if !ok || c.JoinVoice == nil {
		return
	}
	c.JoinVoice(context.Background(), voice.ServerData{
		Endpoint:  endpoint,
		GuildID:   guildID,
		ChannelID: session.ChannelID,
		SessionID: session.SessionID,
		Token:     token,
	})
}

// assistQuery drives one round of §4.7 assist/autocomplete for a free-form
// query in the currently active channel's scope.
func (c *Controller) assistQuery(kind assistKind, query string) []assist.Result {
	switch kind {
	case assistKindChannel:
		g, ok := c.store.Guild(c.activeGuildID)
		if !ok {
			return nil
		}
		return assist.SearchChannelsInGuild(g.Channels, c.channelPerms[c.activeGuildID], query)
	case assistKindEverywhere:
		guilds := c.store.Guilds()
		dms := c.store.DMs()
		return assist.SearchEverywhere(guilds, dms, c.channelPerms, query, false)
	}
	return nil
}

// assistKind discriminates the assist request types named in §4.7; only the
// channel-scoped and global search types are implemented here -- the
// remaining kinds (usernames/emoji/stickers/app-commands/paths) are wired
// directly against internal/assist's per-kind search functions by the
// renderer-facing caller, since each needs renderer-owned context (current
// prefix token, premium flag, filesystem root) the controller does not hold.
type assistKind int

const (
	assistKindChannel assistKind = iota
	assistKindEverywhere
)
