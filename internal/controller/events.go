package controller

import (
	"strconv"

	"github.com/discord-terminal/engine/internal/codec"
	"github.com/discord-terminal/engine/internal/gateway"
	"github.com/discord-terminal/engine/internal/state"
)

// Wire payload shapes for the dispatch events the controller applies into
// the state store. Every optional field is tagged so a missing key decodes
// to a zero value instead of an error, per DESIGN.md Open Question decision 3.

type wireAuthor struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

type wireMention struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

type wireReaction struct {
	Count int `json:"count"`
	Me    bool `json:"me"`
	Emoji struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"emoji"`
}

type wirePollAnswer struct {
	AnswerID int `json:"answer_id"`
	Count    int `json:"count"`
	MeVoted  bool `json:"me_voted"`
}

type wireMessage struct {
	ID              string          `json:"id"`
	ChannelID       string          `json:"channel_id"`
	GuildID         string          `json:"guild_id"`
	Timestamp       string          `json:"timestamp"`
	Content         string          `json:"content"`
	Author          wireAuthor      `json:"author"`
	Mentions        []wireMention   `json:"mentions"`
	MentionRoles    []string        `json:"mention_roles"`
	MentionEveryone bool            `json:"mention_everyone"`
	Reactions       []wireReaction  `json:"reactions"`
	EditedTimestamp *string         `json:"edited_timestamp"`
	Poll            *struct {
		Results struct {
			Answers []wirePollAnswer `json:"answer_counts"`
		} `json:"results"`
	} `json:"poll,omitempty"`
	MessageReference *struct {
		MessageID string `json:"message_id"`
	} `json:"message_reference,omitempty"`
}

func (m wireMessage) toState() state.Message {
	out := state.Message{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		GuildID:         m.GuildID,
		Timestamp:       m.Timestamp,
		AuthorID:        m.Author.ID,
		AuthorUsername:  m.Author.Username,
		AuthorGlobal:    m.Author.GlobalName,
		Content:         m.Content,
		MentionRoles:    m.MentionRoles,
		MentionEveryone: m.MentionEveryone,
		Edited:          m.EditedTimestamp != nil,
	}
	for _, mm := range m.Mentions {
		out.Mentions = append(out.Mentions, state.Mention{ID: mm.ID, Username: mm.Username, GlobalName: mm.GlobalName})
	}
	for _, r := range m.Reactions {
		out.Reactions = append(out.Reactions, state.Reaction{Emoji: r.Emoji.Name, EmojiID: r.Emoji.ID, Count: r.Count, Me: r.Me})
	}
	if m.Poll != nil {
		for _, a := range m.Poll.Results.Answers {
			out.Poll = append(out.Poll, state.PollOption{ID: a.AnswerID, Count: a.Count, MeVoted: a.MeVoted})
		}
	}
	if m.MessageReference != nil {
		out.ReferenceID = m.MessageReference.MessageID
	}
	return out
}

type wireMessageDelete struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

type wireReactionUpdate struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"emoji"`
}

type wirePollVote struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	AnswerID  int    `json:"answer_id"`
}

type wireTypingStart struct {
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	UserID    string `json:"user_id"`
}

type wireAck struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type wireThread struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id"`
	Parent  string `json:"parent_id"`
	Type    int    `json:"type"`
	Owner   string `json:"owner_id"`
	Name    string `json:"name"`
	Locked  bool   `json:"locked"`
}

type wireVoiceStateUpdate struct {
	GuildID   string `json:"guild_id"`
	ChannelID *string `json:"channel_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type wireVoiceServerUpdate struct {
	GuildID  string `json:"guild_id"`
	Token    string `json:"token"`
	Endpoint string `json:"endpoint"`
}

type wireRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Position    int    `json:"position"`
	Hoist       bool   `json:"hoist"`
	Permissions string `json:"permissions"`
}

func (r wireRole) toState() state.Role {
	perms, _ := strconv.ParseInt(r.Permissions, 10, 64)
	return state.Role{ID: r.ID, Name: r.Name, Color: r.Color, Position: r.Position, Hoist: r.Hoist, Permissions: perms}
}

type wireGuildRole struct {
	GuildID string   `json:"guild_id"`
	Role    wireRole `json:"role"`
	RoleID  string   `json:"role_id"`
}

type wireOverwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"`
	Allow string `json:"allow"`
	Deny  string `json:"deny"`
}

type wireChannel struct {
	ID        string          `json:"id"`
	GuildID   string          `json:"guild_id"`
	Type      int             `json:"type"`
	Name      string          `json:"name"`
	Topic     string          `json:"topic"`
	ParentID  string          `json:"parent_id"`
	Position  int             `json:"position"`
	RateLimit int             `json:"rate_limit_per_user"`
	Overwrite []wireOverwrite `json:"permission_overwrites"`
}

func (ch wireChannel) toState() state.Channel {
	out := state.Channel{
		GuildID: ch.GuildID, ID: ch.ID, Type: ch.Type, Name: ch.Name,
		Topic: ch.Topic, ParentID: ch.ParentID, Position: ch.Position, RateLimit: ch.RateLimit,
	}
	for _, ow := range ch.Overwrite {
		allow, _ := strconv.ParseInt(ow.Allow, 10, 64)
		deny, _ := strconv.ParseInt(ow.Deny, 10, 64)
		out.Overwrites = append(out.Overwrites, state.Overwrite{ID: ow.ID, Type: ow.Type, Allow: allow, Deny: deny})
	}
	return out
}

type wireGuildMembersChunk struct {
	GuildID string `json:"guild_id"`
	Nonce   string `json:"nonce"`
	Members []struct {
		Roles []string `json:"roles"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"members"`
}

type wireGuild struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	OwnerID       string        `json:"owner_id"`
	MemberCount   int           `json:"member_count"`
	PremiumTier   int           `json:"premium_tier"`
	Features      []string      `json:"features"`
	Unavailable   bool          `json:"unavailable"`
	Channels      []wireChannel `json:"channels"`
	Roles         []wireRole    `json:"roles"`
}

func (g wireGuild) isCommunity() bool {
	for _, f := range g.Features {
		if f == "COMMUNITY" {
			return true
		}
	}
	return false
}

func (g wireGuild) toState(myID string) state.Guild {
	out := state.Guild{
		ID: g.ID, Name: g.Name, Description: g.Description, OwnerID: g.OwnerID,
		Owned: g.OwnerID == myID, MemberCount: g.MemberCount, Community: g.isCommunity(),
		Premium: g.PremiumTier,
	}
	for _, ch := range g.Channels {
		sc := ch.toState()
		sc.GuildID = g.ID
		out.Channels = append(out.Channels, sc)
	}
	for _, r := range g.Roles {
		out.Roles = append(out.Roles, r.toState())
	}
	return out
}

// applyEvent is the controller's per-kind dispatch table, §4.4 "Event
// handlers (summary)". Decode failures are logged and the event dropped --
// an ErrState kind per §7, never a panic.
func (c *Controller) applyEvent(evt gateway.Event) {
	switch evt.Kind {
	case gateway.EventMessage:
		c.applyMessageEvent(evt)
	case gateway.EventTyping:
		c.applyTypingEvent(evt)
	case gateway.EventAck:
		c.applyAckEvent(evt)
	case gateway.EventThread:
		c.applyThreadEvent(evt)
	case gateway.EventVoice:
		c.applyVoiceEvent(evt)
	case gateway.EventMember:
		c.applyMemberEvent(evt)
	default:
		c.applyGuildEvent(evt)
	}
}

func (c *Controller) applyMessageEvent(evt gateway.Event) {
	switch evt.Type {
	case "MESSAGE_CREATE":
		var m wireMessage
		if err := codec.Unmarshal(evt.Data, &m); err != nil {
			c.logger.Warn().Err(err).Msg("decode MESSAGE_CREATE")
			return
		}
		msg := m.toState()
		c.store.HandleMessageCreate(msg)
		c.notifyIncoming(msg)
	case "MESSAGE_UPDATE":
		var m wireMessage
		if err := codec.Unmarshal(evt.Data, &m); err != nil {
			c.logger.Warn().Err(err).Msg("decode MESSAGE_UPDATE")
			return
		}
		c.store.HandleMessageUpdate(m.toState())
	case "MESSAGE_DELETE":
		var d wireMessageDelete
		if err := codec.Unmarshal(evt.Data, &d); err != nil {
			c.logger.Warn().Err(err).Msg("decode MESSAGE_DELETE")
			return
		}
		c.store.HandleMessageDelete(d.ChannelID, d.ID)
		c.retractMention(d.ChannelID, d.ID)
	case "MESSAGE_REACTION_ADD":
		var r wireReactionUpdate
		if err := codec.Unmarshal(evt.Data, &r); err != nil {
			return
		}
		c.store.HandleReactionAdd(r.ChannelID, r.MessageID, r.Emoji.Name, r.Emoji.ID, r.UserID)
	case "MESSAGE_REACTION_REMOVE":
		var r wireReactionUpdate
		if err := codec.Unmarshal(evt.Data, &r); err != nil {
			return
		}
		c.store.HandleReactionRemove(r.ChannelID, r.MessageID, r.Emoji.Name, r.Emoji.ID, r.UserID)
	case "MESSAGE_POLL_VOTE_ADD":
		var v wirePollVote
		if err := codec.Unmarshal(evt.Data, &v); err != nil {
			return
		}
		c.store.HandlePollVote(v.ChannelID, v.MessageID, v.AnswerID, v.UserID, 1)
	case "MESSAGE_POLL_VOTE_REMOVE":
		var v wirePollVote
		if err := codec.Unmarshal(evt.Data, &v); err != nil {
			return
		}
		c.store.HandlePollVote(v.ChannelID, v.MessageID, v.AnswerID, v.UserID, -1)
	}
}

func (c *Controller) applyTypingEvent(evt gateway.Event) {
	var t wireTypingStart
	if err := codec.Unmarshal(evt.Data, &t); err != nil {
		return
	}
	c.typingUsers[t.ChannelID] = append(c.typingUsers[t.ChannelID], t.UserID)
}

func (c *Controller) applyAckEvent(evt gateway.Event) {
	var a wireAck
	if err := codec.Unmarshal(evt.Data, &a); err != nil {
		return
	}
	c.store.ApplyRemoteAck(a.ChannelID, a.MessageID)
	delete(c.pendingAcks, a.ChannelID)
}

func (c *Controller) applyThreadEvent(evt gateway.Event) {
	switch evt.Type {
	case "THREAD_CREATE", "THREAD_UPDATE":
		var t wireThread
		if err := codec.Unmarshal(evt.Data, &t); err != nil {
			return
		}
		c.store.UpsertThread(state.Thread{
			ID: t.ID, GuildID: t.GuildID, ParentID: t.Parent,
			Type: t.Type, OwnerID: t.Owner, Name: t.Name, Locked: t.Locked,
		})
	case "THREAD_DELETE":
		var t wireThread
		if err := codec.Unmarshal(evt.Data, &t); err != nil {
			return
		}
		c.store.RemoveThread(t.GuildID, t.ID)
	case "THREAD_LIST_SYNC":
		var sync struct {
			GuildID string       `json:"guild_id"`
			Threads []wireThread `json:"threads"`
		}
		if err := codec.Unmarshal(evt.Data, &sync); err != nil {
			return
		}
		for _, t := range sync.Threads {
			c.store.UpsertThread(state.Thread{
				ID: t.ID, GuildID: t.GuildID, ParentID: t.Parent,
				Type: t.Type, OwnerID: t.Owner, Name: t.Name, Locked: t.Locked,
			})
		}
	}
}

func (c *Controller) applyVoiceEvent(evt gateway.Event) {
	switch evt.Type {
	case "VOICE_STATE_UPDATE":
		var v wireVoiceStateUpdate
		if err := codec.Unmarshal(evt.Data, &v); err != nil {
			return
		}
		if v.UserID != c.store.MyID() || v.ChannelID == nil {
			return
		}
		c.store.LatchVoiceState(v.GuildID, *v.ChannelID, v.SessionID)
	case "VOICE_SERVER_UPDATE":
		var v wireVoiceServerUpdate
		if err := codec.Unmarshal(evt.Data, &v); err != nil {
			return
		}
		if c.store.LatchVoiceServer(v.GuildID, v.Token, v.Endpoint) {
			c.onVoiceReady(v.GuildID, v.Token, v.Endpoint)
		}
	}
}

func (c *Controller) applyMemberEvent(evt gateway.Event) {
	if evt.Type != "GUILD_MEMBERS_CHUNK" {
		return
	}
	var chunk wireGuildMembersChunk
	if err := codec.Unmarshal(evt.Data, &chunk); err != nil {
		return
	}
	for _, m := range chunk.Members {
		c.store.AddMemberRoles(chunk.GuildID, m.User.ID, m.Roles)
	}
	if chunk.Nonce != "" && chunk.Nonce == c.pendingMemberNonce {
		c.pendingMemberNonce = ""
		c.requestViewRegen()
	}
}

// applyGuildEvent handles the catch-all queue: GUILD_*, CHANNEL_*,
// GUILD_ROLE_*, GUILD_MEMBER_LIST_UPDATE, USER_GUILD_SETTINGS_UPDATE,
// and the remaining dispatch types routed to EventGuild/EventSummary/
// EventProtoSettings/EventUser/EventPresence/EventCall/EventAutocomplete.
func (c *Controller) applyGuildEvent(evt gateway.Event) {
	switch evt.Type {
	case "GUILD_CREATE":
		var g wireGuild
		if err := codec.Unmarshal(evt.Data, &g); err != nil {
			c.logger.Warn().Err(err).Msg("decode GUILD_CREATE")
			return
		}
		c.store.AddGuild(g.toState(c.store.MyID()), g.Unavailable)
		c.invalidatePermissions(g.ID)
	case "GUILD_UPDATE":
		var g wireGuild
		if err := codec.Unmarshal(evt.Data, &g); err != nil {
			return
		}
		c.store.UpdateGuild(g.ID, g.Name, g.Description, g.OwnerID, g.isCommunity(), g.PremiumTier)
		c.invalidatePermissions(g.ID)
	case "GUILD_DELETE":
		var d struct {
			ID string `json:"id"`
		}
		if err := codec.Unmarshal(evt.Data, &d); err != nil {
			return
		}
		c.store.RemoveGuild(d.ID)
	case "GUILD_ROLE_CREATE", "GUILD_ROLE_UPDATE":
		var r wireGuildRole
		if err := codec.Unmarshal(evt.Data, &r); err != nil {
			return
		}
		if evt.Type == "GUILD_ROLE_CREATE" {
			c.store.AddRole(r.GuildID, r.Role.toState())
		} else {
			c.store.UpdateRole(r.GuildID, r.Role.toState())
		}
		c.invalidatePermissions(r.GuildID)
	case "GUILD_ROLE_DELETE":
		var r wireGuildRole
		if err := codec.Unmarshal(evt.Data, &r); err != nil {
			return
		}
		c.store.RemoveRole(r.GuildID, r.RoleID)
		c.invalidatePermissions(r.GuildID)
	case "CHANNEL_CREATE", "CHANNEL_UPDATE":
		var ch wireChannel
		if err := codec.Unmarshal(evt.Data, &ch); err != nil {
			return
		}
		c.store.UpsertChannel(ch.GuildID, ch.toState())
		c.invalidatePermissions(ch.GuildID)
	case "CHANNEL_DELETE":
		var ch wireChannel
		if err := codec.Unmarshal(evt.Data, &ch); err != nil {
			return
		}
		c.store.RemoveChannel(ch.GuildID, ch.ID)
	case "GUILD_MEMBER_LIST_UPDATE":
		c.applyMemberListUpdate(evt)
	case "USER_GUILD_SETTINGS_UPDATE":
		c.applyGuildSettings(evt)
	case "READY":
		c.applyReady(evt)
	case "READY_SUPPLEMENTAL":
		// Merges presences/embedded activities into the already-hydrated
		// READY state; the controller's state store doesn't yet model
		// the per-guild embedded-activity list, so only the confirmation
		// that initial hydration completed matters here.
		c.requestViewRegen()
	case "CALL_CREATE", "CALL_UPDATE":
		var call wireCall
		if err := codec.Unmarshal(evt.Data, &call); err != nil {
			return
		}
		c.store.UpsertCall(call.ChannelID, call.Ringing, len(call.Ringing) > 0 && evt.Type == "CALL_CREATE")
		c.requestViewRegen()
	case "CALL_DELETE":
		var d struct {
			ChannelID string `json:"channel_id"`
		}
		if err := codec.Unmarshal(evt.Data, &d); err != nil {
			return
		}
		c.store.RemoveCall(d.ChannelID)
		c.requestViewRegen()
	case "PRESENCE_UPDATE":
		var p wirePresence
		if err := codec.Unmarshal(evt.Data, &p); err != nil {
			return
		}
		c.store.UpdatePresence(p.GuildID, p.User.ID, p.Status, p.customStatusText())
	case "USER_UPDATE":
		var u wireReadyUser
		if err := codec.Unmarshal(evt.Data, &u); err != nil {
			return
		}
		c.store.SetMyUserData(state.MyUser{ID: u.ID, Username: u.Username, GlobalName: u.GlobalName, Bot: u.Bot})
	case "USER_SETTINGS_PROTO_UPDATE":
		// The protobuf-encoded settings blob (per §2 "user-settings protobuf
		// mirror") is decoded and applied by the renderer-facing settings
		// layer, which owns the proto schema; the controller only forwards
		// the raw event via requestViewRegen so a fresh read picks it up.
		c.requestViewRegen()
	}
}

// wireCall is a CALL_CREATE/CALL_UPDATE payload.
type wireCall struct {
	ChannelID string   `json:"channel_id"`
	Ringing   []string `json:"ringing"`
}

// wirePresence is a PRESENCE_UPDATE payload.
type wirePresence struct {
	GuildID string `json:"guild_id"`
	Status  string `json:"status"`
	User    struct {
		ID string `json:"id"`
	} `json:"user"`
	Activities []struct {
		Type  int    `json:"type"`
		State string `json:"state"`
		Name  string `json:"name"`
	} `json:"activities"`
}

func (p wirePresence) customStatusText() string {
	for _, a := range p.Activities {
		if a.Type == 4 {
			return a.State
		}
	}
	return ""
}
