// Package state is the controller's authoritative local mirror: guilds,
// channels, roles, DMs, threads, per-channel message buffers, read state,
// and the bounded caches that keep all of the above from growing without
// limit. Mutators are called only from the controller tick (see
// internal/controller); everything else reads through the accessors.
package state

// Role mirrors a guild role, kept sorted by position desc then
// colored-before-uncolored, matching the ordering the client renders
// member lists and mention highlighting with.
type Role struct {
	ID          string
	Name        string
	Color       int
	Position    int
	Hoist       bool
	Permissions int64
}

// Overwrite is a permission overwrite entry on a channel.
type Overwrite struct {
	ID    string // role or member id
	Type  int    // 0 = role, 1 = member
	Allow int64
	Deny  int64
}

// Channel is a guild channel or category. DMs are represented separately
// by DM.
type Channel struct {
	GuildID     string
	ID          string
	Type        int // 0 text, 2 voice, 4 category, 5 announce, 11/12 thread, 15 forum
	Name        string
	Topic       string
	ParentID    string
	Position    int
	Overwrites  []Overwrite
	RateLimit   int
	Hidden      bool
	Muted       bool
	Suppressed  bool
	Permissions *int64 // nil until recomputed for the current role set; see invariant (iv)
}

// ResolvedHidden reports whether a channel should be hidden from the
// channel tree, given its guild's opt-in policy and its own category.
//
// An explicit per-channel override returns the channel's own Hidden flag.
// Otherwise a channel in an owned or non-community guild, or in a guild
// whose OptInChannels is false, is never hidden; in any other guild it
// takes its parent category's Hidden flag, or its own when it has no
// category.
func (c Channel) ResolvedHidden(g *Guild, explicitOverride bool, category *Channel) bool {
	if explicitOverride {
		return c.Hidden
	}
	if g != nil && (g.Owned || !g.Community || !g.OptInChannels) {
		return false
	}
	if category != nil {
		return category.Hidden
	}
	return c.Hidden
}

// Guild is a joined guild and its channel/role collections.
type Guild struct {
	ID            string
	Name          string
	Description   string
	OwnerID       string
	Owned         bool
	MemberCount   int
	Community     bool
	Premium       int
	OptInChannels bool
	BasePerms     int64
	Channels      []Channel
	Roles         []Role
	Threads       []Thread
	SuppressEveryone bool
	SuppressRoles    bool
}

// DMRecipient is a user referenced by a DM channel.
type DMRecipient struct {
	ID         string
	Username   string
	GlobalName string
}

// DM is a 1:1 or group direct-message channel.
type DM struct {
	ID            string
	Type          int // 1 = 1:1, 3 = group
	OwnerID       string // set for group DMs
	Recipients    []DMRecipient
	Name          string
	IsSpam        bool
	IsRequest     bool
	Muted         bool
	LastMessageID string
	Avatar        string
}

// Thread is a guild thread, listed under its parent channel.
type Thread struct {
	ID                   string
	GuildID              string
	ParentID             string
	Type                 int
	OwnerID              string
	Name                 string
	Locked               bool
	MessageCount         int
	CreateTimestamp      string
	SuppressEveryone     bool
	SuppressRoles        bool
	MessageNotifications int
	Muted                bool
	Joined               bool
}

// Call is a DM/group-DM voice call's ringing or active participant set,
// sourced from CALL_CREATE/CALL_UPDATE/CALL_DELETE.
type Call struct {
	ChannelID    string
	Participants []string
	Ringing      bool
}

// Mention is a user referenced in a message's mentions list.
type Mention struct {
	ID         string
	Username   string
	GlobalName string
}

// Reaction is one (emoji, emoji_id) bucket on a message.
type Reaction struct {
	Emoji   string
	EmojiID string
	Count   int
	Me      bool
}

// PollOption is one answer on a message poll, with its current vote tally.
type PollOption struct {
	ID      int
	Text    string
	Count   int
	MeVoted bool
}

// Message is a channel message as held in the per-channel buffer.
type Message struct {
	ID              string
	ChannelID       string
	GuildID         string
	Timestamp       string
	AuthorID        string
	AuthorUsername  string
	AuthorGlobal    string
	Content         string
	Mentions        []Mention
	MentionRoles    []string
	MentionEveryone bool
	Reactions       []Reaction
	Poll            []PollOption
	ReferenceID     string
	Edited          bool
	Deleted         bool
}

// ReadState is the per-channel acked/unread bookkeeping.
type ReadState struct {
	ChannelID            string
	LastMessageID        string
	LastAckedMessageID   string
	Mentions             []string // message ids that mention the local user and are unacked
	LastAckedUnreadsLine string
}

// Unread reports whether the channel has messages newer than the last ack.
func (r ReadState) Unread() bool {
	return snowflakeLess(r.LastAckedMessageID, r.LastMessageID)
}

// HasMention reports whether the channel carries an unacked mention.
func (r ReadState) HasMention() bool { return len(r.Mentions) > 0 }

// VoiceSession is the single active voice/video call the local session
// participates in.
type VoiceSession struct {
	GuildID       string // empty for a DM call
	ChannelID     string
	SessionID     string
	Token         string
	Endpoint      string
	SSRC          uint32
	SecretKey     []byte
	Mode          string
	UDPEndpoint   string
	MediaSession  string
	SelfMute      bool
	SelfDeaf      bool
}

// MemberActivity is one entry in a guild's member-list sidebar, sourced
// from GUILD_MEMBER_LIST_UPDATE.
type MemberActivity struct {
	GroupID      string // set when this entry is an online/offline group header
	ID           string
	Username     string
	GlobalName   string
	Nick         string
	Roles        []string
	Status       string
	CustomStatus string
}

// GuildActivities is the bounded member-list slice for one guild.
type GuildActivities struct {
	GuildID   string
	Members   []MemberActivity
	LastIndex int
}

// MemberRoles is a cached (user, roles) pair, scoped to a guild.
type MemberRoles struct {
	UserID string
	Roles  []string
}
