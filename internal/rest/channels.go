package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/discord-terminal/engine/internal/codec"
)

// DMRecipient is one participant of a direct message channel.
type DMRecipient struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// DMChannel is a normalized private channel entry (type 1 = 1:1, type 3 =
// group DM, matching the gateway's own channel type enum).
type DMChannel struct {
	ID         string        `json:"id"`
	Type       int           `json:"type"`
	Recipients []DMRecipient `json:"recipients"`
	Name       string        `json:"name"`
}

// GetDMs lists the caller's open DM channels.
func (c *Client) GetDMs(ctx context.Context) Result[[]DMChannel] {
	resp, data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%s/channels", c.myID), nil)
	if err != nil {
		return Fail[[]DMChannel](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[[]DMChannel](classify(resp, data))
	}
	var raw []struct {
		ID         string `json:"id"`
		Type       int    `json:"type"`
		Name       string `json:"name"`
		Recipients []DMRecipient
	}
	if err := codec.Unmarshal(data, &raw); err != nil {
		return Fail[[]DMChannel](fmt.Errorf("rest: decode dms: %w", err))
	}
	dms := make([]DMChannel, 0, len(raw))
	for _, dm := range raw {
		name := dm.Name
		if name == "" && len(dm.Recipients) > 0 {
			name = dm.Recipients[0].GlobalName
		}
		dms = append(dms, DMChannel{ID: dm.ID, Type: dm.Type, Recipients: dm.Recipients, Name: name})
	}
	return Ok(dms)
}

// Channel is a normalized guild channel entry.
type Channel struct {
	ID       string `json:"id"`
	Type     int    `json:"type"`
	Name     string `json:"name"`
	Topic    string `json:"topic"`
	ParentID string `json:"parent_id"`
	Position int    `json:"position"`
}

// GetChannels lists a guild's channels (text/voice/category/announcement/thread/forum).
func (c *Client) GetChannels(ctx context.Context, guildID string) Result[[]Channel] {
	resp, data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s/channels", guildID), nil)
	if err != nil {
		return Fail[[]Channel](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[[]Channel](classify(resp, data))
	}
	var channels []Channel
	if err := codec.Unmarshal(data, &channels); err != nil {
		return Fail[[]Channel](fmt.Errorf("rest: decode channels: %w", err))
	}
	return Ok(channels)
}

// MessagePage is a request for a page of channel history; exactly one of
// Before/After/Around should be set, matching the gateway's paging cursor.
type MessagePage struct {
	ChannelID string
	Limit     int
	Before    string
	After     string
	Around    string
}

// GetMessages fetches a page of channel history.
func (c *Client) GetMessages(ctx context.Context, p MessagePage) Result[[]Message] {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if p.Before != "" {
		q.Set("before", p.Before)
	}
	if p.After != "" {
		q.Set("after", p.After)
	}
	if p.Around != "" {
		q.Set("around", p.Around)
	}
	path := fmt.Sprintf("/channels/%s/messages?%s", p.ChannelID, q.Encode())
	resp, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Fail[[]Message](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[[]Message](classify(resp, data))
	}
	var messages []Message
	if err := codec.Unmarshal(data, &messages); err != nil {
		return Fail[[]Message](fmt.Errorf("rest: decode messages: %w", err))
	}
	return Ok(messages)
}

// ReactionUser is one reactor returned by GetReactions.
type ReactionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// GetReactions lists who reacted with a given emoji on a message.
func (c *Client) GetReactions(ctx context.Context, channelID, messageID, reaction string) Result[[]ReactionUser] {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s?limit=50&type=0",
		channelID, messageID, url.PathEscape(reaction))
	resp, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Fail[[]ReactionUser](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[[]ReactionUser](classify(resp, data))
	}
	var users []ReactionUser
	if err := codec.Unmarshal(data, &users); err != nil {
		return Fail[[]ReactionUser](fmt.Errorf("rest: decode reactions: %w", err))
	}
	return Ok(users)
}

// SendReaction adds the caller's own reaction to a message.
func (c *Client) SendReaction(ctx context.Context, channelID, messageID, reaction string) Result[struct{}] {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me", channelID, messageID, url.PathEscape(reaction))
	resp, data, err := c.do(ctx, http.MethodPut, path, nil)
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// RemoveReaction removes the caller's own reaction from a message.
func (c *Client) RemoveReaction(ctx context.Context, channelID, messageID, reaction string) Result[struct{}] {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me", channelID, messageID, url.PathEscape(reaction))
	resp, data, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// SendMuteGuild mutes or unmutes an entire guild's notifications.
func (c *Client) SendMuteGuild(ctx context.Context, guildID string, mute bool) Result[struct{}] {
	payload := map[string]any{"muted": mute}
	resp, data, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/users/@me/guilds/%s/settings", guildID), payload)
	if err != nil {
		return Fail[struct{}](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// SendMuteChannel mutes or unmutes a single guild channel.
func (c *Client) SendMuteChannel(ctx context.Context, guildID, channelID string, mute bool) Result[struct{}] {
	payload := map[string]any{
		"channel_overrides": map[string]any{
			channelID: map[string]any{"muted": mute},
		},
	}
	resp, data, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/users/@me/guilds/%s/settings", guildID), payload)
	if err != nil {
		return Fail[struct{}](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// SendMuteDM mutes or unmutes a DM channel.
func (c *Client) SendMuteDM(ctx context.Context, dmID string, mute bool) Result[struct{}] {
	payload := map[string]any{
		"channel_overrides": map[string]any{
			dmID: map[string]any{"muted": mute},
		},
	}
	resp, data, err := c.do(ctx, http.MethodPatch, "/users/@me/guilds/@me/settings", payload)
	if err != nil {
		return Fail[struct{}](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// Thread is one archived/active thread entry.
type Thread struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
	Archived bool   `json:"-"`
}

// GetThreads lists threads under a channel, optionally archived ones.
func (c *Client) GetThreads(ctx context.Context, channelID string, number, offset int, archived bool) Result[[]Thread] {
	if number <= 0 {
		number = 25
	}
	kind := "active"
	if archived {
		kind = "archived"
	}
	path := fmt.Sprintf("/channels/%s/threads/%s?limit=%d&offset=%d", channelID, kind, number, offset)
	resp, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Fail[[]Thread](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[[]Thread](classify(resp, data))
	}
	var payload struct {
		Threads []Thread `json:"threads"`
	}
	if err := codec.Unmarshal(data, &payload); err != nil {
		return Fail[[]Thread](fmt.Errorf("rest: decode threads: %w", err))
	}
	for i := range payload.Threads {
		payload.Threads[i].Archived = archived
	}
	return Ok(payload.Threads)
}

// JoinThread adds the caller to a thread's member list.
func (c *Client) JoinThread(ctx context.Context, threadID string) Result[struct{}] {
	resp, data, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/channels/%s/thread-members/@me", threadID), nil)
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// LeaveThread removes the caller from a thread's member list.
func (c *Client) LeaveThread(ctx context.Context, threadID string) Result[struct{}] {
	resp, data, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s/thread-members/@me", threadID), nil)
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// SearchParams narrows a channel/guild search query.
type SearchParams struct {
	ObjectID  string // guild id, or channel id when Channel is true
	Channel   bool
	Content   string
	ChannelID string
	AuthorID  string
	MaxID     string
	MinID     string
	Pinned    *bool
	Offset    int
}

// Search runs a full-text/filtered message search scoped to a guild or channel.
func (c *Client) Search(ctx context.Context, p SearchParams) Result[[]Message] {
	q := url.Values{}
	if p.Content != "" {
		q.Set("content", p.Content)
	}
	if p.ChannelID != "" {
		q.Set("channel_id", p.ChannelID)
	}
	if p.AuthorID != "" {
		q.Set("author_id", p.AuthorID)
	}
	if p.MaxID != "" {
		q.Set("max_id", p.MaxID)
	}
	if p.MinID != "" {
		q.Set("min_id", p.MinID)
	}
	if p.Pinned != nil {
		q.Set("pinned", fmt.Sprintf("%t", *p.Pinned))
	}
	if p.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", p.Offset))
	}

	scope := fmt.Sprintf("/guilds/%s/messages/search", p.ObjectID)
	if p.Channel {
		scope = fmt.Sprintf("/channels/%s/messages/search", p.ObjectID)
	}
	resp, data, err := c.do(ctx, http.MethodGet, scope+"?"+q.Encode(), nil)
	if err != nil {
		return Fail[[]Message](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[[]Message](classify(resp, data))
	}
	var payload struct {
		Messages [][]Message `json:"messages"`
	}
	if err := codec.Unmarshal(data, &payload); err != nil {
		return Fail[[]Message](fmt.Errorf("rest: decode search results: %w", err))
	}
	flat := make([]Message, 0, len(payload.Messages))
	for _, group := range payload.Messages {
		flat = append(flat, group...)
	}
	return Ok(flat)
}

// BlockUser blocks or, with ignore=true, soft-ignores a user.
func (c *Client) BlockUser(ctx context.Context, userID string, ignore bool) Result[struct{}] {
	relType := 2
	if ignore {
		relType = 3
	}
	resp, data, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/@me/relationships/%s", userID),
		map[string]any{"type": relType})
	if err != nil {
		return Fail[struct{}](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// UnblockUser removes a block/ignore relationship.
func (c *Client) UnblockUser(ctx context.Context, userID string) Result[struct{}] {
	resp, data, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/@me/relationships/%s", userID), nil)
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// GetPinned lists a channel's pinned messages.
func (c *Client) GetPinned(ctx context.Context, channelID string) Result[[]Message] {
	resp, data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/channels/%s/pins", channelID), nil)
	if err != nil {
		return Fail[[]Message](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[[]Message](classify(resp, data))
	}
	var messages []Message
	if err := codec.Unmarshal(data, &messages); err != nil {
		return Fail[[]Message](fmt.Errorf("rest: decode pins: %w", err))
	}
	return Ok(messages)
}

// SendPin pins a message.
func (c *Client) SendPin(ctx context.Context, channelID, messageID string) Result[struct{}] {
	resp, data, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/channels/%s/pins/%s", channelID, messageID), nil)
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}
