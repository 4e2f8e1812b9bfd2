package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/codec"
)

const (
	apiBase      = "https://discord.com/api/v9"
	discordEpoch = 1420070400
)

// ClientProperties mirrors the gateway identify payload's client block; the
// REST client sends a matching User-Agent/X-Super-Properties pair so traffic
// from one session looks consistent across both transports.
type ClientProperties struct {
	OS        string
	Browser   string
	Device    string
	UserAgent string
}

// Client is a blocking REST client for the service's synchronous HTTP API.
// It bootstraps its own identity at construction (GetMyID), matching
// endcord's discord.py: a session that cannot authenticate is fatal, not
// degraded.
type Client struct {
	token   string
	proxy   string
	props   ClientProperties
	http    *http.Client
	logger  zerolog.Logger
	base    string // overridable in tests; defaults to apiBase

	myID string

	uploads *uploadRegistry
}

// New constructs a Client and resolves the caller's own user id. A non-nil
// error here is always fatal: unauthorized tokens and unreachable hosts both
// mean the engine should not start a session.
func New(ctx context.Context, token, proxyURL string, props ClientProperties, logger zerolog.Logger) (*Client, error) {
	httpClient, err := newHTTPClient(proxyURL)
	if err != nil {
		return nil, err
	}
	httpClient.Timeout = 15 * time.Second

	c := &Client{
		token:   token,
		proxy:   proxyURL,
		props:   props,
		http:    httpClient,
		logger:  logger.With().Str("component", "rest").Logger(),
		base:    apiBase,
		uploads: newUploadRegistry(),
	}

	id, err := c.getMyID(ctx)
	if err != nil {
		return nil, err
	}
	c.myID = id
	return c, nil
}

// newForTesting builds a Client pointed at a local server without the
// identity bootstrap, for tests that exercise individual endpoints.
func newForTesting(baseURL string, myID string) *Client {
	return &Client{
		token:   "test-token",
		props:   ClientProperties{UserAgent: "engine-test/1.0"},
		http:    &http.Client{Timeout: 5 * time.Second},
		logger:  zerolog.Nop(),
		base:    baseURL,
		myID:    myID,
		uploads: newUploadRegistry(),
	}
}

// MyID returns the bootstrapped caller id.
func (c *Client) MyID() string { return c.myID }

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Authorization", c.token)
	req.Header.Set("User-Agent", c.props.UserAgent)
}

// do executes a JSON request/response round trip. A transport failure or an
// unreadable body maps to ErrOffline; otherwise the response and its body
// are returned whatever the status, and callers turn an error status into
// an *APIError with classify.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := codec.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("rest: encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("rest: build request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("rest transport failure")
		return nil, nil, ErrOffline
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, ErrOffline
	}
	return resp, data, nil
}

// classify converts a completed response into an *APIError following the
// status conventions discord.py branches on: 401/400 unauthorized, 413 too
// large, 429 rate limited (with Retry-After from the body), else other.
func classify(resp *http.Response, data []byte) *APIError {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusBadRequest:
		return &APIError{Kind: ErrUnauthorized, Status: resp.StatusCode}
	case http.StatusRequestEntityTooLarge:
		return &APIError{Kind: ErrTooLarge, Status: resp.StatusCode}
	case http.StatusTooManyRequests:
		var payload struct {
			RetryAfter float64 `json:"retry_after"`
		}
		_ = codec.Unmarshal(data, &payload)
		return &APIError{Kind: ErrRateLimited, Status: resp.StatusCode, RetryAfter: payload.RetryAfter}
	default:
		return &APIError{Kind: ErrOther, Status: resp.StatusCode}
	}
}

func ok(status int) bool { return status >= 200 && status < 300 }

// getMyID fetches /users/@me; unauthorized is always fatal regardless of
// caller intent, mirroring discord.py's get_my_id hard SystemExit on 400/401.
func (c *Client) getMyID(ctx context.Context) (string, error) {
	resp, data, err := c.do(ctx, http.MethodGet, "/users/@me", nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return "", &APIError{Kind: ErrUnauthorized, Status: resp.StatusCode}
	}
	if !ok(resp.StatusCode) {
		return "", classify(resp, data)
	}
	var payload struct {
		ID string `json:"id"`
	}
	if err := codec.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("rest: decode /users/@me: %w", err)
	}
	return payload.ID, nil
}

// GenerateNonce produces a Discord-epoch snowflake-shaped nonce, sent as the
// nonce field of outgoing messages.
func GenerateNonce() string {
	ms := time.Now().UnixMilli() - discordEpoch*1000
	return strconv.FormatInt(ms<<22, 10)
}

// MessageReference is attached to replies.
type MessageReference struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id,omitempty"`
	GuildID   string `json:"guild_id,omitempty"`
}

// AttachmentRef references an already-uploaded attachment on message send.
type AttachmentRef struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	UploadedFilename string `json:"uploaded_filename"`
}

// SendMessageParams collects the optional fields send_message branches on.
type SendMessageParams struct {
	ChannelID    string
	Content      string
	ReplyID      string
	ReplyChannel string
	ReplyGuild   string
	ReplyPing    bool
	Attachments  []AttachmentRef
	StickerIDs   []string
}

// Message is the normalized response shape the controller consumes.
type Message struct {
	ID                string          `json:"id"`
	ChannelID         string          `json:"channel_id"`
	Content           string          `json:"content"`
	Nonce             string          `json:"nonce"`
	Timestamp         string          `json:"timestamp"`
	ReferencedMessage *Message        `json:"referenced_message,omitempty"`
	Attachments       []AttachmentRef `json:"-"`
}

// SendMessage posts a new message, switching payload shape when attachments
// are present the way discord.py's send_message does (drops tts/flags, adds
// type/sticker_ids/attachments).
func (c *Client) SendMessage(ctx context.Context, p SendMessageParams) Result[Message] {
	nonce := GenerateNonce()
	var payload map[string]any

	if len(p.Attachments) > 0 {
		payload = map[string]any{
			"content":     p.Content,
			"type":        0,
			"channel_id":  p.ChannelID,
			"sticker_ids": p.StickerIDs,
			"nonce":       nonce,
			"attachments": p.Attachments,
		}
	} else {
		payload = map[string]any{
			"content": p.Content,
			"tts":     "false",
			"flags":   0,
			"nonce":   nonce,
		}
		if len(p.StickerIDs) > 0 {
			payload["sticker_ids"] = p.StickerIDs
		}
	}

	if p.ReplyID != "" {
		payload["message_reference"] = MessageReference{
			MessageID: p.ReplyID,
			ChannelID: p.ReplyChannel,
			GuildID:   p.ReplyGuild,
		}
		payload["allowed_mentions"] = map[string]any{
			"parse":        []string{"users", "roles", "everyone"},
			"replied_user": p.ReplyPing,
		}
	}

	resp, data, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", p.ChannelID), payload)
	if err != nil {
		return Fail[Message](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[Message](classify(resp, data))
	}
	var msg Message
	if err := codec.Unmarshal(data, &msg); err != nil {
		return Fail[Message](fmt.Errorf("rest: decode message: %w", err))
	}
	return Ok(msg)
}

// UpdateMessage edits a message's content (PATCH).
func (c *Client) UpdateMessage(ctx context.Context, channelID, messageID, content string) Result[struct{}] {
	resp, data, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID),
		map[string]any{"content": content})
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusOK {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) Result[struct{}] {
	resp, data, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), nil)
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// SendAck acks a single message; manual=true is a user-initiated "mark read"
// independent of the last_viewed day-bucket the passive reader sends.
func (c *Client) SendAck(ctx context.Context, channelID, messageID string, manual bool) Result[struct{}] {
	var payload map[string]any
	if manual {
		payload = map[string]any{"manual": true}
	} else {
		lastViewed := int64((time.Now().Unix() - discordEpoch) / 86400)
		if (time.Now().Unix()-discordEpoch)%86400 != 0 {
			lastViewed++
		}
		payload = map[string]any{"last_viewed": lastViewed, "token": nil}
	}
	resp, data, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages/%s/ack", channelID, messageID), payload)
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusOK {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// AckEntry is one channel's read-state in a bulk ack.
type AckEntry struct {
	ChannelID     string `json:"channel_id"`
	MessageID     string `json:"message_id"`
	ReadStateType int    `json:"read_state_type"`
}

// SendAckBulk acks many channels in one call, used when catching up after a
// resume so the unread/ack throttler doesn't issue one request per channel.
func (c *Client) SendAckBulk(ctx context.Context, channels []AckEntry) Result[struct{}] {
	for i := range channels {
		channels[i].ReadStateType = 0
	}
	resp, data, err := c.do(ctx, http.MethodPost, "/read-states/ack-bulk", map[string]any{"read_states": channels})
	if err != nil {
		return Fail[struct{}](err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return Fail[struct{}](classify(resp, data))
	}
	return Ok(struct{}{})
}

// SendTyping pokes the typing indicator. A 200 response (rather than the
// usual 204) carries a cooldown the caller should throttle future calls by.
func (c *Client) SendTyping(ctx context.Context, channelID string) Result[time.Duration] {
	resp, data, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/typing", channelID), nil)
	if err != nil {
		return Fail[time.Duration](err)
	}
	switch resp.StatusCode {
	case http.StatusNoContent:
		return Ok[time.Duration](0)
	case http.StatusOK:
		var payload struct {
			MessageSendCooldownMs int64 `json:"message_send_cooldown_ms"`
		}
		if err := codec.Unmarshal(data, &payload); err != nil {
			return Ok[time.Duration](0)
		}
		return Ok(time.Duration(payload.MessageSendCooldownMs) * time.Millisecond)
	default:
		return Fail[time.Duration](classify(resp, data))
	}
}

// User is the profile fields the controller displays.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"`
	Discriminator string `json:"discriminator"`
	Bio           string `json:"bio"`
	Pronouns      string `json:"pronouns"`
}

// GetUser fetches a user's profile, preferring the bio/pronouns override
// carried in the profile payload over the bare user object (discord.py's
// get_user override logic).
func (c *Client) GetUser(ctx context.Context, userID string) Result[User] {
	resp, data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%s/profile", userID), nil)
	if err != nil {
		return Fail[User](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[User](classify(resp, data))
	}
	var payload struct {
		User          User `json:"user"`
		UserProfile   struct {
			Bio      string `json:"bio"`
			Pronouns string `json:"pronouns"`
		} `json:"user_profile"`
	}
	if err := codec.Unmarshal(data, &payload); err != nil {
		return Fail[User](fmt.Errorf("rest: decode profile: %w", err))
	}
	u := payload.User
	if payload.UserProfile.Bio != "" {
		u.Bio = payload.UserProfile.Bio
	}
	if payload.UserProfile.Pronouns != "" {
		u.Pronouns = payload.UserProfile.Pronouns
	}
	return Ok(u)
}

// GetUserGuild fetches a user's per-guild profile (nickname/roles/bio
// override via guild_member_profile), used for member hover cards.
func (c *Client) GetUserGuild(ctx context.Context, guildID, userID string) Result[User] {
	resp, data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s/profile/%s", guildID, userID), nil)
	if err != nil {
		return Fail[User](err)
	}
	if !ok(resp.StatusCode) {
		return Fail[User](classify(resp, data))
	}
	var payload struct {
		User               User `json:"user"`
		GuildMemberProfile struct {
			Bio      string `json:"bio"`
			Pronouns string `json:"pronouns"`
		} `json:"guild_member_profile"`
	}
	if err := codec.Unmarshal(data, &payload); err != nil {
		return Fail[User](fmt.Errorf("rest: decode guild profile: %w", err))
	}
	u := payload.User
	if payload.GuildMemberProfile.Bio != "" {
		u.Bio = payload.GuildMemberProfile.Bio
	}
	if payload.GuildMemberProfile.Pronouns != "" {
		u.Pronouns = payload.GuildMemberProfile.Pronouns
	}
	return Ok(u)
}
