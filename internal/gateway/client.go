package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"

	"github.com/discord-terminal/engine/internal/codec"
)

// Gateway connection defaults. GatewayVersion 9 plus zlib-stream transport
// compression is what SPEC_FULL.md §6 requires; DefaultHost is overridable
// per client (Options.Host) to support the proxy-aware, custom-endpoint
// deployments described in §2.3.
const (
	DefaultHost    = "gateway.discord.gg"
	GatewayVersion = 9

	readLimitBytes   = 4 * 1024 * 1024
	telemetryGrace   = 10 * time.Second
	telemetryPeriod  = 30 * time.Minute
	waitOnlineRetry  = 5 * time.Second
	readLoopTimeout  = 75 * time.Second
	disconnectedWait = 5 * time.Second
)

// Client properties rotation to avoid rate limits: Discord rate-limits
// IDENTIFY per token, but different client properties are treated as
// different "devices".
var (
	clientCounter uint64
	osList        = []string{"Windows", "Linux", "Mac OS X", "iOS", "Android"}
	browserList   = []string{"Discord Client", "Chrome", "Firefox", "Safari", "Edge", "Opera", "Brave"}
)

// getClientProperties returns unique OS/Browser/Device for each client.
// With 5 OS x 7 browsers = 35 base combinations, plus a unique device
// suffix past that, properties never repeat across rotations.
func getClientProperties(index int) (os, browser, device string) {
	os = osList[index%len(osList)]
	browser = browserList[(index/len(osList))%len(browserList)]
	if index >= len(osList)*len(browserList) {
		device = fmt.Sprintf("device-%d", index)
	}
	return
}

// Client connection states.
const (
	StateDisconnected = iota
	StateConnecting
	StateConnected
	StateClosed
)

// Common errors.
var (
	ErrNotConnected   = errors.New("not connected to gateway")
	ErrAlreadyClosed  = errors.New("connection already closed")
	ErrFatalClose     = errors.New("fatal close code received")
	ErrInvalidSession = errors.New("session is invalid")
)

// Options configures a Client's transport: a custom gateway host (for
// alternate endpoints) and an optional SOCKS5/HTTP proxy URL, per
// SPEC_FULL.md §2.3's proxy-aware REST/gateway construction.
type Options struct {
	Host     string
	ProxyURL string
}

// Client is a Discord-style Gateway WebSocket client: connect, identify or
// resume, heartbeat, and demultiplex dispatch events into a Queues.
type Client struct {
	token       string
	status      string
	clientIndex int
	opts        Options

	conn  *websocket.Conn
	state int
	mu    sync.RWMutex

	sessionID        string
	sequence         int
	resumeURL        string
	resumeSessionID  string
	resumeSequence   int
	resumeGatewayURL string

	heartbeatInterval time.Duration
	heartbeatTicker   *time.Ticker
	lastHeartbeatAck  time.Time
	heartbeatStop     chan struct{}

	readStop     chan struct{}
	readDone     chan struct{}
	disconnected chan struct{}

	telemetryStop chan struct{}
	connectedAt   time.Time

	inflator *codec.Inflator

	queues *Queues

	fatalMu  sync.Mutex
	fatalErr error

	OnReady       func(sessionID string)
	OnDisconnect  func(code int, reason string)
	OnError       func(err error)
	OnStateChange func(state int)

	logger zerolog.Logger
}

// NewClient creates a new Gateway client bound to queues for dispatch demux.
func NewClient(token string, logger zerolog.Logger, queues *Queues, opts Options) *Client {
	index := int(atomic.AddUint64(&clientCounter, 1) - 1)
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	return &Client{
		token:       token,
		clientIndex: index,
		status:      "online",
		state:       StateDisconnected,
		opts:        opts,
		queues:      queues,
		logger:      logger.With().Str("component", "gateway").Logger(),
	}
}

// SetStatus sets the presence status to use when connecting.
func (c *Client) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// SetResumeData sets session data for attempting to resume on Connect.
func (c *Client) SetResumeData(sessionID string, sequence int, resumeURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeSessionID = sessionID
	c.resumeSequence = sequence
	c.resumeGatewayURL = resumeURL
}

// GetSessionData returns current session data for persistence.
func (c *Client) GetSessionData() (sessionID string, sequence int, resumeURL string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID, c.sequence, c.resumeURL
}

// ClearResumeData clears resume data (call after a failed resume).
func (c *Client) ClearResumeData() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeSessionID = ""
	c.resumeSequence = 0
	c.resumeGatewayURL = ""
}

// Err returns the sticky fatal error captured from a background goroutine,
// if one has occurred; the controller treats a non-nil Err as session-fatal
// per SPEC_FULL.md §5/§7.
func (c *Client) Err() error {
	c.fatalMu.Lock()
	defer c.fatalMu.Unlock()
	return c.fatalErr
}

func (c *Client) setFatal(err error) {
	c.fatalMu.Lock()
	if c.fatalErr == nil {
		c.fatalErr = err
	}
	c.fatalMu.Unlock()
	if c.OnError != nil {
		c.OnError(err)
	}
}

func (c *Client) httpClient() *http.Client {
	if c.opts.ProxyURL == "" {
		return nil
	}
	u, err := url.Parse(c.opts.ProxyURL)
	if err != nil {
		c.logger.Warn().Err(err).Str("proxy_url", c.opts.ProxyURL).Msg("invalid proxy url, connecting direct")
		return nil
	}
	dialer, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to build proxy dialer, connecting direct")
		return nil
	}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		},
	}
	return &http.Client{Transport: transport}
}

// dialOnce attempts a single WebSocket dial; wait_online retries on address
// errors, per §4.1 Failure semantics, happen one level up in Connect.
func (c *Client) dialOnce(ctx context.Context, gatewayURL string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, gatewayURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
		HTTPClient:      c.httpClient(),
	})
	return conn, err
}

// isAddressError reports whether err looks like a DNS/network-unreachable
// failure worth a wait_online retry rather than backoff + reconnect.
func isAddressError(err error) bool {
	var dnsErr *net.DNSError
	var opErr *net.OpError
	return errors.As(err, &dnsErr) || errors.As(err, &opErr)
}

// Connect establishes a connection to the Gateway, retrying address errors
// every waitOnlineRetry (§4.1's wait_online loop) until ctx is cancelled. If
// resume data was set via SetResumeData, it attempts to resume the session.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	resumeURL := c.resumeGatewayURL
	c.mu.Unlock()

	c.notifyStateChange(StateConnecting)

	gatewayURL := fmt.Sprintf("wss://%s/?v=%d&encoding=json&compress=zlib-stream", c.opts.Host, GatewayVersion)
	if resumeURL != "" {
		gatewayURL = fmt.Sprintf("%s/?v=%d&encoding=json&compress=zlib-stream", resumeURL, GatewayVersion)
		c.logger.Info().Str("url", gatewayURL).Msg("resuming gateway session")
	} else {
		c.logger.Info().Str("url", gatewayURL).Msg("connecting to gateway")
	}

	var conn *websocket.Conn
	for {
		var err error
		conn, err = c.dialOnce(ctx, gatewayURL)
		if err == nil {
			break
		}
		if !isAddressError(err) {
			c.setState(StateDisconnected)
			return fmt.Errorf("dial gateway: %w", err)
		}
		c.logger.Warn().Err(err).Dur("retry_in", waitOnlineRetry).Msg("network unreachable, waiting to retry")
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(waitOnlineRetry):
		}
	}

	conn.SetReadLimit(readLimitBytes)

	c.mu.Lock()
	c.conn = conn
	c.heartbeatStop = make(chan struct{})
	c.readStop = make(chan struct{})
	c.readDone = make(chan struct{})
	c.disconnected = make(chan struct{})
	c.telemetryStop = make(chan struct{})
	c.connectedAt = time.Now()
	c.inflator = codec.NewInflator()
	c.mu.Unlock()

	go c.readLoop(ctx)
	go c.telemetryLoop(ctx)

	return nil
}

// Close gracefully closes the Gateway connection.
func (c *Client) Close() error {
	c.mu.Lock()

	if c.state == StateClosed || c.state == StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed

	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	if c.readStop != nil {
		close(c.readStop)
		c.readStop = nil
	}
	if c.telemetryStop != nil {
		close(c.telemetryStop)
		c.telemetryStop = nil
	}

	conn := c.conn
	c.conn = nil
	readDone := c.readDone
	if c.inflator != nil {
		_ = c.inflator.Close()
		c.inflator = nil
	}

	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusGoingAway, "client closing")
	}

	if readDone != nil {
		select {
		case <-readDone:
		case <-time.After(disconnectedWait):
		}
	}

	c.mu.Lock()
	c.disconnected = nil
	c.mu.Unlock()

	c.notifyStateChange(StateClosed)
	return nil
}

// SendIdentify sends the IDENTIFY payload using the client's current status.
func (c *Client) SendIdentify(ctx context.Context) error {
	c.mu.RLock()
	status := c.status
	c.mu.RUnlock()
	if status == "" {
		status = "online"
	}
	return c.SendIdentifyWithStatus(ctx, status)
}

// SendIdentifyWithStatus sends the IDENTIFY payload with a specific status.
func (c *Client) SendIdentifyWithStatus(ctx context.Context, status string) error {
	conn, err := c.conn0()
	if err != nil {
		return err
	}

	os, browser, device := getClientProperties(c.clientIndex)
	identify := struct {
		Op   int          `json:"op"`
		Data IdentifyData `json:"d"`
	}{
		Op: OpIdentify,
		Data: IdentifyData{
			Token:      c.token,
			Properties: IdentifyProperties{OS: os, Browser: browser, Device: device},
			Presence: &PresenceData{
				Status:     status,
				Since:      new(int64),
				Activities: []Activity{},
				AFK:        false,
			},
			Compress: false,
		},
	}

	data, err := codec.Marshal(identify)
	if err != nil {
		return fmt.Errorf("marshal identify: %w", err)
	}

	c.logger.Debug().Str("status", status).Msg("sending identify")
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) sendResume(ctx context.Context) error {
	conn, err := c.conn0()
	if err != nil {
		return err
	}

	c.mu.RLock()
	sessionID := c.resumeSessionID
	seq := c.resumeSequence
	c.mu.RUnlock()

	resume := struct {
		Op   int        `json:"op"`
		Data ResumeData `json:"d"`
	}{
		Op:   OpResume,
		Data: ResumeData{Token: c.token, SessionID: sessionID, Sequence: seq},
	}

	data, err := codec.Marshal(resume)
	if err != nil {
		return fmt.Errorf("marshal resume: %w", err)
	}

	c.logger.Info().Str("session_id", sessionID).Int("sequence", seq).Msg("sending resume")
	return conn.Write(ctx, websocket.MessageText, data)
}

// SendHeartbeat sends a heartbeat to the Gateway.
func (c *Client) SendHeartbeat(ctx context.Context) error {
	conn, err := c.conn0()
	if err != nil {
		return err
	}

	c.mu.RLock()
	seq := c.sequence
	c.mu.RUnlock()

	heartbeat := struct {
		Op   int  `json:"op"`
		Data *int `json:"d"`
	}{Op: OpHeartbeat}
	if seq > 0 {
		heartbeat.Data = &seq
	}

	data, err := codec.Marshal(heartbeat)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}

	c.logger.Debug().Int("sequence", seq).Msg("sending heartbeat")
	return conn.Write(ctx, websocket.MessageText, data)
}

// SendPresenceUpdate updates the client's presence status.
func (c *Client) SendPresenceUpdate(ctx context.Context, status string) error {
	conn, err := c.conn0()
	if err != nil {
		return err
	}

	presence := struct {
		Op   int          `json:"op"`
		Data PresenceData `json:"d"`
	}{
		Op: OpPresenceUpdate,
		Data: PresenceData{
			Since:      nil,
			Activities: []Activity{},
			Status:     status,
			AFK:        false,
		},
	}

	data, err := codec.Marshal(presence)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}

	c.logger.Debug().Str("status", status).Msg("sending presence update")
	return conn.Write(ctx, websocket.MessageText, data)
}

// SendVoiceStateUpdate joins or leaves a voice channel; channelID empty
// disconnects.
func (c *Client) SendVoiceStateUpdate(ctx context.Context, guildID, channelID string, selfMute, selfDeaf bool) error {
	conn, err := c.conn0()
	if err != nil {
		return err
	}

	voiceState := struct {
		Op   int            `json:"op"`
		Data VoiceStateData `json:"d"`
	}{
		Op: OpVoiceStateUpdate,
		Data: VoiceStateData{
			GuildID:  guildID,
			SelfMute: selfMute,
			SelfDeaf: selfDeaf,
		},
	}
	if channelID != "" {
		voiceState.Data.ChannelID = &channelID
	}

	data, err := codec.Marshal(voiceState)
	if err != nil {
		return fmt.Errorf("marshal voice state: %w", err)
	}

	c.logger.Debug().Str("guild_id", guildID).Str("channel_id", channelID).Msg("sending voice state update")
	return conn.Write(ctx, websocket.MessageText, data)
}

// SendSubscription declares per-guild typing/thread/member subscriptions
// (opcode 37), per §4.1 Subscriptions.
func (c *Client) SendSubscription(ctx context.Context, subs map[string]GuildSubscription) error {
	conn, err := c.conn0()
	if err != nil {
		return err
	}

	msg := struct {
		Op   int              `json:"op"`
		Data SubscriptionData `json:"d"`
	}{Op: OpSubscription, Data: SubscriptionData{Subscriptions: subs}}

	data, err := codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}

	c.logger.Debug().Int("guild_count", len(subs)).Msg("sending subscription update")
	return conn.Write(ctx, websocket.MessageText, data)
}

// SendRequestMembers requests guild member chunks (opcode 8). It generates a
// client-side nonce with rs/xid so the corresponding GUILD_MEMBERS_CHUNK
// dispatch can be correlated back to this request, per the glossary entry
// "Nonce (client-side)". The nonce is returned to the caller.
func (c *Client) SendRequestMembers(ctx context.Context, guildID string, userIDs []string, query string, limit int, presences bool) (string, error) {
	conn, err := c.conn0()
	if err != nil {
		return "", err
	}

	nonce := xid.New().String()
	msg := struct {
		Op   int                 `json:"op"`
		Data RequestMembersData `json:"d"`
	}{
		Op: OpRequestMembers,
		Data: RequestMembersData{
			GuildID:   guildID,
			UserIDs:   userIDs,
			Query:     query,
			Limit:     limit,
			Presences: presences,
			Nonce:     nonce,
		},
	}

	data, err := codec.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal request members: %w", err)
	}

	c.logger.Debug().Str("guild_id", guildID).Str("nonce", nonce).Msg("requesting guild members")
	return nonce, conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) conn0() (*websocket.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// telemetryLoop emits opcode 41 session-telemetry heartbeats at a 30-minute
// cadence, starting 10 seconds after connect, per §4.1.
func (c *Client) telemetryLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.setFatal(fmt.Errorf("telemetry loop panic: %v", r))
		}
	}()

	c.mu.RLock()
	stop := c.telemetryStop
	c.mu.RUnlock()

	select {
	case <-stop:
		return
	case <-ctx.Done():
		return
	case <-time.After(telemetryGrace):
	}

	ticker := time.NewTicker(telemetryPeriod)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := int(now.Sub(last).Seconds())
			last = now
			if err := c.sendTimeSpent(ctx, elapsed); err != nil {
				c.logger.Warn().Err(err).Msg("failed to send time-spent telemetry")
			}
		}
	}
}

func (c *Client) sendTimeSpent(ctx context.Context, secondsSinceLastHeartbeat int) error {
	conn, err := c.conn0()
	if err != nil {
		return err
	}

	msg := struct {
		Op   int           `json:"op"`
		Data TimeSpentData `json:"d"`
	}{Op: OpTimeSpent, Data: TimeSpentData{SecondsSinceLastHeartbeat: secondsSinceLastHeartbeat}}

	data, err := codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal time spent: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// readLoop continuously reads messages from the Gateway, feeding each one
// through the per-connection zlib-stream Inflator before decoding.
func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.setFatal(fmt.Errorf("read loop panic: %v", r))
		}

		c.mu.Lock()
		if c.readDone != nil {
			close(c.readDone)
			c.readDone = nil
		}
		if c.heartbeatStop != nil {
			close(c.heartbeatStop)
			c.heartbeatStop = nil
		}
		if c.disconnected != nil {
			close(c.disconnected)
			c.disconnected = nil
		}
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.readStop:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		inflator := c.inflator
		c.mu.RUnlock()
		if conn == nil || inflator == nil {
			return
		}

		readCtx, cancel := context.WithTimeout(ctx, readLoopTimeout)
		_, chunk, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if err := inflator.Feed(chunk); err != nil {
			c.logger.Error().Err(err).Msg("failed to feed zlib-stream inflator")
			c.handleReadError(err)
			return
		}
		raw, err := inflator.Next()
		if err != nil {
			c.logger.Error().Err(err).Msg("failed to inflate gateway message")
			c.handleReadError(err)
			return
		}

		if err := c.handleMessage(ctx, raw); err != nil {
			c.logger.Error().Err(err).Msg("error handling message")
		}
	}
}

// handleMessage processes one decoded Gateway message.
func (c *Client) handleMessage(ctx context.Context, data []byte) error {
	var msg GatewayMessage
	if err := codec.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}

	if msg.Sequence != nil {
		c.mu.Lock()
		c.sequence = *msg.Sequence
		c.mu.Unlock()
	}

	switch msg.Op {
	case OpHello:
		return c.handleHello(ctx, msg.Data)

	case OpDispatch:
		return c.handleDispatch(ctx, msg.Type, msg.Data)

	case OpHeartbeat:
		c.logger.Debug().Msg("received heartbeat request")
		if err := c.SendHeartbeat(ctx); err != nil {
			c.logger.Error().Err(err).Msg("failed to send requested heartbeat")
		}

	case OpHeartbeatAck:
		c.handleHeartbeatAck()

	case OpReconnect:
		c.logger.Info().Msg("received reconnect request")
		c.handleReconnect()

	case OpInvalidSession:
		c.logger.Warn().Msg("received invalid session")
		c.handleInvalidSession(msg.Data)

	default:
		c.logger.Debug().Int("op", msg.Op).Msg("received unhandled opcode")
	}

	return nil
}

func (c *Client) handleHello(ctx context.Context, data []byte) error {
	var hello HelloData
	if err := codec.Unmarshal(data, &hello); err != nil {
		return fmt.Errorf("unmarshal hello: %w", err)
	}

	c.mu.Lock()
	c.heartbeatInterval = time.Duration(hello.HeartbeatInterval) * time.Millisecond
	resumeSessionID := c.resumeSessionID
	c.mu.Unlock()

	c.logger.Info().Int("heartbeat_interval_ms", hello.HeartbeatInterval).Msg("received hello")

	go c.startHeartbeat(ctx)

	if resumeSessionID != "" {
		return c.sendResume(ctx)
	}
	return c.SendIdentify(ctx)
}

// handleDispatch routes dispatch events into Queues, and tracks session
// identity from READY/RESUMED directly on the client.
func (c *Client) handleDispatch(_ context.Context, eventType string, data []byte) error {
	c.logger.Debug().Str("type", eventType).Msg("received dispatch event")

	switch eventType {
	case "READY":
		var ready ReadyData
		if err := codec.Unmarshal(data, &ready); err != nil {
			return fmt.Errorf("unmarshal ready: %w", err)
		}

		c.mu.Lock()
		c.sessionID = ready.SessionID
		c.resumeURL = ready.ResumeURL
		c.state = StateConnected
		c.mu.Unlock()

		c.logger.Info().Str("session_id", ready.SessionID).Msg("gateway session ready")
		c.notifyStateChange(StateConnected)
		if c.OnReady != nil {
			c.OnReady(ready.SessionID)
		}

	case "RESUMED":
		c.mu.Lock()
		c.sessionID = c.resumeSessionID
		c.sequence = c.resumeSequence
		c.state = StateConnected
		sessionID := c.sessionID
		c.mu.Unlock()

		c.logger.Info().Str("session_id", sessionID).Msg("session resumed")
		c.notifyStateChange(StateConnected)
		if c.OnReady != nil {
			c.OnReady(sessionID)
		}
	}

	if c.queues != nil {
		c.queues.Enqueue(eventType, data)
	}

	return nil
}

func (c *Client) handleHeartbeatAck() {
	c.mu.Lock()
	c.lastHeartbeatAck = time.Now()
	c.mu.Unlock()
	c.logger.Debug().Msg("received heartbeat ack")
}

func (c *Client) handleReconnect() {
	if c.OnDisconnect != nil {
		c.OnDisconnect(0, "reconnect requested")
	}
}

func (c *Client) handleInvalidSession(data []byte) {
	var resumable bool
	_ = codec.Unmarshal(data, &resumable)

	if !resumable {
		c.mu.Lock()
		c.sessionID = ""
		c.sequence = 0
		c.resumeSessionID = ""
		c.resumeSequence = 0
		c.resumeGatewayURL = ""
		conn := c.conn
		c.mu.Unlock()
		c.logger.Info().Msg("session invalidated, closing connection to re-identify")

		if c.OnError != nil {
			c.OnError(ErrInvalidSession)
		}

		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "invalid session - will reconnect")
		}
		return
	}

	if c.OnError != nil {
		c.OnError(ErrInvalidSession)
	}
}

func (c *Client) handleReadError(err error) {
	c.logger.Error().Err(err).Msg("read error")

	closeStatus := websocket.CloseStatus(err)
	if closeStatus != -1 {
		c.logger.Info().Int("code", int(closeStatus)).Msg("connection closed")

		if IsFatalCloseCode(int(closeStatus)) {
			c.setFatal(fmt.Errorf("%w: code %d", ErrFatalClose, closeStatus))
		} else if c.OnDisconnect != nil {
			c.OnDisconnect(int(closeStatus), "connection closed")
		}
	} else if c.OnDisconnect != nil {
		c.OnDisconnect(0, err.Error())
	}

	c.setState(StateDisconnected)
}

func (c *Client) startHeartbeat(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.setFatal(fmt.Errorf("heartbeat loop panic: %v", r))
		}
	}()

	c.mu.RLock()
	interval := c.heartbeatInterval
	stopChan := c.heartbeatStop
	c.mu.RUnlock()

	if interval == 0 {
		return
	}

	jitterDuration := randomJitter(interval * 2)
	c.logger.Debug().Dur("jitter", jitterDuration).Msg("waiting before first heartbeat")

	select {
	case <-stopChan:
		return
	case <-ctx.Done():
		return
	case <-time.After(jitterDuration):
	}

	if err := c.SendHeartbeat(ctx); err != nil {
		c.logger.Error().Err(err).Msg("failed to send initial heartbeat")
		return
	}

	c.mu.Lock()
	c.lastHeartbeatAck = time.Now()
	c.heartbeatTicker = time.NewTicker(interval)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.heartbeatTicker != nil {
			c.heartbeatTicker.Stop()
		}
		c.mu.Unlock()
	}()

	for {
		select {
		case <-stopChan:
			return
		case <-ctx.Done():
			return
		case <-c.heartbeatTicker.C:
			c.mu.RLock()
			lastAck := c.lastHeartbeatAck
			c.mu.RUnlock()

			if time.Since(lastAck) > interval*2 {
				c.logger.Warn().Msg("missed heartbeat ack, connection may be dead")
				c.mu.RLock()
				conn := c.conn
				c.mu.RUnlock()
				if conn != nil {
					_ = conn.Close(websocket.StatusProtocolError, "missed heartbeat ack")
				}
				return
			}

			if err := c.SendHeartbeat(ctx); err != nil {
				c.logger.Error().Err(err).Msg("failed to send heartbeat")
				return
			}
		}
	}
}

func (c *Client) setState(state int) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Client) notifyStateChange(state int) {
	if c.OnStateChange != nil {
		c.OnStateChange(state)
	}
}

// State returns the current connection state.
func (c *Client) State() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SessionID returns the current session ID.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Sequence returns the current sequence number.
func (c *Client) Sequence() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sequence
}

// Disconnected returns a channel closed when the connection ends.
func (c *Client) Disconnected() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disconnected
}
