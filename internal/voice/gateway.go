// Package voice implements the voice signalling gateway and UDP/RTP media
// path: a second WebSocket per call (distinct from the main gateway),
// IP discovery, AEAD-decrypted Opus playback.
package voice

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/codec"
)

// State mirrors the gateway's own connect/resume state machine, scoped to
// a single call.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	default:
		return "disconnected"
	}
}

const (
	opIdentify           = 0
	opSelectProtocol     = 1
	opReady              = 2
	opHeartbeat          = 3
	opSessionDescription = 4
	opSpeaking           = 5
	opHeartbeatAck       = 6
	opHello              = 8
	opClientConnect      = 11
	opClientDisconnect   = 13
	opSessionUpdate      = 14
)

// ServerData is the VOICE_SERVER_UPDATE + VOICE_STATE_UPDATE pair the main
// gateway hands the controller when a call starts.
type ServerData struct {
	Endpoint  string
	GuildID   string
	ChannelID string
	SessionID string
	Token     string
}

// CallEvent is a user join/leave/speaking notification surfaced to the
// controller's in-call roster.
type CallEvent struct {
	Op       string // "USER_JOIN", "USER_LEAVE", "USER_SPEAKING"
	UserID   string
	Speaking bool
}

// Codec describes one entry offered in SELECT_PROTOCOL; only Opus audio is
// mandatory per the media path's scope.
type Codec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Priority    int    `json:"priority"`
	PayloadType int    `json:"payload_type"`
}

var codecs = []Codec{{Name: "opus", Type: "audio", Priority: 1000, PayloadType: 120}}

// Gateway is one call's voice signalling session.
type Gateway struct {
	data   ServerData
	myID   string
	logger zerolog.Logger

	conn *websocket.Conn

	mu            sync.Mutex
	state         State
	sequence      int
	heartbeatRecv bool

	ssrc        uint32
	serverIP    string
	serverPort  int
	modes       []string
	clientIP    string
	clientPort  uint16

	secretKey       []byte
	mode            codec.VoiceEncryptionMode
	mediaSessionID  string

	udp     *net.UDPConn
	handler *Handler

	events   chan CallEvent
	stop     chan struct{}
	stopOnce sync.Once
}

// New dials the voice gateway, performs IDENTIFY, and starts the
// heartbeat/receive loops. Returns once the WebSocket handshake and HELLO
// are complete; READY/SESSION_DESCRIPTION continue asynchronously.
func New(ctx context.Context, data ServerData, myID string, logger zerolog.Logger) (*Gateway, error) {
	g := &Gateway{
		data:   data,
		myID:   myID,
		logger: logger.With().Str("component", "voice").Logger(),
		events: make(chan CallEvent, 32),
		stop:   make(chan struct{}),
	}

	url := fmt.Sprintf("wss://%s/?v=8", data.Endpoint)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("voice: dial: %w", err)
	}
	conn.SetReadLimit(1 << 20)
	g.conn = conn
	g.setState(StateConnecting)

	_, raw, err := conn.Read(ctx)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("voice: read hello: %w", err)
	}
	var hello struct {
		Op int `json:"op"`
		D  struct {
			HeartbeatInterval int `json:"heartbeat_interval"`
		} `json:"d"`
	}
	if err := codec.Unmarshal(raw, &hello); err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("voice: decode hello: %w", err)
	}

	go g.receiveLoop(ctx)
	go g.heartbeatLoop(ctx, time.Duration(hello.D.HeartbeatInterval)*time.Millisecond)

	if err := g.identify(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Gateway) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// State returns the current signalling state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Events returns the channel carrying call join/leave/speaking notices.
func (g *Gateway) Events() <-chan CallEvent { return g.events }

// MediaSessionID returns the session id latched from SESSION_DESCRIPTION,
// used to correlate with the main gateway's activity reporting.
func (g *Gateway) MediaSessionID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mediaSessionID
}

// Frames returns the decoded PCM frame channel of the media handler, or nil
// if SESSION_DESCRIPTION hasn't arrived yet. Callers that want to start
// playback as soon as it's available should poll this (or re-check on the
// next CallEvent) rather than caching a nil result.
func (g *Gateway) Frames() <-chan PCMFrame {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.handler == nil {
		return nil
	}
	return g.handler.Frames()
}

func (g *Gateway) send(ctx context.Context, op int, d any) error {
	payload := map[string]any{"op": op, "d": d}
	raw, err := codec.Marshal(payload)
	if err != nil {
		return err
	}
	return g.conn.Write(ctx, websocket.MessageText, raw)
}

func (g *Gateway) identify(ctx context.Context) error {
	return g.send(ctx, opIdentify, map[string]any{
		"server_id":  g.data.GuildID,
		"channel_id": g.data.ChannelID,
		"user_id":    g.myID,
		"session_id": g.data.SessionID,
		"token":      g.data.Token,
	})
}

func (g *Gateway) selectProtocol(ctx context.Context) error {
	g.mu.Lock()
	mode := string(codec.PreferredModes[0])
	for _, m := range codec.PreferredModes {
		for _, offered := range g.modes {
			if offered == string(m) {
				mode = string(m)
			}
		}
	}
	ip, port := g.clientIP, g.clientPort
	g.mu.Unlock()

	return g.send(ctx, opSelectProtocol, map[string]any{
		"protocol": "udp",
		"data": map[string]any{
			"address": ip,
			"port":    port,
			"mode":    mode,
		},
		"codecs": codecs,
	})
}

// SendSpeaking toggles the speaking indicator; delay is the encoder lookahead
// the server expects for jitter-buffer alignment, 0 when not actively sending.
func (g *Gateway) SendSpeaking(ctx context.Context, speaking bool, delay int) error {
	g.mu.Lock()
	ssrc := g.ssrc
	g.mu.Unlock()
	flag := 0
	if speaking {
		flag = 1
	}
	return g.send(ctx, opSpeaking, map[string]any{
		"speaking": flag,
		"delay":    delay,
		"ssrc":     ssrc,
	})
}

func (g *Gateway) heartbeatLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	jitter := time.Duration(float64(interval) * (0.8 - 0.6*rand.Float64()))
	timer := time.NewTimer(jitter)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stop:
			return
		case <-timer.C:
			g.mu.Lock()
			received := g.heartbeatRecv
			seq := g.sequence
			g.heartbeatRecv = false
			g.mu.Unlock()

			if !received {
				g.logger.Warn().Msg("voice heartbeat ack not received")
				g.Disconnect()
				return
			}
			if err := g.send(ctx, opHeartbeat, map[string]any{
				"t":       time.Now().UnixMilli(),
				"seq_ack": seq,
			}); err != nil {
				g.Disconnect()
				return
			}
			jitter = time.Duration(float64(interval) * (0.8 - 0.6*rand.Float64()))
			timer.Reset(jitter)
		}
	}
}

func (g *Gateway) receiveLoop(ctx context.Context) {
	for {
		_, raw, err := g.conn.Read(ctx)
		if err != nil {
			g.logger.Debug().Err(err).Msg("voice gateway read ended")
			break
		}

		var env struct {
			Op  int             `json:"op"`
			Seq int             `json:"seq"`
			D   json.RawMessage `json:"d"`
		}
		if err := codec.Unmarshal(raw, &env); err != nil {
			continue
		}

		g.mu.Lock()
		if env.Seq > g.sequence {
			g.sequence = env.Seq
		}
		g.mu.Unlock()

		switch env.Op {
		case opHeartbeatAck:
			g.mu.Lock()
			g.heartbeatRecv = true
			g.mu.Unlock()

		case opReady:
			g.handleReady(ctx, env.D)

		case opSessionDescription:
			g.handleSessionDescription(env.D)

		case opSessionUpdate:
			var d struct {
				AudioCodec     string `json:"audio_codec"`
				VideoCodec     string `json:"video_codec"`
				MediaSessionID string `json:"media_session_id"`
			}
			codec.Unmarshal(env.D, &d)
			g.mu.Lock()
			g.mediaSessionID = d.MediaSessionID
			g.mu.Unlock()

		case opClientConnect:
			var d struct {
				UserIDs []string `json:"user_ids"`
			}
			codec.Unmarshal(env.D, &d)
			for _, id := range d.UserIDs {
				g.pushEvent(CallEvent{Op: "USER_JOIN", UserID: id})
			}

		case opClientDisconnect:
			var d struct {
				UserID string `json:"user_id"`
			}
			codec.Unmarshal(env.D, &d)
			g.pushEvent(CallEvent{Op: "USER_LEAVE", UserID: d.UserID})

		case 5: // SPEAKING
			var d struct {
				UserID string `json:"user_id"`
			}
			codec.Unmarshal(env.D, &d)
			g.pushEvent(CallEvent{Op: "USER_SPEAKING", UserID: d.UserID, Speaking: true})
		}
	}
	g.Disconnect()
}

func (g *Gateway) pushEvent(e CallEvent) {
	select {
	case g.events <- e:
	default:
	}
}

func (g *Gateway) handleReady(ctx context.Context, d json.RawMessage) {
	var payload struct {
		SSRC  uint32   `json:"ssrc"`
		IP    string   `json:"ip"`
		Port  int      `json:"port"`
		Modes []string `json:"modes"`
	}
	if err := codec.Unmarshal(d, &payload); err != nil {
		g.logger.Error().Err(err).Msg("decode voice READY")
		return
	}

	g.mu.Lock()
	g.ssrc = payload.SSRC
	g.serverIP = payload.IP
	g.serverPort = payload.Port
	g.modes = payload.Modes
	g.mu.Unlock()

	if err := g.openUDP(); err != nil {
		g.logger.Error().Err(err).Msg("open voice udp socket")
		g.Disconnect()
		return
	}
	if err := g.ipDiscovery(); err != nil {
		g.logger.Error().Err(err).Msg("voice ip discovery")
		g.Disconnect()
		return
	}
	if err := g.selectProtocol(ctx); err != nil {
		g.logger.Error().Err(err).Msg("send select protocol")
	}
}

func (g *Gateway) handleSessionDescription(d json.RawMessage) {
	var payload struct {
		AudioCodec     string `json:"audio_codec"`
		VideoCodec     string `json:"video_codec"`
		MediaSessionID string `json:"media_session_id"`
		Mode           string `json:"mode"`
		SecretKey      []byte `json:"secret_key"`
	}
	if err := codec.Unmarshal(d, &payload); err != nil {
		g.logger.Error().Err(err).Msg("decode session description")
		return
	}

	g.mu.Lock()
	g.secretKey = payload.SecretKey
	g.mode = codec.VoiceEncryptionMode(payload.Mode)
	g.mediaSessionID = payload.MediaSessionID
	g.state = StateReady
	udp := g.udp
	secretKey := g.secretKey
	mode := g.mode
	g.mu.Unlock()

	ctx := context.Background()
	g.SendSpeaking(ctx, false, 0)

	handler := NewHandler(udp, secretKey, mode, g.logger)
	g.mu.Lock()
	g.handler = handler
	g.mu.Unlock()
	handler.Start()
}

const udpTimeout = 10 * time.Second

func (g *Gateway) openUDP() error {
	g.mu.Lock()
	addr := &net.UDPAddr{IP: net.ParseIP(g.serverIP), Port: g.serverPort}
	g.mu.Unlock()

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return err
	}
	conn.SetDeadline(time.Now().Add(udpTimeout))
	g.mu.Lock()
	g.udp = conn
	g.mu.Unlock()
	return nil
}

func (g *Gateway) ipDiscovery() error {
	g.mu.Lock()
	udp := g.udp
	ssrc := g.ssrc
	g.mu.Unlock()

	packet := make([]byte, 74)
	binary.BigEndian.PutUint16(packet[0:2], 1)  // type = request
	binary.BigEndian.PutUint16(packet[2:4], 70) // length
	binary.BigEndian.PutUint32(packet[4:8], ssrc)
	if _, err := udp.Write(packet); err != nil {
		return err
	}

	resp := make([]byte, 74)
	n, err := udp.Read(resp)
	if err != nil {
		return fmt.Errorf("ip discovery timeout: %w", err)
	}
	if n < 74 {
		return fmt.Errorf("invalid ip discovery response: %d bytes", n)
	}
	typ := binary.BigEndian.Uint16(resp[0:2])
	length := binary.BigEndian.Uint16(resp[2:4])
	if typ != 2 || length != 70 {
		return fmt.Errorf("invalid ip discovery response: type=%d length=%d", typ, length)
	}

	ipBytes := resp[8:72]
	end := 0
	for end < len(ipBytes) && ipBytes[end] != 0 {
		end++
	}
	ip := string(ipBytes[:end])
	port := binary.BigEndian.Uint16(resp[72:74])

	g.mu.Lock()
	g.clientIP = ip
	g.clientPort = port
	g.mu.Unlock()
	return nil
}

// SetMute has no effect: the media path is playback only, so there is no
// capture path and no mute flag is recorded.
func (g *Gateway) SetMute(bool) {}

// Disconnect tears down the UDP socket, media handler, and WebSocket. Safe
// to call more than once.
func (g *Gateway) Disconnect() {
	g.stopOnce.Do(func() {
		close(g.stop)
		g.setState(StateDisconnected)

		g.mu.Lock()
		udp := g.udp
		handler := g.handler
		g.mu.Unlock()

		if handler != nil {
			handler.Stop()
		}
		if udp != nil {
			udp.Close()
		}
		if g.conn != nil {
			g.conn.Close(websocket.StatusNormalClosure, "")
		}
	})
}
