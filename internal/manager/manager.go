package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/assist"
	"github.com/discord-terminal/engine/internal/config"
	"github.com/discord-terminal/engine/internal/controller"
	"github.com/discord-terminal/engine/internal/gateway"
	"github.com/discord-terminal/engine/internal/rest"
	"github.com/discord-terminal/engine/internal/state"
	"github.com/discord-terminal/engine/internal/voice"
	"github.com/discord-terminal/engine/internal/webhook"
)

// Common errors.
var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// selfSessionKey is the fixed key this single-account engine saves its
// resume data under; SessionStore's schema still shapes keys by
// server/account id, a holdover from the teacher's multi-session storage.
const selfSessionKey = "self"

// SessionStore persists gateway resume data (session id, sequence, resume
// url) across restarts so the engine can RESUME instead of re-IDENTIFYing.
// store.Postgres satisfies this directly; file-only installs omit it.
type SessionStore interface {
	SaveSession(state config.SessionState) error
	LoadSession(serverID string) (*config.SessionState, error)
	DeleteSession(serverID string) error
	UpdateSessionSequence(serverID string, sequence int) error
}

// Manager owns the engine's single gateway session, its REST counterpart,
// the controller that drains both, and an optional voice sub-session.
// Reconnect/backoff is delegated entirely to gateway.Reconnector rather
// than reimplemented here, unlike the teacher's home-grown retry loop.
type Manager struct {
	token    string
	proxyURL string
	props    rest.ClientProperties
	status   string

	chatBufferCap int
	keepDeleted   bool

	configStore  config.ConfigStore
	sessionStore SessionStore
	webhook      *webhook.Notifier
	logger       zerolog.Logger

	mu          sync.Mutex
	state       *SessionState
	store       *state.Store
	gw          *gateway.Client
	queues      *gateway.Queues
	restClient  *rest.Client
	ctl         *controller.Controller
	reconnector *gateway.Reconnector

	voiceMu sync.Mutex
	voiceGW *voice.Gateway
	player  *voice.Player

	onStatusChange                    func(status ConnectionStatus, message string)
	onMentionNotify, onMentionRetract func(channelID, messageID string)
	onViewRegen                       func()
	onAssistResult                    func(results []assist.Result)

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Manager for a single Discord account. sessionStore may be
// nil, in which case every start performs a fresh IDENTIFY.
func New(token, proxyURL string, props rest.ClientProperties, configStore config.ConfigStore, sessionStore SessionStore, chatBufferCap int, keepDeleted bool, webhookNotifier *webhook.Notifier, logger zerolog.Logger) *Manager {
	return &Manager{
		token:         token,
		proxyURL:      proxyURL,
		props:         props,
		status:        "online",
		chatBufferCap: chatBufferCap,
		keepDeleted:   keepDeleted,
		configStore:   configStore,
		sessionStore:  sessionStore,
		webhook:       webhookNotifier,
		logger:        logger.With().Str("component", "manager").Logger(),
		state:         NewSessionState(),
	}
}

// OnStatusChange sets the callback fired whenever the session's connection
// status changes, for a companion UI/hub to broadcast. Must be called
// before Start.
func (m *Manager) OnStatusChange(fn func(status ConnectionStatus, message string)) {
	m.onStatusChange = fn
}

// OnMention wires the controller's unread/ping notify+retract hooks. Must
// be called before Start.
func (m *Manager) OnMention(notify, retract func(channelID, messageID string)) {
	m.onMentionNotify = notify
	m.onMentionRetract = retract
}

// OnViewRegen wires the controller's view-invalidation hook. Must be called
// before Start.
func (m *Manager) OnViewRegen(fn func()) {
	m.onViewRegen = fn
}

// OnAssistResult wires the controller's assist/autocomplete result hook.
// Must be called before Start.
func (m *Manager) OnAssistResult(fn func(results []assist.Result)) {
	m.onAssistResult = fn
}

// Store returns the state store backing the active session, once Start has
// been called.
func (m *Manager) Store() *state.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

// Controller returns the running controller, once Start has been called.
func (m *Manager) Controller() *controller.Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctl
}

// Status returns a snapshot of the current session state.
func (m *Manager) Status() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

// Start connects the gateway session (resuming from saved session data when
// available), wires the controller, and begins its tick loop. It returns
// once the initial connection attempt (or its immediate failure) completes;
// subsequent disconnects are handled by the reconnector in the background.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.gw != nil {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}

	cfg, err := m.configStore.Load()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if cfg.Status != "" {
		m.status = string(cfg.Status)
	}

	m.ctx, m.cancel = context.WithCancel(ctx)

	m.store = state.New(m.chatBufferCap, m.keepDeleted)
	m.queues = gateway.NewQueues(m.overflow)
	m.gw = gateway.NewClient(m.token, m.logger, m.queues, gateway.Options{ProxyURL: m.proxyURL})
	m.gw.SetStatus(m.status)

	if m.sessionStore != nil {
		if saved, err := m.sessionStore.LoadSession(selfSessionKey); err == nil && saved != nil && saved.SessionID != "" {
			m.gw.SetResumeData(saved.SessionID, saved.Sequence, saved.ResumeURL)
		}
	}

	restClient, err := rest.New(m.ctx, m.token, m.proxyURL, m.props, m.logger)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.restClient = restClient

	m.ctl = controller.New(m.store, m.gw, m.queues, m.restClient, m.chatBufferCap, m.logger)
	if m.onMentionNotify != nil || m.onMentionRetract != nil {
		m.ctl.OnMention(m.onMentionNotify, m.onMentionRetract)
	}
	if m.onViewRegen != nil {
		m.ctl.OnViewRegen(m.onViewRegen)
	}
	if m.onAssistResult != nil {
		m.ctl.OnAssistResult(m.onAssistResult)
	}
	m.ctl.JoinVoice = m.joinVoice

	m.reconnector = gateway.NewReconnector(m.gw, m.logger)

	m.gw.OnReady = m.handleReady
	m.gw.OnDisconnect = m.handleDisconnect
	m.gw.OnError = m.handleError

	m.state.MarkConnecting()
	m.mu.Unlock()

	m.notifyStatus(StatusConnecting, "connecting")

	go m.ctl.Run(m.ctx)

	if err := m.gw.Connect(m.ctx); err != nil {
		m.mu.Lock()
		m.state.MarkError(err.Error())
		m.mu.Unlock()
		m.notifyStatus(StatusError, err.Error())
		go m.scheduleReconnect()
		return err
	}

	go m.watchDisconnect()

	return nil
}

// Stop tears down the gateway session, any active voice call, and stops the
// reconnector.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	reconnector := m.reconnector
	gw := m.gw
	m.state.MarkDisconnected()
	m.mu.Unlock()

	m.teardownVoice()

	if reconnector != nil {
		reconnector.Stop()
	}
	if gw != nil {
		gw.Close()
	}
	m.notifyStatus(StatusDisconnected, "stopped")
}

// watchDisconnect waits for the gateway to report disconnection and hands
// off to the reconnector, unless the session ended for good (ctx cancelled
// or a fatal close code).
func (m *Manager) watchDisconnect() {
	m.mu.Lock()
	gw := m.gw
	ctx := m.ctx
	m.mu.Unlock()
	if gw == nil {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-gw.Disconnected():
	}

	if ctx.Err() != nil {
		return
	}
	if errors.Is(gw.Err(), gateway.ErrFatalClose) {
		return
	}
	m.scheduleReconnect()
}

// scheduleReconnect runs the reconnector's retry loop to completion (it
// only returns on success, ctx cancellation, or an explicit Stop) and, on
// success, resumes watching for the next disconnect.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	reconnector := m.reconnector
	ctx := m.ctx
	m.state.MarkBackoff()
	attempt := reconnector.Attempt() + 1
	m.mu.Unlock()

	m.notifyStatus(StatusBackoff, "reconnecting")
	m.webhook.NotifyReconnecting(attempt, gateway.CalculateBackoff(attempt-1))

	reconnector.Start(ctx)

	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	connected := m.gw.State() == gateway.StateConnected
	m.mu.Unlock()
	if connected {
		go m.watchDisconnect()
	}
}

// handleReady persists resume data and tells the webhook sink whether this
// was a RESUME (no state loss) or a fresh session (state rehydrates from
// READY/READY_SUPPLEMENTAL).
func (m *Manager) handleReady(sessionID string) {
	m.mu.Lock()
	wasResume := m.state.SessionID != "" && m.state.SessionID == sessionID
	m.state.MarkConnected(sessionID)
	m.mu.Unlock()

	m.persistSession()
	m.notifyStatus(StatusConnected, "connected")

	if wasResume {
		m.webhook.NotifyResumed()
	} else {
		m.webhook.NotifyRestored()
	}
}

func (m *Manager) handleDisconnect(_ int, reason string) {
	m.mu.Lock()
	m.state.MarkError(reason)
	m.mu.Unlock()
	m.notifyStatus(StatusError, reason)
}

func (m *Manager) handleError(err error) {
	m.mu.Lock()
	m.state.MarkError(err.Error())
	m.mu.Unlock()
	m.notifyStatus(StatusError, err.Error())

	if errors.Is(err, gateway.ErrFatalClose) {
		m.logger.Error().Err(err).Msg("fatal gateway error, giving up")
		m.webhook.NotifyFatal(err.Error())
	}
}

// persistSession mirrors the gateway's current resume data out to the
// session store, when one is configured.
func (m *Manager) persistSession() {
	if m.sessionStore == nil {
		return
	}
	m.mu.Lock()
	sessionID, sequence, resumeURL := m.gw.GetSessionData()
	m.mu.Unlock()

	_ = m.sessionStore.SaveSession(config.SessionState{
		ServerID:  selfSessionKey,
		SessionID: sessionID,
		Sequence:  sequence,
		ResumeURL: resumeURL,
	})
}

// overflow is invoked by the gateway's event queues when one fills up; the
// session is no longer trustworthy, so a reconnect rehydrates state from a
// fresh READY rather than risk the controller operating on a stale view.
func (m *Manager) overflow() {
	m.logger.Warn().Msg("event queue overflow, forcing reconnect to rehydrate state")
	m.mu.Lock()
	gw := m.gw
	m.mu.Unlock()
	if gw != nil {
		gw.Close()
	}
}

// joinVoice dials the voice signalling gateway for a call and starts
// draining its decoded audio into the default output device. Wired to
// controller.Controller.JoinVoice.
func (m *Manager) joinVoice(ctx context.Context, data voice.ServerData) {
	m.teardownVoice()

	myID := m.Store().MyID()
	gw, err := voice.New(ctx, data, myID, m.logger)
	if err != nil {
		m.logger.Error().Err(err).Str("guild_id", data.GuildID).Msg("join voice failed")
		return
	}

	player, err := voice.NewPlayer(m.logger)
	if err != nil {
		m.logger.Error().Err(err).Msg("open audio output failed")
		gw.Disconnect()
		return
	}

	m.voiceMu.Lock()
	m.voiceGW = gw
	m.player = player
	m.voiceMu.Unlock()

	m.mu.Lock()
	m.state.InVoiceCall = true
	m.mu.Unlock()

	go m.drainVoiceFrames(gw, player)
}

// drainVoiceFrames waits for the call's media handler to come up (latched
// on SESSION_DESCRIPTION) and then blocks, feeding decoded frames to the
// output device until the call ends or the player is closed.
func (m *Manager) drainVoiceFrames(gw *voice.Gateway, player *voice.Player) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if frames := gw.Frames(); frames != nil {
			player.Run(frames)
			return
		}
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// LeaveVoice ends the active voice call: sends a voice-state-update with no
// channel, waits briefly for the gateway's echo, then tears down the UDP
// socket, media handler, and voice WebSocket (§4.5).
func (m *Manager) LeaveVoice(ctx context.Context, guildID string) error {
	m.mu.Lock()
	gw := m.gw
	m.mu.Unlock()
	if gw == nil {
		return ErrNotConnected
	}

	if err := gw.SendVoiceStateUpdate(ctx, guildID, "", false, false); err != nil {
		return err
	}
	time.Sleep(250 * time.Millisecond)

	m.teardownVoice()
	return nil
}

func (m *Manager) teardownVoice() {
	m.voiceMu.Lock()
	player := m.player
	voiceGW := m.voiceGW
	m.player = nil
	m.voiceGW = nil
	m.voiceMu.Unlock()

	if player != nil {
		player.Close()
	}
	if voiceGW != nil {
		voiceGW.Disconnect()
	}

	m.mu.Lock()
	m.state.InVoiceCall = false
	m.mu.Unlock()
}

// notifyStatus calls the status-change callback, if one is wired.
func (m *Manager) notifyStatus(status ConnectionStatus, message string) {
	if m.onStatusChange != nil {
		m.onStatusChange(status, message)
	}
}
