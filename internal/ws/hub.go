// Package ws provides the engine's local control-plane push hub: a
// gorilla/websocket server that a companion terminal-renderer process
// subscribes to for status and log events. This is distinct from the two
// Discord-protocol WebSocket connections (main gateway, voice gateway),
// which stay on coder/websocket per internal/gateway and internal/voice.
package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// MessageType represents the type of WebSocket message.
type MessageType string

const (
	TypeStatus        MessageType = "status"
	TypeLog           MessageType = "log"
	TypeConfigChanged MessageType = "config_changed"
	TypeError         MessageType = "error"
	TypeAction        MessageType = "action"
	TypeSubscribe     MessageType = "subscribe"
	TypeUnsubscribe   MessageType = "unsubscribe"
)

// LogLevel represents log severity levels.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// StatusUpdate is sent to UI clients when the engine's connection state changes.
type StatusUpdate struct {
	Type      MessageType `json:"type"`
	ServerID  string      `json:"server_id,omitempty"`
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// LogMessage is sent to UI clients for log events.
type LogMessage struct {
	Type      MessageType `json:"type"`
	Level     LogLevel    `json:"level"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorMessage is sent to UI clients when an error occurs.
type ErrorMessage struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	ServerID  string      `json:"server_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Error codes for WebSocket error messages.
const (
	ErrCodeGatewayError     = "gateway_error"
	ErrCodeConnectionFailed = "connection_failed"
	ErrCodeAuthFailed       = "auth_failed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInvalidConfig    = "invalid_config"
)

// NewStatusUpdate creates a new status update message.
func NewStatusUpdate(serverID, status, message string) *StatusUpdate {
	return &StatusUpdate{
		Type:      TypeStatus,
		ServerID:  serverID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewLogMessage creates a new log message.
func NewLogMessage(level LogLevel, message string) *LogMessage {
	return &LogMessage{
		Type:      TypeLog,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewErrorMessage creates a new error message.
func NewErrorMessage(code, message, serverID string) *ErrorMessage {
	return &ErrorMessage{
		Type:      TypeError,
		Code:      code,
		Message:   message,
		ServerID:  serverID,
		Timestamp: time.Now(),
	}
}

// LogEntry is a single retained log line, returned by GetLogs.
type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// logBufferSize bounds the in-memory ring of recent log lines kept for
// clients that connect after the fact (GET /api/logs, or a fresh WebSocket
// subscriber that missed earlier pushes).
const logBufferSize = 500

// LogStore persists log lines beyond the hub's in-memory ring, so GET
// /api/logs survives a process restart. Optional — a nil store leaves the
// hub running on the in-memory backlog alone.
type LogStore interface {
	AddLog(level, message string) error
	GetLogs(level string) ([]LogEntry, error)
}

// Hub tracks connected WebSocket clients and fans out status/log/error
// messages to them. It also retains a short in-memory backlog of log lines
// so a newly-opened dashboard isn't staring at a blank pane.
type Hub struct {
	logger   zerolog.Logger
	logStore LogStore

	clients     map[*Client]bool
	clientCount atomic.Int64
	register    chan *Client
	unregister  chan *Client
	broadcast   chan []byte

	logsMu  sync.RWMutex
	logs    []LogEntry
	logHead int

	done chan struct{}
	once sync.Once
}

// NewHub creates a new, unstarted hub. Call Run in its own goroutine to
// begin servicing registrations and broadcasts. logStore may be nil, in
// which case retrieval falls back to the in-memory backlog only.
func NewHub(logger zerolog.Logger, logStore LogStore) *Hub {
	return &Hub{
		logger:     logger.With().Str("component", "ws-hub").Logger(),
		logStore:   logStore,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logs:       make([]LogEntry, 0, logBufferSize),
		done:       make(chan struct{}),
	}
}

// Run services the hub's registration and broadcast channels until Close is
// called. Intended to run in its own goroutine for the lifetime of the process.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.clientCount.Store(0)
			return
		case client := <-h.register:
			h.clients[client] = true
			h.clientCount.Store(int64(len(h.clients)))
			h.logger.Debug().Int("clients", len(h.clients)).Msg("client registered")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.clientCount.Store(int64(len(h.clients)))
				close(client.send)
				h.logger.Debug().Int("clients", len(h.clients)).Msg("client unregistered")
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				client.Send(msg)
			}
		}
	}
}

// Close stops Run and disconnects all clients. Safe to call more than once.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

// Register enqueues a newly-accepted client for tracking by Run.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// unregisterClient enqueues a client for removal; called by Client's pumps
// on disconnect.
func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount reports the number of currently registered clients. Approximate
// under concurrent register/unregister traffic, which is fine for a health
// snapshot.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

func (h *Hub) publish(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal ws message")
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Warn().Msg("broadcast buffer full, dropping message")
	}
}

// BroadcastStatus pushes a status update to every connected client.
func (h *Hub) BroadcastStatus(serverID, status, message string) {
	h.publish(NewStatusUpdate(serverID, status, message))
}

// BroadcastLog pushes a log line to every connected client, retains it in
// the in-memory backlog, and mirrors it to the log store if one is configured.
func (h *Hub) BroadcastLog(level LogLevel, message string) {
	h.publish(NewLogMessage(level, message))

	h.logsMu.Lock()
	entry := LogEntry{Level: string(level), Message: message, Timestamp: time.Now()}
	if len(h.logs) < logBufferSize {
		h.logs = append(h.logs, entry)
	} else {
		h.logs[h.logHead] = entry
		h.logHead = (h.logHead + 1) % logBufferSize
	}
	h.logsMu.Unlock()

	if h.logStore != nil {
		if err := h.logStore.AddLog(string(level), message); err != nil {
			h.logger.Error().Err(err).Msg("failed to persist log entry")
		}
	}
}

// BroadcastError pushes an error message to every connected client.
func (h *Hub) BroadcastError(code, message, serverID string) {
	h.publish(NewErrorMessage(code, message, serverID))
}

// GetLogs returns the retained backlog, oldest first, optionally filtered by
// level ("" returns everything). Prefers the persistent log store when one is
// configured, falling back to the in-memory ring on error.
func (h *Hub) GetLogs(level string) []LogEntry {
	if h.logStore != nil {
		if logs, err := h.logStore.GetLogs(level); err == nil {
			return logs
		} else {
			h.logger.Error().Err(err).Msg("failed to load persisted logs, falling back to in-memory ring")
		}
	}

	h.logsMu.RLock()
	defer h.logsMu.RUnlock()

	ordered := make([]LogEntry, 0, len(h.logs))
	if len(h.logs) == logBufferSize {
		ordered = append(ordered, h.logs[h.logHead:]...)
		ordered = append(ordered, h.logs[:h.logHead]...)
	} else {
		ordered = append(ordered, h.logs...)
	}

	if level == "" {
		return ordered
	}
	filtered := make([]LogEntry, 0, len(ordered))
	for _, entry := range ordered {
		if entry.Level == level {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}
