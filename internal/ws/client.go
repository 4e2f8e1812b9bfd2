package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 8192
)

// Client represents a connected WebSocket client.
type Client struct {
	conn       *websocket.Conn
	hub        *Hub
	send       chan []byte
	logger     zerolog.Logger
	subscribed map[string]bool
	mu         sync.RWMutex
}

// NewClient creates a new WebSocket client.
func NewClient(conn *websocket.Conn, hub *Hub, logger zerolog.Logger) *Client {
	return &Client{
		conn:       conn,
		hub:        hub,
		send:       make(chan []byte, 256),
		logger:     logger,
		subscribed: make(map[string]bool),
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub. Exits
// and unregisters on a read error (including a missed pong deadline) or a
// closing peer.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("read error")
			} else {
				c.logger.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection,
// interleaved with keepalive pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("ping error")
				return
			}
		}
	}
}

// handleMessage processes an incoming client message.
func (c *Client) handleMessage(data []byte) {
	var msg struct {
		Type     string `json:"type"`
		Channel  string `json:"channel,omitempty"`
		ServerID string `json:"server_id,omitempty"`
	}

	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Error().Err(err).Msg("failed to parse client message")
		return
	}

	switch MessageType(msg.Type) {
	case TypeSubscribe:
		c.subscribe(msg.Channel)
	case TypeUnsubscribe:
		c.unsubscribe(msg.Channel)
	case TypeAction:
		c.logger.Debug().Msg("action via websocket not supported, use REST API")
	}
}

// subscribe adds a channel subscription.
func (c *Client) subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[channel] = true
}

// unsubscribe removes a channel subscription.
func (c *Client) unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribed, channel)
}

// IsSubscribed checks if the client is subscribed to a channel.
func (c *Client) IsSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscribed[channel]
}

// Send queues a message to be sent to the client. Drops the message if the
// client's buffer is full rather than blocking the hub's broadcast loop.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn().Msg("client send buffer full, dropping message")
	}
}
