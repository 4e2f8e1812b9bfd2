// Package webhook provides a Discord webhook notification sink for the
// engine's own gateway session transitions (§2.3), an optional secondary
// channel alongside the extra-line user-visible message described in §7.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier sends Discord webhook notifications.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

// Embed represents a Discord embed object.
type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// Field represents a Discord embed field.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// WebhookPayload represents a Discord webhook message.
type WebhookPayload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Content   string  `json:"content,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty"`
}

// Colors for different notification types.
const (
	ColorRed    = 0xFF0000 // Fatal
	ColorGreen  = 0x00FF00 // Resumed/restored
	ColorYellow = 0xFFFF00 // Reconnecting
)

// Webhook identity.
const WebhookUsername = "Engine Session Monitor"

// Field names.
const FieldReason = "Reason"

// NewNotifier creates a new webhook notifier.
// Returns nil if webhookURL is empty.
func NewNotifier(webhookURL string, logger zerolog.Logger) *Notifier {
	if webhookURL == "" {
		return nil
	}
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "webhook").Logger(),
	}
}

// NotifyFatal sends a notification when the gateway session dies with a
// non-recoverable close code and is not reconnected; the process itself
// keeps running, §7.
func (n *Notifier) NotifyFatal(reason string) {
	if n == nil {
		return
	}
	n.send(Embed{
		Title:       "🔴 Session Fatal",
		Description: "The gateway session has failed and will not be reconnected.",
		Color:       ColorRed,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields:      []Field{{Name: FieldReason, Value: reason}},
	})
}

// NotifyReconnecting sends a notification when the gateway client begins a
// reconnect attempt after a recoverable disconnect.
func (n *Notifier) NotifyReconnecting(attempt int, delay time.Duration) {
	if n == nil {
		return
	}
	n.send(Embed{
		Title:       "🟡 Reconnecting",
		Description: fmt.Sprintf("Attempting to reconnect (attempt #%d)", attempt),
		Color:       ColorYellow,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields:      []Field{{Name: "Retry In", Value: delay.Round(time.Second).String()}},
	})
}

// NotifyResumed sends a notification when a RESUME completes and the
// session's prior state carried over with no gap.
func (n *Notifier) NotifyResumed() {
	if n == nil {
		return
	}
	n.send(Embed{
		Title:       "🟢 Session Resumed",
		Description: "The gateway session resumed with no state loss.",
		Color:       ColorGreen,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// NotifyRestored sends a notification when the engine reconnects with a
// fresh session (a RESUME was rejected or never attempted) and the local
// state store has finished rehydrating from a new READY.
func (n *Notifier) NotifyRestored() {
	if n == nil {
		return
	}
	n.send(Embed{
		Title:       "🟢 Session Restored",
		Description: "A new gateway session was established and local state was rehydrated.",
		Color:       ColorGreen,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// send sends the webhook payload to Discord.
func (n *Notifier) send(embed Embed) {
	payload := WebhookPayload{
		Username: WebhookUsername,
		Embeds:   []Embed{embed},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error().Err(err).Msg("marshal webhook payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		n.logger.Error().Err(err).Msg("create webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error().Err(err).Msg("send webhook")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.Error().Int("status", resp.StatusCode).Msg("webhook returned error")
		return
	}

	n.logger.Debug().Msg("webhook sent")
}
