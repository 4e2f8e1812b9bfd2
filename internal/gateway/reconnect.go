package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reconnector is the gateway's thread-guard loop (SPEC_FULL.md §5): it
// schedules a reconnect whenever the client reports disconnection and no
// reconnect is already in flight, backing off between attempts. Unlike the
// teacher's presence-daemon reconnector it never gives up on its own --
// fatal close codes are the only thing that stops it, surfaced through
// client.OnError with ErrFatalClose, which the caller (manager) uses to
// decide whether to Stop the reconnector.
type Reconnector struct {
	client *Client
	logger zerolog.Logger

	attempt  int
	stopChan chan struct{}
	stopped  bool
}

// NewReconnector creates a reconnector for client.
func NewReconnector(client *Client, logger zerolog.Logger) *Reconnector {
	return &Reconnector{
		client:   client,
		logger:   logger.With().Str("component", "reconnector").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start runs the reconnect loop until ctx is cancelled or Stop is called.
func (r *Reconnector) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		default:
		}

		delay := CalculateBackoff(r.attempt)
		r.logger.Info().Int("attempt", r.attempt+1).Dur("delay", delay).Msg("waiting before reconnect attempt")

		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-time.After(delay):
		}

		r.logger.Info().Int("attempt", r.attempt+1).Msg("attempting to reconnect")
		if err := r.client.Connect(ctx); err != nil {
			r.logger.Error().Err(err).Int("attempt", r.attempt+1).Msg("reconnect failed")
			r.attempt++
			continue
		}

		r.logger.Info().Msg("reconnect successful")
		r.attempt = 0
		return
	}
}

// Stop halts the reconnect loop.
func (r *Reconnector) Stop() {
	if !r.stopped {
		r.stopped = true
		close(r.stopChan)
	}
}

// ResetAttempts resets the attempt counter, called on a successful connect.
func (r *Reconnector) ResetAttempts() {
	r.attempt = 0
}

// Attempt returns the current attempt count.
func (r *Reconnector) Attempt() int {
	return r.attempt
}
