package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testTokenReconnect = "test-token"

func newTestClient() *Client {
	return NewClient(testTokenReconnect, zerolog.Nop(), nil, Options{})
}

func TestNewReconnector(t *testing.T) {
	client := newTestClient()
	reconnector := NewReconnector(client, zerolog.Nop())

	if reconnector == nil {
		t.Fatal("NewReconnector returned nil")
	}
	if reconnector.client != client {
		t.Error("client not set correctly")
	}
	if reconnector.Attempt() != 0 {
		t.Errorf("expected initial attempt 0, got %d", reconnector.Attempt())
	}
}

func TestReconnectorAttempt(t *testing.T) {
	client := newTestClient()
	reconnector := NewReconnector(client, zerolog.Nop())

	if reconnector.Attempt() != 0 {
		t.Errorf("expected initial attempt 0, got %d", reconnector.Attempt())
	}
}

func TestReconnectorResetAttempts(t *testing.T) {
	client := newTestClient()
	reconnector := NewReconnector(client, zerolog.Nop())

	reconnector.attempt = 5
	reconnector.ResetAttempts()

	if reconnector.Attempt() != 0 {
		t.Errorf("expected attempt after reset to be 0, got %d", reconnector.Attempt())
	}
}

func TestReconnectorStop(t *testing.T) {
	client := newTestClient()
	reconnector := NewReconnector(client, zerolog.Nop())

	// Stop should work without panicking.
	reconnector.Stop()

	if !reconnector.stopped {
		t.Error("expected stopped to be true after Stop()")
	}

	// Double stop should not panic.
	reconnector.Stop()
}

func TestReconnectorStartWithContextCancel(t *testing.T) {
	client := newTestClient()
	reconnector := NewReconnector(client, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		reconnector.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
		// Success - Start returned when context was cancelled.
	case <-time.After(2 * time.Second):
		t.Error("Start did not return when context was cancelled")
	}
}

func TestReconnectorStartWithStop(t *testing.T) {
	client := newTestClient()
	reconnector := NewReconnector(client, zerolog.Nop())

	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		reconnector.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	reconnector.Stop()

	select {
	case <-done:
		// Success - Start returned when stopped.
	case <-time.After(2 * time.Second):
		t.Error("Start did not return when stopped")
	}
}
