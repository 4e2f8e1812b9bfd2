package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewNotifierNilForEmptyURL(t *testing.T) {
	if NewNotifier("", zerolog.Nop()) != nil {
		t.Fatal("expected nil notifier for empty webhook URL")
	}
}

func TestNilNotifierMethodsAreNoops(t *testing.T) {
	var n *Notifier
	n.NotifyFatal("boom")
	n.NotifyReconnecting(1, time.Second)
	n.NotifyResumed()
	n.NotifyRestored()
}

func TestNotifyFatalPostsEmbed(t *testing.T) {
	var got WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json content-type, got %q", ct)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, zerolog.Nop())
	n.NotifyFatal("ErrFatalClose: code 4014")

	if len(got.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(got.Embeds))
	}
	if got.Embeds[0].Color != ColorRed {
		t.Errorf("expected fatal embed to be red, got %#x", got.Embeds[0].Color)
	}
	if len(got.Embeds[0].Fields) != 1 || got.Embeds[0].Fields[0].Value != "ErrFatalClose: code 4014" {
		t.Errorf("expected reason field to carry the error, got %+v", got.Embeds[0].Fields)
	}
}

func TestSendSwallowsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, zerolog.Nop())
	n.NotifyResumed() // must not panic even though the endpoint 500s
}
