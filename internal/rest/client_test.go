package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeJSON(t *testing.T, r *http.Request, v any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
}

func TestGetMyIDUnauthorizedIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newForTesting(server.URL, "")
	_, err := c.getMyID(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Kind != ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized, got %v", apiErr.Kind)
	}
}

func TestGetMyIDSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"123456"}`))
	}))
	defer server.Close()

	c := newForTesting(server.URL, "")
	id, err := c.getMyID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "123456" {
		t.Errorf("got id %q, want 123456", id)
	}
}

func TestSendMessagePlain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Write([]byte(`{"id":"1","channel_id":"2","content":"hi"}`))
	}))
	defer server.Close()

	c := newForTesting(server.URL, "self")
	res := c.SendMessage(context.Background(), SendMessageParams{ChannelID: "2", Content: "hi"})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Value.Content != "hi" {
		t.Errorf("got content %q", res.Value.Content)
	}
}

func TestSendMessageWithReply(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodeJSON(t, r, &body)
		w.Write([]byte(`{"id":"1","channel_id":"2"}`))
	}))
	defer server.Close()

	c := newForTesting(server.URL, "self")
	res := c.SendMessage(context.Background(), SendMessageParams{
		ChannelID: "2", Content: "hi", ReplyID: "99", ReplyChannel: "2", ReplyPing: true,
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if _, ok := body["message_reference"]; !ok {
		t.Error("expected message_reference in payload")
	}
}

func TestSendMessageRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"retry_after":1.5}`))
	}))
	defer server.Close()

	c := newForTesting(server.URL, "self")
	res := c.SendMessage(context.Background(), SendMessageParams{ChannelID: "2", Content: "hi"})
	apiErr, ok := res.Err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", res.Err)
	}
	if apiErr.Kind != ErrRateLimited || apiErr.RetryAfter != 1.5 {
		t.Errorf("got %+v", apiErr)
	}
}

func TestSendTypingCooldown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message_send_cooldown_ms":500}`))
	}))
	defer server.Close()

	c := newForTesting(server.URL, "self")
	res := c.SendTyping(context.Background(), "2")
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Value.Milliseconds() != 500 {
		t.Errorf("got cooldown %v, want 500ms", res.Value)
	}
}

func TestSendAckBulkSetsReadStateType(t *testing.T) {
	var body struct {
		ReadStates []AckEntry `json:"read_states"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodeJSON(t, r, &body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newForTesting(server.URL, "self")
	res := c.SendAckBulk(context.Background(), []AckEntry{{ChannelID: "1", MessageID: "2"}})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(body.ReadStates) != 1 || body.ReadStates[0].ReadStateType != 0 {
		t.Errorf("got %+v", body.ReadStates)
	}
}

func TestOfflineOnTransportFailure(t *testing.T) {
	c := newForTesting("http://127.0.0.1:0", "self")
	res := c.SendTyping(context.Background(), "2")
	if res.Err != ErrOffline {
		t.Errorf("expected ErrOffline, got %v", res.Err)
	}
}
