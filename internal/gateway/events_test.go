package gateway

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestDispatchKind(t *testing.T) {
	tests := []struct {
		eventType string
		want      EventKind
	}{
		{"MESSAGE_CREATE", EventMessage},
		{"MESSAGE_REACTION_ADD", EventMessage},
		{"TYPING_START", EventTyping},
		{"READY_SUPPLEMENTAL", EventSummary},
		{"MESSAGE_ACK", EventAck},
		{"THREAD_CREATE", EventThread},
		{"CALL_CREATE", EventCall},
		{"VOICE_STATE_UPDATE", EventVoice},
		{"PRESENCE_UPDATE", EventPresence},
		{"USER_UPDATE", EventUser},
		{"GUILD_MEMBERS_CHUNK", EventMember},
		{"USER_GUILD_SETTINGS_UPDATE", EventProtoSettings},
		{"GUILD_CREATE", EventGuild},
		{"CHANNEL_UPDATE", EventGuild},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			if got := dispatchKind(tt.eventType); got != tt.want {
				t.Errorf("dispatchKind(%q) = %v, want %v", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestQueuesEnqueueDrainOrder(t *testing.T) {
	q := NewQueues(nil)

	q.Enqueue("GUILD_CREATE", json.RawMessage(`{"id":"1"}`))
	q.Enqueue("MESSAGE_CREATE", json.RawMessage(`{"id":"2"}`))
	q.Enqueue("TYPING_START", json.RawMessage(`{"id":"3"}`))

	var order []EventKind
	q.DrainAll(func(e Event) {
		order = append(order, e.Kind)
	})

	want := []EventKind{EventMessage, EventTyping, EventGuild}
	if len(order) != len(want) {
		t.Fatalf("got %d events, want %d", len(order), len(want))
	}
	for i, k := range want {
		if order[i] != k {
			t.Errorf("event %d: got kind %v, want %v", i, order[i], k)
		}
	}
}

func TestQueuesEnqueueOverflowCallsHandler(t *testing.T) {
	overflowed := false
	q := NewQueues(func() { overflowed = true })

	for i := 0; i < queueCapacity+1; i++ {
		q.Enqueue("MESSAGE_CREATE", json.RawMessage(`{}`))
	}

	if !overflowed {
		t.Error("expected overflow callback to fire once the message queue filled")
	}
}

func TestQueuesDrainEmptyIsNoop(t *testing.T) {
	q := NewQueues(nil)
	called := false
	q.DrainAll(func(Event) { called = true })
	if called {
		t.Error("expected no events drained from empty queues")
	}
}
