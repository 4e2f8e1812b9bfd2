package voice

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestGateway() *Gateway {
	return &Gateway{
		logger: zerolog.Nop(),
		events: make(chan CallEvent, 32),
		stop:   make(chan struct{}),
	}
}

func TestGatewayStateTransitions(t *testing.T) {
	g := newTestGateway()
	if g.State() != StateDisconnected {
		t.Errorf("expected initial state disconnected, got %v", g.State())
	}
	g.setState(StateConnecting)
	if g.State() != StateConnecting {
		t.Errorf("expected connecting, got %v", g.State())
	}
	g.setState(StateReady)
	if g.State() != StateReady {
		t.Errorf("expected ready, got %v", g.State())
	}
}

func TestGatewayPushEventDropsWhenFull(t *testing.T) {
	g := newTestGateway()
	g.events = make(chan CallEvent, 2)
	for i := 0; i < 5; i++ {
		g.pushEvent(CallEvent{Op: "USER_JOIN"})
	}
	if len(g.events) != 2 {
		t.Errorf("expected events capped at 2, got %d", len(g.events))
	}
}

func TestGatewayDisconnectIdempotent(t *testing.T) {
	g := newTestGateway()
	g.Disconnect()
	g.Disconnect() // must not panic
	if g.State() != StateDisconnected {
		t.Errorf("expected disconnected after Disconnect, got %v", g.State())
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateReady:        "ready",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
