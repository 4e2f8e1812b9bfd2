package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/assist"
	"github.com/discord-terminal/engine/internal/gateway"
	"github.com/discord-terminal/engine/internal/state"
)

func TestNotifyIncomingPingsOnDirectMention(t *testing.T) {
	s := state.New(100, false)
	s.SetMyUserData(state.MyUser{ID: "me"})
	var notified []string
	c := &Controller{store: s, logger: zerolog.Nop()}
	c.OnMention(func(channelID, messageID string) {
		notified = append(notified, messageID)
	}, nil)

	c.notifyIncoming(state.Message{
		ID: "1", ChannelID: "c1",
		Mentions: []state.Mention{{ID: "me"}},
	})

	if len(notified) != 1 || notified[0] != "1" {
		t.Fatalf("expected mention notify for message 1, got %v", notified)
	}
	rs := s.ReadState("c1")
	if !rs.HasMention() {
		t.Fatal("expected channel read-state to carry the pending mention")
	}
}

func TestNotifyIncomingSkipsActiveChannel(t *testing.T) {
	s := state.New(100, false)
	s.SetMyUserData(state.MyUser{ID: "me"})
	c := &Controller{store: s, logger: zerolog.Nop(), activeChannelID: "c1"}
	c.notifyIncoming(state.Message{ID: "1", ChannelID: "c1", Mentions: []state.Mention{{ID: "me"}}})

	rs := s.ReadState("c1")
	if rs.HasMention() {
		t.Fatal("active channel should never be pinged")
	}
}

func TestNotifyIncomingAlwaysPingsForDM(t *testing.T) {
	s := state.New(100, false)
	s.SetMyUserData(state.MyUser{ID: "me"})
	c := &Controller{store: s, logger: zerolog.Nop()}
	c.notifyIncoming(state.Message{ID: "1", ChannelID: "dm1"}) // guildID == "", no explicit mention

	rs := s.ReadState("dm1")
	if !rs.HasMention() {
		t.Fatal("DM messages should always ping, per §4.6")
	}
}

func TestRetractMentionUndoesGhostPing(t *testing.T) {
	s := state.New(100, false)
	s.SetMyUserData(state.MyUser{ID: "me"})
	var retracted []string
	c := &Controller{store: s, logger: zerolog.Nop()}
	c.OnMention(func(string, string) {}, func(channelID, messageID string) {
		retracted = append(retracted, messageID)
	})

	c.notifyIncoming(state.Message{ID: "1", ChannelID: "dm1"})
	c.retractMention("dm1", "1")

	if len(retracted) != 1 || retracted[0] != "1" {
		t.Fatalf("expected retraction of message 1, got %v", retracted)
	}
	if s.ReadState("dm1").HasMention() {
		t.Fatal("mention should have been removed from read state")
	}
}

func TestRetractMentionNoopWhenNeverPinged(t *testing.T) {
	s := state.New(100, false)
	var retracted []string
	c := &Controller{store: s, logger: zerolog.Nop()}
	c.OnMention(nil, func(channelID, messageID string) {
		retracted = append(retracted, messageID)
	})

	c.retractMention("dm1", "does-not-exist")

	if len(retracted) != 0 {
		t.Fatalf("expected no retraction callback, got %v", retracted)
	}
}

func TestChannelPermissionAlwaysPermitsDMs(t *testing.T) {
	c := &Controller{logger: zerolog.Nop()}
	p := c.channelPermission("", "any-channel")
	if !p.Permitted || !p.AllowWrite || !p.AllowAttach {
		t.Fatalf("expected fully-permitted DM channel, got %+v", p)
	}
}

func TestTickSlowmodeDecrementsAndExpires(t *testing.T) {
	c := &Controller{
		logger:            zerolog.Nop(),
		slowmodeRemaining: make(map[string]int),
	}
	c.SetSlowmode("c1", 5)
	c.lastSlowmodeTick = c.lastSlowmodeTick.Add(-2 * time.Second)
	c.tickSlowmode()
	if remaining := c.SlowmodeRemaining("c1"); remaining != 3 {
		t.Fatalf("expected 3s remaining after a 2s tick, got %d", remaining)
	}

	c.lastSlowmodeTick = c.lastSlowmodeTick.Add(-10 * time.Second)
	c.tickSlowmode()
	if remaining := c.SlowmodeRemaining("c1"); remaining != 0 {
		t.Fatalf("expected countdown to clear once it reaches zero, got %d", remaining)
	}
}

func TestResizeIsPickedUpByNextTick(t *testing.T) {
	s := state.New(100, false)
	regenerated := false
	c := New(s, nil, gateway.NewQueues(nil), nil, 100, zerolog.Nop())
	c.OnViewRegen(func() { regenerated = true })

	c.Resize()
	if regenerated {
		t.Fatal("resize should not regenerate before Tick runs its resize step")
	}

	c.Tick(context.Background())
	if !regenerated {
		t.Fatal("expected view regen once Tick consumes the pending resize")
	}
	if c.resizePending {
		t.Fatal("expected resizePending to be cleared after Tick")
	}
}

func TestRequestAssistResolvesOnPoll(t *testing.T) {
	s := state.New(100, false)
	s.AddGuild(state.Guild{
		ID:       "g1",
		Owned:    true,
		Channels: []state.Channel{{ID: "general", GuildID: "g1", Name: "general", Type: 0}},
	}, false)
	c := New(s, nil, gateway.NewQueues(nil), nil, 100, zerolog.Nop())
	c.activeGuildID = "g1"
	c.invalidatePermissions("g1")

	var gotLabels []string
	c.OnAssistResult(func(results []assist.Result) {
		for _, r := range results {
			gotLabels = append(gotLabels, r.Label)
		}
	})

	c.RequestAssist(assistKindChannel, "gen")
	c.pollAssist()

	if c.pendingAssist != nil {
		t.Fatal("expected pending assist query to be cleared after poll")
	}
	if len(gotLabels) != 1 || gotLabels[0] != "general" {
		t.Fatalf("expected the general channel to match \"gen\", got %v", gotLabels)
	}
}

func TestApplyGuildCreateHydratesStore(t *testing.T) {
	s := state.New(100, false)
	s.SetMyUserData(state.MyUser{ID: "me"})
	c := New(s, nil, gateway.NewQueues(nil), nil, 100, zerolog.Nop())

	payload := []byte(`{
		"id": "g1",
		"name": "Test Guild",
		"owner_id": "me",
		"member_count": 2,
		"features": ["COMMUNITY"],
		"channels": [
			{"id": "c1", "guild_id": "g1", "type": 0, "name": "general", "position": 0}
		],
		"roles": [
			{"id": "g1", "name": "@everyone", "permissions": "104324673"}
		]
	}`)
	c.applyEvent(gateway.Event{Kind: gateway.EventGuild, Type: "GUILD_CREATE", Data: json.RawMessage(payload)})

	g, ok := s.Guild("g1")
	if !ok {
		t.Fatal("expected guild g1 to be hydrated")
	}
	if !g.Owned {
		t.Fatal("expected guild owned by the local user")
	}
	if !g.Community {
		t.Fatal("expected COMMUNITY feature to set Community=true")
	}
	if len(g.Channels) != 1 || g.Channels[0].ID != "c1" {
		t.Fatalf("expected channel c1 to be present, got %+v", g.Channels)
	}
}

func TestApplyGuildDeleteRemovesGuild(t *testing.T) {
	s := state.New(100, false)
	s.AddGuild(state.Guild{ID: "g1", Name: "g"}, false)
	c := New(s, nil, gateway.NewQueues(nil), nil, 100, zerolog.Nop())

	c.applyEvent(gateway.Event{Kind: gateway.EventGuild, Type: "GUILD_DELETE", Data: json.RawMessage(`{"id":"g1"}`)})

	if _, ok := s.Guild("g1"); ok {
		t.Fatal("expected guild g1 to be removed")
	}
}

func TestApplyPresenceUpdatePatchesCachedMember(t *testing.T) {
	s := state.New(100, false)
	s.SyncMemberList("g1", []state.MemberActivity{{ID: "u1", Status: "offline"}})
	c := New(s, nil, gateway.NewQueues(nil), nil, 100, zerolog.Nop())

	payload := `{"guild_id":"g1","status":"online","user":{"id":"u1"}}`
	c.applyEvent(gateway.Event{Kind: gateway.EventPresence, Type: "PRESENCE_UPDATE", Data: json.RawMessage(payload)})

	act := s.Activities("g1")
	if len(act.Members) != 1 || act.Members[0].Status != "online" {
		t.Fatalf("expected u1's status updated to online, got %+v", act.Members)
	}
}

func TestApplyCallCreateAndDelete(t *testing.T) {
	s := state.New(100, false)
	c := New(s, nil, gateway.NewQueues(nil), nil, 100, zerolog.Nop())

	c.applyEvent(gateway.Event{Kind: gateway.EventCall, Type: "CALL_CREATE", Data: json.RawMessage(`{"channel_id":"dm1","ringing":["u1","u2"]}`)})
	call, ok := s.Call("dm1")
	if !ok || len(call.Participants) != 2 {
		t.Fatalf("expected a ringing call with 2 participants, got %+v (ok=%v)", call, ok)
	}

	c.applyEvent(gateway.Event{Kind: gateway.EventCall, Type: "CALL_DELETE", Data: json.RawMessage(`{"channel_id":"dm1"}`)})
	if _, ok := s.Call("dm1"); ok {
		t.Fatal("expected call removed after CALL_DELETE")
	}
}
