package state

import (
	"strconv"
	"testing"
)

func TestAckNeverRegressesAndClampsToLastMessage(t *testing.T) {
	s := New(100, false)
	s.HandleMessageCreate(Message{ID: "100", ChannelID: "c1"})
	s.Ack("c1", "50")
	rs := s.ReadState("c1")
	if rs.LastAckedMessageID != "50" {
		t.Fatalf("expected acked=50, got %s", rs.LastAckedMessageID)
	}
	s.Ack("c1", "30") // must not regress
	rs = s.ReadState("c1")
	if rs.LastAckedMessageID != "50" {
		t.Fatalf("ack regressed: got %s", rs.LastAckedMessageID)
	}
	s.Ack("c1", "100")
	rs = s.ReadState("c1")
	if rs.LastAckedMessageID != rs.LastMessageID {
		t.Fatalf("expected acked == last message, got acked=%s last=%s", rs.LastAckedMessageID, rs.LastMessageID)
	}
	if rs.Unread() {
		t.Fatal("channel should be fully read")
	}
}

func TestMessageBufferBoundedNewestFirst(t *testing.T) {
	s := New(50, false)
	for i := 1; i <= 60; i++ {
		s.HandleMessageCreate(Message{ID: strconv.Itoa(i), ChannelID: "c1"})
	}
	msgs := s.Messages("c1")
	if len(msgs) != 50 {
		t.Fatalf("expected buffer capped at 50, got %d", len(msgs))
	}
	if msgs[0].ID != "60" {
		t.Fatalf("expected newest message first, got %s", msgs[0].ID)
	}
}

func TestMessageDeleteDropsOrKeeps(t *testing.T) {
	sDrop := New(50, false)
	sDrop.HandleMessageCreate(Message{ID: "1", ChannelID: "c1"})
	if !sDrop.HandleMessageDelete("c1", "1") {
		t.Fatal("expected delete to find message")
	}
	if len(sDrop.Messages("c1")) != 0 {
		t.Fatal("expected message dropped when keep-deleted disabled")
	}

	sKeep := New(50, true)
	sKeep.HandleMessageCreate(Message{ID: "1", ChannelID: "c1"})
	sKeep.HandleMessageDelete("c1", "1")
	msgs := sKeep.Messages("c1")
	if len(msgs) != 1 || !msgs[0].Deleted {
		t.Fatal("expected message flagged deleted, not dropped")
	}
	if len(sKeep.DeletedMessages("c1")) != 1 {
		t.Fatal("expected deleted cache to hold the message")
	}
}

func TestReactionAddRemoveCountsAndMeFlag(t *testing.T) {
	s := New(50, false)
	s.SetMyUserData(MyUser{ID: "me"})
	s.HandleMessageCreate(Message{ID: "1", ChannelID: "c1"})

	s.HandleReactionAdd("c1", "1", "😀", "", "me")
	msgs := s.Messages("c1")
	if len(msgs[0].Reactions) != 1 || msgs[0].Reactions[0].Count != 1 || !msgs[0].Reactions[0].Me {
		t.Fatalf("unexpected reaction state: %+v", msgs[0].Reactions)
	}

	s.HandleReactionAdd("c1", "1", "😀", "", "other")
	msgs = s.Messages("c1")
	if msgs[0].Reactions[0].Count != 2 {
		t.Fatalf("expected count 2, got %d", msgs[0].Reactions[0].Count)
	}

	s.HandleReactionRemove("c1", "1", "😀", "", "me")
	msgs = s.Messages("c1")
	if msgs[0].Reactions[0].Count != 1 || msgs[0].Reactions[0].Me {
		t.Fatalf("unexpected reaction state after remove: %+v", msgs[0].Reactions[0])
	}

	s.HandleReactionRemove("c1", "1", "😀", "", "other")
	msgs = s.Messages("c1")
	if len(msgs[0].Reactions) != 0 {
		t.Fatal("expected reaction bucket removed once count reaches zero")
	}
}

func TestMemberRoleCacheFIFOBounded(t *testing.T) {
	s := New(50, false)
	for i := 0; i < memberRoleCacheCap+10; i++ {
		s.AddMemberRoles("g1", strconv.Itoa(i), []string{"r1"})
	}
	count := 0
	for i := 0; i < memberRoleCacheCap+10; i++ {
		if _, ok := s.MemberRoles("g1", strconv.Itoa(i)); ok {
			count++
		}
	}
	if count != memberRoleCacheCap {
		t.Fatalf("expected exactly %d cached members, got %d", memberRoleCacheCap, count)
	}
	if _, ok := s.MemberRoles("g1", strconv.Itoa(0)); ok {
		t.Fatal("expected oldest member evicted FIFO")
	}
	if _, ok := s.MemberRoles("g1", strconv.Itoa(memberRoleCacheCap+9)); !ok {
		t.Fatal("expected newest member still cached")
	}
}

func TestChannelTabCachePinnedExempt(t *testing.T) {
	s := New(50, false)
	for i := 0; i < channelCacheCap+5; i++ {
		ch := strconv.Itoa(i)
		s.HandleMessageCreate(Message{ID: "1", ChannelID: ch})
		if i == 0 {
			s.SnapshotTab(ch)
			s.PinTab(ch, true)
			continue
		}
		s.SnapshotTab(ch)
	}
	if _, ok := s.CachedTab(strconv.Itoa(0)); !ok {
		t.Fatal("expected pinned tab to survive eviction")
	}
}

func TestResolvedHiddenExplicitOverrideWins(t *testing.T) {
	g := Guild{ID: "g1", Community: true, Owned: false, OptInChannels: true}
	category := &Channel{ID: "cat1", Hidden: true}
	ch := Channel{ID: "c1", ParentID: "cat1", Hidden: false}

	if ch.ResolvedHidden(&g, true, category) {
		t.Fatal("explicit override should win over hidden category")
	}
	if !ch.ResolvedHidden(&g, false, category) {
		t.Fatal("expected inherited hidden category to hide the channel")
	}

	g.Owned = true
	if ch.ResolvedHidden(&g, false, category) {
		t.Fatal("owned guilds never hide channels")
	}
}

func TestDeriveDMNameGroupAndOneToOne(t *testing.T) {
	s := New(50, false)
	s.AddDM(DM{
		ID:   "d1",
		Type: 1,
		Recipients: []DMRecipient{
			{ID: "u1", Username: "alice", GlobalName: "Alice"},
		},
	})
	dms := s.DMs()
	if dms[0].Name != "Alice" {
		t.Fatalf("expected 1:1 name 'Alice', got %q", dms[0].Name)
	}

	s.AddDM(DM{
		ID:      "d2",
		Type:    3,
		OwnerID: "u1",
		Recipients: []DMRecipient{
			{ID: "u1", Username: "alice", GlobalName: "Alice"},
			{ID: "u2", Username: "bob", GlobalName: "Bob"},
		},
	})
	dms = s.DMs()
	var group DM
	for _, d := range dms {
		if d.ID == "d2" {
			group = d
		}
	}
	if group.Name != "Alice; Bob" {
		t.Fatalf("expected group name 'Alice; Bob', got %q", group.Name)
	}
}
