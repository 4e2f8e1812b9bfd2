package assist

import "testing"

func TestScoreSingleConsecutiveBeatsGapped(t *testing.T) {
	consecutive := ScoreSingle("abc", "abcxyz")
	gapped := ScoreSingle("abc", "axbxcx")
	if consecutive <= gapped {
		t.Fatalf("expected consecutive match to score higher: consecutive=%d gapped=%d", consecutive, gapped)
	}
}

func TestScoreSingleNoMatchIsZero(t *testing.T) {
	if ScoreSingle("zzz", "abcdef") != 0 {
		t.Fatal("expected no match to score 0")
	}
}

func TestScoreMultiWordRequiresEveryWord(t *testing.T) {
	if Score("general chat", "general-chat-room") == 0 {
		t.Fatal("expected both words to match")
	}
	if Score("general nope", "general-chat-room") != 0 {
		t.Fatal("expected missing word to zero the whole score")
	}
}

func TestTopKCollectorBoundsAndOrdersResults(t *testing.T) {
	c := NewTopKCollector(2, 0)
	c.Offer("low", "1", 5)
	c.Offer("high", "2", 50)
	c.Offer("mid", "3", 20)

	results := c.Results()
	if len(results) != 2 {
		t.Fatalf("expected exactly 2 results, got %d", len(results))
	}
	if results[0].ID != "2" || results[1].ID != "3" {
		t.Fatalf("expected best-first order [2,3], got %+v", results)
	}
}

func TestSearchMembersPrefersNickThenGlobalThenUsername(t *testing.T) {
	members := []Member{
		{ID: "1", Username: "alice_u", GlobalName: "Alice G", Nick: "Ali"},
		{ID: "2", Username: "bob_u"},
	}
	results := SearchMembers(members, "ali")
	if len(results) == 0 || results[0].Label != "Ali" {
		t.Fatalf("expected nick to be preferred label, got %+v", results)
	}
}
