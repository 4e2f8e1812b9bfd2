package parser

import (
	"strings"
	"testing"
)

func TestTimeStringSecondsCombinesUnits(t *testing.T) {
	got := TimeStringSeconds("1d2h30m")
	want := int64(86400 + 2*3600 + 30*60)
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestTimeStringSecondsBareIntIsSeconds(t *testing.T) {
	if TimeStringSeconds("45") != 45 {
		t.Fatal("expected bare integer treated as seconds")
	}
}

func TestTimeStringSecondsUnparseableIsZero(t *testing.T) {
	if TimeStringSeconds("nonsense") != 0 {
		t.Fatal("expected unparseable string to be 0")
	}
}

func TestParseSearchStringExtractsOperators(t *testing.T) {
	q := ParseSearchString("hello from:<@123> in:<#456> pinned:true world")
	if !strings.Contains(q.Text, "hello") || !strings.Contains(q.Text, "world") {
		t.Fatalf("unexpected remaining text: %q", q.Text)
	}
	if len(q.AuthorID) != 1 || q.AuthorID[0] != "123" {
		t.Fatalf("expected author id 123, got %v", q.AuthorID)
	}
	if len(q.ChannelID) != 1 || q.ChannelID[0] != "456" {
		t.Fatalf("expected channel id 456, got %v", q.ChannelID)
	}
	if len(q.Pinned) != 1 || q.Pinned[0] != "true" {
		t.Fatalf("expected pinned true, got %v", q.Pinned)
	}
}

func TestParseCommandSet(t *testing.T) {
	cmd := ParseCommand("set theme = dark")
	if cmd.Type != CommandSet {
		t.Fatalf("expected CommandSet, got %v", cmd.Type)
	}
	if cmd.Args["key"] != "theme" || cmd.Args["value"] != "dark" {
		t.Fatalf("unexpected args: %+v", cmd.Args)
	}
}

func TestParseCommandGotoWithChannelRef(t *testing.T) {
	cmd := ParseCommand("goto <#123456>")
	if cmd.Type != CommandGoto || cmd.Args["channel_id"] != "123456" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestParseCommandGotoXyzzySpecial(t *testing.T) {
	cmd := ParseCommand("xyzzy")
	if cmd.Type != CommandGoto || cmd.Args["channel_id"] != "special" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestParseCommandUnknownVerb(t *testing.T) {
	cmd := ParseCommand("frobnicate")
	if cmd.Type != CommandUnknown {
		t.Fatalf("expected CommandUnknown, got %v", cmd.Type)
	}
}

func TestParseCommandStatusByNameAndIndex(t *testing.T) {
	if cmd := ParseCommand("status idle"); cmd.Args["status"] != "idle" {
		t.Fatalf("expected idle, got %+v", cmd)
	}
	if cmd := ParseCommand("status 3"); cmd.Args["status"] != "dnd" {
		t.Fatalf("expected dnd (index 3), got %+v", cmd)
	}
}

func TestParseCommandDownloadRejectsNonNumeric(t *testing.T) {
	cmd := ParseCommand("download abc")
	if cmd.Type != CommandDownload {
		t.Fatalf("expected CommandDownload, got %v", cmd.Type)
	}
	if _, ok := cmd.Args["num"]; ok {
		t.Fatal("expected no num arg for non-numeric input")
	}
}
