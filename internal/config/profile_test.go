package config

import (
	"path/filepath"
	"testing"
)

func TestProfileStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	s := NewProfileStore(path)

	pf := &ProfilesFile{
		Selected: "main",
		Profiles: []Profile{{Name: "main", Token: "secret", Time: 100}},
	}
	if err := s.Save(pf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Selected != "main" || len(loaded.Profiles) != 1 || loaded.Profiles[0].Token != "secret" {
		t.Errorf("loaded profiles don't match saved, got %+v", loaded)
	}
}

func TestProfileStoreSaveRejectsUnknownSelected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	s := NewProfileStore(path)

	err := s.Save(&ProfilesFile{Selected: "ghost"})
	if err != ErrNoSuchProfile {
		t.Errorf("expected ErrNoSuchProfile, got %v", err)
	}
}

func TestProfileStateStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewProfileStateStore(path)

	ps := &ProfileState{
		LastGuildID:   "g1",
		LastChannelID: "c1",
		Muted:         true,
		Collapsed:     []string{"cat1"},
		FolderNames:   []string{"work"},
	}
	if err := s.Save(ps); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.LastGuildID != "g1" || !loaded.Muted || len(loaded.Collapsed) != 1 {
		t.Errorf("loaded state doesn't match saved, got %+v", loaded)
	}
}

func TestHiddenChannelsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hidden_channels.json")

	if err := SaveHiddenChannels(path, HiddenChannelsFile{"g1": {"c1", "c2"}}); err != nil {
		t.Fatalf("Save error = %v", err)
	}
	loaded, err := LoadHiddenChannels(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if len(loaded["g1"]) != 2 {
		t.Errorf("expected 2 hidden channels for g1, got %v", loaded["g1"])
	}
}

func TestCommandHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "command_history.json")

	if err := SaveCommandHistory(path, CommandHistoryFile{"/join c1", "/leave"}); err != nil {
		t.Fatalf("Save error = %v", err)
	}
	loaded, err := LoadCommandHistory(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if len(loaded) != 2 || loaded[1] != "/leave" {
		t.Errorf("unexpected history, got %v", loaded)
	}
}
