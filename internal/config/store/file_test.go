package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/discord-terminal/engine/internal/config"
)

const testConfigFile = "config.json"

func TestFileLoadNonExistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), testConfigFile)
	f := NewFile(path)

	cfg, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Status != config.StatusOnline {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestFileSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), testConfigFile)
	f := NewFile(path)

	cfg := &config.Configuration{Status: config.StatusIdle}
	if err := f.Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Status != config.StatusIdle {
		t.Errorf("loaded config doesn't match saved, got %+v", loaded)
	}
}

func TestFileAtomicWriteLeavesNoTemp(t *testing.T) {
	path := filepath.Join(t.TempDir(), testConfigFile)
	f := NewFile(path)

	if err := f.Save(&config.Configuration{Status: config.StatusOnline}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not exist after save")
	}
}

func TestFileSaveValidatesFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), testConfigFile)
	f := NewFile(path)

	cfg := &config.Configuration{Status: "invalid"}
	if err := f.Save(cfg); err == nil {
		t.Error("expected Save() to reject an invalid status")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid config should never reach disk")
	}
}

func TestFileLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), testConfigFile)
	if err := os.WriteFile(path, []byte(""), 0600); err != nil {
		t.Fatalf("failed to create empty file: %v", err)
	}

	cfg, err := NewFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Status != config.StatusOnline {
		t.Errorf("expected default status for empty file, got %q", cfg.Status)
	}
}

func TestFileLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), testConfigFile)
	if err := os.WriteFile(path, []byte("{invalid json}"), 0600); err != nil {
		t.Fatalf("failed to create invalid JSON file: %v", err)
	}

	if _, err := NewFile(path).Load(); err == nil {
		t.Error("Load() should return an error for invalid JSON")
	}
}
