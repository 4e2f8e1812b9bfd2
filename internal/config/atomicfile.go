package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// WriteJSONAtomic marshals v as indented JSON and writes it to path via a
// temp-file-then-rename, the same pattern the teacher's file store uses for
// its main config.json, reused here for the profile/history/hidden-channel
// side files named in §6.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// ReadJSONOrDefault reads and unmarshals path into dst, leaving dst
// untouched (the caller's zero/default value) if the file does not exist.
func ReadJSONOrDefault(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
