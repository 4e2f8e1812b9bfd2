// Package config provides configuration types and persistence for the
// terminal client: the global presence preference synced across devices,
// plus the per-profile last-session and UI state described in §6
// "Persisted state".
package config

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Status represents the desired Discord presence status.
type Status string

const (
	StatusOnline Status = "online"
	StatusIdle   Status = "idle"
	StatusDND    Status = "dnd"
)

// Configuration is the engine's single global preference: the presence
// status applied on connect. It's mirrored into the optional Postgres
// backend's settings table for multi-device sync, separately from the
// per-profile last-session/UI state that ProfilesFile/ProfileState cover.
type Configuration struct {
	Status Status `json:"status,omitempty" validate:"omitempty,oneof=online idle dnd"`
}

// Validate checks the configuration's struct tags.
func (c *Configuration) Validate() error {
	return validate.Struct(c)
}

// Default returns the default configuration.
func Default() *Configuration {
	return &Configuration{Status: StatusOnline}
}

// SessionState holds gateway session data for resumption, mirrored into the
// optional Postgres backend so a resumed connection can survive a restart
// on a different device.
type SessionState struct {
	ServerID  string `json:"server_id"`
	SessionID string `json:"session_id"`
	Sequence  int    `json:"sequence"`
	ResumeURL string `json:"resume_url"`
}
