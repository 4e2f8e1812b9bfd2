package config

import "errors"

var (
	ErrInvalidStatus  = errors.New("status must be online, idle, or dnd")
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrEmptyProfile   = errors.New("profile name cannot be empty")
	ErrEmptyToken     = errors.New("profile token cannot be empty")
	ErrNoSuchProfile  = errors.New("no such profile")
)
