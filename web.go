// Package engine provides the embedded web assets for the terminal client's engine.
package engine

import (
	"embed"
	"io/fs"
)

//go:embed web/*
var WebFS embed.FS

// GetWebFS returns the embedded web filesystem with the "web/" prefix stripped.
func GetWebFS() (fs.FS, error) {
	return fs.Sub(WebFS, "web")
}
