//go:build purego || !cgo
// +build purego !cgo

package storage

// Compiled without CGO. Uses a pure Go SQLite implementation (FTS5 built in).
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
