//go:build cgo && !purego
// +build cgo,!purego

package storage

// Compiled for CGO builds. Uses the C SQLite implementation with FTS5.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "fts5" ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
