// Package storage implements the graph store adapter: one embedded SQLite
// database per indexed repository holding per-label node tables, a generic
// confidence-scored edge table, FTS5 full-text indexes, and persisted
// embeddings.
//
// The governing invariant is per-repo connection exclusivity: each Store owns
// exactly one connection and serializes every statement issued through it.
// Distinct repos may be opened and queried in parallel through the Manager.
//
// Build modes:
//   - CGO + fts5 tag: github.com/mattn/go-sqlite3 (production)
//   - purego: modernc.org/sqlite (no C compiler required)
package storage
