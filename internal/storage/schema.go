package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/dshills/codegraph-mcp/pkg/types"
)

const (
	// CurrentSchemaVersion tracks the graph store schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all schema migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

// codeColumns is the shared column set for code-element labels
const codeColumns = `
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    file_path TEXT,
    start_line INTEGER,
    end_line INTEGER,
    content TEXT
`

// codeLabels are the labels that share the generic code-element column set
var codeLabels = []types.NodeLabel{
	types.LabelProject, types.LabelPackage, types.LabelModule,
	types.LabelClass, types.LabelFunction, types.LabelMethod,
	types.LabelVariable, types.LabelInterface, types.LabelEnum,
	types.LabelDecorator, types.LabelImport, types.LabelType,
}

// ftsLabels are the labels carrying a full-text index, in the fixed order
// full-text search walks them
var ftsLabels = []types.NodeLabel{
	types.LabelFile, types.LabelFunction, types.LabelClass,
	types.LabelMethod, types.LabelInterface,
}

var migrationV1Up = buildSchemaV1()
var migrationV1Down = buildSchemaV1Down()

// quoteIdent quotes a SQL identifier. Node labels double as table names and
// several (Type, Import, ...) collide with reserved words, so every label is
// quoted unconditionally.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ftsTable returns the FTS5 shadow table name for a label
func ftsTable(label types.NodeLabel) string {
	return strings.ToLower(string(label)) + "_fts"
}

func buildSchemaV1() string {
	var b strings.Builder

	b.WriteString(`
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- File nodes
CREATE TABLE IF NOT EXISTS "File" (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    file_path TEXT,
    content TEXT
);

CREATE INDEX IF NOT EXISTS idx_file_path ON "File"(file_path);

-- Folder nodes
CREATE TABLE IF NOT EXISTS "Folder" (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    file_path TEXT
);

-- Community nodes (synthetic comm_* ids from external clustering)
CREATE TABLE IF NOT EXISTS "Community" (
    id TEXT PRIMARY KEY,
    label TEXT,
    heuristic_label TEXT,
    keywords TEXT,
    description TEXT,
    enriched_by TEXT,
    cohesion REAL,
    symbol_count INTEGER
);

-- Process nodes (synthetic proc_* ids from external flow detection)
CREATE TABLE IF NOT EXISTS "Process" (
    id TEXT PRIMARY KEY,
    label TEXT,
    heuristic_label TEXT,
    process_type TEXT,
    step_count INTEGER,
    communities TEXT,
    entry_point_id TEXT,
    terminal_id TEXT
);
`)

	for _, label := range codeLabels {
		fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS %s (%s);
CREATE INDEX IF NOT EXISTS idx_%s_path ON %s(file_path);
`, quoteIdent(string(label)), codeColumns,
			strings.ToLower(string(label)), quoteIdent(string(label)))
	}

	b.WriteString(`
-- Single generic edge table. Endpoint labels are derived from id prefixes at
-- insert time so lookups never need to probe every node table.
CREATE TABLE IF NOT EXISTS edges (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    source_label TEXT NOT NULL,
    target_label TEXT NOT NULL,
    type TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 1.0,
    reason TEXT NOT NULL DEFAULT '',
    step INTEGER
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id, type);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id, type);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);

-- Embeddings persisted by external ingestion, consumed by the semantic index
CREATE TABLE IF NOT EXISTS embeddings (
    node_id TEXT PRIMARY KEY,
    file_path TEXT,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    model TEXT NOT NULL DEFAULT ''
);
`)

	// FTS5 shadow tables with sync triggers, one per searchable label
	for _, label := range ftsLabels {
		tbl := quoteIdent(string(label))
		fts := ftsTable(label)
		low := strings.ToLower(string(label))
		fmt.Fprintf(&b, `
CREATE VIRTUAL TABLE IF NOT EXISTS %[1]s USING fts5(
    name, file_path, content,
    content=%[2]s,
    content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS %[3]s_ai AFTER INSERT ON %[2]s BEGIN
    INSERT INTO %[1]s(rowid, name, file_path, content)
    VALUES (new.rowid, new.name, new.file_path, new.content);
END;

CREATE TRIGGER IF NOT EXISTS %[3]s_ad AFTER DELETE ON %[2]s BEGIN
    INSERT INTO %[1]s(%[1]s, rowid, name, file_path, content)
    VALUES ('delete', old.rowid, old.name, old.file_path, old.content);
END;
`, fts, tbl, low)
	}

	return b.String()
}

func buildSchemaV1Down() string {
	var b strings.Builder
	for _, label := range ftsLabels {
		low := strings.ToLower(string(label))
		fmt.Fprintf(&b, "DROP TRIGGER IF EXISTS %s_ad;\nDROP TRIGGER IF EXISTS %s_ai;\n", low, low)
		fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s;\n", ftsTable(label))
	}
	b.WriteString("DROP TABLE IF EXISTS embeddings;\nDROP TABLE IF EXISTS edges;\n")
	for _, label := range types.AllLabels {
		fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s;\n", quoteIdent(string(label)))
	}
	b.WriteString("DROP TABLE IF EXISTS schema_version;\n")
	return b.String()
}

// ApplyMigrations runs all pending migrations. Schema statements are written
// with IF NOT EXISTS so re-application is harmless; residual "already exists"
// failures from older stores are swallowed.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	var currentVersion *semver.Version
	if err == sql.ErrNoRows {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		if err == sql.ErrNoRows || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("failed to read schema_version: %w", err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("invalid current schema version %s: %w", currentVersionStr, err)
			}
		}
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err = db.ExecContext(ctx, migration.Up); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err = db.ExecContext(ctx, "INSERT OR IGNORE INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// isAlreadyExists matches the "already exists" failures both drivers produce
// for duplicate schema objects
func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}
