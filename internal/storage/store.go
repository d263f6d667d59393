package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dshills/codegraph-mcp/pkg/types"
)

// batchSize bounds the transaction footprint of batched parameterized
// execution; a failing sub-batch is skipped, never aborting the rest.
const batchSize = 4

// Store owns the single connection to one repo's graph database. Every
// statement issued through it is serialized: concurrent statement submission
// on one embedded connection is undefined in the underlying engine.
type Store struct {
	repoID string
	path   string
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// Record is a field-keyed result row. Whatever row shape the underlying
// engine produces, the adapter normalizes to this one contract.
type Record map[string]any

// openStore opens (or creates) the database file at path, tolerating a
// pre-existing empty directory at the target and creating parents as needed.
func openStore(repoID, path string, logger *slog.Logger) (*Store, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		entries, readErr := os.ReadDir(path)
		if readErr == nil && len(entries) == 0 {
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("failed to clear empty store location: %w", err)
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better read concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Exactly one connection per repo; statements are serialized
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{repoID: repoID, path: path, db: db, logger: logger}, nil
}

// RepoID returns the repo this store belongs to
func (s *Store) RepoID() string { return s.repoID }

// Path returns the database file location
func (s *Store) Path() string { return s.path }

// Close releases the connection. Safe to call on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Close()
	s.db = nil
	return err
}

// nodeColumns returns the SQL column list and a value extractor for a label
func nodeColumns(label types.NodeLabel) ([]string, func(n *types.GraphNode) []any) {
	switch label {
	case types.LabelFile:
		return []string{"id", "name", "file_path", "content"},
			func(n *types.GraphNode) []any {
				return []any{n.ID, n.PropString("name"), n.PropString("filePath"), n.PropString("content")}
			}
	case types.LabelFolder:
		return []string{"id", "name", "file_path"},
			func(n *types.GraphNode) []any {
				return []any{n.ID, n.PropString("name"), n.PropString("filePath")}
			}
	case types.LabelCommunity:
		return []string{"id", "label", "heuristic_label", "keywords", "description", "enriched_by", "cohesion", "symbol_count"},
			func(n *types.GraphNode) []any {
				return []any{
					n.ID, n.PropString("label"), n.PropString("heuristicLabel"),
					n.PropString("keywords"), n.PropString("description"),
					n.PropString("enrichedBy"), n.PropFloat("cohesion"), n.PropInt("symbolCount"),
				}
			}
	case types.LabelProcess:
		return []string{"id", "label", "heuristic_label", "process_type", "step_count", "communities", "entry_point_id", "terminal_id"},
			func(n *types.GraphNode) []any {
				return []any{
					n.ID, n.PropString("label"), n.PropString("heuristicLabel"),
					n.PropString("processType"), n.PropInt("stepCount"),
					n.PropString("communities"), n.PropString("entryPointId"), n.PropString("terminalId"),
				}
			}
	default:
		return []string{"id", "name", "file_path", "start_line", "end_line", "content"},
			func(n *types.GraphNode) []any {
				return []any{
					n.ID, n.PropString("name"), n.PropString("filePath"),
					n.PropInt("startLine"), n.PropInt("endLine"), n.PropString("content"),
				}
			}
	}
}

// BulkLoadNodes loads all nodes of one label inside a single transaction.
// Zero rows is a no-op. A malformed row is counted as skipped and never
// aborts the rest of the load.
func (s *Store) BulkLoadNodes(ctx context.Context, label types.NodeLabel, nodes []types.GraphNode) (types.LoadResult, error) {
	var res types.LoadResult
	if len(nodes) == 0 {
		return res, nil
	}
	if !types.ValidLabel(label) {
		return res, fmt.Errorf("%w: %s", types.ErrUnknownLabel, label)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return res, types.ErrNotInitialized
	}

	cols, extract := nodeColumns(label)
	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insert := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		quoteIdent(string(label)),
		joinIdents(cols),
		joinIdents(placeholders))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin bulk load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return res, fmt.Errorf("failed to prepare bulk load: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range nodes {
		node := &nodes[i]
		if node.ID == "" || node.Label != label {
			res.Skipped++
			continue
		}
		if _, err := stmt.ExecContext(ctx, extract(node)...); err != nil {
			res.Skipped++
			s.logger.Warn("node skipped during bulk load",
				"repo", s.repoID, "label", label, "id", node.ID, "error", err)
			continue
		}
		res.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return types.LoadResult{}, fmt.Errorf("failed to commit bulk load: %w", err)
	}
	return res, nil
}

const insertEdgeSQL = `
INSERT OR IGNORE INTO edges
    (id, source_id, target_id, source_label, target_label, type, confidence, reason, step)
SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
WHERE EXISTS (SELECT 1 FROM %s WHERE id = ?)
  AND EXISTS (SELECT 1 FROM %s WHERE id = ?)
`

// CreateRelationship inserts one edge. The endpoint labels are derived from
// the id prefixes; a missing endpoint, unknown prefix, or malformed edge is
// reported as not-inserted rather than an error.
func (s *Store) CreateRelationship(ctx context.Context, rel types.GraphRelationship) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRelationshipLocked(ctx, rel)
}

func (s *Store) createRelationshipLocked(ctx context.Context, rel types.GraphRelationship) (bool, error) {
	if s.db == nil {
		return false, types.ErrNotInitialized
	}
	if err := rel.Validate(); err != nil {
		return false, nil
	}
	srcLabel, err := types.LabelForID(rel.SourceID)
	if err != nil {
		return false, nil
	}
	dstLabel, err := types.LabelForID(rel.TargetID)
	if err != nil {
		return false, nil
	}

	var step any
	if rel.Step > 0 {
		step = rel.Step
	}
	query := fmt.Sprintf(insertEdgeSQL, quoteIdent(string(srcLabel)), quoteIdent(string(dstLabel)))
	result, err := s.db.ExecContext(ctx, query,
		rel.ID, rel.SourceID, rel.TargetID, string(srcLabel), string(dstLabel),
		string(rel.Type), rel.Confidence, rel.Reason, step,
		rel.SourceID, rel.TargetID)
	if err != nil {
		return false, nil
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, nil
	}
	return n > 0, nil
}

// CreateRelationships inserts edges one at a time with per-edge failure
// isolation: a malformed row or missing endpoint is counted as skipped and
// the remaining edges still insert.
func (s *Store) CreateRelationships(ctx context.Context, rels []types.GraphRelationship) (types.LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res types.LoadResult
	if s.db == nil {
		return res, types.ErrNotInitialized
	}
	for _, rel := range rels {
		inserted, err := s.createRelationshipLocked(ctx, rel)
		if err != nil {
			return res, err
		}
		if inserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}
	if res.Skipped > 0 {
		s.logger.Warn("edges skipped during load",
			"repo", s.repoID, "inserted", res.Inserted, "skipped", res.Skipped)
	}
	return res, nil
}

// Query executes an ad hoc query and normalizes every row into a field-keyed
// Record. This is the single row-shape contract downstream code depends on.
func (s *Store) Query(ctx context.Context, text string, args ...any) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, types.ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(cols))
		scans := make([]any, len(cols))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = normalizeValue(values[i])
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ExecuteBatched compiles query once and executes it per parameter set in
// fixed sub-batches to bound transaction size. A failing sub-batch is logged
// and skipped; subsequent sub-batches still run. Returns how many parameter
// sets were applied.
func (s *Store) ExecuteBatched(ctx context.Context, query string, paramsList [][]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, types.ErrNotInitialized
	}

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batched statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	applied := 0
	for start := 0; start < len(paramsList); start += batchSize {
		end := start + batchSize
		if end > len(paramsList) {
			end = len(paramsList)
		}
		n, err := s.execChunk(ctx, stmt, paramsList[start:end])
		if err != nil {
			s.logger.Warn("batched sub-batch skipped",
				"repo", s.repoID, "offset", start, "size", end-start, "error", err)
			continue
		}
		applied += n
	}
	return applied, nil
}

func (s *Store) execChunk(ctx context.Context, stmt *sql.Stmt, chunk [][]any) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	txStmt := tx.StmtContext(ctx, stmt)
	defer func() { _ = txStmt.Close() }()

	for _, params := range chunk {
		if _, err := txStmt.ExecContext(ctx, params...); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(chunk), nil
}

// Stats sums node counts across all known node tables plus the edge count.
// A table that errors (e.g., not yet created) contributes zero, not an error.
func (s *Store) Stats(ctx context.Context) (types.RepoStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats types.RepoStats
	if s.db == nil {
		return stats, types.ErrNotInitialized
	}

	for _, label := range types.AllLabels {
		var n int
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(string(label)))
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			continue
		}
		stats.Nodes += n
		switch label {
		case types.LabelFile:
			stats.Files = n
		case types.LabelCommunity:
			stats.Communities = n
		case types.LabelProcess:
			stats.Processes = n
		}
	}

	var edges int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&edges); err == nil {
		stats.Edges = edges
	}
	return stats, nil
}

// normalizeValue maps driver-specific scan values onto plain Go types
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}

func joinIdents(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
