// Package ingest persists an externally produced knowledge graph into a
// repo's store: all node tables bulk-loaded and committed first, then edges
// created individually with per-edge failure isolation, then registry
// metadata written. A re-ingest fully replaces the repo's index.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/codegraph-mcp/internal/registry"
	"github.com/dshills/codegraph-mcp/internal/storage"
	"github.com/dshills/codegraph-mcp/pkg/types"
)

// ErrLoadInProgress is returned when another load of the same repo is running
var ErrLoadInProgress = errors.New("load already in progress for this repo")

// EmbeddingRow is one node embedding carried alongside the graph payload
type EmbeddingRow struct {
	NodeID   string    `json:"nodeId"`
	FilePath string    `json:"filePath,omitempty"`
	Vector   []float32 `json:"vector"`
	Model    string    `json:"model,omitempty"`
}

// Payload is the ingestion document the external analyzer emits
type Payload struct {
	types.Graph
	Embeddings []EmbeddingRow `json:"embeddings,omitempty"`
}

// Stats aggregates one load run. Per-row and per-edge failures surface only
// as counts; ingestion is idempotent and rerunnable.
type Stats struct {
	Nodes         int
	SkippedNodes  int
	Edges         int
	SkippedEdges  int
	Embeddings    int
	Duration      time.Duration
}

// Loader replaces repo indexes from graph payloads
type Loader struct {
	registry *registry.Registry
	stores   *storage.Manager
	locks    *lockTable
}

// NewLoader creates a loader
func NewLoader(reg *registry.Registry, stores *storage.Manager) *Loader {
	return &Loader{registry: reg, stores: stores, locks: newLockTable()}
}

// LoadFile reads a graph JSON document and loads it for repoPath
func (l *Loader) LoadFile(ctx context.Context, repoPath, graphPath string) (*Stats, error) {
	data, err := os.ReadFile(graphPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph payload: %w", err)
	}
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse graph payload: %w", err)
	}
	return l.Load(ctx, repoPath, &payload)
}

// Load replaces repoPath's index with payload
func (l *Loader) Load(ctx context.Context, repoPath string, payload *Payload) (*Stats, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repo path: %w", err)
	}
	repoID := registry.RepoID(absPath)

	lock := l.locks.forRepo(repoID)
	if !lock.TryAcquire() {
		return nil, ErrLoadInProgress
	}
	defer lock.Release()

	start := time.Now()
	storePath := filepath.Join(l.registry.Root(), "repos", repoID, "graph.db")
	store, err := l.stores.Replace(repoID, storePath)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}

	// All nodes commit before any edge references them
	byLabel := make(map[types.NodeLabel][]types.GraphNode)
	for _, node := range payload.Nodes {
		byLabel[node.Label] = append(byLabel[node.Label], node)
	}
	for _, label := range types.AllLabels {
		nodes := byLabel[label]
		if len(nodes) == 0 {
			continue // zero rows: skipped entirely, not loaded empty
		}
		res, err := store.BulkLoadNodes(ctx, label, nodes)
		if err != nil {
			return nil, fmt.Errorf("bulk load of %s failed: %w", label, err)
		}
		stats.Nodes += res.Inserted
		stats.SkippedNodes += res.Skipped
	}

	edgeRes, err := store.CreateRelationships(ctx, payload.Relationships)
	if err != nil {
		return nil, fmt.Errorf("edge load failed: %w", err)
	}
	stats.Edges = edgeRes.Inserted
	stats.SkippedEdges = edgeRes.Skipped

	if len(payload.Embeddings) > 0 {
		stats.Embeddings = l.loadEmbeddings(ctx, store, payload.Embeddings)
	}

	repoStats, err := store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	entry := &registry.Repo{
		ID:         repoID,
		RepoPath:   absPath,
		LastCommit: headCommit(absPath),
		IndexedAt:  time.Now().UTC(),
		Stats:      repoStats,
	}
	if err := l.registry.Save(entry); err != nil {
		return nil, fmt.Errorf("failed to save registry entry: %w", err)
	}

	stats.Duration = time.Since(start)
	slog.Info("graph loaded",
		"repo", absPath,
		"nodes", stats.Nodes, "skippedNodes", stats.SkippedNodes,
		"edges", stats.Edges, "skippedEdges", stats.SkippedEdges,
		"embeddings", stats.Embeddings,
		"duration", stats.Duration)
	return stats, nil
}

// loadEmbeddings persists embeddings through batched parameterized execution;
// a failing sub-batch is skipped, never aborting the rest
func (l *Loader) loadEmbeddings(ctx context.Context, store *storage.Store, rows []EmbeddingRow) int {
	const insert = `
		INSERT OR REPLACE INTO embeddings (node_id, file_path, vector, dimension, model)
		VALUES (?, ?, ?, ?, ?)`
	params := make([][]any, 0, len(rows))
	for _, row := range rows {
		if row.NodeID == "" || len(row.Vector) == 0 {
			continue
		}
		params = append(params, []any{
			row.NodeID, row.FilePath,
			storage.SerializeVector(row.Vector), len(row.Vector), row.Model,
		})
	}
	applied, err := store.ExecuteBatched(ctx, insert, params)
	if err != nil {
		slog.Warn("embedding load failed", "error", err)
		return 0
	}
	return applied
}

// headCommit reads the repo's HEAD commit hash, best effort
func headCommit(repoPath string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
