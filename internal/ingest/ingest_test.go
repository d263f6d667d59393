package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codegraph-mcp/internal/registry"
	"github.com/dshills/codegraph-mcp/internal/storage"
	"github.com/dshills/codegraph-mcp/pkg/types"
)

func newTestLoader(t *testing.T) (*Loader, *registry.Registry, *storage.Manager) {
	t.Helper()
	reg := registry.New(t.TempDir())
	stores := storage.NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(stores.CloseAll)
	return NewLoader(reg, stores), reg, stores
}

func testPayload() *Payload {
	return &Payload{
		Graph: types.Graph{
			Nodes: []types.GraphNode{
				{ID: "file_a", Label: types.LabelFile, Properties: map[string]any{
					"name": "a.ts", "filePath": "src/a.ts", "content": "alpha",
				}},
				{ID: "func_a", Label: types.LabelFunction, Properties: map[string]any{
					"name": "alpha", "filePath": "src/a.ts",
				}},
				{ID: "func_b", Label: types.LabelFunction, Properties: map[string]any{
					"name": "beta", "filePath": "src/a.ts",
				}},
				{ID: "comm_0", Label: types.LabelCommunity, Properties: map[string]any{
					"label": "core", "cohesion": 0.5,
				}},
			},
			Relationships: []types.GraphRelationship{
				{ID: "r1", SourceID: "func_a", TargetID: "func_b", Type: types.RelCalls, Confidence: 1},
				{ID: "r2", SourceID: "func_a", TargetID: "func_ghost", Type: types.RelCalls, Confidence: 1},
				{ID: "r3", SourceID: "func_b", TargetID: "comm_0", Type: types.RelMemberOf, Confidence: 1},
			},
		},
		Embeddings: []EmbeddingRow{
			{NodeID: "func_a", FilePath: "src/a.ts", Vector: []float32{1, 0}, Model: "test"},
			{NodeID: "", Vector: []float32{1}}, // malformed, dropped
		},
	}
}

func TestLoad(t *testing.T) {
	loader, reg, _ := newTestLoader(t)
	repoPath := t.TempDir()

	stats, err := loader.Load(context.Background(), repoPath, testPayload())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Nodes)
	assert.Equal(t, 0, stats.SkippedNodes)
	// The edge to func_ghost has no endpoint and is skipped, not fatal
	assert.Equal(t, 2, stats.Edges)
	assert.Equal(t, 1, stats.SkippedEdges)
	assert.Equal(t, 1, stats.Embeddings)
	assert.Positive(t, stats.Duration)

	// Registry entry reflects the store, not the raw payload
	repo, err := reg.Get(registry.RepoID(repoPath))
	require.NoError(t, err)
	assert.Equal(t, 4, repo.Stats.Nodes)
	assert.Equal(t, 2, repo.Stats.Edges)
	assert.Equal(t, 1, repo.Stats.Files)
	assert.Equal(t, 1, repo.Stats.Communities)
	assert.False(t, repo.IndexedAt.IsZero())
}

func TestLoad_ReplacesPreviousIndex(t *testing.T) {
	loader, reg, stores := newTestLoader(t)
	repoPath := t.TempDir()
	ctx := context.Background()

	_, err := loader.Load(ctx, repoPath, testPayload())
	require.NoError(t, err)

	smaller := &Payload{Graph: types.Graph{
		Nodes: []types.GraphNode{
			{ID: "file_z", Label: types.LabelFile, Properties: map[string]any{
				"name": "z.ts", "filePath": "src/z.ts",
			}},
		},
	}}
	stats, err := loader.Load(ctx, repoPath, smaller)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Nodes)

	repoID := registry.RepoID(repoPath)
	store, err := stores.Get(repoID)
	require.NoError(t, err)
	repoStats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repoStats.Nodes)
	assert.Equal(t, 0, repoStats.Edges)

	repo, err := reg.Get(repoID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Stats.Nodes)
}

func TestLoad_SkipsMalformedNodes(t *testing.T) {
	loader, _, _ := newTestLoader(t)
	repoPath := t.TempDir()

	payload := &Payload{Graph: types.Graph{
		Nodes: []types.GraphNode{
			{ID: "func_a", Label: types.LabelFunction, Properties: map[string]any{"name": "a"}},
			{ID: "", Label: types.LabelFunction},
		},
	}}
	stats, err := loader.Load(context.Background(), repoPath, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Nodes)
	assert.Equal(t, 1, stats.SkippedNodes)
}

func TestLoadFile(t *testing.T) {
	loader, _, _ := newTestLoader(t)
	repoPath := t.TempDir()

	data, err := json.Marshal(testPayload())
	require.NoError(t, err)
	graphPath := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(graphPath, data, 0o644))

	stats, err := loader.LoadFile(context.Background(), repoPath, graphPath)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Nodes)
}

func TestLoadFile_BadInput(t *testing.T) {
	loader, _, _ := newTestLoader(t)
	repoPath := t.TempDir()

	_, err := loader.LoadFile(context.Background(), repoPath, "/does/not/exist.json")
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = loader.LoadFile(context.Background(), repoPath, bad)
	assert.Error(t, err)
}

func TestLoadLock(t *testing.T) {
	var lock loadLock
	assert.True(t, lock.TryAcquire())
	assert.False(t, lock.TryAcquire())
	lock.Release()
	assert.True(t, lock.TryAcquire())
}

func TestLockTable_PerRepo(t *testing.T) {
	table := newLockTable()

	a := table.forRepo("repo-a")
	b := table.forRepo("repo-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, table.forRepo("repo-a"))

	require.True(t, a.TryAcquire())
	// A held lock on one repo never blocks another
	assert.True(t, b.TryAcquire())
}
