package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codegraph-mcp/pkg/types"
)

func TestQuoteFTS(t *testing.T) {
	tests := []struct {
		in  string
		out string
	}{
		{"login", `"login"`},
		{"user session", `"user" "session"`},
		{`drop" OR 1`, `"drop""" "OR" "1"`},
		{"  spaced   out  ", `"spaced" "out"`},
		{"", ""},
		{"   ", ""},
		{"NEAR(a b)", `"NEAR(a" "b)"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, quoteFTS(tt.in), "input %q", tt.in)
	}
}

func FuzzQuoteFTS(f *testing.F) {
	f.Add("login")
	f.Add(`"quoted" AND (operators)`)
	f.Add("col: value*")
	f.Fuzz(func(t *testing.T, query string) {
		out := quoteFTS(query)
		if out == "" {
			return
		}
		// Every token is a quoted string: quotes balance and nothing outside
		// quotes survives from the input
		for _, token := range strings.Fields(out) {
			if !strings.HasPrefix(token, `"`) {
				t.Fatalf("unquoted token %q from input %q", token, query)
			}
		}
		if strings.Count(out, `"`)%2 != 0 {
			t.Fatalf("unbalanced quotes in %q from input %q", out, query)
		}
	})
}

func TestSearchTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.BulkLoadNodes(ctx, types.LabelFile, []types.GraphNode{
		fileNode("a", "auth.ts", "src/auth.ts", "authenticate the user session"),
		fileNode("b", "db.ts", "src/db.ts", "open the database connection"),
	})
	require.NoError(t, err)

	hits, err := store.SearchTable(ctx, types.LabelFile, "authenticate", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "src/auth.ts", hits[0].FilePath)
	assert.Greater(t, hits[0].Score, 0.0)
}

// Stored content full of query operators is matched literally, never executed
func TestSearchTable_AdversarialInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.BulkLoadNodes(ctx, types.LabelFile, []types.GraphNode{
		fileNode("a", "evil.ts", "src/evil.ts", `content with "quotes" AND NEAR operators`),
	})
	require.NoError(t, err)

	hits, err := store.SearchTable(ctx, types.LabelFile, `"quotes" AND`, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	// A query that is only operators matches nothing rather than erroring
	hits, err = store.SearchTable(ctx, types.LabelFile, `*`, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchTable_EmptyQuery(t *testing.T) {
	store := newTestStore(t)

	hits, err := store.SearchTable(context.Background(), types.LabelFile, "   ", 10)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestSymbolsInFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.BulkLoadNodes(ctx, types.LabelFunction, []types.GraphNode{
		funcNode("a", "getUser", "src/users.ts", ""),
		funcNode("b", "setUser", "src/users.ts", ""),
		funcNode("c", "getOrder", "src/orders.ts", ""),
	})
	require.NoError(t, err)

	syms, err := store.SymbolsInFile(ctx, "src/users.ts", "User", 10)
	require.NoError(t, err)
	assert.Len(t, syms, 2)

	capped, err := store.SymbolsInFile(ctx, "src/users.ts", "User", 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

// LIKE wildcards in the token are escaped, not interpreted
func TestSymbolsInFile_EscapesToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.BulkLoadNodes(ctx, types.LabelFunction, []types.GraphNode{
		funcNode("a", "a_b", "src/f.ts", ""),
		funcNode("b", "axb", "src/f.ts", ""),
	})
	require.NoError(t, err)

	syms, err := store.SymbolsInFile(ctx, "src/f.ts", "a_b", 10)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "a_b", syms[0].Name)

	syms, err = store.SymbolsInFile(ctx, "src/f.ts", "%", 10)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestCallersAndCallees(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.BulkLoadNodes(ctx, types.LabelFunction, []types.GraphNode{
		funcNode("a", "alpha", "src/a.ts", ""),
		funcNode("b", "beta", "src/b.ts", ""),
		funcNode("c", "gamma", "src/c.ts", ""),
	})
	require.NoError(t, err)

	res, err := store.CreateRelationships(ctx, []types.GraphRelationship{
		{ID: "r1", SourceID: "func_a", TargetID: "func_b", Type: types.RelCalls, Confidence: 1},
		{ID: "r2", SourceID: "func_c", TargetID: "func_b", Type: types.RelCalls, Confidence: 1},
		{ID: "r3", SourceID: "func_b", TargetID: "func_c", Type: types.RelCalls, Confidence: 1},
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Inserted)

	callers, err := store.Callers(ctx, "func_b", 10)
	require.NoError(t, err)
	names := []string{}
	for _, c := range callers {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"alpha", "gamma"}, names)

	callees, err := store.Callees(ctx, "func_b", 10)
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Equal(t, "gamma", callees[0].Name)

	capped, err := store.Callers(ctx, "func_b", 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestNodeName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.BulkLoadNodes(ctx, types.LabelFunction, []types.GraphNode{
		funcNode("a", "handler", "src/a.ts", ""),
	})
	require.NoError(t, err)
	_, err = store.BulkLoadNodes(ctx, types.LabelCommunity, []types.GraphNode{
		{ID: "comm_0", Label: types.LabelCommunity, Properties: map[string]any{
			"label": "cluster-0", "heuristicLabel": "Auth Flow",
		}},
		{ID: "comm_1", Label: types.LabelCommunity, Properties: map[string]any{
			"label": "cluster-1", "heuristicLabel": "",
		}},
	})
	require.NoError(t, err)

	name, err := store.NodeName(ctx, "func_a")
	require.NoError(t, err)
	assert.Equal(t, "handler", name)

	// Communities prefer the heuristic label, falling back to the raw label
	name, err = store.NodeName(ctx, "comm_0")
	require.NoError(t, err)
	assert.Equal(t, "Auth Flow", name)

	name, err = store.NodeName(ctx, "comm_1")
	require.NoError(t, err)
	assert.Equal(t, "cluster-1", name)

	_, err = store.NodeName(ctx, "func_missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestProcessMemberships(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.BulkLoadNodes(ctx, types.LabelFunction, []types.GraphNode{
		funcNode("a", "validate", "src/a.ts", ""),
	})
	require.NoError(t, err)
	_, err = store.BulkLoadNodes(ctx, types.LabelProcess, []types.GraphNode{
		{ID: "proc_0", Label: types.LabelProcess, Properties: map[string]any{
			"label": "flow-0", "heuristicLabel": "Checkout", "stepCount": 4,
		}},
	})
	require.NoError(t, err)

	res, err := store.CreateRelationships(ctx, []types.GraphRelationship{
		{ID: "r1", SourceID: "func_a", TargetID: "proc_0", Type: types.RelStepInProcess, Confidence: 1, Step: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)

	procs, err := store.ProcessMemberships(ctx, "func_a")
	require.NoError(t, err)
	require.Len(t, procs, 1)
	assert.Equal(t, "proc_0", procs[0].ProcessID)
	assert.Equal(t, "Checkout", procs[0].Label)
	assert.Equal(t, 2, procs[0].Step)
	assert.Equal(t, 4, procs[0].StepCount)
}

func TestCommunityCohesion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.BulkLoadNodes(ctx, types.LabelFunction, []types.GraphNode{
		funcNode("a", "member", "src/a.ts", ""),
		funcNode("b", "loner", "src/b.ts", ""),
	})
	require.NoError(t, err)
	_, err = store.BulkLoadNodes(ctx, types.LabelCommunity, []types.GraphNode{
		{ID: "comm_0", Label: types.LabelCommunity, Properties: map[string]any{
			"label": "auth", "cohesion": 0.8,
		}},
	})
	require.NoError(t, err)

	res, err := store.CreateRelationships(ctx, []types.GraphRelationship{
		{ID: "r1", SourceID: "func_a", TargetID: "comm_0", Type: types.RelMemberOf, Confidence: 1},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)

	cohesion, err := store.CommunityCohesion(ctx, "func_a")
	require.NoError(t, err)
	assert.Equal(t, 0.8, cohesion)

	cohesion, err = store.CommunityCohesion(ctx, "func_b")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cohesion)
}

func TestAllNodesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.BulkLoadNodes(ctx, types.LabelFile, []types.GraphNode{
		fileNode("a", "a.ts", "src/a.ts", "body"),
	})
	require.NoError(t, err)
	_, err = store.BulkLoadNodes(ctx, types.LabelFunction, []types.GraphNode{
		funcNode("f", "handler", "src/a.ts", "body"),
	})
	require.NoError(t, err)

	nodes, err := store.AllNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	byID := map[string]types.GraphNode{}
	for _, n := range nodes {
		byID[n.ID] = n
	}
	file := byID["file_a"]
	assert.Equal(t, types.LabelFile, file.Label)
	assert.Equal(t, "src/a.ts", file.PropString("filePath"))

	fn := byID["func_f"]
	assert.Equal(t, types.LabelFunction, fn.Label)
	assert.Equal(t, 1, fn.PropInt("startLine"))
	assert.Equal(t, 10, fn.PropInt("endLine"))
}

func TestCamelCase(t *testing.T) {
	tests := map[string]string{
		"file_path":      "filePath",
		"start_line":     "startLine",
		"entry_point_id": "entryPointId",
		"name":           "name",
		"step_count":     "stepCount",
	}
	for in, want := range tests {
		assert.Equal(t, want, camelCase(in))
	}
}

func TestLoadEmbeddings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const insert = `
		INSERT OR REPLACE INTO embeddings (node_id, file_path, vector, dimension, model)
		VALUES (?, ?, ?, ?, ?)`
	vec := []float32{0.5, -0.25, 1}
	applied, err := store.ExecuteBatched(ctx, insert, [][]any{
		{"func_a", "src/a.ts", SerializeVector(vec), len(vec), "test"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	stored, err := store.LoadEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "func_a", stored[0].NodeID)
	assert.Equal(t, "src/a.ts", stored[0].FilePath)
	assert.Equal(t, vec, stored[0].Vector)
}
