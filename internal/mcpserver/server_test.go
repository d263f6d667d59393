package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codegraph-mcp/internal/registry"
	"github.com/dshills/codegraph-mcp/internal/service"
	"github.com/dshills/codegraph-mcp/internal/storage"
	"github.com/dshills/codegraph-mcp/pkg/types"
)

func newTestServer(t *testing.T) (*Server, *registry.Repo) {
	t.Helper()
	reg := registry.New(t.TempDir())
	stores := storage.NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(stores.CloseAll)

	repoPath := t.TempDir()
	repo := &registry.Repo{
		ID:        registry.RepoID(repoPath),
		RepoPath:  repoPath,
		IndexedAt: time.Now().UTC(),
		Stats:     types.RepoStats{Files: 1, Nodes: 2, Edges: 1},
	}
	require.NoError(t, reg.Save(repo))

	store, err := stores.Open(repo.ID, repo.StorePath(reg.Root()))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.BulkLoadNodes(ctx, types.LabelFile, []types.GraphNode{
		{ID: "file_a", Label: types.LabelFile, Properties: map[string]any{
			"name": "auth.ts", "filePath": "src/auth.ts",
			"content": "authenticate user sessions",
		}},
	})
	require.NoError(t, err)
	_, err = store.BulkLoadNodes(ctx, types.LabelFunction, []types.GraphNode{
		{ID: "func_a", Label: types.LabelFunction, Properties: map[string]any{
			"name": "authenticate", "filePath": "src/auth.ts",
		}},
	})
	require.NoError(t, err)

	svc := service.New(reg, stores, nil)
	return NewServer(svc, repoPath), repo
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewServer(t *testing.T) {
	s, _ := newTestServer(t)
	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.svc)
	assert.NotNil(t, s.HTTPHandler())
}

func TestToolDefinitions(t *testing.T) {
	assert.Equal(t, "search", searchTool().Name)
	assert.Equal(t, "cypher", cypherTool().Name)
	assert.Equal(t, "read", readTool().Name)
	assert.Equal(t, "overview", overviewTool().Name)

	assert.Contains(t, searchTool().InputSchema.Required, "query")
	assert.Contains(t, cypherTool().InputSchema.Required, "query")
	assert.Contains(t, readTool().InputSchema.Required, "path")
	assert.Empty(t, overviewTool().InputSchema.Required)
}

func TestHandleSearch(t *testing.T) {
	s, repo := newTestServer(t)

	result, err := s.handleSearch(context.Background(), callRequest(map[string]interface{}{
		"query": "authenticate",
	}))
	require.NoError(t, err)

	var body struct {
		Repo    string `json:"repo"`
		Mode    string `json:"mode"`
		Results []struct {
			FilePath string `json:"filePath"`
			Rank     int    `json:"rank"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, repo.RepoPath, body.Repo)
	assert.Equal(t, "lexical", body.Mode)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "src/auth.ts", body.Results[0].FilePath)
	assert.Equal(t, 1, body.Results[0].Rank)
}

func TestHandleSearch_InvalidParams(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleSearch(ctx, callRequest(map[string]interface{}{}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeEmptyQuery, err.(*MCPError).Code)

	_, err = s.handleSearch(ctx, callRequest(map[string]interface{}{
		"query": "x", "limit": float64(500),
	}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidParams, err.(*MCPError).Code)
}

func TestHandleSearch_UnresolvedRepo(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleSearch(context.Background(), callRequest(map[string]interface{}{
		"query": "authenticate", "path": "/nowhere",
	}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeRepoNotFound, err.(*MCPError).Code)
}

func TestHandleCypher(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleCypher(context.Background(), callRequest(map[string]interface{}{
		"query": `SELECT id FROM "Function"`,
	}))
	require.NoError(t, err)

	var body struct {
		Count   int              `json:"count"`
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "func_a", body.Records[0]["id"])
}

func TestHandleRead(t *testing.T) {
	s, repo := newTestServer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(repo.RepoPath, "src"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(repo.RepoPath, "src", "auth.ts"), []byte("export {}"), 0o644))

	result, err := s.handleRead(context.Background(), callRequest(map[string]interface{}{
		"path": "src/auth.ts",
	}))
	require.NoError(t, err)
	assert.Equal(t, "export {}", resultText(t, result))

	_, err = s.handleRead(context.Background(), callRequest(map[string]interface{}{
		"path": "../outside",
	}))
	assert.Error(t, err)

	_, err = s.handleRead(context.Background(), callRequest(map[string]interface{}{}))
	require.Error(t, err)
	assert.Equal(t, ErrorCodeInvalidParams, err.(*MCPError).Code)
}

func TestHandleOverview(t *testing.T) {
	s, repo := newTestServer(t)

	result, err := s.handleOverview(context.Background(), callRequest(nil))
	require.NoError(t, err)

	var body struct {
		Repo       string `json:"repo"`
		ID         string `json:"id"`
		Statistics struct {
			Files int `json:"files"`
			Nodes int `json:"nodes"`
			Edges int `json:"edges"`
		} `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, repo.RepoPath, body.Repo)
	assert.Equal(t, repo.ID, body.ID)
	assert.Equal(t, 1, body.Statistics.Files)
	assert.Equal(t, 2, body.Statistics.Nodes)
	assert.Equal(t, 1, body.Statistics.Edges)
}
