package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codegraph-mcp/internal/registry"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeRepoNotFound  = -32001 // No indexed repo owns the working directory
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	repo, err := s.resolveRepo(args, "path")
	if err != nil {
		return nil, err
	}

	hits, mode, err := s.svc.Search(ctx, repo, query, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(hits))
	for _, hit := range hits {
		results = append(results, map[string]interface{}{
			"filePath": hit.FilePath,
			"name":     hit.Name,
			"score":    hit.Score,
			"rank":     hit.Rank,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"repo":    repo.RepoPath,
		"mode":    mode,
		"results": results,
	})), nil
}

// handleCypher handles the cypher tool invocation
func (s *Server) handleCypher(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	repo, err := s.resolveRepo(args, "path")
	if err != nil {
		return nil, err
	}

	records, err := s.svc.Query(ctx, repo, query)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"repo":    repo.RepoPath,
		"count":   len(records),
		"records": records,
	})), nil
}

// handleRead handles the read tool invocation
func (s *Server) handleRead(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	repo, err := s.resolveRepo(args, "cwd")
	if err != nil {
		return nil, err
	}

	data, err := s.svc.ReadFile(repo, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "file not readable", map[string]interface{}{
			"param": "path",
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleOverview handles the overview tool invocation
func (s *Server) handleOverview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	repo, err := s.resolveRepo(args, "path")
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"repo":       repo.RepoPath,
		"id":         repo.ID,
		"lastCommit": repo.LastCommit,
		"indexedAt":  repo.IndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		"statistics": map[string]interface{}{
			"files":       repo.Stats.Files,
			"nodes":       repo.Stats.Nodes,
			"edges":       repo.Stats.Edges,
			"communities": repo.Stats.Communities,
			"processes":   repo.Stats.Processes,
		},
	})), nil
}

// resolveRepo resolves the repo for a tool call from the named path argument,
// falling back to the server's working directory
func (s *Server) resolveRepo(args map[string]interface{}, key string) (*registry.Repo, error) {
	cwd := getStringDefault(args, key, s.cwd)
	repo, err := s.svc.ResolveCwd(cwd)
	if err != nil {
		return nil, newMCPError(ErrorCodeRepoNotFound, "no indexed repo owns this directory", map[string]interface{}{
			"cwd":  cwd,
			"hint": "load a graph for this repo first",
		})
	}
	return repo, nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
