package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search the code graph with hybrid full-text and semantic retrieval",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (keywords or natural language)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Working directory used to resolve the repo; defaults to the server's cwd",
				},
			},
			Required: []string{"query"},
		},
	}
}

// cypherTool returns the tool definition for cypher
func cypherTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cypher",
		Description: "Run a raw read query against the repo's graph store and return the rows as records",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Query text executed verbatim against the graph store",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Working directory used to resolve the repo; defaults to the server's cwd",
				},
			},
			Required: []string{"query"},
		},
	}
}

// readTool returns the tool definition for read
func readTool() mcp.Tool {
	return mcp.Tool{
		Name:        "read",
		Description: "Read a file from the resolved repo by repo-relative path",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File path relative to the repo root",
				},
				"cwd": map[string]interface{}{
					"type":        "string",
					"description": "Working directory used to resolve the repo; defaults to the server's cwd",
				},
			},
			Required: []string{"path"},
		},
	}
}

// overviewTool returns the tool definition for overview
func overviewTool() mcp.Tool {
	return mcp.Tool{
		Name:        "overview",
		Description: "Summarize the resolved repo's index: node, edge, community, and process counts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Working directory used to resolve the repo; defaults to the server's cwd",
				},
			},
		},
	}
}
