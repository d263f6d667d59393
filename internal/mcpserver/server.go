// Package mcpserver exposes the code graph as MCP tools over stdio and over
// the streamable HTTP transport. Tool handlers resolve the target repo from
// the caller's working directory, so an agent never has to know registry ids.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codegraph-mcp/internal/service"
)

const (
	// ServerName is the MCP server name
	ServerName = "codegraph-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp *server.MCPServer
	svc *service.Service
	cwd string
}

// NewServer creates an MCP server rooted at cwd. The cwd anchors repo
// resolution for tool calls that do not pass an explicit path.
func NewServer(svc *service.Service, cwd string) *Server {
	s := &Server{
		mcp: server.NewMCPServer(ServerName, ServerVersion),
		svc: svc,
		cwd: cwd,
	}
	s.registerTools()
	return s
}

// ServeStdio serves MCP over stdin/stdout and blocks until shutdown. Stdout
// carries the protocol, so nothing else may write to it.
func (s *Server) ServeStdio(ctx context.Context) error {
	defer s.svc.Stores.CloseAll()
	return server.ServeStdio(s.mcp)
}

// HTTPHandler returns the streamable HTTP transport for this server. The
// transport manages Mcp-Session-Id issuance and per-session state itself.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(cypherTool(), s.handleCypher)
	s.mcp.AddTool(readTool(), s.handleRead)
	s.mcp.AddTool(overviewTool(), s.handleOverview)
}
