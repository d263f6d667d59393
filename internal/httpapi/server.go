// Package httpapi exposes the repo registry, graph queries, and search over a
// local HTTP surface. The same operations are available as MCP tools; this
// surface exists for editors and scripts that speak plain HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dshills/codegraph-mcp/internal/framework"
	"github.com/dshills/codegraph-mcp/internal/registry"
	"github.com/dshills/codegraph-mcp/internal/service"
	"github.com/dshills/codegraph-mcp/pkg/types"
)

// Server is the HTTP API server
type Server struct {
	svc    *service.Service
	engine *gin.Engine
	http   *http.Server
}

// New creates the HTTP server. mcpHandler, when non-nil, is mounted at
// /api/mcp so MCP clients can use the streamable HTTP transport on the same
// listener.
func New(svc *service.Service, addr string, mcpHandler http.Handler) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestID(), requestLog(), gin.Recovery())

	s := &Server{
		svc:    svc,
		engine: engine,
		http: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	api := engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/repos", s.handleRepos)
	api.GET("/repo", s.handleRepo)
	api.GET("/graph", s.handleGraph)
	api.GET("/file", s.handleFile)
	api.GET("/framework", s.handleFramework)
	api.POST("/query", s.handleQuery)
	api.POST("/search", s.handleSearch)
	if mcpHandler != nil {
		api.Any("/mcp", gin.WrapH(mcpHandler))
	}
	return s
}

// ListenAndServe blocks serving requests until the listener fails or the
// server is shut down
func (s *Server) ListenAndServe() error {
	slog.Info("http api listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler { return s.engine }

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"requestID", c.GetString("requestID"))
	}
}

// fail maps service errors onto status codes. Unknown repos and missing files
// are structured 404s, never 500s.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrNotInitialized):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) resolveRepo(c *gin.Context, ref string) (*registry.Repo, bool) {
	repo, err := s.svc.ResolveRef(ref)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return repo, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRepos(c *gin.Context) {
	repos, err := s.svc.Registry.List(true)
	if err != nil {
		fail(c, err)
		return
	}
	if repos == nil {
		repos = []registry.Repo{}
	}
	c.JSON(http.StatusOK, gin.H{"repos": repos})
}

func (s *Server) handleRepo(c *gin.Context) {
	repo, ok := s.resolveRepo(c, c.Query("repo"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, repo)
}

func (s *Server) handleGraph(c *gin.Context) {
	repo, ok := s.resolveRepo(c, c.Query("repo"))
	if !ok {
		return
	}
	nodes, edges, err := s.svc.Graph(c.Request.Context(), repo)
	if err != nil {
		fail(c, err)
		return
	}
	if nodes == nil {
		nodes = []types.GraphNode{}
	}
	if edges == nil {
		edges = []types.GraphRelationship{}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes, "relationships": edges})
}

func (s *Server) handleFile(c *gin.Context) {
	repo, ok := s.resolveRepo(c, c.Query("repo"))
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	data, err := s.svc.ReadFile(repo, path)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

// handleFramework scores a file path against entry-point conventions. The
// external process-detection analyzer calls this while weighting flows.
func (s *Server) handleFramework(c *gin.Context) {
	p := c.Query("path")
	if p == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	det, ok := framework.Detect(p)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"matched": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matched":    true,
		"framework":  det.Framework,
		"multiplier": det.Multiplier,
		"reason":     det.Reason,
	})
}

type queryRequest struct {
	Repo   string `json:"repo" binding:"required"`
	Cypher string `json:"cypher" binding:"required"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	repo, ok := s.resolveRepo(c, req.Repo)
	if !ok {
		return
	}
	records, err := s.svc.Query(c.Request.Context(), repo, req.Cypher)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

type searchRequest struct {
	Repo  string `json:"repo" binding:"required"`
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	repo, ok := s.resolveRepo(c, req.Repo)
	if !ok {
		return
	}
	hits, mode, err := s.svc.Search(c.Request.Context(), repo, req.Query, req.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	if hits == nil {
		hits = []types.SearchHit{}
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode, "hits": hits})
}
