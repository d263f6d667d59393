// Package service wires the registry, store manager, and search stack into
// the operations the protocol servers expose. Both the HTTP API and the MCP
// tools go through this one layer so repo resolution, lazy connection
// opening, and hybrid/lexical selection behave identically on every surface.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/codegraph-mcp/internal/registry"
	"github.com/dshills/codegraph-mcp/internal/search"
	"github.com/dshills/codegraph-mcp/internal/semantic"
	"github.com/dshills/codegraph-mcp/internal/semantic/embedder"
	"github.com/dshills/codegraph-mcp/internal/storage"
	"github.com/dshills/codegraph-mcp/pkg/types"
)

// Search modes reported to callers
const (
	ModeHybrid  = "hybrid"
	ModeLexical = "lexical"
)

// Service is the shared operation layer behind the protocol servers
type Service struct {
	Registry *registry.Registry
	Stores   *storage.Manager

	emb       embedder.Embedder
	fusion    search.FusionStrategy
	mu        sync.Mutex
	searchers map[string]*search.Searcher
}

// New creates a service. emb may be nil to disable the semantic index.
func New(reg *registry.Registry, stores *storage.Manager, emb embedder.Embedder) *Service {
	return &Service{
		Registry:  reg,
		Stores:    stores,
		emb:       emb,
		fusion:    search.DefaultFusion(),
		searchers: make(map[string]*search.Searcher),
	}
}

// ResolveRef resolves a repo reference (registry id or filesystem path)
func (s *Service) ResolveRef(ref string) (*registry.Repo, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty repo reference", types.ErrNotFound)
	}
	if repo, err := s.Registry.Get(ref); err == nil {
		return repo, nil
	}
	if repo, ok := s.Registry.FindRepoForPath(ref); ok {
		return repo, nil
	}
	return nil, fmt.Errorf("%w: repo %s", types.ErrNotFound, ref)
}

// ResolveCwd resolves the repo owning a working directory
func (s *Service) ResolveCwd(cwd string) (*registry.Repo, error) {
	repo, ok := s.Registry.FindRepoForPath(cwd)
	if !ok {
		return nil, fmt.Errorf("%w: no indexed repo owns %s", types.ErrNotFound, cwd)
	}
	return repo, nil
}

// Open lazily opens the repo's store connection on first touch
func (s *Service) Open(repo *registry.Repo) (*storage.Store, error) {
	return s.Stores.Open(repo.ID, repo.StorePath(s.Registry.Root()))
}

// searcherFor returns the cached searcher for a store, building its semantic
// index on first use
func (s *Service) searcherFor(store *storage.Store) *search.Searcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sr, ok := s.searchers[store.RepoID()]; ok {
		return sr
	}
	var idx search.SemanticIndex
	if s.emb != nil {
		idx = semantic.NewIndex(store, s.emb)
	}
	sr := search.NewSearcher(store, idx, s.fusion)
	s.searchers[store.RepoID()] = sr
	return sr
}

// Search runs hybrid search when the repo's semantic index is ready and
// lexical-only otherwise, reporting which mode served the request
func (s *Service) Search(ctx context.Context, repo *registry.Repo, query string, limit int) ([]types.SearchHit, string, error) {
	store, err := s.Open(repo)
	if err != nil {
		return nil, "", err
	}
	sr := s.searcherFor(store)
	mode := ModeLexical
	if sr.SemanticReady(ctx) {
		mode = ModeHybrid
	}
	hits, err := sr.Hybrid(ctx, query, limit)
	return hits, mode, err
}

// Query executes a raw passthrough query against the repo's store. This is a
// deliberate trust boundary: the index is a local developer tool and
// arbitrary graph queries are allowed.
func (s *Service) Query(ctx context.Context, repo *registry.Repo, text string) ([]storage.Record, error) {
	store, err := s.Open(repo)
	if err != nil {
		return nil, err
	}
	return store.Query(ctx, text)
}

// Graph returns the repo's full node and edge sets
func (s *Service) Graph(ctx context.Context, repo *registry.Repo) ([]types.GraphNode, []types.GraphRelationship, error) {
	store, err := s.Open(repo)
	if err != nil {
		return nil, nil, err
	}
	nodes, err := store.AllNodes(ctx)
	if err != nil {
		return nil, nil, err
	}
	edges, err := store.AllEdges(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// ReadFile reads a file relative to the repo root, refusing escapes
func (s *Service) ReadFile(repo *registry.Repo, relPath string) ([]byte, error) {
	clean := filepath.Clean(relPath)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return nil, fmt.Errorf("%w: path %s outside repo", types.ErrNotFound, relPath)
	}
	full := filepath.Join(repo.RepoPath, clean)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, relPath)
	}
	return data, nil
}
