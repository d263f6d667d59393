package search

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codegraph-mcp/internal/storage"
	"github.com/dshills/codegraph-mcp/pkg/types"
)

// SemanticIndex is the boundary to the external embedding-based index. It is
// an optional background collaborator: Ready is checked before every
// semantic-aware call and absence degrades silently to lexical-only results.
type SemanticIndex interface {
	Ready(ctx context.Context) bool
	Search(ctx context.Context, query string, limit int) ([]types.SearchHit, error)
}

// cacheEntry holds a cached ranking with its expiry
type cacheEntry struct {
	hits      []types.SearchHit
	expiresAt time.Time
}

const (
	cacheEntries = 1000
	cacheTTL     = time.Hour
)

// Searcher coordinates lexical and semantic retrieval for one repo store
type Searcher struct {
	store    *storage.Store
	semantic SemanticIndex
	fusion   FusionStrategy
	cache    *lru.Cache[[32]byte, cacheEntry]
}

// NewSearcher creates a searcher. semantic may be nil (lexical-only);
// fusion nil selects the default reciprocal-rank strategy.
func NewSearcher(store *storage.Store, semantic SemanticIndex, fusion FusionStrategy) *Searcher {
	if fusion == nil {
		fusion = DefaultFusion()
	}
	cache, err := lru.New[[32]byte, cacheEntry](cacheEntries)
	if err != nil {
		// Only possible with a non-positive size
		panic(fmt.Sprintf("failed to create search cache: %v", err))
	}
	return &Searcher{store: store, semantic: semantic, fusion: fusion, cache: cache}
}

// Hybrid returns the fused lexical+semantic ranking when the semantic
// backend reports ready, and the unmodified lexical ranking otherwise. The
// degraded mode is not an error; the result itself is the only signal.
func (s *Searcher) Hybrid(ctx context.Context, query string, limit int) ([]types.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	key := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", query, limit, s.store.RepoID())))
	if entry, ok := s.cache.Get(key); ok && time.Now().Before(entry.expiresAt) {
		return entry.hits, nil
	}

	lexical, err := FullText(ctx, s.store, query, limit)
	if err != nil {
		return nil, err
	}

	hits := lexical
	if s.semantic != nil && s.semantic.Ready(ctx) {
		semantic, err := s.semantic.Search(ctx, query, limit)
		if err != nil {
			// Transient semantic failure degrades to lexical, never errors
			slog.Debug("semantic search skipped", "error", err)
		} else if len(semantic) > 0 {
			hits = s.fusion.Fuse(lexical, semantic, limit)
		}
	}

	s.cache.Add(key, cacheEntry{hits: hits, expiresAt: time.Now().Add(cacheTTL)})
	return hits, nil
}

// Lexical returns the full-text ranking only, bypassing the semantic index
// entirely. The augmentation path uses this for latency.
func (s *Searcher) Lexical(ctx context.Context, query string, limit int) ([]types.SearchHit, error) {
	return FullText(ctx, s.store, query, limit)
}

// SemanticReady reports whether hybrid search would currently fuse
func (s *Searcher) SemanticReady(ctx context.Context) bool {
	return s.semantic != nil && s.semantic.Ready(ctx)
}
