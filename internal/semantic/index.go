// Package semantic implements the embedding-based nearest-neighbor index
// consumed by hybrid search. Embeddings are persisted by external ingestion;
// this package embeds the query and ranks stored vectors by cosine
// similarity in Go. Readiness is an independent flag checked before every
// semantic-aware call; an unready index degrades search, never blocks it.
package semantic

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dshills/codegraph-mcp/internal/semantic/embedder"
	"github.com/dshills/codegraph-mcp/internal/storage"
	"github.com/dshills/codegraph-mcp/pkg/types"
)

const (
	readinessTTL = 30 * time.Second
	matrixTTL    = time.Minute
)

// Index ranks one repo's persisted node embeddings against query embeddings
type Index struct {
	store *storage.Store
	emb   embedder.Embedder

	mu        sync.Mutex
	ready     bool
	readyAt   time.Time
	matrix    []storage.StoredEmbedding
	matrixAt  time.Time
	dimension int
}

// NewIndex creates a semantic index over store. emb may come from
// embedder.NewFromEnv.
func NewIndex(store *storage.Store, emb embedder.Embedder) *Index {
	return &Index{store: store, emb: emb}
}

// Ready reports whether the index can serve: a provider is configured and
// ingestion persisted at least one embedding. The probe is cached briefly.
func (x *Index) Ready(ctx context.Context) bool {
	if x == nil || x.emb == nil {
		return false
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if time.Since(x.readyAt) < readinessTTL {
		return x.ready
	}
	n, err := x.store.CountEmbeddings(ctx)
	x.ready = err == nil && n > 0
	x.readyAt = time.Now()
	return x.ready
}

// Search embeds the query and returns the top files by cosine similarity,
// deduplicated by file path keeping each file's best-scoring node.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]types.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	queryEmb, err := x.emb.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	stored, err := x.loadMatrix(ctx)
	if err != nil {
		return nil, err
	}

	best := make(map[string]float64)
	for _, emb := range stored {
		if len(emb.Vector) != len(queryEmb.Vector) || emb.FilePath == "" {
			continue
		}
		score := storage.CosineSimilarity(queryEmb.Vector, emb.Vector)
		if score > best[emb.FilePath] {
			best[emb.FilePath] = score
		}
	}

	hits := make([]types.SearchHit, 0, len(best))
	for path, score := range best {
		hits = append(hits, types.SearchHit{FilePath: path, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].FilePath < hits[j].FilePath
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

func (x *Index) loadMatrix(ctx context.Context) ([]storage.StoredEmbedding, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.matrix != nil && time.Since(x.matrixAt) < matrixTTL {
		return x.matrix, nil
	}
	stored, err := x.store.LoadEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	x.matrix = stored
	x.matrixAt = time.Now()
	return stored, nil
}
