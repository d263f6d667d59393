package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codegraph-mcp/pkg/types"
)

type fakeSemantic struct {
	ready bool
	hits  []types.SearchHit
	err   error
	calls int
}

func (f *fakeSemantic) Ready(ctx context.Context) bool { return f.ready }

func (f *fakeSemantic) Search(ctx context.Context, query string, limit int) ([]types.SearchHit, error) {
	f.calls++
	return f.hits, f.err
}

func TestHybrid_SemanticNotReady(t *testing.T) {
	store := newTestStore(t)
	loadNodes(t, store, types.LabelFile,
		fileNode("a", "a.ts", "src/a.ts", "token parser"),
		fileNode("b", "b.ts", "src/b.ts", "token"),
	)

	sem := &fakeSemantic{ready: false, hits: hitList("src/b.ts")}
	s := NewSearcher(store, sem, nil)

	lexical, err := s.Lexical(context.Background(), "token", 10)
	require.NoError(t, err)
	hybrid, err := s.Hybrid(context.Background(), "token", 10)
	require.NoError(t, err)

	// Not-ready semantic backend never touches the result
	assert.Equal(t, lexical, hybrid)
	assert.Zero(t, sem.calls)
}

func TestHybrid_FusesWhenReady(t *testing.T) {
	store := newTestStore(t)
	loadNodes(t, store, types.LabelFile,
		fileNode("a", "a.ts", "src/a.ts", "token parser"),
	)

	sem := &fakeSemantic{ready: true, hits: hitList("src/sem.ts", "src/a.ts")}
	s := NewSearcher(store, sem, nil)

	hits, err := s.Hybrid(context.Background(), "token", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	got := map[string]bool{}
	for _, h := range hits {
		got[h.FilePath] = true
	}
	assert.True(t, got["src/a.ts"])
	assert.True(t, got["src/sem.ts"])
	assert.Equal(t, 1, sem.calls)
}

func TestHybrid_SemanticErrorDegrades(t *testing.T) {
	store := newTestStore(t)
	loadNodes(t, store, types.LabelFile,
		fileNode("a", "a.ts", "src/a.ts", "token parser"),
	)

	sem := &fakeSemantic{ready: true, err: errors.New("backend down")}
	s := NewSearcher(store, sem, nil)

	hits, err := s.Hybrid(context.Background(), "token", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "src/a.ts", hits[0].FilePath)
}

func TestHybrid_NilSemantic(t *testing.T) {
	store := newTestStore(t)
	loadNodes(t, store, types.LabelFile,
		fileNode("a", "a.ts", "src/a.ts", "token parser"),
	)

	s := NewSearcher(store, nil, nil)
	assert.False(t, s.SemanticReady(context.Background()))

	hits, err := s.Hybrid(context.Background(), "token", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestHybrid_Caches(t *testing.T) {
	store := newTestStore(t)
	loadNodes(t, store, types.LabelFile,
		fileNode("a", "a.ts", "src/a.ts", "token parser"),
	)

	sem := &fakeSemantic{ready: true, hits: hitList("src/sem.ts")}
	s := NewSearcher(store, sem, nil)

	first, err := s.Hybrid(context.Background(), "token", 10)
	require.NoError(t, err)
	second, err := s.Hybrid(context.Background(), "token", 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// Second call served from cache without re-querying the semantic backend
	assert.Equal(t, 1, sem.calls)
}
