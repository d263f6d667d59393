package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_Deterministic(t *testing.T) {
	p := NewLocalProvider(nil)
	ctx := context.Background()

	a, err := p.GenerateEmbedding(ctx, "authenticate user session")
	require.NoError(t, err)
	b, err := p.GenerateEmbedding(ctx, "authenticate user session")
	require.NoError(t, err)
	assert.Equal(t, a.Vector, b.Vector)

	other, err := p.GenerateEmbedding(ctx, "database connection pool")
	require.NoError(t, err)
	assert.NotEqual(t, a.Vector, other.Vector)
}

func TestLocalProvider_Normalized(t *testing.T) {
	p := NewLocalProvider(nil)

	emb, err := p.GenerateEmbedding(context.Background(), "some text here")
	require.NoError(t, err)
	require.Len(t, emb.Vector, LocalDimension)

	var norm float64
	for _, v := range emb.Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestLocalProvider_EmptyText(t *testing.T) {
	p := NewLocalProvider(nil)
	_, err := p.GenerateEmbedding(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProvider_Metadata(t *testing.T) {
	p := NewLocalProvider(nil)
	assert.Equal(t, LocalDimension, p.Dimension())
	assert.Equal(t, "local", p.Provider())
	assert.NotEmpty(t, p.Model())
}

func TestCache(t *testing.T) {
	cache := NewCache(8)
	p := NewLocalProvider(cache)
	ctx := context.Background()

	emb, err := p.GenerateEmbedding(ctx, "cached text")
	require.NoError(t, err)

	got, ok := cache.Get(emb.Hash)
	require.True(t, ok)
	assert.Equal(t, emb.Vector, got.Vector)

	// Cached copies are independent of the stored vector
	got.Vector[0] = 99
	again, ok := cache.Get(emb.Hash)
	require.True(t, ok)
	assert.NotEqual(t, float32(99), again.Vector[0])

	_, ok = cache.Get(ComputeHash("never stored"))
	assert.False(t, ok)
}
