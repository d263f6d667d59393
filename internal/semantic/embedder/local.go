package embedder

import (
	"context"
	"crypto/sha256"
	"math"
	"strings"
)

const (
	// LocalDimension is the dimension of the deterministic local embedding
	LocalDimension = 384

	localProviderName = "local"
	localModelName    = "feature-hash-v1"
)

// LocalProvider produces deterministic feature-hashed embeddings without any
// external inference. Quality is far below a real model; it exists so the
// semantic path stays exercisable offline and in tests.
type LocalProvider struct {
	cache *Cache
}

// NewLocalProvider creates a local embedder
func NewLocalProvider(cache *Cache) *LocalProvider {
	return &LocalProvider{cache: cache}
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	hash := ComputeHash(text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	vec := make([]float32, LocalDimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		for i := 0; i < 8; i++ {
			idx := int(sum[i*2])<<8 | int(sum[i*2+1])
			vec[idx%LocalDimension] += 1.0
		}
	}

	// L2 normalize so cosine comparisons behave
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	emb := &Embedding{
		Vector:    vec,
		Dimension: LocalDimension,
		Provider:  localProviderName,
		Model:     localModelName,
		Hash:      hash,
	}
	if l.cache != nil {
		l.cache.Set(hash, emb)
	}
	return emb, nil
}

func (l *LocalProvider) Dimension() int   { return LocalDimension }
func (l *LocalProvider) Provider() string { return localProviderName }
func (l *LocalProvider) Model() string    { return localModelName }
