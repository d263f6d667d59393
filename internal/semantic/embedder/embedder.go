// Package embedder generates query embeddings for the semantic index.
// Providers sit behind one interface with an LRU cache keyed by content
// hash; the local provider keeps the system usable without any API key.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is a vector embedding with provenance
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string
}

// Embedder generates embeddings for text
type Embedder interface {
	// GenerateEmbedding embeds a single text
	GenerateEmbedding(ctx context.Context, text string) (*Embedding, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string
}

// Cache provides in-memory LRU caching of embeddings by content hash
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates an embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a deep copy of a cached embedding
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	vectorCopy := make([]float32, len(emb.Vector))
	copy(vectorCopy, emb.Vector)
	return &Embedding{
		Vector:    vectorCopy,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
		Hash:      emb.Hash,
	}, true
}

// Set stores an embedding with automatic LRU eviction
func (c *Cache) Set(hash string, emb *Embedding) {
	c.cache.Add(hash, emb)
}

// ComputeHash computes the SHA-256 cache key for text
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
