package embedder

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// OpenAIDimension is the text-embedding-3-small dimension
	OpenAIDimension = 1536

	openaiProviderName = "openai"

	// EnvOpenAIAPIKey selects the API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// OpenAIProvider generates embeddings through the OpenAI embeddings API
type OpenAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
	cache  *Cache
}

// NewOpenAIProvider creates an OpenAI embedder; the key falls back to
// OPENAI_API_KEY when empty
func NewOpenAIProvider(apiKey string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  openai.SmallEmbedding3,
		cache:  cache,
	}, nil
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	hash := ComputeHash(text)
	if o.cache != nil {
		if emb, ok := o.cache.Get(hash); ok {
			return emb, nil
		}
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: o.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	emb := &Embedding{
		Vector:    resp.Data[0].Embedding,
		Dimension: len(resp.Data[0].Embedding),
		Provider:  openaiProviderName,
		Model:     string(o.model),
		Hash:      hash,
	}
	if o.cache != nil {
		o.cache.Set(hash, emb)
	}
	return emb, nil
}

func (o *OpenAIProvider) Dimension() int   { return OpenAIDimension }
func (o *OpenAIProvider) Provider() string { return openaiProviderName }
func (o *OpenAIProvider) Model() string    { return string(o.model) }
