package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Provider names accepted by the factory
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// EnvProvider overrides provider auto-detection
	EnvProvider = "CODEGRAPH_EMBEDDING_PROVIDER"
)

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. CODEGRAPH_EMBEDDING_PROVIDER (openai, local)
//  2. OPENAI_API_KEY present -> openai
//  3. local fallback
func NewFromEnv() (Embedder, error) {
	cache := NewCache(10000)

	if provider := strings.ToLower(os.Getenv(EnvProvider)); provider != "" {
		switch provider {
		case ProviderOpenAI:
			return NewOpenAIProvider("", cache)
		case ProviderLocal:
			return NewLocalProvider(cache), nil
		default:
			return nil, fmt.Errorf("unknown embedding provider %q", provider)
		}
	}

	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return NewOpenAIProvider("", cache)
	}
	return NewLocalProvider(cache), nil
}
