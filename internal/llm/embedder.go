package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/modwatch/internal/cache"
)

// CachedEmbedder memoizes embedding vectors. Failures are never cached.
type CachedEmbedder struct {
	embedder  Embedder
	cache     cache.Cache
	namespace string
	ttl       time.Duration
}

// NewCachedEmbedder wraps embedder with c. name keeps vectors from
// different embedding models apart.
func NewCachedEmbedder(embedder Embedder, c cache.Cache, name string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{embedder: embedder, cache: c, namespace: name, ttl: ttl}
}

// Embed returns a cached vector when present, otherwise asks the embedder
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cache.Key("embedding", e.namespace, text)

	if data, ok := e.cache.Get(key); ok {
		var vec []float64
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
		_ = e.cache.Delete(key)
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		_ = e.cache.Set(key, data, e.ttl)
	}
	return vec, nil
}
