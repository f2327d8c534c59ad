package factcheck

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/modwatch/internal/cache"
	"github.com/ppiankov/modwatch/internal/model"
)

// CachedSource memoizes successful searches. Failures are never cached.
type CachedSource struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
}

// NewCachedSource wraps source with c
func NewCachedSource(source Source, c cache.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, cache: c, ttl: ttl}
}

// Name returns the wrapped source name
func (s *CachedSource) Name() string {
	return s.source.Name()
}

// Search returns a cached result when present, otherwise queries the source
func (s *CachedSource) Search(ctx context.Context, claim string) (*model.SearchResult, error) {
	key := cache.Key("search", s.source.Name(), claim)

	if data, ok := s.cache.Get(key); ok {
		var cached model.SearchResult
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		_ = s.cache.Delete(key)
	}

	result, err := s.source.Search(ctx, claim)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		_ = s.cache.Set(key, data, s.ttl)
	}
	return result, nil
}
