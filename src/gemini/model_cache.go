package gemini

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultModelCacheTTL is how long a fetched model list is served.
const DefaultModelCacheTTL = 10 * time.Minute

// ModelLister lists models. Generator implements it.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelCache serves a model list fetched at most once per TTL.
type ModelCache struct {
	lister ModelLister
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	models    []ModelInfo
	fetchedAt time.Time
}

// NewModelCache creates a new model cache. A ttl of zero or less uses
// DefaultModelCacheTTL.
func NewModelCache(lister ModelLister, ttl time.Duration) *ModelCache {
	if ttl <= 0 {
		ttl = DefaultModelCacheTTL
	}
	return &ModelCache{
		lister: lister,
		ttl:    ttl,
		now:    time.Now,
	}
}

// ListModels returns the cached list, refreshing it when it has expired.
// A failed refresh is returned as is and the stale list is kept.
func (mc *ModelCache) ListModels(ctx context.Context) ([]ModelInfo, error) {
	mc.mu.RLock()
	models, fetchedAt := mc.models, mc.fetchedAt
	mc.mu.RUnlock()

	if models != nil && mc.now().Sub(fetchedAt) < mc.ttl {
		return models, nil
	}

	models, err := mc.lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if models == nil {
		models = []ModelInfo{}
	}

	mc.mu.Lock()
	mc.models = models
	mc.fetchedAt = mc.now()
	mc.mu.Unlock()

	return models, nil
}

// GetModel looks a model up by name, with or without the "models/" prefix.
// It returns nil if the model is not listed.
func (mc *ModelCache) GetModel(ctx context.Context, name string) (*ModelInfo, error) {
	models, err := mc.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimPrefix(name, "models/")
	for i := range models {
		if models[i].Name == name {
			return &models[i], nil
		}
	}
	return nil, nil
}

// Clear drops the cached list.
func (mc *ModelCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.models = nil
	mc.fetchedAt = time.Time{}
}
