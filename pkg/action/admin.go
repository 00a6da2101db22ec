package action

import (
	"context"

	"go.uber.org/zap"

	"github.com/pario-ai/quill/pkg/logging"
	"github.com/pario-ai/quill/pkg/models"
)

// ClearResult reports whether clear_cache removed the cache.
type ClearResult struct {
	Cleared bool `json:"cleared"`
}

// HealthResult describes the running configuration.
type HealthResult struct {
	Status          string          `json:"status"`
	Providers       []string        `json:"providers"`
	CachingEnabled  bool            `json:"cachingEnabled"`
	FallbackEnabled bool            `json:"fallbackEnabled"`
	Actions         []models.Action `json:"actions"`
}

func (s *Services) cacheStats(ctx context.Context, _ models.ActionRequest) (any, error) {
	if s.Cache == nil {
		return models.CacheStats{}, nil
	}
	return s.Cache.Stats(ctx), nil
}

// clearCache never fails the request: storage errors are logged and
// reported as cleared=false.
func (s *Services) clearCache(ctx context.Context, _ models.ActionRequest) (any, error) {
	if s.Cache == nil {
		return ClearResult{Cleared: true}, nil
	}
	if err := s.Cache.Clear(ctx); err != nil {
		logging.FromContext(ctx, s.Logger).Warn("cache clear failed", zap.Error(err))
		return ClearResult{Cleared: false}, nil
	}
	return ClearResult{Cleared: true}, nil
}

// health reports "degraded" when no provider is available.
func (s *Services) health(actions func() []models.Action) HandlerFunc {
	return func(context.Context, models.ActionRequest) (any, error) {
		h := HealthResult{
			Status:         "ok",
			Providers:      []string{},
			CachingEnabled: s.Cache != nil && s.Cache.Enabled(),
			Actions:        actions(),
		}
		if s.Orchestrator != nil {
			h.Providers = s.Orchestrator.Names()
			h.FallbackEnabled = s.Orchestrator.FallbackEnabled()
		}
		if len(h.Providers) == 0 {
			h.Status = "degraded"
		}
		return h, nil
	}
}
