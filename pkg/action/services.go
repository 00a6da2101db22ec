// Package action validates and dispatches action requests and shapes their results.
package action

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/quill/pkg/apperr"
	"github.com/pario-ai/quill/pkg/cache"
	"github.com/pario-ai/quill/pkg/logging"
	"github.com/pario-ai/quill/pkg/models"
	"github.com/pario-ai/quill/pkg/provider"
	"github.com/pario-ai/quill/pkg/usage"
)

// Limits bound accepted input.
type Limits struct {
	// MinInputLength is the minimum trimmed length, in characters, of content text.
	MinInputLength int
	// MaxInputLength truncates longer text. Zero disables truncation.
	MaxInputLength int
}

// DefaultLimits mirrors the configuration defaults.
var DefaultLimits = Limits{MinInputLength: 10, MaxInputLength: 12000}

// Services holds the shared state every handler works against. Build one
// per process (or per test) and pass it to NewRouter.
type Services struct {
	// Cache may be nil, which disables caching.
	Cache        *cache.Store
	Orchestrator *provider.Orchestrator
	// Usage may be nil, which disables usage recording.
	Usage  usage.Recorder
	Limits Limits
	Logger *zap.Logger

	flight singleflight.Group
}

// complete returns the provider result for a rendered prompt, serving it
// from the cache when possible. Concurrent misses for the same fingerprint
// share one provider call. The bool reports a cache hit.
func (s *Services) complete(ctx context.Context, requestID string, act models.Action, text string, options map[string]any, req provider.Request) (*models.ProviderResult, bool, error) {
	logger := logging.FromContext(ctx, s.Logger)

	var fp cache.Fingerprint
	useCache := s.Cache != nil && s.Cache.Enabled()
	if useCache {
		var err error
		if fp, err = s.Cache.Fingerprint(act, text, options); err != nil {
			logger.Warn("request will not be cached", zap.Error(err))
			useCache = false
		}
	}

	if useCache {
		if res, ok := s.Cache.Get(ctx, fp); ok {
			logger.Debug("cache hit", zap.String("provider", res.ProviderName))
			return res, true, nil
		}
	}

	call := func() (any, error) {
		if s.Orchestrator == nil {
			return nil, apperr.Wrap(apperr.NoProviderAvailable, "no providers configured", provider.ErrNoProviders)
		}
		start := time.Now()
		res, err := s.Orchestrator.Call(ctx, req)
		if err != nil {
			return nil, err
		}
		if useCache {
			s.Cache.Put(ctx, fp, act, text, *res)
		}
		s.recordUsage(ctx, requestID, act, res, time.Since(start))
		return res, nil
	}

	var (
		v   any
		err error
	)
	if useCache {
		v, err, _ = s.flight.Do(fp.Key, call)
	} else {
		v, err = call()
	}
	if err != nil {
		return nil, false, err
	}
	res := *v.(*models.ProviderResult)
	return &res, false, nil
}

func (s *Services) recordUsage(ctx context.Context, requestID string, act models.Action, res *models.ProviderResult, latency time.Duration) {
	if s.Usage == nil {
		return
	}
	rec := models.UsageRecord{
		RequestID:  requestID,
		Action:     act,
		Provider:   res.ProviderName,
		Model:      res.Model,
		TokensUsed: res.TokensUsed,
		LatencyMs:  latency.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Usage.Record(ctx, rec); err != nil {
		logging.FromContext(ctx, s.Logger).Warn("failed to record usage", zap.Error(err))
	}
}
