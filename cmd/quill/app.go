package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pario-ai/quill/pkg/action"
	"github.com/pario-ai/quill/pkg/cache"
	"github.com/pario-ai/quill/pkg/config"
	"github.com/pario-ai/quill/pkg/kv"
	"github.com/pario-ai/quill/pkg/logging"
	"github.com/pario-ai/quill/pkg/mcp"
	"github.com/pario-ai/quill/pkg/provider"
	"github.com/pario-ai/quill/pkg/tracing"
	"github.com/pario-ai/quill/pkg/usage"
)

// app is the wired process: config, storage, cache, providers and router.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	kv      kv.Store
	cache   *cache.Store
	ledger  *usage.Ledger
	tracing *tracing.Provider
	router  *action.Router
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openKV(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (kv.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemoryStore(), nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		store := kv.NewRedisStore(client, kv.RedisConfig{Namespace: cfg.Namespace})
		if err := store.Ping(ctx); err != nil {
			// Cache failures degrade to misses, so an unreachable Redis is not fatal.
			logger.Warn("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		return store, nil
	default:
		store, err := kv.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open cache store: %w", err)
		}
		return store, nil
	}
}

// newApp builds everything the serve, mcp and run commands need.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg

	tp, err := tracing.Setup("quill", version, cfg.Tracing.Exporter, os.Stderr)
	if err != nil {
		return err
	}
	a.tracing = tp

	if a.kv, err = openKV(ctx, cfg.Storage, a.logger); err != nil {
		return err
	}
	a.cache = cache.New(a.kv, cache.Config{
		Enabled:    cfg.Features.EnableCaching,
		TTL:        cfg.Limits.CacheTTL,
		MaxEntries: cfg.Limits.MaxCacheEntries,
	}, cache.WithLogger(a.logger))

	providers, err := provider.FromConfig(cfg, &http.Client{})
	switch {
	case errors.Is(err, provider.ErrNoProviders):
		// Admin actions still work without providers; content actions report
		// NoProviderAvailable.
		a.logger.Warn("no providers configured")
	case err != nil:
		return fmt.Errorf("init providers: %w", err)
	}
	orch := provider.NewOrchestrator(providers,
		provider.WithTimeout(cfg.Limits.ProviderTimeout),
		provider.WithFallback(cfg.Features.EnableFallback),
		provider.WithLogger(a.logger),
		provider.WithTracer(tp.Tracer()),
	)

	svc := &action.Services{
		Cache:        a.cache,
		Orchestrator: orch,
		Limits: action.Limits{
			MinInputLength: cfg.Limits.MinInputLength,
			MaxInputLength: cfg.Limits.MaxInputLength,
		},
		Logger: a.logger,
	}
	if cfg.Features.EnableUsage {
		if a.ledger, err = usage.New(cfg.Storage.DBPath, usage.WithRetention(cfg.Limits.UsageRetention)); err != nil {
			return fmt.Errorf("init usage ledger: %w", err)
		}
		svc.Usage = a.ledger
	}

	a.router = action.NewRouter(svc,
		action.WithLogger(a.logger),
		action.WithTracer(tp.Tracer()),
		action.WithRequestTimeout(cfg.Limits.RequestTimeout),
	)
	return nil
}

// openCache opens only the cache, for the cache subcommands.
func openCache(ctx context.Context, configPath string) (*cache.Store, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := openKV(ctx, cfg.Storage, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	c := cache.New(store, cache.Config{
		Enabled:    cfg.Features.EnableCaching,
		TTL:        cfg.Limits.CacheTTL,
		MaxEntries: cfg.Limits.MaxCacheEntries,
	})
	return c, func() { _ = store.Close() }, nil
}

// usageSummarizer returns the ledger as an interface value that is nil when
// usage tracking is off.
func (a *app) usageSummarizer() mcp.UsageSummarizer {
	if a.ledger == nil {
		return nil
	}
	return a.ledger
}

func (a *app) close() {
	if a.tracing != nil {
		_ = a.tracing.Shutdown(context.Background())
	}
	if a.ledger != nil {
		_ = a.ledger.Close()
	}
	if a.kv != nil {
		_ = a.kv.Close()
	}
	_ = a.logger.Sync()
}
