// Package cache implements the content-addressable result cache that sits in
// front of the provider chain.
//
// Entries live in a kv.Store under a namespaced key, expire lazily once
// timestampMs+ttlMs has passed, and are evicted oldest-first whenever the
// entry count exceeds the configured maximum. Every storage failure is logged
// and treated as a miss or a no-op: the cache never fails a request.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/quill/pkg/apperr"
	"github.com/pario-ai/quill/pkg/kv"
	"github.com/pario-ai/quill/pkg/logging"
	"github.com/pario-ai/quill/pkg/metrics"
	"github.com/pario-ai/quill/pkg/models"
)

// Config controls caching behaviour.
type Config struct {
	Enabled bool
	TTL     time.Duration
	// MaxEntries bounds the entry count. Zero means unbounded.
	MaxEntries int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for storage failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNamespace changes the key prefix (default DefaultNamespace).
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// Store is the CacheStore. It is safe for concurrent use.
//
// Concurrent stores of the same fingerprint are last-write-wins. Eviction
// and clear are serialized by mu. A lookup that finds an expired entry
// removes it without holding mu, so it can also delete a fresh entry Put
// concurrently for the same fingerprint; the next lookup is then a miss.
type Store struct {
	kv        kv.Store
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
	namespace string

	mu     sync.Mutex
	lastMs int64 // newest timestampMs handed out by Put, guarded by mu
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Store over the given persistent KV.
func New(store kv.Store, cfg Config, opts ...Option) *Store {
	s := &Store{
		kv:        store,
		cfg:       cfg,
		logger:    zap.NewNop(),
		now:       time.Now,
		namespace: DefaultNamespace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether caching is turned on.
func (s *Store) Enabled() bool {
	return s.cfg.Enabled
}

// Fingerprint computes the cache address for an input.
func (s *Store) Fingerprint(action models.Action, text string, options map[string]any) (Fingerprint, error) {
	return ComputeFingerprint(s.namespace, action, text, options)
}

// Lookup returns the cached result for an input, if a live entry exists.
func (s *Store) Lookup(ctx context.Context, action models.Action, text string, options map[string]any) (*models.ProviderResult, bool) {
	if !s.cfg.Enabled {
		return nil, false
	}
	fp, err := s.Fingerprint(action, text, options)
	if err != nil {
		s.logger.Warn("cache fingerprint failed", zap.String("action", string(action)), zap.Error(err))
		s.recordMiss("error")
		return nil, false
	}
	return s.Get(ctx, fp)
}

// Get looks up a precomputed fingerprint. Expired and undecodable entries
// are removed and reported as misses.
func (s *Store) Get(ctx context.Context, fp Fingerprint) (*models.ProviderResult, bool) {
	if !s.cfg.Enabled {
		return nil, false
	}

	items, err := s.kv.Get(ctx, fp.Key)
	if err != nil {
		s.storageFailure(ctx, "lookup", err)
		s.recordMiss("error")
		return nil, false
	}
	raw, ok := items[fp.Key]
	if !ok {
		s.recordMiss("miss")
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		logging.FromContext(ctx, s.logger).Warn("dropping undecodable cache entry",
			zap.String("key", fp.Key), zap.Error(err))
		s.remove(ctx, "lookup", fp.Key)
		s.recordMiss("error")
		return nil, false
	}

	if entry.IsExpired(s.nowMs()) {
		s.remove(ctx, "lookup", fp.Key)
		s.recordMiss("expired")
		return nil, false
	}

	s.hits.Add(1)
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	result := entry.Response
	return &result, true
}

// Store caches result for an input. It is a no-op when caching is disabled.
func (s *Store) Store(ctx context.Context, action models.Action, text string, options map[string]any, result models.ProviderResult) {
	if !s.cfg.Enabled {
		return
	}
	fp, err := s.Fingerprint(action, text, options)
	if err != nil {
		s.logger.Warn("cache fingerprint failed", zap.String("action", string(action)), zap.Error(err))
		return
	}
	s.Put(ctx, fp, action, text, result)
}

// Put writes an entry for a precomputed fingerprint and then runs
// CleanupOldEntries before returning, so the size bound holds as soon as Put
// returns.
func (s *Store) Put(ctx context.Context, fp Fingerprint, action models.Action, text string, result models.ProviderResult) {
	if !s.cfg.Enabled {
		return
	}

	// Timestamps are strictly increasing per Store so that entries written
	// within one millisecond still evict in insertion order.
	s.mu.Lock()
	ts := s.nowMs()
	if ts <= s.lastMs {
		ts = s.lastMs + 1
	}
	s.lastMs = ts

	entry := models.CacheEntry{
		ID:          fp.Key,
		InputText:   text,
		Response:    result,
		TimestampMs: ts,
		TTLMs:       s.cfg.TTL.Milliseconds(),
		Action:      action,
		InputHash:   fp.Hash,
	}
	raw, err := json.Marshal(entry)
	if err == nil {
		err = s.kv.Set(ctx, map[string][]byte{fp.Key: raw})
	}
	s.mu.Unlock()
	if err != nil {
		s.storageFailure(ctx, "store", err)
		return
	}

	if _, err := s.CleanupOldEntries(ctx); err != nil {
		s.storageFailure(ctx, "cleanup", err)
	}
}

// CleanupOldEntries evicts the oldest entries (by timestampMs, ties by id)
// until at most MaxEntries remain. It returns the number removed and never
// removes more than the excess.
func (s *Store) CleanupOldEntries(ctx context.Context) (int, error) {
	if s.cfg.MaxEntries <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	excess := len(entries) - s.cfg.MaxEntries
	if excess <= 0 {
		return 0, nil
	}

	keys := make([]string, excess)
	for i := range excess {
		keys[i] = entries[i].ID
	}
	if err := s.kv.Remove(ctx, keys...); err != nil {
		return 0, apperr.Wrap(apperr.Storage, "evict cache entries", err)
	}

	metrics.CacheEvictions.Add(float64(excess))
	logging.FromContext(ctx, s.logger).Debug("evicted cache entries",
		zap.Int("evicted", excess), zap.Int("max_entries", s.cfg.MaxEntries))
	return excess, nil
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	now := s.nowMs()
	var keys []string
	for _, e := range entries {
		if e.IsExpired(now) {
			keys = append(keys, e.ID)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.kv.Remove(ctx, keys...); err != nil {
		return 0, apperr.Wrap(apperr.Storage, "purge expired cache entries", err)
	}
	return len(keys), nil
}

// Clear removes every cache entry and resets the hit and miss counters.
// Counters are reset even when the store fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits.Store(0)
	s.misses.Store(0)

	keys, err := s.keys(ctx)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("clear").Inc()
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.kv.Remove(ctx, keys...); err != nil {
		metrics.CacheErrors.WithLabelValues("clear").Inc()
		return apperr.Wrap(apperr.Storage, "clear cache", err)
	}
	return nil
}

// Stats returns a point-in-time snapshot. Entry counts and ages are zero
// when the store cannot be read.
func (s *Store) Stats(ctx context.Context) models.CacheStats {
	hits, misses := s.hits.Load(), s.misses.Load()
	stats := models.CacheStats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}

	entries, err := s.load(ctx)
	if err != nil {
		s.storageFailure(ctx, "stats", err)
		return stats
	}
	stats.TotalEntries = len(entries)
	if len(entries) > 0 {
		stats.OldestEntryMs = entries[0].TimestampMs
		stats.NewestEntryMs = entries[len(entries)-1].TimestampMs
	}
	return stats
}

// Entries returns every stored entry, oldest first. Expired entries that
// have not yet been looked up are included.
func (s *Store) Entries(ctx context.Context) ([]models.CacheEntry, error) {
	return s.load(ctx)
}

// load decodes all namespaced entries sorted by timestampMs then id.
// Undecodable values sort first with a zero timestamp so eviction drops them.
func (s *Store) load(ctx context.Context) ([]models.CacheEntry, error) {
	all, err := s.kv.GetAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "enumerate cache entries", err)
	}

	prefix := s.namespace + ":"
	entries := make([]models.CacheEntry, 0, len(all))
	for k, raw := range all {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		var e models.CacheEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			e = models.CacheEntry{}
		}
		e.ID = k
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TimestampMs != entries[j].TimestampMs {
			return entries[i].TimestampMs < entries[j].TimestampMs
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

func (s *Store) keys(ctx context.Context) ([]string, error) {
	all, err := s.kv.GetAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "enumerate cache entries", err)
	}
	prefix := s.namespace + ":"
	keys := make([]string, 0, len(all))
	for k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *Store) remove(ctx context.Context, op, key string) {
	if err := s.kv.Remove(ctx, key); err != nil {
		s.storageFailure(ctx, op, fmt.Errorf("remove %s: %w", key, err))
	}
}

func (s *Store) recordMiss(result string) {
	s.misses.Add(1)
	metrics.CacheLookups.WithLabelValues(result).Inc()
}

func (s *Store) storageFailure(ctx context.Context, op string, err error) {
	metrics.CacheErrors.WithLabelValues(op).Inc()
	logging.FromContext(ctx, s.logger).Warn("cache storage failure",
		zap.String("operation", op), zap.Error(err))
}

func (s *Store) nowMs() int64 {
	return s.now().UnixMilli()
}
