package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/pario-ai/quill/pkg/apperr"
	"github.com/pario-ai/quill/pkg/kv"
	"github.com/pario-ai/quill/pkg/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, cfg Config) (*Store, *kv.MemoryStore, *fakeClock) {
	t.Helper()
	mem := kv.NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(mem, cfg, WithLogger(zaptest.NewLogger(t)), WithClock(clock.Now))
	return s, mem, clock
}

func result(text string) models.ProviderResult {
	return models.ProviderResult{Text: text, ProviderName: "primary", Timestamp: "2026-01-01T00:00:00Z"}
}

func TestLookupHit(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 10})

	s.Store(ctx, models.ActionSummarize, "input text", nil, result("summary"))

	got, ok := s.Lookup(ctx, models.ActionSummarize, "input text", nil)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Text != "summary" || got.ProviderName != "primary" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestEvictionScenario(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 2})

	for _, in := range []string{"A", "B", "C"} {
		s.Store(ctx, models.ActionSummarize, in, nil, result("r"+in))
		clock.Advance(time.Millisecond)
	}

	if _, ok := s.Lookup(ctx, models.ActionSummarize, "A", nil); ok {
		t.Error("A should have been evicted")
	}
	if got, ok := s.Lookup(ctx, models.ActionSummarize, "C", nil); !ok || got.Text != "rC" {
		t.Error("C should be a hit")
	}
}

func TestEvictionSameMillisecond(t *testing.T) {
	ctx := context.Background()

	// The clock never advances, so every entry is written in the same millisecond.
	for trial := range 20 {
		s, _, _ := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 2})
		prefix := fmt.Sprintf("trial-%d-", trial)
		for _, in := range []string{"A", "B", "C"} {
			s.Store(ctx, models.ActionSummarize, prefix+in, nil, result("r"+in))
		}

		if _, ok := s.Lookup(ctx, models.ActionSummarize, prefix+"A", nil); ok {
			t.Fatalf("trial %d: A should have been evicted", trial)
		}
		for _, in := range []string{"B", "C"} {
			if _, ok := s.Lookup(ctx, models.ActionSummarize, prefix+in, nil); !ok {
				t.Fatalf("trial %d: %s should be a hit", trial, in)
			}
		}
	}
}

func TestEvictionBound(t *testing.T) {
	ctx := context.Background()
	const n = 5
	s, _, clock := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: n})

	inputs := []string{"one", "two", "three", "four", "five", "six"}
	for _, in := range inputs {
		s.Store(ctx, models.ActionRewrite, in, nil, result(in))
		clock.Advance(time.Millisecond)
	}

	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != n {
		t.Fatalf("expected %d entries, got %d", n, len(entries))
	}
	for i, e := range entries {
		if e.InputText != inputs[i+1] {
			t.Errorf("entry %d: expected %q, got %q", i, inputs[i+1], e.InputText)
		}
	}

	// Already within bound: cleanup removes nothing.
	removed, err := s.CleanupOldEntries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("expected idempotent cleanup, removed %d", removed)
	}
}

func TestEmptyStoreMiss(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 10})

	if _, ok := s.Lookup(ctx, models.ActionSummarize, "x", nil); ok {
		t.Fatal("expected miss")
	}
	stats := s.Stats(ctx)
	if stats.Hits != 0 || stats.Misses != 1 || stats.HitRate != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.TotalEntries != 0 || stats.OldestEntryMs != 0 || stats.NewestEntryMs != 0 {
		t.Errorf("expected empty entry stats: %+v", stats)
	}
}

func TestExpiredEntryRemovedOnLookup(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 10})

	s.Store(ctx, models.ActionTranslate, "bonjour le monde", nil, result("hello world"))
	clock.Advance(2 * time.Hour)

	if _, ok := s.Lookup(ctx, models.ActionTranslate, "bonjour le monde", nil); ok {
		t.Fatal("expected miss for expired entry")
	}
	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expired entry should be removed, found %d", len(entries))
	}
	if s.Stats(ctx).Misses != 1 {
		t.Error("expired lookup should count as a miss")
	}
}

func TestIdempotentStore(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 10})

	opts := map[string]any{"style": "casual"}
	s.Store(ctx, models.ActionRewrite, "same input", opts, result("out"))
	s.Store(ctx, models.ActionRewrite, "same input", map[string]any{"style": "casual"}, result("out"))

	if mem.Len() != 1 {
		t.Errorf("expected exactly one entry, got %d", mem.Len())
	}
}

func TestStoreDisabled(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t, Config{Enabled: false, TTL: time.Hour, MaxEntries: 10})

	s.Store(ctx, models.ActionSummarize, "input", nil, result("r"))
	if mem.Len() != 0 {
		t.Error("disabled cache should not write")
	}
	if _, ok := s.Lookup(ctx, models.ActionSummarize, "input", nil); ok {
		t.Error("disabled cache should never hit")
	}
}

func TestStatsHitRate(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 10})

	s.Store(ctx, models.ActionExplain, "first", nil, result("1"))
	first := clock.Now().UnixMilli()
	clock.Advance(time.Second)
	s.Store(ctx, models.ActionExplain, "second", nil, result("2"))
	last := clock.Now().UnixMilli()

	s.Lookup(ctx, models.ActionExplain, "first", nil)   // hit
	s.Lookup(ctx, models.ActionExplain, "second", nil)  // hit
	s.Lookup(ctx, models.ActionExplain, "missing", nil) // miss

	stats := s.Stats(ctx)
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("expected 2 hits / 1 miss, got %+v", stats)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Errorf("expected hit rate ~0.667, got %f", stats.HitRate)
	}
	if stats.TotalEntries != 2 || stats.OldestEntryMs != first || stats.NewestEntryMs != last {
		t.Errorf("unexpected entry stats: %+v", stats)
	}
}

func TestClearResetsState(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 10})

	_ = mem.Set(ctx, map[string][]byte{"unrelated": []byte("keep")})
	s.Store(ctx, models.ActionIdeate, "topic", nil, result("ideas"))
	s.Lookup(ctx, models.ActionIdeate, "topic", nil)

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	stats := s.Stats(ctx)
	if stats.TotalEntries != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("expected reset stats, got %+v", stats)
	}
	if mem.Len() != 1 {
		t.Error("clear must only remove namespaced keys")
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 10})

	s.Store(ctx, models.ActionSummarize, "old", nil, result("old"))
	clock.Advance(90 * time.Minute)
	s.Store(ctx, models.ActionSummarize, "fresh", nil, result("fresh"))

	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged, got %d", n)
	}
	if _, ok := s.Lookup(ctx, models.ActionSummarize, "fresh", nil); !ok {
		t.Error("fresh entry should survive purge")
	}
}

func TestStorageFailuresAreBestEffort(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 10})
	mem.FailWith(errors.New("storage unavailable"))

	// None of these may panic or surface the failure.
	s.Store(ctx, models.ActionSummarize, "input", nil, result("r"))
	if _, ok := s.Lookup(ctx, models.ActionSummarize, "input", nil); ok {
		t.Error("expected miss when storage fails")
	}
	stats := s.Stats(ctx)
	if stats.Misses != 1 || stats.TotalEntries != 0 {
		t.Errorf("unexpected stats under failure: %+v", stats)
	}

	err := s.Clear(ctx)
	if !apperr.Is(err, apperr.Storage) {
		t.Errorf("expected storage error from clear, got %v", err)
	}

	mem.FailWith(nil)
	s.Store(ctx, models.ActionSummarize, "input", nil, result("r"))
	if _, ok := s.Lookup(ctx, models.ActionSummarize, "input", nil); !ok {
		t.Error("expected hit after storage recovers")
	}
}

func TestUndecodableEntryDropped(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: 10})

	fp, _ := s.Fingerprint(models.ActionProofread, "teh text", nil)
	_ = mem.Set(ctx, map[string][]byte{fp.Key: []byte("not json")})

	if _, ok := s.Get(ctx, fp); ok {
		t.Error("expected miss for corrupt entry")
	}
	if mem.Len() != 0 {
		t.Error("corrupt entry should be removed")
	}
}

func TestWithNamespace(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	a := New(mem, Config{Enabled: true, TTL: time.Hour}, WithNamespace("tenant_a"))
	b := New(mem, Config{Enabled: true, TTL: time.Hour}, WithNamespace("tenant_b"))

	a.Store(ctx, models.ActionSummarize, "shared", nil, result("a"))
	if _, ok := b.Lookup(ctx, models.ActionSummarize, "shared", nil); ok {
		t.Error("namespaces should not share entries")
	}
	if err := b.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := a.Lookup(ctx, models.ActionSummarize, "shared", nil); !ok {
		t.Error("clearing one namespace should not affect another")
	}
}

func TestConcurrentStoreAndLookup(t *testing.T) {
	ctx := context.Background()
	const (
		workers   = 8
		perWorker = 25
		maxSize   = 10
	)
	s, _, _ := newTestStore(t, Config{Enabled: true, TTL: time.Hour, MaxEntries: maxSize})

	var (
		wg      sync.WaitGroup
		lookups atomic.Int64
	)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				in := fmt.Sprintf("worker-%d-input-%d", w, i)
				s.Store(ctx, models.ActionTranslate, in, nil, result(in))
				s.Lookup(ctx, models.ActionTranslate, in, nil)
				s.Lookup(ctx, models.ActionTranslate, fmt.Sprintf("worker-%d-input-%d", (w+1)%workers, i), nil)
				lookups.Add(2)
				if i%5 == 0 {
					if _, err := s.CleanupOldEntries(ctx); err != nil {
						t.Errorf("cleanup: %v", err)
					}
				}
			}
		}()
	}
	wg.Wait()

	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) > maxSize {
		t.Errorf("expected at most %d entries, got %d", maxSize, len(entries))
	}

	stats := s.Stats(ctx)
	if got := stats.Hits + stats.Misses; got != lookups.Load() {
		t.Errorf("hits+misses = %d, want %d lookups", got, lookups.Load())
	}
	if stats.TotalEntries != len(entries) {
		t.Errorf("stats report %d entries, store has %d", stats.TotalEntries, len(entries))
	}
}
