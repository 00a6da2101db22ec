package models

// CacheEntry is a cached provider result. Entries are never mutated once written.
type CacheEntry struct {
	ID          string         `json:"id"`
	InputText   string         `json:"inputText"`
	Response    ProviderResult `json:"response"`
	TimestampMs int64          `json:"timestampMs"`
	TTLMs       int64          `json:"ttlMs"`
	Action      Action         `json:"action"`
	InputHash   string         `json:"inputHash"`
}

// ExpiresAtMs returns the instant the entry becomes stale.
func (e *CacheEntry) ExpiresAtMs() int64 {
	return e.TimestampMs + e.TTLMs
}

// IsExpired reports whether the entry is stale at nowMs.
func (e *CacheEntry) IsExpired(nowMs int64) bool {
	return e.ExpiresAtMs() < nowMs
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	TotalEntries  int     `json:"totalEntries"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hitRate"`
	OldestEntryMs int64   `json:"oldestEntryMs"`
	NewestEntryMs int64   `json:"newestEntryMs"`
}
