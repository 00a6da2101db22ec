package models

import "time"

// UsageRecord tracks a single provider call made on behalf of an action.
type UsageRecord struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	Action     Action    `json:"action"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model,omitempty"`
	TokensUsed int       `json:"tokens_used"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// UsageSummary aggregates usage per action and provider.
type UsageSummary struct {
	Action       Action `json:"action"`
	Provider     string `json:"provider"`
	RequestCount int    `json:"request_count"`
	TotalTokens  int64  `json:"total_tokens"`
	AvgLatencyMs int64  `json:"avg_latency_ms"`
}
