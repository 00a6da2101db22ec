package mcp

import (
	"fmt"
	"strings"

	"github.com/pario-ai/quill/pkg/models"
)

// formatUsage formats usage summaries as a text table.
func formatUsage(rows []models.UsageSummary) string {
	if len(rows) == 0 {
		return "No usage data found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-20s %8s %10s %12s\n",
		"Action", "Provider", "Requests", "Tokens", "Avg Latency")
	b.WriteString(strings.Repeat("-", 66) + "\n")
	for _, r := range rows {
		provider := r.Provider
		if len(provider) > 20 {
			provider = provider[:17] + "..."
		}
		fmt.Fprintf(&b, "%-12s %-20s %8d %10d %10dms\n",
			r.Action, provider, r.RequestCount, r.TotalTokens, r.AvgLatencyMs)
	}
	return b.String()
}
