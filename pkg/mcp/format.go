package mcp

import (
	"fmt"
	"strings"

	"github.com/pario-ai/tonal/pkg/models"
)

func formatToneResult(res models.ToneResult) string {
	m := res.Metrics
	var b strings.Builder
	b.WriteString(res.Result)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Formality: %s, verbosity: %s\n", m.FormalityBand, m.VerbosityBand)
	fmt.Fprintf(&b, "Words: %d -> %d (target %d, %+.2f%%)\n",
		m.OriginalWordCount, m.ResultWordCount, m.TargetWordCount, m.PercentageChange)
	if m.Required2ndPass {
		b.WriteString("Second pass: yes\n")
	}
	fmt.Fprintf(&b, "Source: %s\n", res.Source)
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache Statistics (%s)\n"+
		"  Entries:  %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Backend, stats.Entries, stats.Hits, stats.Misses, hitRate)
}

// formatUsage formats usage summaries as a text table.
func formatUsage(rows []models.UsageSummary) string {
	if len(rows) == 0 {
		return "No usage data found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-22s %-8s %7s %7s %10s %10s %10s %9s\n",
		"Model", "Pass", "Calls", "Failed", "Prompt", "Completion", "Total", "Avg ms")
	b.WriteString(strings.Repeat("-", 90) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-22s %-8s %7d %7d %10d %10d %10d %9d\n",
			r.Model, r.Pass, r.CallCount, r.FailedCount,
			r.TotalPrompt, r.TotalCompletion, r.TotalTokens, r.AvgLatencyMs)
	}
	return b.String()
}
