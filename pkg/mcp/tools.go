package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pario-ai/tonal/pkg/models"
	"github.com/pario-ai/tonal/pkg/tone"
	"github.com/pario-ai/tonal/pkg/tuner"
)

type adjustArgs struct {
	Text           string   `json:"text"`
	FormalityLevel *float64 `json:"formality_level"`
	VerbosityLevel *float64 `json:"verbosity_level"`
}

type usageArgs struct {
	Since string `json:"since"`
}

type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"tonal_adjust":      handleAdjust,
	"tonal_cache_stats": handleCacheStats,
	"tonal_cache_clear": handleCacheClear,
	"tonal_usage_stats": handleUsageStats,
}

var (
	levelMin float64 = tone.MinLevel
	levelMax float64 = tone.MaxLevel
)

var allTools = []ToolDefinition{
	{
		Name:        "tonal_adjust",
		Description: "Rewrite text at a formality level (0 professional, 100 casual) and a verbosity level (0 concise, 100 expanded).",
		InputSchema: Schema{
			Type:     "object",
			Required: []string{"text", "formality_level", "verbosity_level"},
			Properties: map[string]Property{
				"text": {Type: "string", Description: "The text to rewrite"},
				"formality_level": {
					Type: "number", Description: "0 = very formal, 100 = very casual",
					Minimum: &levelMin, Maximum: &levelMax,
				},
				"verbosity_level": {
					Type: "number", Description: "0 = extremely concise, 100 = highly detailed",
					Minimum: &levelMin, Maximum: &levelMax,
				},
			},
		},
	},
	{
		Name:        "tonal_cache_stats",
		Description: "Show result cache statistics (backend, entries, hits, misses, hit rate).",
		InputSchema: Schema{Type: "object", Properties: map[string]Property{}},
	},
	{
		Name:        "tonal_cache_clear",
		Description: "Remove every cached rewrite.",
		InputSchema: Schema{Type: "object", Properties: map[string]Property{}},
	},
	{
		Name:        "tonal_usage_stats",
		Description: "Show provider calls and token usage grouped by model and pass.",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"since": {Type: "string", Description: "Start date in YYYY-MM-DD format (optional, defaults to start of month)"},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

func handleAdjust(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args adjustArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return errorResult("Invalid arguments: " + err.Error())
		}
	}

	res, err := s.pipeline.Adjust(ctx, models.ToneRequest{
		Text:           args.Text,
		FormalityLevel: args.FormalityLevel,
		VerbosityLevel: args.VerbosityLevel,
	})
	if err != nil {
		return errorResult(adjustFailure(err))
	}
	return textResult(formatToneResult(res))
}

// adjustFailure turns a pipeline error into a message safe to show a client.
func adjustFailure(err error) string {
	switch tuner.Kind(err) {
	case tuner.KindValidation:
		return err.Error()
	case tuner.KindRateLimited:
		return "The provider is rate limiting requests, try again later."
	case tuner.KindUnauthorized:
		log.Error().Err(err).Msg("provider rejected credentials")
		return "Provider authentication error."
	case tuner.KindCanceled:
		return "Request canceled."
	default:
		log.Error().Err(err).Msg("tone adjustment failed")
		return "Tone adjustment failed."
	}
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	stats, err := s.pipeline.CacheStats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleCacheClear(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if err := s.pipeline.ClearCache(ctx); err != nil {
		return errorResult("Error clearing cache: " + err.Error())
	}
	return textResult("Cache cleared.")
}

func handleUsageStats(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.usage == nil {
		return textResult("Usage tracking is not enabled.")
	}
	var args usageArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	since := beginningOfMonth()
	if args.Since != "" {
		t, err := time.Parse(time.DateOnly, args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		since = t
	}

	rows, err := s.usage.Summary(ctx, since)
	if err != nil {
		return errorResult("Error fetching usage: " + err.Error())
	}
	return textResult(formatUsage(rows))
}

func beginningOfMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
