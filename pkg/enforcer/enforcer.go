// Package enforcer applies a corrective second pass to low-verbosity
// rewrites that came back longer than their target.
package enforcer

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pario-ai/tonal/pkg/completion"
	"github.com/pario-ai/tonal/pkg/metrics"
	"github.com/pario-ai/tonal/pkg/prompt"
	"github.com/pario-ai/tonal/pkg/tone"
)

// Ellipsis marks text cut by Truncate.
const Ellipsis = "..."

// Config controls when and how the second pass runs.
type Config struct {
	// Threshold is the verbosity level at or below which enforcement applies.
	Threshold   float64
	Temperature float64
	MaxTokens   int
}

// Outcome is the final text after enforcement.
type Outcome struct {
	Text string
	// SecondPass is true whenever the corrective call was attempted.
	SecondPass bool
	// Truncated is true when the fallback policy produced Text.
	Truncated bool
}

// Enforcer issues at most one corrective completion per request.
type Enforcer struct {
	client completion.Completer
	cfg    Config
}

// New creates an Enforcer that sends second passes through client.
func New(client completion.Completer, cfg Config) *Enforcer {
	return &Enforcer{client: client, cfg: cfg}
}

// ShouldEnforce reports whether text needs a second pass.
func (e *Enforcer) ShouldEnforce(text string, target int, verbosity float64) bool {
	return verbosity <= e.cfg.Threshold && tone.CountWords(text) > target
}

// Enforce returns primary unchanged when no second pass is needed.
// Otherwise it asks the provider to cut primary to target words and falls
// back to Truncate when that call fails or is still too long, so the result
// never exceeds target words. Second-pass failures are not returned.
func (e *Enforcer) Enforce(ctx context.Context, primary string, target int, verbosity float64) Outcome {
	if !e.ShouldEnforce(primary, target, verbosity) {
		return Outcome{Text: primary}
	}

	logger := log.Ctx(ctx).With().
		Int("target_words", target).
		Int("primary_words", tone.CountWords(primary)).
		Logger()

	out, err := e.client.Complete(ctx, completion.Params{
		Prompt:      prompt.Tighten(primary, target),
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})

	best := primary
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("second pass failed, truncating primary result")
		metrics.SecondPasses.WithLabelValues("failed").Inc()
	case out.Text == "":
		logger.Warn().Msg("second pass returned empty text, truncating primary result")
		metrics.SecondPasses.WithLabelValues("failed").Inc()
	case tone.CountWords(out.Text) <= target:
		metrics.SecondPasses.WithLabelValues("accepted").Inc()
		return Outcome{Text: out.Text, SecondPass: true}
	default:
		best = out.Text
		logger.Debug().Int("second_words", tone.CountWords(out.Text)).Msg("second pass still too long, truncating")
		metrics.SecondPasses.WithLabelValues("truncated").Inc()
	}

	return Outcome{Text: Truncate(best, target), SecondPass: true, Truncated: true}
}

// Truncate keeps the first limit whitespace-delimited words of text and
// appends Ellipsis to the last one. Text already within limit is returned
// unchanged. A limit below 1 is treated as 1.
func Truncate(text string, limit int) string {
	if limit < 1 {
		limit = 1
	}
	words := tone.Words(text)
	if len(words) <= limit {
		return text
	}
	kept := strings.TrimRight(strings.Join(words[:limit], " "), ".,;:!?")
	return kept + Ellipsis
}
