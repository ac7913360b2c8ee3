package tuner

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pario-ai/tonal/pkg/completion"
	"github.com/pario-ai/tonal/pkg/metrics"
	"github.com/pario-ai/tonal/pkg/models"
	"github.com/pario-ai/tonal/pkg/tracker"
)

type requestIDKey struct{}

// WithRequestID attaches a request ID that is copied onto usage records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID attached to ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// instrumented reports every call of one pass to metrics and the recorder.
type instrumented struct {
	inner    completion.Completer
	pass     models.Pass
	model    string
	recorder tracker.Recorder
}

func (c *instrumented) Complete(ctx context.Context, p completion.Params) (completion.Completion, error) {
	start := time.Now()
	out, err := c.inner.Complete(ctx, p)
	latency := time.Since(start)

	outcome := completion.Outcome(err)
	metrics.ProviderCalls.WithLabelValues(string(c.pass), outcome).Inc()
	metrics.ProviderLatency.WithLabelValues(string(c.pass)).Observe(latency.Seconds())

	log.Ctx(ctx).Debug().
		Str("pass", string(c.pass)).
		Str("outcome", outcome).
		Dur("latency", latency).
		Msg("provider call")

	if c.recorder != nil {
		model := out.Model
		if model == "" {
			model = c.model
		}
		rec := models.UsageRecord{
			RequestID:        RequestID(ctx),
			Pass:             c.pass,
			Model:            model,
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
			LatencyMs:        latency.Milliseconds(),
			Outcome:          outcome,
			CreatedAt:        time.Now().UTC(),
		}
		if rerr := c.recorder.Record(context.WithoutCancel(ctx), rec); rerr != nil {
			log.Ctx(ctx).Error().Err(rerr).Msg("usage record failed")
		}
	}
	return out, err
}
