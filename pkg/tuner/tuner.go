// Package tuner runs the tone-adjustment pipeline for a single request:
// validate, consult the cache, generate, enforce conciseness, cache, respond.
package tuner

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/tonal/pkg/cache"
	"github.com/pario-ai/tonal/pkg/completion"
	"github.com/pario-ai/tonal/pkg/config"
	"github.com/pario-ai/tonal/pkg/enforcer"
	"github.com/pario-ai/tonal/pkg/metrics"
	"github.com/pario-ai/tonal/pkg/models"
	"github.com/pario-ai/tonal/pkg/prompt"
	"github.com/pario-ai/tonal/pkg/tone"
	"github.com/pario-ai/tonal/pkg/tracker"
)

// Stage names the pipeline states a request passes through. They appear in
// debug logs.
type Stage string

const (
	StageValidated          Stage = "validated"
	StageCacheHit           Stage = "cache_hit"
	StageCacheMiss          Stage = "cache_miss"
	StageGenerated          Stage = "generated"
	StageConcisenessChecked Stage = "conciseness_checked"
	StageCached             Stage = "cached"
	StageFailed             Stage = "failed"
)

// Tuner is the request orchestrator. It is safe for concurrent use; callers
// asking for the same fingerprint while a generation is in flight share its
// outcome instead of issuing another provider call.
type Tuner struct {
	gen      config.GenerationConfig
	client   completion.Completer
	enforcer *enforcer.Enforcer
	cache    cache.Store
	group    singleflight.Group
}

// New wires a Tuner. rec may be nil to disable usage tracking.
func New(cfg *config.Config, client completion.Completer, store cache.Store, rec tracker.Recorder) *Tuner {
	primary := &instrumented{inner: client, pass: models.PassPrimary, model: cfg.Provider.Model, recorder: rec}
	second := &instrumented{inner: client, pass: models.PassSecond, model: cfg.Provider.Model, recorder: rec}

	return &Tuner{
		gen:    cfg.Generation,
		client: primary,
		enforcer: enforcer.New(second, enforcer.Config{
			Threshold:   cfg.Generation.ConcisenessThreshold,
			Temperature: cfg.Generation.SecondPassTemperature,
			MaxTokens:   cfg.Generation.MaxTokens,
		}),
		cache: store,
	}
}

// input is a validated request.
type input struct {
	text      string
	formality float64
	verbosity float64
}

func validate(req models.ToneRequest) (input, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return input{}, &ValidationError{Field: "text", Reason: "is required"}
	}
	if req.FormalityLevel == nil {
		return input{}, &ValidationError{Field: "formalityLevel", Reason: "is required"}
	}
	if req.VerbosityLevel == nil {
		return input{}, &ValidationError{Field: "verbosityLevel", Reason: "is required"}
	}
	f, v := *req.FormalityLevel, *req.VerbosityLevel
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return input{}, &ValidationError{Field: "formalityLevel", Reason: "must be a finite number"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return input{}, &ValidationError{Field: "verbosityLevel", Reason: "must be a finite number"}
	}
	return input{text: text, formality: tone.Clamp(f), verbosity: tone.Clamp(v)}, nil
}

// plan holds everything derived from a validated request.
type plan struct {
	input
	key      string
	original int
	target   int
	fBand    tone.FormalityBand
	vBand    tone.VerbosityBand
}

// generation is the shared outcome of one in-flight fingerprint.
type generation struct {
	text       string
	secondPass bool
}

// Adjust rewrites req.Text. Failures are a *ValidationError or one of the
// completion errors; nothing is cached on any failed path.
func (t *Tuner) Adjust(ctx context.Context, req models.ToneRequest) (models.ToneResult, error) {
	in, err := validate(req)
	if err != nil {
		return models.ToneResult{}, err
	}

	p := plan{input: in, key: cache.Fingerprint(in.text, in.formality, in.verbosity)}
	p.original = tone.CountWords(in.text)
	p.target = tone.TargetWordCount(p.original, in.verbosity)
	p.fBand, p.vBand = tone.Classify(in.formality, in.verbosity)

	logger := log.Ctx(ctx).With().
		Str("fingerprint", shortKey(p.key)).
		Str("formality", p.fBand.Label).
		Str("verbosity", p.vBand.Label).
		Logger()
	ctx = logger.WithContext(ctx)
	logger.Debug().Str("stage", string(StageValidated)).Int("target_words", p.target).Msg("request validated")

	if text, ok := t.lookup(ctx, p.key); ok {
		logger.Debug().Str("stage", string(StageCacheHit)).Msg("serving cached result")
		return t.result(p, text, false, models.SourceCache), nil
	}
	logger.Debug().Str("stage", string(StageCacheMiss)).Msg("cache miss")

	// The flight outlives any single caller so that waiters are not failed
	// by the first caller going away; the provider timeout still bounds it.
	flightCtx := context.WithoutCancel(ctx)
	ch := t.group.DoChan(p.key, func() (any, error) {
		return t.generate(flightCtx, p)
	})

	select {
	case <-ctx.Done():
		logger.Debug().Str("stage", string(StageFailed)).Msg("caller went away")
		return models.ToneResult{}, fmt.Errorf("%w: %v", errCanceled, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.CoalescedRequests.Inc()
		}
		if res.Err != nil {
			logger.Warn().Err(res.Err).Str("stage", string(StageFailed)).Str("kind", Kind(res.Err)).Msg("generation failed")
			return models.ToneResult{}, res.Err
		}
		g := res.Val.(generation)
		return t.result(p, g.text, g.secondPass, models.SourceGenerated), nil
	}
}

func (t *Tuner) generate(ctx context.Context, p plan) (generation, error) {
	logger := zerolog.Ctx(ctx)

	out, err := t.client.Complete(ctx, completion.Params{
		Prompt:      prompt.Build(p.text, p.fBand, p.vBand, p.target),
		Temperature: t.gen.Temperature,
		MaxTokens:   t.gen.MaxTokens,
	})
	if err != nil {
		return generation{}, err
	}
	if out.Text == "" {
		return generation{}, &completion.ProviderError{Message: "empty completion"}
	}
	logger.Debug().Str("stage", string(StageGenerated)).Int("result_words", tone.CountWords(out.Text)).Msg("primary pass done")

	enforced := t.enforcer.Enforce(ctx, out.Text, p.target, p.verbosity)
	logger.Debug().
		Str("stage", string(StageConcisenessChecked)).
		Bool("second_pass", enforced.SecondPass).
		Bool("truncated", enforced.Truncated).
		Msg("conciseness checked")

	if err := t.cache.Put(ctx, p.key, enforced.Text); err != nil {
		logger.Error().Err(err).Msg("cache write failed")
	} else {
		logger.Debug().Str("stage", string(StageCached)).Msg("result cached")
	}

	return generation{text: enforced.Text, secondPass: enforced.SecondPass}, nil
}

func (t *Tuner) lookup(ctx context.Context, key string) (string, bool) {
	text, ok, err := t.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		zerolog.Ctx(ctx).Error().Err(err).Msg("cache read failed, treating as miss")
		return "", false
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return text, true
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return "", false
	}
}

func (t *Tuner) result(p plan, text string, secondPass bool, source string) models.ToneResult {
	words := tone.CountWords(text)
	pct := tone.PercentageChange(p.original, words)
	return models.ToneResult{
		Result: text,
		Source: source,
		Metrics: models.ToneMetrics{
			OriginalWordCount: p.original,
			ResultWordCount:   words,
			TargetWordCount:   p.target,
			PercentageChange:  pct,
			IsMoreConcise:     pct < 0,
			Required2ndPass:   secondPass,
			FormalityBand:     p.fBand.Label,
			VerbosityBand:     p.vBand.Label,
		},
	}
}

// ClearCache empties the result cache.
func (t *Tuner) ClearCache(ctx context.Context) error {
	return t.cache.Clear(ctx)
}

// CacheStats reports the result cache counters.
func (t *Tuner) CacheStats(ctx context.Context) (models.CacheStats, error) {
	return t.cache.Stats(ctx)
}

func shortKey(key string) string {
	const prefix = "tone:v2:"
	k := strings.TrimPrefix(key, prefix)
	if len(k) > 12 {
		return k[:12]
	}
	return k
}
