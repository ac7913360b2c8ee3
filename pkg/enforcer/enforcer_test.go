package enforcer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/tonal/pkg/completion"
	"github.com/pario-ai/tonal/pkg/tone"
)

type fakeCompleter struct {
	text   string
	err    error
	calls  int
	params []completion.Params
}

func (f *fakeCompleter) Complete(_ context.Context, p completion.Params) (completion.Completion, error) {
	f.calls++
	f.params = append(f.params, p)
	if f.err != nil {
		return completion.Completion{}, f.err
	}
	return completion.Completion{Text: f.text}, nil
}

var testCfg = Config{Threshold: 30, Temperature: 0.3, MaxTokens: 500}

const longText = "We are pleased to report that the quarterly results exceeded our expectations considerably."

func TestEnforceSkipsHighVerbosity(t *testing.T) {
	fc := &fakeCompleter{text: "short"}
	e := New(fc, testCfg)

	out := e.Enforce(context.Background(), longText, 3, 31)
	assert.Equal(t, longText, out.Text)
	assert.False(t, out.SecondPass)
	assert.Zero(t, fc.calls)
}

func TestEnforceSkipsShortEnough(t *testing.T) {
	fc := &fakeCompleter{text: "short"}
	e := New(fc, testCfg)

	out := e.Enforce(context.Background(), "Results beat expectations.", 3, 10)
	assert.Equal(t, "Results beat expectations.", out.Text)
	assert.False(t, out.SecondPass)
	assert.Zero(t, fc.calls)
}

func TestEnforceAcceptsSecondPass(t *testing.T) {
	fc := &fakeCompleter{text: "Results beat expectations."}
	e := New(fc, testCfg)

	out := e.Enforce(context.Background(), longText, 5, 10)
	assert.Equal(t, "Results beat expectations.", out.Text)
	assert.True(t, out.SecondPass)
	assert.False(t, out.Truncated)

	require.Equal(t, 1, fc.calls)
	p := fc.params[0]
	assert.InDelta(t, 0.3, p.Temperature, 1e-9)
	assert.Contains(t, p.Prompt, "at most 5 words")
	assert.Contains(t, p.Prompt, longText)
}

func TestEnforceTruncatesWhenSecondPassTooLong(t *testing.T) {
	fc := &fakeCompleter{text: "Quarterly results were better than we had expected overall."}
	e := New(fc, testCfg)

	out := e.Enforce(context.Background(), longText, 4, 10)
	assert.True(t, out.SecondPass)
	assert.True(t, out.Truncated)
	assert.Equal(t, "Quarterly results were better...", out.Text)
	assert.LessOrEqual(t, tone.CountWords(out.Text), 4)
}

func TestEnforceTruncatesPrimaryOnFailure(t *testing.T) {
	fc := &fakeCompleter{err: completion.ErrRateLimited}
	e := New(fc, testCfg)

	out := e.Enforce(context.Background(), longText, 4, 10)
	assert.True(t, out.SecondPass, "attempted second pass must be reported even on failure")
	assert.True(t, out.Truncated)
	assert.Equal(t, "We are pleased to...", out.Text)
}

func TestEnforceTreatsEmptySecondPassAsFailure(t *testing.T) {
	fc := &fakeCompleter{text: ""}
	e := New(fc, testCfg)

	out := e.Enforce(context.Background(), longText, 4, 10)
	assert.True(t, out.SecondPass)
	assert.Equal(t, "We are pleased to...", out.Text)
}

func TestEnforceBoundary(t *testing.T) {
	fc := &fakeCompleter{text: "one two"}
	e := New(fc, testCfg)

	// exactly at the threshold still triggers
	out := e.Enforce(context.Background(), "one two three", 2, 30)
	assert.True(t, out.SecondPass)
	assert.Equal(t, "one two", out.Text)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		text  string
		limit int
		want  string
	}{
		{"one two three four", 2, "one two..."},
		{"one two.", 5, "one two."},
		{"Hello, world, again", 2, "Hello, world..."},
		{"a b c", 0, "a..."},
		{"  spaced   out   words  ", 2, "spaced out..."},
	}
	for _, tt := range tests {
		got := Truncate(tt.text, tt.limit)
		if got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
		}
		limit := max(tt.limit, 1)
		if n := len(strings.Fields(got)); n > limit {
			t.Errorf("Truncate(%q, %d) has %d words", tt.text, tt.limit, n)
		}
	}
}
