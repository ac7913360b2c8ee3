package tone

import (
	"math"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		level     float64
		formality string
		verbosity string
	}{
		{0, "extreme-formal", "extreme-concise"},
		{20, "extreme-formal", "extreme-concise"},
		{20.01, "formal", "concise"},
		{40, "formal", "concise"},
		{40.5, "neutral", "balanced"},
		{60, "neutral", "balanced"},
		{61, "casual", "expanded"},
		{80, "casual", "expanded"},
		{80.1, "extreme-casual", "extreme-expanded"},
		{100, "extreme-casual", "extreme-expanded"},
	}
	for _, tt := range tests {
		f, v := Classify(tt.level, tt.level)
		if f.Label != tt.formality {
			t.Errorf("Classify(%v) formality = %s, want %s", tt.level, f.Label, tt.formality)
		}
		if v.Label != tt.verbosity {
			t.Errorf("Classify(%v) verbosity = %s, want %s", tt.level, v.Label, tt.verbosity)
		}
	}
}

func TestClassifyAxesIndependent(t *testing.T) {
	f, v := Classify(10, 90)
	if f.Label != "extreme-formal" || v.Label != "extreme-expanded" {
		t.Errorf("got %s/%s", f.Label, v.Label)
	}
}

func TestTargetWordCount(t *testing.T) {
	tests := []struct {
		n    int
		v    float64
		want int
	}{
		{100, 0, 60},
		{100, 100, 150},
		{100, 50, 100},
		{100, 20, 20},
		{100, 30, 70},
		{100, 40, 60},
		{100, 70, 120},
		{100, 80, 130},
		{16, 10, 7},
		{16, 5, 8},
		{1, 20, 1},
		{0, 50, 1},
	}
	for _, tt := range tests {
		got := TargetWordCount(tt.n, tt.v)
		if got != tt.want {
			t.Errorf("TargetWordCount(%d, %v) = %d, want %d", tt.n, tt.v, got, tt.want)
		}
	}
}

func TestTargetWordCountDeterministic(t *testing.T) {
	for v := 0.0; v <= 100; v += 0.5 {
		a := TargetWordCount(37, v)
		b := TargetWordCount(37, v)
		if a != b {
			t.Fatalf("TargetWordCount(37, %v) not stable: %d vs %d", v, a, b)
		}
		if a < 1 {
			t.Fatalf("TargetWordCount(37, %v) = %d, want >= 1", v, a)
		}
	}
}

func TestTargetWordCountClampsLevel(t *testing.T) {
	if got := TargetWordCount(100, -10); got != 60 {
		t.Errorf("negative level: got %d, want 60", got)
	}
	if got := TargetWordCount(100, 250); got != 150 {
		t.Errorf("level above max: got %d, want 150", got)
	}
}

func TestIsExtreme(t *testing.T) {
	cases := map[float64]bool{0: true, 20: true, 21: false, 50: false, 80: false, 81: true, 100: true}
	for v, want := range cases {
		if got := IsExtreme(v); got != want {
			t.Errorf("IsExtreme(%v) = %v, want %v", v, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(math.NaN()) != 0 {
		t.Error("NaN should clamp to 0")
	}
	if Clamp(-1) != 0 || Clamp(101) != 100 || Clamp(42) != 42 {
		t.Error("unexpected clamp result")
	}
}

func TestCountWords(t *testing.T) {
	text := "The quarterly results were better than expected and the team is optimistic about next year."
	if got := CountWords(text); got != 15 {
		t.Errorf("CountWords = %d, want 15", got)
	}
	if got := CountWords("  spaced\tout\n words  "); got != 3 {
		t.Errorf("CountWords = %d, want 3", got)
	}
	if got := CountWords("   "); got != 0 {
		t.Errorf("CountWords(blank) = %d, want 0", got)
	}
}

func TestPercentageChange(t *testing.T) {
	if got := PercentageChange(16, 7); got != -56.25 {
		t.Errorf("got %v, want -56.25", got)
	}
	if got := PercentageChange(3, 4); got != 33.33 {
		t.Errorf("got %v, want 33.33", got)
	}
	if got := PercentageChange(0, 4); got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}
