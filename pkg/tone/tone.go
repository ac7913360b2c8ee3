// Package tone maps points on the formality/verbosity plane to descriptive
// bands and a target word count.
package tone

import "math"

// Level bounds for both axes.
const (
	MinLevel = 0
	MaxLevel = 100
)

// Band is one of five fixed buckets a level falls into:
// [0,20], (20,40], (40,60], (60,80], (80,100].
type Band int

const (
	BandLowest Band = iota
	BandLow
	BandMiddle
	BandHigh
	BandHighest
)

// BandOf returns the bucket for level.
func BandOf(level float64) Band {
	switch {
	case level <= 20:
		return BandLowest
	case level <= 40:
		return BandLow
	case level <= 60:
		return BandMiddle
	case level <= 80:
		return BandHigh
	default:
		return BandHighest
	}
}

// FormalityBand describes the formality axis (0 = professional, 100 = casual).
type FormalityBand struct {
	Band        Band
	Label       string
	Description string
}

// VerbosityBand describes the verbosity axis (0 = concise, 100 = expanded).
type VerbosityBand struct {
	Band        Band
	Label       string
	Description string
}

var formalityBands = [...]FormalityBand{
	{BandLowest, "extreme-formal", "very formal and professional"},
	{BandLow, "formal", "formal"},
	{BandMiddle, "neutral", "neutral, neither formal nor casual"},
	{BandHigh, "casual", "casual"},
	{BandHighest, "extreme-casual", "very casual and conversational"},
}

var verbosityBands = [...]VerbosityBand{
	{BandLowest, "extreme-concise", "extremely concise, stripped to the essential point"},
	{BandLow, "concise", "concise"},
	{BandMiddle, "balanced", "about the same length as the original"},
	{BandHigh, "expanded", "somewhat more detailed"},
	{BandHighest, "extreme-expanded", "highly detailed and elaborated"},
}

// Classify returns exactly one band per axis.
func Classify(formality, verbosity float64) (FormalityBand, VerbosityBand) {
	return formalityBands[BandOf(formality)], verbosityBands[BandOf(verbosity)]
}

// IsExtreme reports whether a verbosity level sits in an outer band.
func IsExtreme(verbosity float64) bool {
	b := BandOf(verbosity)
	return b == BandLowest || b == BandHighest
}

// Clamp limits level to [MinLevel, MaxLevel]. NaN clamps to MinLevel.
func Clamp(level float64) float64 {
	if math.IsNaN(level) || level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// epsilon absorbs float error in products such as 16*0.4 before ceil.
const epsilon = 1e-9

// TargetWordCount scales the original word count n by a piecewise-linear
// factor of the verbosity level. The result is never below 1.
func TargetWordCount(n int, verbosity float64) int {
	v := Clamp(verbosity)
	var factor float64
	switch BandOf(v) {
	case BandLowest:
		factor = 0.6 - v/50
	case BandLow:
		factor = 0.8 - (v-20)/100
	case BandMiddle:
		factor = 0.9 + (v-40)/100
	case BandHigh:
		factor = 1.1 + (v-60)/100
	default:
		factor = 1.3 + (v-80)/100
	}
	target := int(math.Ceil(float64(n)*factor - epsilon))
	if target < 1 {
		return 1
	}
	return target
}
