package models

// ToneRequest asks for text to be rewritten at a point on the
// formality/verbosity plane. Levels are pointers so a missing field can be
// told apart from an explicit zero.
type ToneRequest struct {
	Text           string   `json:"text"`
	FormalityLevel *float64 `json:"formalityLevel"`
	VerbosityLevel *float64 `json:"verbosityLevel"`
}

// Source values reported on a ToneResult.
const (
	SourceCache     = "cache"
	SourceGenerated = "generated"
)

// ToneMetrics describes how the rewrite compares to the original.
type ToneMetrics struct {
	OriginalWordCount int     `json:"originalWordCount"`
	ResultWordCount   int     `json:"resultWordCount"`
	TargetWordCount   int     `json:"targetWordCount"`
	PercentageChange  float64 `json:"percentageChange"`
	IsMoreConcise     bool    `json:"isMoreConcise"`
	Required2ndPass   bool    `json:"required2ndPass"`
	FormalityBand     string  `json:"formalityBand"`
	VerbosityBand     string  `json:"verbosityBand"`
}

// ToneResult is the response to a ToneRequest.
type ToneResult struct {
	Result  string      `json:"result"`
	Metrics ToneMetrics `json:"metrics"`
	Source  string      `json:"source"`
}
