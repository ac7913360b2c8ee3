package models

import "time"

// Pass identifies which generation step issued a provider call.
type Pass string

const (
	PassPrimary Pass = "primary"
	PassSecond  Pass = "second"
)

// Usage represents token usage from an LLM response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageRecord tracks a single provider call.
type UsageRecord struct {
	ID               int64     `json:"id"`
	RequestID        string    `json:"request_id,omitempty"`
	Pass             Pass      `json:"pass"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        int64     `json:"latency_ms"`
	Outcome          string    `json:"outcome"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageSummary aggregates provider calls by model and pass.
type UsageSummary struct {
	Model           string `json:"model"`
	Pass            Pass   `json:"pass"`
	CallCount       int    `json:"call_count"`
	FailedCount     int    `json:"failed_count"`
	TotalPrompt     int    `json:"total_prompt"`
	TotalCompletion int    `json:"total_completion"`
	TotalTokens     int    `json:"total_tokens"`
	AvgLatencyMs    int64  `json:"avg_latency_ms"`
}
