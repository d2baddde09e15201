// Package llm normalizes heterogeneous model backends behind a single
// Provider contract.
package llm

import (
	"context"
	"time"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UsageUnits names the accounting unit a backend reports in.
type UsageUnits string

const (
	UnitTokens       UsageUnits = "tokens"
	UnitMilliseconds UsageUnits = "milliseconds"
)

// TokenUsage holds token counts for backends that report them.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// DurationUsage holds timings for backends (Ollama) that report wall time
// instead of token counts.
type DurationUsage struct {
	TotalDuration      time.Duration `json:"total_duration"`
	PromptEvalDuration time.Duration `json:"prompt_eval_duration"`
	EvalDuration       time.Duration `json:"eval_duration"`
}

// Usage is the normalized accounting for one generation call. InputUnits and
// OutputUnits are always populated; the provider-specific detail rides along
// in Tokens or Durations depending on Units.
type Usage struct {
	InputUnits  int64      `json:"input_units"`
	OutputUnits int64      `json:"output_units"`
	Units       UsageUnits `json:"units"`

	Tokens    *TokenUsage    `json:"tokens,omitempty"`
	Durations *DurationUsage `json:"durations,omitempty"`
}

// GenerateRequest is the provider-independent shape of one generation call.
// History is passed through to the backend as ordered turns ahead of Prompt.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	History     []Message
	MaxTokens   int
	Temperature float64
}

// GenerateResponse is the normalized result of one generation call.
type GenerateResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// StreamHandler receives each content chunk as the backend emits it.
// Returning an error aborts the stream.
type StreamHandler func(chunk string) error

// Provider is implemented once per backend. Generate returns
// ErrProviderUnavailable on transport or auth failure and
// ErrProviderResponse on a malformed or empty body; it never retries.
// GenerateStream behaves the same but forwards content incrementally and
// returns the accumulated response once the backend finishes.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	GenerateStream(ctx context.Context, req GenerateRequest, onChunk StreamHandler) (*GenerateResponse, error)
	Models(ctx context.Context) (map[string]string, error)
}
