package domain

import "context"

// CompletionRequest carries one prompt to the external text-generation
// capability. PriorAttempt is non-empty from the second retry onward so the
// model sees what failed before.
type CompletionRequest struct {
	Prompt       string
	PriorAttempt string
	MaxTokens    int
}

// CompletionResponse is the generated text plus token accounting.
type CompletionResponse struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Done             bool
}

// LLMClient is the opaque text-generation capability. Implementations must
// honor context cancellation; a mock implementation returns deterministic
// canned text with zero token usage.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Model() string
}
