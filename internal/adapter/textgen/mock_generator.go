package textgen

import (
	"context"
	"fmt"
	"hash/fnv"

	"research-orchestrator/internal/domain"
)

// MockGenerator produces deterministic offline output for local runs and
// demos. The same prompt always yields the same text, and usage is free.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (g *MockGenerator) Complete(_ context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(req.Prompt))

	text := fmt.Sprintf(
		"The brand's core pain point is retention among first-time buyers; the root cause is "+
			"undifferentiated positioning against established accounts. The value proposition should "+
			"center on verified results for the target audience.\n\n"+
			"| Priority | Action | Metric |\n| 1 | Weekly tutorial reels | conversion |\n| 2 | Community replies | retention |\n\n"+
			"\"This draft was produced offline for pipeline testing\" - mock generator (seed %08x).",
		h.Sum32())

	return &domain.CompletionResponse{
		Text: text,
		Done: true,
	}, nil
}

func (g *MockGenerator) Model() string {
	return "mock"
}

var _ domain.LLMClient = (*MockGenerator)(nil)
