package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestrator/internal/cost"
	"research-orchestrator/internal/domain"
)

type completionStep struct {
	text string
	err  error
}

type scriptedLLM struct {
	steps   []completionStep
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	s.prompts = append(s.prompts, req.Prompt)
	step := s.steps[len(s.prompts)-1]
	if step.err != nil {
		return nil, step.err
	}
	return &domain.CompletionResponse{
		Text:             step.text,
		PromptTokens:     100,
		CompletionTokens: 400,
		Done:             true,
	}, nil
}

func (s *scriptedLLM) Model() string { return "mock" }

type scriptedValidator struct {
	scores   []float64
	passMark float64
	feedback []string
	calls    int
}

func (v *scriptedValidator) Validate(_ context.Context, _ string, _ SectionSpec, _ *domain.ResearchContext) (ValidationResult, error) {
	score := v.scores[v.calls]
	v.calls++
	return ValidationResult{
		Score:    score,
		Passed:   score >= v.passMark,
		Feedback: v.feedback,
	}, nil
}

func minimalContext() *domain.ResearchContext {
	return &domain.ResearchContext{
		Business: domain.BusinessContext{
			Profile: domain.BusinessProfile{Name: "Glow Atelier", Industry: "beauty"},
		},
	}
}

func newSectionUsecase(llm *scriptedLLM, validator *scriptedValidator, ledger *cost.Ledger) GenerateSectionUsecase {
	return NewGenerateSectionUsecase(
		llm,
		NewSectionPromptBuilder(),
		validator,
		ledger,
		2048,
		5*time.Second,
		testLogger(),
	)
}

func TestGenerateSection_PassesFirstAttempt(t *testing.T) {
	llm := &scriptedLLM{steps: []completionStep{{text: "a strong section"}}}
	validator := &scriptedValidator{scores: []float64{92}, passMark: 80}
	uc := newSectionUsecase(llm, validator, cost.NewLedger(0))

	result, err := uc.Execute(context.Background(), GenerateSectionInput{
		Topic:   "executive_summary",
		Context: minimalContext(),
	})
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 92.0, result.Score)
	assert.Equal(t, 500, result.Tokens)
	assert.Empty(t, result.Warnings)
}

func TestGenerateSection_FeedbackThreadsIntoRetry(t *testing.T) {
	llm := &scriptedLLM{steps: []completionStep{
		{text: "first draft"},
		{text: "second draft"},
	}}
	validator := &scriptedValidator{
		scores:   []float64{61, 85},
		passMark: 80,
		feedback: []string{"mention follower counts"},
	}
	uc := newSectionUsecase(llm, validator, cost.NewLedger(0))

	result, err := uc.Execute(context.Background(), GenerateSectionInput{
		Topic:   "competitive_landscape",
		Context: minimalContext(),
	})
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.Attempts)

	require.Len(t, llm.prompts, 2)
	assert.NotContains(t, llm.prompts[0], "<previous_attempt>")
	assert.Contains(t, llm.prompts[1], "<previous_attempt>")
	assert.Contains(t, llm.prompts[1], "feedback: mention follower counts")
	assert.Contains(t, llm.prompts[1], "first draft")
}

func TestGenerateSection_BestOfNOnExhaustion(t *testing.T) {
	llm := &scriptedLLM{steps: []completionStep{
		{text: "draft one"},
		{text: "draft two"},
		{text: "draft three"},
	}}
	validator := &scriptedValidator{scores: []float64{61, 74, 58}, passMark: 80}
	uc := newSectionUsecase(llm, validator, cost.NewLedger(0))

	result, err := uc.Execute(context.Background(), GenerateSectionInput{
		Topic:   "content_strategy",
		Context: minimalContext(),
	})
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 74.0, result.Score)
	assert.Equal(t, "draft two", result.Text)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "best score 74")
}

func TestGenerateSection_BestOfNKeepsEarliestOnTie(t *testing.T) {
	llm := &scriptedLLM{steps: []completionStep{
		{text: "draft one"},
		{text: "draft two"},
		{text: "draft three"},
	}}
	validator := &scriptedValidator{scores: []float64{70, 70, 65}, passMark: 80}
	uc := newSectionUsecase(llm, validator, cost.NewLedger(0))

	result, err := uc.Execute(context.Background(), GenerateSectionInput{
		Topic:   "action_plan",
		Context: minimalContext(),
	})
	require.NoError(t, err)
	assert.Equal(t, "draft one", result.Text)
}

func TestGenerateSection_BudgetExceededFailsFast(t *testing.T) {
	ledger := cost.NewLedger(0.01)
	ledger.AddUsage("gpt-4o", 1_000_000, 1_000_000)

	llm := &scriptedLLM{steps: []completionStep{{text: "never used"}}}
	validator := &scriptedValidator{scores: []float64{100}, passMark: 80}
	uc := newSectionUsecase(llm, validator, ledger)

	_, err := uc.Execute(context.Background(), GenerateSectionInput{
		Topic:   "executive_summary",
		Context: minimalContext(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)
	assert.Empty(t, llm.prompts, "no generation attempt once the budget is gone")
}

func TestGenerateSection_RecoversFromMidLoopFailure(t *testing.T) {
	llm := &scriptedLLM{steps: []completionStep{
		{err: errors.New("upstream 503")},
		{text: "second try"},
	}}
	validator := &scriptedValidator{scores: []float64{88}, passMark: 80}
	uc := newSectionUsecase(llm, validator, cost.NewLedger(0))

	result, err := uc.Execute(context.Background(), GenerateSectionInput{
		Topic:   "community_insights",
		Context: minimalContext(),
	})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, "second try", result.Text)
}

func TestGenerateSection_FinalAttemptFailureIsFatal(t *testing.T) {
	fail := completionStep{err: fmt.Errorf("upstream down")}
	llm := &scriptedLLM{steps: []completionStep{fail, fail, fail}}
	validator := &scriptedValidator{scores: []float64{}, passMark: 80}
	uc := newSectionUsecase(llm, validator, cost.NewLedger(0))

	_, err := uc.Execute(context.Background(), GenerateSectionInput{
		Topic:   "executive_summary",
		Context: minimalContext(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "final attempt")
}
