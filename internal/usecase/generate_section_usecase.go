package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"research-orchestrator/internal/cost"
	"research-orchestrator/internal/domain"
)

// MaxGenerationAttempts bounds the per-section retry loop.
const MaxGenerationAttempts = 3

// GenerateSectionInput asks for one section of the report.
type GenerateSectionInput struct {
	Topic   string
	Context *domain.ResearchContext
}

// GenerateSectionUsecase drives the bounded retry loop for one section.
// Once the budget pre-check passes it always resolves to a result
// (passed or best-of-N), never an error, except when the generation
// capability itself fails on the final allowed attempt.
type GenerateSectionUsecase interface {
	Execute(ctx context.Context, input GenerateSectionInput) (*domain.GenerationResult, error)
}

type generateSectionUsecase struct {
	llm            domain.LLMClient
	promptBuilder  PromptBuilder
	validator      SectionValidator
	ledger         *cost.Ledger
	maxTokens      int
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// NewGenerateSectionUsecase wires the orchestrator. attemptTimeout bounds
// each call to the external generation capability so a hung third-party
// call cannot stall the pipeline.
func NewGenerateSectionUsecase(
	llm domain.LLMClient,
	promptBuilder PromptBuilder,
	validator SectionValidator,
	ledger *cost.Ledger,
	maxTokens int,
	attemptTimeout time.Duration,
	logger *slog.Logger,
) GenerateSectionUsecase {
	return &generateSectionUsecase{
		llm:            llm,
		promptBuilder:  promptBuilder,
		validator:      validator,
		ledger:         ledger,
		maxTokens:      maxTokens,
		attemptTimeout: attemptTimeout,
		logger:         logger,
	}
}

func (u *generateSectionUsecase) Execute(ctx context.Context, input GenerateSectionInput) (*domain.GenerationResult, error) {
	if input.Context == nil {
		return nil, fmt.Errorf("research context is required")
	}

	// Budget gates the whole loop before attempt 1.
	if decision := u.ledger.CheckBudget(); !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrBudgetExceeded, decision.Reason)
	}

	spec := SpecForTopic(input.Topic)
	costBefore := u.ledger.TotalCostUSD()

	var attempts []domain.GenerationAttempt
	var prior *domain.GenerationAttempt
	totalTokens := 0

	for attemptNum := 1; attemptNum <= MaxGenerationAttempts; attemptNum++ {
		promptInput := PromptInput{Spec: spec, Context: input.Context}
		if prior != nil {
			promptInput.PriorText = prior.Text
			promptInput.PriorScore = prior.Score
			promptInput.PriorFeedback = prior.Feedback
		}

		prompt, err := u.promptBuilder.Build(promptInput)
		if err != nil {
			return nil, fmt.Errorf("failed to build prompt for %s: %w", input.Topic, err)
		}

		resp, err := u.complete(ctx, prompt, prior)
		if err != nil {
			if attemptNum == MaxGenerationAttempts {
				return nil, fmt.Errorf("generation failed on final attempt for %s: %w", input.Topic, err)
			}
			u.logger.Warn("generation_attempt_failed",
				slog.String("topic", input.Topic),
				slog.Int("attempt", attemptNum),
				slog.String("error", err.Error()))
			continue
		}
		totalTokens += resp.PromptTokens + resp.CompletionTokens
		u.ledger.AddUsage(u.llm.Model(), resp.PromptTokens, resp.CompletionTokens)

		validation, err := u.validator.Validate(ctx, resp.Text, spec, input.Context)
		if err != nil {
			return nil, fmt.Errorf("validation failed for %s: %w", input.Topic, err)
		}

		attempt := domain.GenerationAttempt{
			Number:   attemptNum,
			Text:     resp.Text,
			Score:    validation.Score,
			Feedback: validation.Feedback,
		}
		attempts = append(attempts, attempt)

		u.logger.Info("section_attempt_validated",
			slog.String("topic", input.Topic),
			slog.Int("attempt", attemptNum),
			slog.Float64("score", validation.Score),
			slog.Bool("passed", validation.Passed))

		if validation.Passed {
			return &domain.GenerationResult{
				Topic:    input.Topic,
				Text:     attempt.Text,
				Score:    attempt.Score,
				Passed:   true,
				Attempts: attemptNum,
				CostUSD:  u.ledger.TotalCostUSD() - costBefore,
				Tokens:   totalTokens,
			}, nil
		}

		prior = &attempt
	}

	// Exhausted without a pass: keep the best attempt, earliest on ties.
	best := bestAttempt(attempts)
	if best == nil {
		return nil, fmt.Errorf("no generation attempts completed for %s", input.Topic)
	}

	return &domain.GenerationResult{
		Topic:    input.Topic,
		Text:     best.Text,
		Score:    best.Score,
		Passed:   false,
		Attempts: len(attempts),
		Warnings: []string{fmt.Sprintf(
			"section %s failed validation after %d attempts; best score %.0f",
			input.Topic, len(attempts), best.Score)},
		CostUSD: u.ledger.TotalCostUSD() - costBefore,
		Tokens:  totalTokens,
	}, nil
}

// complete calls the generation capability under the per-attempt timeout.
func (u *generateSectionUsecase) complete(ctx context.Context, prompt string, prior *domain.GenerationAttempt) (*domain.CompletionResponse, error) {
	if u.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.attemptTimeout)
		defer cancel()
	}

	req := domain.CompletionRequest{Prompt: prompt, MaxTokens: u.maxTokens}
	if prior != nil {
		req.PriorAttempt = prior.Text
	}
	return u.llm.Complete(ctx, req)
}

func bestAttempt(attempts []domain.GenerationAttempt) *domain.GenerationAttempt {
	var best *domain.GenerationAttempt
	for i := range attempts {
		// Strict comparison keeps the earliest attempt on ties.
		if best == nil || attempts[i].Score > best.Score {
			best = &attempts[i]
		}
	}
	return best
}
