package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"research-orchestrator/internal/domain"
)

// defaultSectionConcurrency bounds how many sections generate at once.
// Each section's retry loop is strictly sequential; only sections run in
// parallel.
const defaultSectionConcurrency = 2

// GenerateDocumentInput requests a full multi-section document.
type GenerateDocumentInput struct {
	JobID           uuid.UUID
	Topics          []string
	IncludeDegraded bool
	Concurrency     int
}

// GenerateDocumentOutput is the caller-visible outcome. When the gate
// blocks, the sections are still present, persisted as DRAFT with the
// full reason-code list.
type GenerateDocumentOutput struct {
	Sections     []domain.Section
	Decision     *GateDecision
	Status       domain.SectionStatus
	TotalCostUSD float64
}

// GenerateDocumentUsecase is the top-level pipeline: aggregate context,
// generate every requested section, gate, persist.
type GenerateDocumentUsecase interface {
	Execute(ctx context.Context, input GenerateDocumentInput) (*GenerateDocumentOutput, error)
}

type generateDocumentUsecase struct {
	buildContext    BuildContextUsecase
	generateSection GenerateSectionUsecase
	gate            *QualityGate
	sections        domain.SectionRepository
	tx              domain.TransactionManager
	llm             domain.LLMClient
	logger          *slog.Logger
}

// NewGenerateDocumentUsecase wires the document pipeline.
func NewGenerateDocumentUsecase(
	buildContext BuildContextUsecase,
	generateSection GenerateSectionUsecase,
	gate *QualityGate,
	sections domain.SectionRepository,
	tx domain.TransactionManager,
	llm domain.LLMClient,
	logger *slog.Logger,
) GenerateDocumentUsecase {
	return &generateDocumentUsecase{
		buildContext:    buildContext,
		generateSection: generateSection,
		gate:            gate,
		sections:        sections,
		tx:              tx,
		llm:             llm,
		logger:          logger,
	}
}

func (u *generateDocumentUsecase) Execute(ctx context.Context, input GenerateDocumentInput) (*GenerateDocumentOutput, error) {
	topics := input.Topics
	if len(topics) == 0 {
		topics = DefaultTopics()
	}
	sortTopics(topics)

	rc, err := u.buildContext.Execute(ctx, BuildContextInput{
		JobID:           input.JobID,
		IncludeDegraded: input.IncludeDegraded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build research context: %w", err)
	}

	results, err := u.generateAll(ctx, topics, rc, input.Concurrency)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, domain.ErrNoSectionsGenerated
	}

	decision, err := u.gate.Evaluate(ctx, input.JobID, results, topics, GateModeDocument)
	if err != nil {
		return nil, fmt.Errorf("quality gate evaluation: %w", err)
	}

	status := domain.SectionDraft
	if decision.AllowPersist {
		status = domain.SectionFinal
	}

	persisted, err := u.persist(ctx, input.JobID, results, decision, status)
	if err != nil {
		return nil, err
	}

	var totalCost float64
	for _, result := range results {
		totalCost += result.CostUSD
	}

	u.logger.Info("document_generated",
		slog.String("job_id", input.JobID.String()),
		slog.String("status", string(status)),
		slog.Int("section_count", len(persisted)),
		slog.Float64("total_cost_usd", totalCost),
		slog.Any("reason_codes", decision.ReasonCodes))

	return &GenerateDocumentOutput{
		Sections:     persisted,
		Decision:     decision,
		Status:       status,
		TotalCostUSD: totalCost,
	}, nil
}

// generateAll fans section generation out with bounded concurrency. A
// budget-exceeded error aborts the whole run; any other per-section
// failure drops that section and keeps the rest, leaving the missing
// section for the gate to report.
func (u *generateDocumentUsecase) generateAll(
	ctx context.Context,
	topics []string,
	rc *domain.ResearchContext,
	concurrency int,
) ([]domain.GenerationResult, error) {
	if concurrency <= 0 {
		concurrency = defaultSectionConcurrency
	}

	slots := make([]*domain.GenerationResult, len(topics))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, topic := range topics {
		g.Go(func() error {
			result, err := u.generateSection.Execute(gctx, GenerateSectionInput{
				Topic:   topic,
				Context: rc,
			})
			if err != nil {
				if errors.Is(err, domain.ErrBudgetExceeded) {
					return err
				}
				mu.Lock()
				u.logger.Warn("section_generation_failed",
					slog.String("topic", topic),
					slog.String("error", err.Error()))
				mu.Unlock()
				return nil
			}
			slots[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]domain.GenerationResult, 0, len(topics))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results, nil
}

// persist writes every section under the gate's status in one
// transaction, merging each section's grounding report with the one
// already stored so readiness metadata survives re-generation. Promoting
// to FINAL clears stale DRAFT rows for the same topics.
func (u *generateDocumentUsecase) persist(
	ctx context.Context,
	jobID uuid.UUID,
	results []domain.GenerationResult,
	decision *GateDecision,
	status domain.SectionStatus,
) ([]domain.Section, error) {
	report := decision.GroundingReport(GateModeDocument)
	persisted := make([]domain.Section, 0, len(results))

	err := u.tx.RunInTx(ctx, func(ctx context.Context) error {
		if status == domain.SectionFinal {
			draft := domain.SectionDraft
			topics := make([]string, 0, len(results))
			for _, result := range results {
				topics = append(topics, result.Topic)
			}
			if err := u.sections.DeleteSections(ctx, jobID, topics, &draft); err != nil {
				return fmt.Errorf("failed to clear draft sections: %w", err)
			}
		}

		for _, result := range results {
			prior, err := u.sections.GetLatestGrounding(ctx, jobID, result.Topic)
			if err != nil {
				return fmt.Errorf("failed to load prior grounding for %s: %w", result.Topic, err)
			}

			section := domain.Section{
				ID:        uuid.New(),
				JobID:     jobID,
				Topic:     result.Topic,
				Text:      decision.CorrectedSections[result.Topic],
				Score:     result.Score,
				Status:    status,
				Model:     u.llm.Model(),
				Tokens:    result.Tokens,
				Grounding: domain.MergeGroundingReports(prior, report),
				CreatedAt: time.Now().UTC(),
			}
			if err := u.sections.PersistSection(ctx, &section); err != nil {
				return fmt.Errorf("failed to persist section %s: %w", result.Topic, err)
			}
			persisted = append(persisted, section)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return persisted, nil
}
