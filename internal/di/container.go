package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"research-orchestrator/internal/adapter/repository"
	"research-orchestrator/internal/adapter/textgen"
	"research-orchestrator/internal/cost"
	"research-orchestrator/internal/domain"
	"research-orchestrator/internal/infra/config"
	"research-orchestrator/internal/usecase"
	"research-orchestrator/internal/usecase/retrieval"
	"research-orchestrator/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	SnapshotRepo domain.SnapshotRepository
	ResearchRepo domain.ResearchRepository
	SectionRepo  domain.SectionRepository
	JobRepo      domain.ReportJobRepository

	// Usecases
	ReadinessUsecase usecase.ReadinessUsecase
	ContextUsecase   usecase.BuildContextUsecase
	SectionUsecase   usecase.GenerateSectionUsecase
	DocumentUsecase  usecase.GenerateDocumentUsecase

	// Spend tracking, exposed for handlers and the CLI
	Ledger *cost.Ledger

	// Worker
	Worker *worker.JobWorker
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	// Repositories
	snapshotRepo := repository.NewSnapshotRepository(pool)
	researchRepo := repository.NewResearchRepository(pool)
	sectionRepo := repository.NewSectionRepository(pool)
	jobRepo := repository.NewReportJobRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// Generation backend
	var llm domain.LLMClient
	if cfg.Generation.UseMock {
		llm = textgen.NewMockGenerator()
		log.Info("mock_generator_enabled")
	} else {
		llm = textgen.NewChatGenerator(
			cfg.Generation.URL,
			cfg.Generation.Model,
			cfg.Generation.APIKey,
			cfg.Generation.Timeout,
			cfg.Generation.RequestsPerSecond,
			log,
		)
	}

	// Detection rules: built-in set, optionally extended from YAML
	rules := usecase.NewDetectionRules()
	if cfg.Gate.DetectionRulesPath != "" {
		loaded, err := usecase.LoadDetectionRules(cfg.Gate.DetectionRulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load detection rules: %w", err)
		}
		rules = loaded
		log.Info("detection_rules_loaded", slog.String("path", cfg.Gate.DetectionRulesPath))
	}

	// Readiness and context aggregation
	readinessUsecase := usecase.NewReadinessUsecase(snapshotRepo, log)
	scorer := domain.NewQualityScorer()
	contextUsecase := usecase.NewBuildContextUsecase(
		readinessUsecase,
		retrieval.NewBusinessRetriever(researchRepo, scorer),
		retrieval.NewInsightRetriever(researchRepo, scorer),
		retrieval.NewCompetitorRetriever(researchRepo, scorer),
		retrieval.NewSocialRetriever(researchRepo, scorer),
		retrieval.NewContentRetriever(researchRepo, scorer),
		retrieval.NewMediaRetriever(researchRepo, scorer),
		scorer,
		log,
	)

	// Section generation with retry and spend tracking
	ledger := cost.NewLedger(cfg.Generation.BudgetUSD)
	promptBuilder := usecase.NewSectionPromptBuilder()
	sectionValidator := usecase.NewHeuristicSectionValidator(rules, cfg.Gate.MinSectionScore)
	sectionUsecase := usecase.NewGenerateSectionUsecase(
		llm,
		promptBuilder,
		sectionValidator,
		ledger,
		cfg.Generation.MaxTokens,
		time.Duration(cfg.Generation.AttemptTimeout)*time.Second,
		log,
	)

	// Quality gate
	factChecker, err := usecase.NewFactChecker(researchRepo, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create fact checker: %w", err)
	}
	gateConfig := usecase.GateConfig{
		MinSectionScore:             cfg.Gate.MinSectionScore,
		MinReadyClientSnapshots:     cfg.Gate.MinReadyClientSnapshots,
		MinReadyCompetitorSnapshots: cfg.Gate.MinReadyCompetitorSnapshots,
		CompetitorDegradedFallback:  cfg.Gate.CompetitorDegradedFallback,
	}
	gate := usecase.NewQualityGate(
		factChecker,
		usecase.NewDocumentValidator(rules),
		readinessUsecase,
		rules,
		gateConfig,
		log,
	)

	// Document pipeline
	documentUsecase := usecase.NewGenerateDocumentUsecase(
		contextUsecase,
		sectionUsecase,
		gate,
		sectionRepo,
		txManager,
		llm,
		log,
	)

	// Worker
	jobWorker := worker.NewJobWorker(jobRepo, documentUsecase, log)

	return &ApplicationComponents{
		SnapshotRepo:     snapshotRepo,
		ResearchRepo:     researchRepo,
		SectionRepo:      sectionRepo,
		JobRepo:          jobRepo,
		ReadinessUsecase: readinessUsecase,
		ContextUsecase:   contextUsecase,
		SectionUsecase:   sectionUsecase,
		DocumentUsecase:  documentUsecase,
		Ledger:           ledger,
		Worker:           jobWorker,
	}, nil
}
