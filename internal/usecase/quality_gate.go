package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"research-orchestrator/internal/domain"
)

// Reason codes reported by the quality gate. They accumulate so a single
// evaluation exposes every problem at once.
const (
	ReasonNoGeneratedSections      = "NO_GENERATED_SECTIONS"
	ReasonMissingRequiredSections  = "MISSING_REQUIRED_SECTIONS"
	ReasonSectionScoreBelow        = "SECTION_SCORE_BELOW_THRESHOLD"
	ReasonFactCheckCritical        = "FACT_CHECK_CRITICAL_INACCURACY"
	ReasonFactCheckHigh            = "FACT_CHECK_HIGH_INACCURACY"
	ReasonPlaceholderText          = "PLACEHOLDER_OR_DISCLAIMER_TEXT"
	ReasonDocumentValidationFailed = "DOCUMENT_VALIDATION_FAILED"
	ReasonDocumentCriticalIssues   = "DOCUMENT_CRITICAL_ISSUES"
	ReasonClientReadyBelowMinimum  = "READINESS_CLIENT_READY_BELOW_MINIMUM"
	ReasonCompetitorReadyBelowMin  = "READINESS_COMPETITOR_READY_BELOW_MINIMUM"
)

// GateModeSection evaluates individual sections; GateModeDocument adds
// the two-pass whole-document validation on top.
const (
	GateModeSection  = "section"
	GateModeDocument = "document"
)

// GateConfig is the gate's tunable policy.
type GateConfig struct {
	MinSectionScore             float64
	MinReadyClientSnapshots     int
	MinReadyCompetitorSnapshots int
	// CompetitorDegradedFallback lets degraded competitor snapshots count
	// toward the competitor minimum when no ready ones exist.
	CompetitorDegradedFallback bool
}

// DefaultGateConfig returns the standard policy.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinSectionScore:             80,
		MinReadyClientSnapshots:     1,
		MinReadyCompetitorSnapshots: 1,
	}
}

// GateDecision is the gate's verdict for one generation run. It is
// computed fresh every run and never persisted directly; the grounding
// report is its durable projection.
type GateDecision struct {
	AllowPersist       bool
	ReasonCodes        []string
	CorrectedSections  map[string]string
	FactCheck          domain.FactCheckResult
	Document           *DocumentValidation
	LowestSectionScore float64
	PlaceholderHits    int
	Readiness          domain.ReadinessSummary
}

// GroundingReport projects the decision into its persisted audit form.
func (d *GateDecision) GroundingReport(mode string) *domain.GroundingReport {
	return &domain.GroundingReport{
		Mode:               mode,
		Blocked:            !d.AllowPersist,
		ReasonCodes:        d.ReasonCodes,
		LowestSectionScore: d.LowestSectionScore,
		PlaceholderHits:    d.PlaceholderHits,
		FactCheck:          d.FactCheck,
		Readiness:          d.Readiness,
		GeneratedAt:        time.Now().UTC(),
		Source:             "quality_gate",
	}
}

// FactVerifier is the slice of the fact checker the gate consumes.
type FactVerifier interface {
	CheckAndSanitize(ctx context.Context, text string, jobID uuid.UUID) (string, domain.FactCheckResult, error)
}

// QualityGate combines per-section scores, fact-check severities,
// placeholder detection, document validation and readiness counts into a
// single allow/block decision.
type QualityGate struct {
	checker   FactVerifier
	validator *DocumentValidator
	readiness ReadinessUsecase
	rules     *DetectionRules
	cfg       GateConfig
	logger    *slog.Logger
}

// NewQualityGate wires the gate from its collaborators.
func NewQualityGate(
	checker FactVerifier,
	validator *DocumentValidator,
	readiness ReadinessUsecase,
	rules *DetectionRules,
	cfg GateConfig,
	logger *slog.Logger,
) *QualityGate {
	if cfg.MinSectionScore == 0 {
		cfg.MinSectionScore = 80
	}
	return &QualityGate{
		checker:   checker,
		validator: validator,
		readiness: readiness,
		rules:     rules,
		cfg:       cfg,
		logger:    logger,
	}
}

// Evaluate runs every check and accumulates reason codes without
// short-circuiting. allowPersist is true iff no reason code fired. The
// corrected (post-sanitization) texts are always returned so callers can
// persist a DRAFT copy even when blocked.
func (g *QualityGate) Evaluate(
	ctx context.Context,
	jobID uuid.UUID,
	sections []domain.GenerationResult,
	requestedTopics []string,
	mode string,
) (*GateDecision, error) {
	decision := &GateDecision{
		CorrectedSections:  make(map[string]string, len(sections)),
		LowestSectionScore: 100,
	}

	if len(sections) == 0 {
		decision.ReasonCodes = append(decision.ReasonCodes, ReasonNoGeneratedSections)
		decision.LowestSectionScore = 0
	} else if len(sections) < len(requestedTopics) {
		decision.ReasonCodes = append(decision.ReasonCodes, ReasonMissingRequiredSections)
	}

	scoreBelow := false
	for _, section := range sections {
		corrected, factResult, err := g.checker.CheckAndSanitize(ctx, section.Text, jobID)
		if err != nil {
			return nil, fmt.Errorf("fact check for section %s: %w", section.Topic, err)
		}
		decision.CorrectedSections[section.Topic] = corrected

		decision.FactCheck.TotalClaims += factResult.TotalClaims
		decision.FactCheck.VerifiedClaims += factResult.VerifiedClaims
		decision.FactCheck.Inaccuracies = append(decision.FactCheck.Inaccuracies, factResult.Inaccuracies...)

		if section.Score < decision.LowestSectionScore {
			decision.LowestSectionScore = section.Score
		}
		if section.Score < g.cfg.MinSectionScore {
			scoreBelow = true
		}
	}
	if scoreBelow {
		decision.ReasonCodes = append(decision.ReasonCodes, ReasonSectionScoreBelow)
	}

	// Fact-check severities are judged after sanitization.
	if decision.FactCheck.CountBySeverity(domain.SeverityCritical) > 0 {
		decision.ReasonCodes = append(decision.ReasonCodes, ReasonFactCheckCritical)
	}
	if decision.FactCheck.CountBySeverity(domain.SeverityHigh) > 0 {
		decision.ReasonCodes = append(decision.ReasonCodes, ReasonFactCheckHigh)
	}

	// Placeholder/disclaimer scan runs on the corrected text with zero
	// tolerance.
	for _, section := range sections {
		hits := PlaceholderHits(g.rules.Detect(decision.CorrectedSections[section.Topic]))
		decision.PlaceholderHits += len(hits)
	}
	if decision.PlaceholderHits > 0 {
		decision.ReasonCodes = append(decision.ReasonCodes, ReasonPlaceholderText)
	}

	if mode == GateModeDocument && len(sections) > 0 {
		texts := make([]string, 0, len(sections))
		scores := make([]float64, 0, len(sections))
		for _, section := range sections {
			texts = append(texts, decision.CorrectedSections[section.Topic])
			scores = append(scores, section.Score)
		}
		validation := g.validator.Validate(texts, scores)
		decision.Document = &validation

		if !validation.Passed {
			decision.ReasonCodes = append(decision.ReasonCodes, ReasonDocumentValidationFailed)
		}
		if validation.HasCritical() {
			decision.ReasonCodes = append(decision.ReasonCodes, ReasonDocumentCriticalIssues)
		}
	}

	// The allowed-statuses policy stays {READY} for both scopes; the
	// competitor degraded fallback below only widens the competitor pool,
	// never the persisted readiness policy.
	readiness, err := g.readiness.Classify(ctx, jobID, false)
	if err != nil {
		return nil, fmt.Errorf("readiness classification: %w", err)
	}
	decision.Readiness = readiness.Summary

	if readiness.Summary.Client.Ready < g.cfg.MinReadyClientSnapshots {
		decision.ReasonCodes = append(decision.ReasonCodes, ReasonClientReadyBelowMinimum)
	}
	competitorPool := readiness.Summary.Competitor.Ready
	if g.cfg.CompetitorDegradedFallback && competitorPool == 0 {
		competitorPool = readiness.Summary.Competitor.Degraded
	}
	if competitorPool < g.cfg.MinReadyCompetitorSnapshots {
		decision.ReasonCodes = append(decision.ReasonCodes, ReasonCompetitorReadyBelowMin)
	}

	decision.AllowPersist = len(decision.ReasonCodes) == 0

	g.logger.Info("quality_gate_evaluated",
		slog.String("job_id", jobID.String()),
		slog.String("mode", mode),
		slog.Bool("allow_persist", decision.AllowPersist),
		slog.Any("reason_codes", decision.ReasonCodes),
		slog.Float64("lowest_section_score", decision.LowestSectionScore),
		slog.Int("placeholder_hits", decision.PlaceholderHits))

	return decision, nil
}
