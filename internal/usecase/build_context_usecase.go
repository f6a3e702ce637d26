package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"research-orchestrator/internal/domain"
	"research-orchestrator/internal/usecase/retrieval"
)

// BuildContextInput controls one aggregation request.
type BuildContextInput struct {
	JobID uuid.UUID
	// IncludeDegraded widens the readiness policy from {READY} to
	// {READY, DEGRADED}.
	IncludeDegraded bool
}

// BuildContextUsecase assembles the immutable research context for one
// generation request.
type BuildContextUsecase interface {
	Execute(ctx context.Context, input BuildContextInput) (*domain.ResearchContext, error)
}

type buildContextUsecase struct {
	readiness   ReadinessUsecase
	business    *retrieval.BusinessRetriever
	insights    *retrieval.InsightRetriever
	competitors *retrieval.CompetitorRetriever
	social      *retrieval.SocialRetriever
	content     *retrieval.ContentRetriever
	media       *retrieval.MediaRetriever
	scorer      domain.QualityScorer
	logger      *slog.Logger
}

// NewBuildContextUsecase wires the aggregator with all six retrievers.
func NewBuildContextUsecase(
	readiness ReadinessUsecase,
	business *retrieval.BusinessRetriever,
	insights *retrieval.InsightRetriever,
	competitors *retrieval.CompetitorRetriever,
	social *retrieval.SocialRetriever,
	content *retrieval.ContentRetriever,
	media *retrieval.MediaRetriever,
	scorer domain.QualityScorer,
	logger *slog.Logger,
) BuildContextUsecase {
	return &buildContextUsecase{
		readiness:   readiness,
		business:    business,
		insights:    insights,
		competitors: competitors,
		social:      social,
		content:     content,
		media:       media,
		scorer:      scorer,
		logger:      logger,
	}
}

func (u *buildContextUsecase) Execute(ctx context.Context, input BuildContextInput) (*domain.ResearchContext, error) {
	// Readiness scope first: every retriever that cares about
	// per-snapshot eligibility filters against it.
	readiness, err := u.readiness.Classify(ctx, input.JobID, input.IncludeDegraded)
	if err != nil {
		return nil, fmt.Errorf("failed to classify readiness: %w", err)
	}

	rc := &domain.ResearchContext{
		JobID:     input.JobID,
		Readiness: readiness.Summary,
	}

	// Each goroutine owns one slot so the fan-out shares no mutable state.
	degradedSlots := make([]*domain.DegradedReason, 5)

	// Fan out to all source retrievers concurrently. They share only the
	// job id and the readiness scope.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		business, err := u.business.Fetch(gctx, input.JobID)
		if err != nil {
			// The only fatal source: no context without an identity.
			return err
		}
		rc.Business = business
		return nil
	})
	g.Go(func() error {
		insights, err := u.insights.Fetch(gctx, input.JobID)
		if err != nil {
			rc.Insights, degradedSlots[0] = degradedInsights(err)
			return nil
		}
		rc.Insights = insights
		return nil
	})
	g.Go(func() error {
		competitors, err := u.competitors.Fetch(gctx, input.JobID, readiness.Scope)
		if err != nil {
			rc.Competitors, degradedSlots[1] = degradedCompetitors(err)
			return nil
		}
		rc.Competitors = competitors
		return nil
	})
	g.Go(func() error {
		social, err := u.social.Fetch(gctx, input.JobID, readiness.Scope)
		if err != nil {
			rc.Social, degradedSlots[2] = degradedSocial(err)
			return nil
		}
		rc.Social = social
		return nil
	})
	g.Go(func() error {
		rc.Content, degradedSlots[3] = u.content.Fetch(gctx, input.JobID)
		return nil
	})
	g.Go(func() error {
		rc.Media, degradedSlots[4] = u.media.Fetch(gctx, input.JobID)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var degradations []domain.DegradedReason
	for _, deg := range degradedSlots {
		if deg != nil {
			degradations = append(degradations, *deg)
		}
	}

	rc.Warnings = collectWarnings(rc, degradations)
	rc.Warnings = append(rc.Warnings, crossReferenceWarnings(rc)...)
	rc.MissingData = collectMissingData(rc)
	rc.Composite = u.scorer.Composite(rc.DomainScores())
	rc.BuiltAt = time.Now().UTC()

	u.logger.Info("research_context_built",
		slog.String("job_id", input.JobID.String()),
		slog.Float64("composite_score", rc.Composite.Score),
		slog.Bool("composite_reliable", rc.Composite.IsReliable),
		slog.Int("warning_count", len(rc.Warnings)),
		slog.Int("missing_data_count", len(rc.MissingData)))

	return rc, nil
}

// Store failures on non-business sources degrade to zero-value contexts
// so one failing domain never aborts the aggregation.

func degradedInsights(err error) (domain.InsightContext, *domain.DegradedReason) {
	reason := fmt.Sprintf("insight retrieval failed: %v", err)
	return domain.InsightContext{
		Quality: zeroQuality("insights", reason),
	}, &domain.DegradedReason{Source: "insights", Reason: reason}
}

func degradedCompetitors(err error) (domain.CompetitorContext, *domain.DegradedReason) {
	reason := fmt.Sprintf("competitor retrieval failed: %v", err)
	return domain.CompetitorContext{
		Quality: zeroQuality("competitors", reason),
	}, &domain.DegradedReason{Source: "competitors", Reason: reason}
}

func degradedSocial(err error) (domain.SocialContext, *domain.DegradedReason) {
	reason := fmt.Sprintf("social retrieval failed: %v", err)
	return domain.SocialContext{
		Quality: zeroQuality("social", reason),
	}, &domain.DegradedReason{Source: "social", Reason: reason}
}

func zeroQuality(source, issue string) domain.QualityScore {
	return domain.QualityScore{Source: source, Score: 0, Issues: []string{issue}, IsReliable: false}
}

func collectWarnings(rc *domain.ResearchContext, degradations []domain.DegradedReason) []string {
	var warnings []string
	for _, score := range rc.DomainScores() {
		for _, w := range score.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", score.Source, w))
		}
	}
	for _, deg := range degradations {
		warnings = append(warnings, fmt.Sprintf("%s degraded: %s", deg.Source, deg.Reason))
	}
	return warnings
}

// crossReferenceWarnings detects data that is inconsistent across sources,
// e.g. competitor-scoped posts whose handle was never discovered in the
// competitor list.
func crossReferenceWarnings(rc *domain.ResearchContext) []string {
	known := make(map[string]struct{}, len(rc.Competitors.Competitors))
	for _, comp := range rc.Competitors.Competitors {
		known[strings.ToLower(comp.Handle)] = struct{}{}
	}

	var warnings []string
	flagged := make(map[string]struct{})
	for _, post := range rc.Social.Posts {
		if post.Scope != domain.ScopeCompetitor {
			continue
		}
		handle := strings.ToLower(post.Handle)
		if _, ok := known[handle]; ok {
			continue
		}
		if _, done := flagged[handle]; done {
			continue
		}
		flagged[handle] = struct{}{}
		warnings = append(warnings, fmt.Sprintf("posts reference competitor @%s not present in competitor list", post.Handle))
	}
	return warnings
}

func collectMissingData(rc *domain.ResearchContext) []string {
	var missing []string
	for _, score := range rc.DomainScores() {
		if !score.IsReliable {
			missing = append(missing, fmt.Sprintf("unreliable %s data", score.Source))
		}
	}
	if !rc.Readiness.HasClientReady {
		missing = append(missing, "no ready client snapshots")
	}
	if !rc.Readiness.HasCompetitorReady {
		missing = append(missing, "no ready competitor snapshots")
	}
	return missing
}
