package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"research-orchestrator/internal/domain"
)

const sourceCompetitors = "competitors"

// Fetch loads competitor metrics, filtered to the readiness scope's
// competitor handles, and flags impossible follower counts.
func (r *CompetitorRetriever) Fetch(ctx context.Context, jobID uuid.UUID, scope domain.ReadinessScope) (domain.CompetitorContext, error) {
	all, err := r.repo.ListCompetitors(ctx, jobID)
	if err != nil {
		return domain.CompetitorContext{}, fmt.Errorf("failed to load competitors: %w", err)
	}

	var issues, warnings []string
	seen := make(map[string]struct{}, len(all))
	kept := make([]domain.CompetitorMetrics, 0, len(all))

	for _, comp := range all {
		if !inScope(scope.CompetitorHandles, comp.Handle) {
			continue
		}
		if _, dup := seen[comp.Handle]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate competitor handle %s", comp.Handle))
			continue
		}
		seen[comp.Handle] = struct{}{}

		switch {
		case comp.FollowerCount < 0:
			issues = append(issues, fmt.Sprintf("negative follower count for %s", comp.Handle))
			continue
		case comp.FollowerCount > maxPlausibleFollowers:
			issues = append(issues, fmt.Sprintf("implausible follower count for %s", comp.Handle))
			continue
		}
		if comp.EngagementRate < 0 || comp.EngagementRate > 1 {
			warnings = append(warnings, fmt.Sprintf("engagement rate out of range for %s", comp.Handle))
		}

		kept = append(kept, comp)
	}

	if len(kept) == 0 {
		issues = append(issues, "no usable competitor metrics in scope")
	}

	return domain.CompetitorContext{
		Competitors: kept,
		Quality:     r.scorer.Score(sourceCompetitors, len(kept), issues, warnings, expectedMinCompetitors),
	}, nil
}
