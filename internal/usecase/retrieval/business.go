package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"research-orchestrator/internal/domain"
)

const sourceBusiness = "business"

// Fetch loads the business identity. A missing profile is fatal: there is
// no meaningful research context without one.
func (r *BusinessRetriever) Fetch(ctx context.Context, jobID uuid.UUID) (domain.BusinessContext, error) {
	profile, err := r.repo.GetBusinessProfile(ctx, jobID)
	if err != nil {
		return domain.BusinessContext{}, fmt.Errorf("failed to load business profile: %w", err)
	}
	if profile == nil {
		return domain.BusinessContext{}, domain.ErrNoBusinessContext
	}

	var issues, warnings []string

	if strings.TrimSpace(profile.Name) == "" {
		issues = append(issues, "business profile has no name")
	}
	if strings.TrimSpace(profile.Description) == "" {
		warnings = append(warnings, "business profile has no description")
	}
	if strings.TrimSpace(profile.Industry) == "" {
		warnings = append(warnings, "business profile has no industry")
	}
	if len(profile.Handles) == 0 {
		issues = append(issues, "business profile lists no social handles")
	}

	return domain.BusinessContext{
		Profile: *profile,
		Quality: r.scorer.Score(sourceBusiness, 1, issues, warnings, 0),
	}, nil
}
