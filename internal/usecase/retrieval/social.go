package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"research-orchestrator/internal/domain"
)

const sourceSocial = "social"

// Fetch loads scraped posts and community sentiment, filtered to the
// readiness scope. Posts without engagement metadata are kept but counted
// as a soft defect.
func (r *SocialRetriever) Fetch(ctx context.Context, jobID uuid.UUID, scope domain.ReadinessScope) (domain.SocialContext, error) {
	posts, err := r.repo.ListPosts(ctx, jobID)
	if err != nil {
		return domain.SocialContext{}, fmt.Errorf("failed to load posts: %w", err)
	}
	comments, err := r.repo.ListCommunityComments(ctx, jobID)
	if err != nil {
		return domain.SocialContext{}, fmt.Errorf("failed to load community comments: %w", err)
	}

	var issues, warnings []string
	kept := make([]domain.Post, 0, len(posts))
	missingAnalytics := 0

	for _, post := range posts {
		handles := scope.ClientHandles
		if post.Scope == domain.ScopeCompetitor {
			handles = scope.CompetitorHandles
		}
		if !inScope(handles, post.Handle) {
			continue
		}
		if !post.HasAnalytics {
			missingAnalytics++
		}
		kept = append(kept, post)
	}

	if missingAnalytics > 0 {
		warnings = append(warnings, fmt.Sprintf("%d posts lack engagement metadata", missingAnalytics))
	}
	if len(kept) == 0 {
		issues = append(issues, "no posts in readiness scope")
	}
	if len(comments) == 0 {
		warnings = append(warnings, "no community sentiment collected")
	}

	return domain.SocialContext{
		Posts:    kept,
		Comments: comments,
		Quality:  r.scorer.Score(sourceSocial, len(kept), issues, warnings, expectedMinPosts),
	}, nil
}
