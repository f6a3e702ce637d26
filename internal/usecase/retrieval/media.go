package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"research-orchestrator/internal/domain"
)

const sourceMedia = "media"

// Fetch loads per-asset creative analyses. Non-critical: failures degrade
// to a zero-value context.
func (r *MediaRetriever) Fetch(ctx context.Context, jobID uuid.UUID) (domain.MediaContext, *domain.DegradedReason) {
	analyses, err := r.repo.ListMediaAnalyses(ctx, jobID)
	if err != nil {
		return degradedMedia(fmt.Sprintf("media analysis unavailable: %v", err))
	}

	var issues, warnings []string
	kept := make([]domain.MediaAnalysis, 0, len(analyses))

	for _, analysis := range analyses {
		if strings.TrimSpace(analysis.Summary) == "" {
			warnings = append(warnings, fmt.Sprintf("media analysis for %s has no summary", analysis.AssetURL))
			continue
		}
		kept = append(kept, analysis)
	}

	if len(kept) == 0 {
		issues = append(issues, "no media analyses available")
	}

	return domain.MediaContext{
		Analyses: kept,
		Quality:  r.scorer.Score(sourceMedia, len(kept), issues, warnings, expectedMinAnalyses),
	}, nil
}

func degradedMedia(reason string) (domain.MediaContext, *domain.DegradedReason) {
	return domain.MediaContext{
		Quality: domain.QualityScore{
			Source:     sourceMedia,
			Score:      0,
			Issues:     []string{reason},
			IsReliable: false,
		},
	}, &domain.DegradedReason{Source: sourceMedia, Reason: reason}
}
