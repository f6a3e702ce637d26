package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"research-orchestrator/internal/domain"
)

const sourceContent = "content"

// Fetch loads content-intelligence findings. This source is non-critical:
// datastore failures are folded into a DegradedReason with a zero-value
// context so one failing domain never aborts the aggregation.
func (r *ContentRetriever) Fetch(ctx context.Context, jobID uuid.UUID) (domain.ContentContext, *domain.DegradedReason) {
	findings, err := r.repo.ListContentFindings(ctx, jobID)
	if err != nil {
		return degradedContent(fmt.Sprintf("content intelligence unavailable: %v", err))
	}

	var issues, warnings []string
	seenURL := make(map[string]struct{}, len(findings))
	kept := make([]domain.ContentFinding, 0, len(findings))

	for _, finding := range findings {
		if finding.URL != "" {
			if _, dup := seenURL[finding.URL]; dup {
				warnings = append(warnings, fmt.Sprintf("duplicate search result URL %s", finding.URL))
				continue
			}
			seenURL[finding.URL] = struct{}{}
		}
		kept = append(kept, finding)
	}

	if len(kept) == 0 {
		issues = append(issues, "no content intelligence findings")
	}

	return domain.ContentContext{
		Findings: kept,
		Quality:  r.scorer.Score(sourceContent, len(kept), issues, warnings, expectedMinFindings),
	}, nil
}

func degradedContent(reason string) (domain.ContentContext, *domain.DegradedReason) {
	return domain.ContentContext{
		Quality: domain.QualityScore{
			Source:     sourceContent,
			Score:      0,
			Issues:     []string{reason},
			IsReliable: false,
		},
	}, &domain.DegradedReason{Source: sourceContent, Reason: reason}
}
