// Package retrieval holds the per-domain source context retrievers. Each
// retriever queries the datastore, runs its own anomaly checks, and
// returns a typed context carrying a quality score. Retrievers are
// independently swappable and share only the job id and readiness scope.
package retrieval

import (
	"research-orchestrator/internal/domain"
)

// Expected minimum record volumes per source. Falling below these eats
// into the quality score but is never fatal on its own.
const (
	expectedMinInsights    = 4
	expectedMinCompetitors = 3
	expectedMinPosts       = 5
	expectedMinFindings    = 3
	expectedMinAnalyses    = 2
)

// maxPlausibleFollowers caps follower counts; anything above is treated as
// a scrape artifact.
const maxPlausibleFollowers int64 = 1_000_000_000

// BusinessRetriever fetches the mandatory business identity. Failure here
// is fatal to the whole aggregation.
type BusinessRetriever struct {
	repo   domain.ResearchRepository
	scorer domain.QualityScorer
}

func NewBusinessRetriever(repo domain.ResearchRepository, scorer domain.QualityScorer) *BusinessRetriever {
	return &BusinessRetriever{repo: repo, scorer: scorer}
}

// InsightRetriever fetches strategic-insight questionnaire answers.
type InsightRetriever struct {
	repo   domain.ResearchRepository
	scorer domain.QualityScorer
}

func NewInsightRetriever(repo domain.ResearchRepository, scorer domain.QualityScorer) *InsightRetriever {
	return &InsightRetriever{repo: repo, scorer: scorer}
}

// CompetitorRetriever fetches competitor social metrics.
type CompetitorRetriever struct {
	repo   domain.ResearchRepository
	scorer domain.QualityScorer
}

func NewCompetitorRetriever(repo domain.ResearchRepository, scorer domain.QualityScorer) *CompetitorRetriever {
	return &CompetitorRetriever{repo: repo, scorer: scorer}
}

// SocialRetriever fetches scraped posts and community sentiment.
type SocialRetriever struct {
	repo   domain.ResearchRepository
	scorer domain.QualityScorer
}

func NewSocialRetriever(repo domain.ResearchRepository, scorer domain.QualityScorer) *SocialRetriever {
	return &SocialRetriever{repo: repo, scorer: scorer}
}

// ContentRetriever fetches content-intelligence findings. Non-critical:
// hard failures degrade to a zero-value context.
type ContentRetriever struct {
	repo   domain.ResearchRepository
	scorer domain.QualityScorer
}

func NewContentRetriever(repo domain.ResearchRepository, scorer domain.QualityScorer) *ContentRetriever {
	return &ContentRetriever{repo: repo, scorer: scorer}
}

// MediaRetriever fetches per-asset creative analyses. Non-critical.
type MediaRetriever struct {
	repo   domain.ResearchRepository
	scorer domain.QualityScorer
}

func NewMediaRetriever(repo domain.ResearchRepository, scorer domain.QualityScorer) *MediaRetriever {
	return &MediaRetriever{repo: repo, scorer: scorer}
}

// inScope reports whether a handle is allowed by the readiness scope; an
// empty handle set means no filtering for that scope.
func inScope(handles map[string]struct{}, handle string) bool {
	if len(handles) == 0 {
		return true
	}
	_, ok := handles[handle]
	return ok
}
