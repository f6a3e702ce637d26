package domain

import (
	"time"

	"github.com/google/uuid"
)

// BusinessProfile is the client's own identity record. Research without it
// is meaningless, so its retrieval is the only fatal source.
type BusinessProfile struct {
	JobID       uuid.UUID
	Name        string
	Industry    string
	Description string
	Website     string
	Handles     map[string]string // platform -> handle
}

// InsightAnswer is one strategic-insight questionnaire answer.
type InsightAnswer struct {
	QuestionType string
	Answer       string
}

// CompetitorMetrics is the verified per-competitor social metrics row used
// both for context building and for fact checking generated text.
type CompetitorMetrics struct {
	Handle         string
	Platform       string
	FollowerCount  int64
	FollowingCount int64
	PostCount      int
	EngagementRate float64
	DiscoveredVia  string
}

// Post is a scraped social post with engagement metadata.
type Post struct {
	Scope        SnapshotScope
	Handle       string
	URL          string
	Caption      string
	Likes        int64
	Comments     int64
	Views        int64
	HasAnalytics bool
	PostedAt     time.Time
}

// CommunityComment is one piece of community sentiment evidence.
type CommunityComment struct {
	Source    string
	Text      string
	Sentiment float64 // -1..1
}

// ContentFinding is a scraped search/content-intelligence result.
type ContentFinding struct {
	URL     string
	Title   string
	Snippet string
	Source  string
}

// MediaAnalysis is the per-asset creative analysis for one post or video.
type MediaAnalysis struct {
	AssetURL  string
	AssetKind string // image, video
	Topic     string
	Summary   string
	Hooks     []string
}

// Source context payloads. Each embeds the quality score produced by its
// retriever; contexts are constructed per request and discarded once the
// research context is built.

type BusinessContext struct {
	Profile BusinessProfile
	Quality QualityScore
}

type InsightContext struct {
	// Answers keyed by the enumerated insight field names.
	Answers map[string]string
	Quality QualityScore
}

type CompetitorContext struct {
	Competitors []CompetitorMetrics
	Quality     QualityScore
}

type SocialContext struct {
	Posts    []Post
	Comments []CommunityComment
	Quality  QualityScore
}

type ContentContext struct {
	Findings []ContentFinding
	Quality  QualityScore
}

type MediaContext struct {
	Analyses []MediaAnalysis
	Quality  QualityScore
}

// DegradedReason explains why a non-critical source was substituted with a
// zero-value context instead of aborting the aggregation.
type DegradedReason struct {
	Source string
	Reason string
}

// ResearchContext is the aggregate root for one generation request. It is
// immutable once built and consumed read-only by the generation pipeline.
type ResearchContext struct {
	JobID       uuid.UUID
	Business    BusinessContext
	Insights    InsightContext
	Competitors CompetitorContext
	Social      SocialContext
	Content     ContentContext
	Media       MediaContext

	Readiness   ReadinessSummary
	Composite   QualityScore
	Warnings    []string
	MissingData []string

	BuiltAt time.Time
}

// DomainScores returns the six per-source scores in a fixed order.
func (rc *ResearchContext) DomainScores() []QualityScore {
	return []QualityScore{
		rc.Business.Quality,
		rc.Insights.Quality,
		rc.Competitors.Quality,
		rc.Social.Quality,
		rc.Content.Quality,
		rc.Media.Quality,
	}
}
