package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestrator/internal/domain"
	"research-orchestrator/internal/usecase/retrieval"
)

type fakeResearchRepo struct {
	profile    *domain.BusinessProfile
	profileErr error
	answers    []domain.InsightAnswer
	comps      []domain.CompetitorMetrics
	posts      []domain.Post
	comments   []domain.CommunityComment
	findings   []domain.ContentFinding
	findingErr error
	analyses   []domain.MediaAnalysis
	analysisErr error
}

func (f *fakeResearchRepo) GetBusinessProfile(ctx context.Context, jobID uuid.UUID) (*domain.BusinessProfile, error) {
	return f.profile, f.profileErr
}
func (f *fakeResearchRepo) ListInsightAnswers(ctx context.Context, jobID uuid.UUID) ([]domain.InsightAnswer, error) {
	return f.answers, nil
}
func (f *fakeResearchRepo) ListCompetitors(ctx context.Context, jobID uuid.UUID) ([]domain.CompetitorMetrics, error) {
	return f.comps, nil
}
func (f *fakeResearchRepo) ListPosts(ctx context.Context, jobID uuid.UUID) ([]domain.Post, error) {
	return f.posts, nil
}
func (f *fakeResearchRepo) ListCommunityComments(ctx context.Context, jobID uuid.UUID) ([]domain.CommunityComment, error) {
	return f.comments, nil
}
func (f *fakeResearchRepo) ListContentFindings(ctx context.Context, jobID uuid.UUID) ([]domain.ContentFinding, error) {
	return f.findings, f.findingErr
}
func (f *fakeResearchRepo) ListMediaAnalyses(ctx context.Context, jobID uuid.UUID) ([]domain.MediaAnalysis, error) {
	return f.analyses, f.analysisErr
}

func allStatusesScope() domain.ReadinessScope {
	return domain.ReadinessScope{
		AllowedStatuses: []domain.ReadinessStatus{domain.ReadinessReady},
	}
}

func TestBusinessRetriever_MissingProfileIsFatal(t *testing.T) {
	repo := &fakeResearchRepo{}
	r := retrieval.NewBusinessRetriever(repo, domain.NewQualityScorer())

	_, err := r.Fetch(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoBusinessContext)
}

func TestBusinessRetriever_CompleteProfileScoresClean(t *testing.T) {
	repo := &fakeResearchRepo{profile: &domain.BusinessProfile{
		Name:        "Acme Coffee",
		Industry:    "food",
		Description: "specialty roaster",
		Handles:     map[string]string{"instagram": "acmecoffee"},
	}}
	r := retrieval.NewBusinessRetriever(repo, domain.NewQualityScorer())

	got, err := r.Fetch(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, got.Quality.IsReliable)
	assert.Empty(t, got.Quality.Issues)
}

func TestCompetitorRetriever_FlagsImpossibleCounts(t *testing.T) {
	repo := &fakeResearchRepo{comps: []domain.CompetitorMetrics{
		{Handle: "good", FollowerCount: 12000, EngagementRate: 0.05},
		{Handle: "negative", FollowerCount: -5},
		{Handle: "absurd", FollowerCount: 2_000_000_000},
	}}
	r := retrieval.NewCompetitorRetriever(repo, domain.NewQualityScorer())

	got, err := r.Fetch(context.Background(), uuid.New(), allStatusesScope())
	require.NoError(t, err)
	assert.Len(t, got.Competitors, 1)
	assert.Len(t, got.Quality.Issues, 2)
	assert.False(t, got.Quality.IsReliable)
}

func TestCompetitorRetriever_ScopeFiltering(t *testing.T) {
	repo := &fakeResearchRepo{comps: []domain.CompetitorMetrics{
		{Handle: "allowed", FollowerCount: 100},
		{Handle: "blocked", FollowerCount: 100},
	}}
	r := retrieval.NewCompetitorRetriever(repo, domain.NewQualityScorer())

	scope := allStatusesScope()
	scope.CompetitorHandles = map[string]struct{}{"allowed": {}}

	got, err := r.Fetch(context.Background(), uuid.New(), scope)
	require.NoError(t, err)
	require.Len(t, got.Competitors, 1)
	assert.Equal(t, "allowed", got.Competitors[0].Handle)
}

func TestInsightRetriever_MapsKnownTypesAndFlagsShortAnswers(t *testing.T) {
	repo := &fakeResearchRepo{answers: []domain.InsightAnswer{
		{QuestionType: "target_audience", Answer: "young professionals in urban areas"},
		{QuestionType: "brand_voice", Answer: "warm"},
		{QuestionType: "made_up_type", Answer: "whatever this is"},
	}}
	r := retrieval.NewInsightRetriever(repo, domain.NewQualityScorer())

	got, err := r.Fetch(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "young professionals in urban areas", got.Answers["targetAudience"])
	assert.Contains(t, got.Answers, "brandVoice")
	assert.NotContains(t, got.Answers, "madeUpType")
	// one short answer + one unknown type
	assert.Len(t, got.Quality.Warnings, 2)
}

func TestSocialRetriever_CountsMissingEngagement(t *testing.T) {
	repo := &fakeResearchRepo{posts: []domain.Post{
		{Scope: domain.ScopeClient, Handle: "me", HasAnalytics: true},
		{Scope: domain.ScopeClient, Handle: "me", HasAnalytics: false},
	}}
	r := retrieval.NewSocialRetriever(repo, domain.NewQualityScorer())

	got, err := r.Fetch(context.Background(), uuid.New(), allStatusesScope())
	require.NoError(t, err)
	assert.Len(t, got.Posts, 2)
	require.NotEmpty(t, got.Quality.Warnings)
	assert.Contains(t, got.Quality.Warnings[0], "lack engagement metadata")
}

func TestContentRetriever_DeduplicatesURLs(t *testing.T) {
	repo := &fakeResearchRepo{findings: []domain.ContentFinding{
		{URL: "https://a.example", Title: "one"},
		{URL: "https://a.example", Title: "dup"},
		{URL: "https://b.example", Title: "two"},
	}}
	r := retrieval.NewContentRetriever(repo, domain.NewQualityScorer())

	got, degraded := r.Fetch(context.Background(), uuid.New())
	require.Nil(t, degraded)
	assert.Len(t, got.Findings, 2)
	assert.Len(t, got.Quality.Warnings, 1)
}

func TestContentRetriever_DegradesOnStoreFailure(t *testing.T) {
	repo := &fakeResearchRepo{findingErr: errors.New("connection refused")}
	r := retrieval.NewContentRetriever(repo, domain.NewQualityScorer())

	got, degraded := r.Fetch(context.Background(), uuid.New())
	require.NotNil(t, degraded)
	assert.Equal(t, "content", degraded.Source)
	assert.False(t, got.Quality.IsReliable)
	assert.Empty(t, got.Findings)
}

func TestMediaRetriever_DegradesOnStoreFailure(t *testing.T) {
	repo := &fakeResearchRepo{analysisErr: errors.New("timeout")}
	r := retrieval.NewMediaRetriever(repo, domain.NewQualityScorer())

	got, degraded := r.Fetch(context.Background(), uuid.New())
	require.NotNil(t, degraded)
	assert.False(t, got.Quality.IsReliable)
	assert.Empty(t, got.Analyses)
}
