package repository

import (
	"context"
	"errors"
	"fmt"

	"research-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type researchRepository struct {
	pool *pgxpool.Pool
}

// NewResearchRepository creates a new ResearchRepository.
func NewResearchRepository(pool *pgxpool.Pool) domain.ResearchRepository {
	return &researchRepository{pool: pool}
}

func (r *researchRepository) GetBusinessProfile(ctx context.Context, jobID uuid.UUID) (*domain.BusinessProfile, error) {
	query := `
		SELECT job_id, name, COALESCE(industry, ''), COALESCE(description, ''),
		       COALESCE(website, ''), COALESCE(handles, '{}'::jsonb)
		FROM business_profiles
		WHERE job_id = $1
	`
	var profile domain.BusinessProfile
	err := r.pool.QueryRow(ctx, query, jobID).Scan(
		&profile.JobID,
		&profile.Name,
		&profile.Industry,
		&profile.Description,
		&profile.Website,
		&profile.Handles,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan business profile: %w", err)
	}
	return &profile, nil
}

func (r *researchRepository) ListInsightAnswers(ctx context.Context, jobID uuid.UUID) ([]domain.InsightAnswer, error) {
	query := `
		SELECT question_type, answer
		FROM insight_answers
		WHERE job_id = $1
		ORDER BY question_type
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query insight answers: %w", err)
	}
	defer rows.Close()

	var answers []domain.InsightAnswer
	for rows.Next() {
		var answer domain.InsightAnswer
		if err := rows.Scan(&answer.QuestionType, &answer.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan insight answer: %w", err)
		}
		answers = append(answers, answer)
	}
	return answers, rows.Err()
}

func (r *researchRepository) ListCompetitors(ctx context.Context, jobID uuid.UUID) ([]domain.CompetitorMetrics, error) {
	query := `
		SELECT handle, platform, follower_count, following_count, post_count,
		       engagement_rate, COALESCE(discovered_via, '')
		FROM competitor_metrics
		WHERE job_id = $1
		ORDER BY follower_count DESC
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitors: %w", err)
	}
	defer rows.Close()

	var competitors []domain.CompetitorMetrics
	for rows.Next() {
		var comp domain.CompetitorMetrics
		err := rows.Scan(
			&comp.Handle,
			&comp.Platform,
			&comp.FollowerCount,
			&comp.FollowingCount,
			&comp.PostCount,
			&comp.EngagementRate,
			&comp.DiscoveredVia,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competitor: %w", err)
		}
		competitors = append(competitors, comp)
	}
	return competitors, rows.Err()
}

func (r *researchRepository) ListPosts(ctx context.Context, jobID uuid.UUID) ([]domain.Post, error) {
	query := `
		SELECT scope, handle, url, COALESCE(caption, ''), likes, comments, views,
		       has_analytics, posted_at
		FROM scraped_posts
		WHERE job_id = $1
		ORDER BY likes DESC
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var post domain.Post
		err := rows.Scan(
			&post.Scope,
			&post.Handle,
			&post.URL,
			&post.Caption,
			&post.Likes,
			&post.Comments,
			&post.Views,
			&post.HasAnalytics,
			&post.PostedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *researchRepository) ListCommunityComments(ctx context.Context, jobID uuid.UUID) ([]domain.CommunityComment, error) {
	query := `
		SELECT source, text, sentiment
		FROM community_comments
		WHERE job_id = $1
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query community comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.CommunityComment
	for rows.Next() {
		var comment domain.CommunityComment
		if err := rows.Scan(&comment.Source, &comment.Text, &comment.Sentiment); err != nil {
			return nil, fmt.Errorf("failed to scan community comment: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func (r *researchRepository) ListContentFindings(ctx context.Context, jobID uuid.UUID) ([]domain.ContentFinding, error) {
	query := `
		SELECT url, title, COALESCE(snippet, ''), source
		FROM content_findings
		WHERE job_id = $1
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query content findings: %w", err)
	}
	defer rows.Close()

	var findings []domain.ContentFinding
	for rows.Next() {
		var finding domain.ContentFinding
		if err := rows.Scan(&finding.URL, &finding.Title, &finding.Snippet, &finding.Source); err != nil {
			return nil, fmt.Errorf("failed to scan content finding: %w", err)
		}
		findings = append(findings, finding)
	}
	return findings, rows.Err()
}

func (r *researchRepository) ListMediaAnalyses(ctx context.Context, jobID uuid.UUID) ([]domain.MediaAnalysis, error) {
	query := `
		SELECT asset_url, asset_kind, COALESCE(topic, ''), COALESCE(summary, ''), COALESCE(hooks, '{}')
		FROM media_analyses
		WHERE job_id = $1
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query media analyses: %w", err)
	}
	defer rows.Close()

	var analyses []domain.MediaAnalysis
	for rows.Next() {
		var analysis domain.MediaAnalysis
		err := rows.Scan(
			&analysis.AssetURL,
			&analysis.AssetKind,
			&analysis.Topic,
			&analysis.Summary,
			&analysis.Hooks,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media analysis: %w", err)
		}
		analyses = append(analyses, analysis)
	}
	return analyses, rows.Err()
}
