package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestrator/internal/domain"
)

func promptContext() *domain.ResearchContext {
	return &domain.ResearchContext{
		Business: domain.BusinessContext{
			Profile: domain.BusinessProfile{
				Name:        "Glow Atelier",
				Industry:    "skincare",
				Description: "Small-batch skincare studio",
			},
		},
		Insights: domain.InsightContext{
			Answers: map[string]string{
				"target_audience": "urban professionals aged 25-40",
			},
		},
		Competitors: domain.CompetitorContext{
			Competitors: []domain.CompetitorMetrics{
				{Handle: "dermalab", Platform: "instagram", FollowerCount: 45000, PostCount: 320, EngagementRate: 0.031},
			},
		},
		Social: domain.SocialContext{
			Posts: []domain.Post{
				{Handle: "glowatelier", Caption: "Behind the scenes of our serum lab", Likes: 840, Comments: 56},
			},
		},
		MissingData: []string{"media analysis unavailable"},
	}
}

func TestSectionPromptBuilder_RendersAllContextBlocks(t *testing.T) {
	b := NewSectionPromptBuilder()

	prompt, err := b.Build(PromptInput{
		Spec:    SpecForTopic("competitive_landscape"),
		Context: promptContext(),
	})

	require.NoError(t, err)
	assert.Contains(t, prompt, "<business>")
	assert.Contains(t, prompt, "name: Glow Atelier")
	assert.Contains(t, prompt, "<strategic_insights>")
	assert.Contains(t, prompt, "target_audience: urban professionals aged 25-40")
	assert.Contains(t, prompt, "<verified_competitor_metrics>")
	assert.Contains(t, prompt, "@dermalab (instagram): 45000 followers, 320 posts, 3.10% engagement")
	assert.Contains(t, prompt, "<top_posts>")
	assert.Contains(t, prompt, "<known_gaps>")
	assert.Contains(t, prompt, "- media analysis unavailable")
	assert.Contains(t, prompt, "<instructions>")
	assert.NotContains(t, prompt, "<previous_attempt>")
}

func TestSectionPromptBuilder_OmitsEmptyBlocks(t *testing.T) {
	b := NewSectionPromptBuilder()
	rc := &domain.ResearchContext{
		Business: domain.BusinessContext{
			Profile: domain.BusinessProfile{Name: "Glow Atelier"},
		},
	}

	prompt, err := b.Build(PromptInput{Spec: SpecForTopic("executive_summary"), Context: rc})

	require.NoError(t, err)
	assert.NotContains(t, prompt, "<strategic_insights>")
	assert.NotContains(t, prompt, "<verified_competitor_metrics>")
	assert.NotContains(t, prompt, "<top_posts>")
	assert.NotContains(t, prompt, "<creative_analysis>")
	assert.NotContains(t, prompt, "<known_gaps>")
}

func TestSectionPromptBuilder_RetryBlockCarriesFeedback(t *testing.T) {
	b := NewSectionPromptBuilder()

	prompt, err := b.Build(PromptInput{
		Spec:          SpecForTopic("executive_summary"),
		Context:       promptContext(),
		PriorText:     "first draft text",
		PriorScore:    64,
		PriorFeedback: []string{"mention follower counts"},
	})

	require.NoError(t, err)
	assert.Contains(t, prompt, "<previous_attempt>")
	assert.Contains(t, prompt, "score: 64")
	assert.Contains(t, prompt, "feedback: mention follower counts")
	assert.Contains(t, prompt, "first draft text")
	assert.Contains(t, prompt, "Rewrite the section addressing every feedback item.")
}

func TestSectionPromptBuilder_AdditionalInstructions(t *testing.T) {
	b := NewSectionPromptBuilder("Write in British English.")

	prompt, err := b.Build(PromptInput{Spec: SpecForTopic("executive_summary"), Context: promptContext()})

	require.NoError(t, err)
	assert.Contains(t, prompt, "Write in British English.")
}

func TestSectionPromptBuilder_RequiresContext(t *testing.T) {
	b := NewSectionPromptBuilder()

	_, err := b.Build(PromptInput{Spec: SpecForTopic("executive_summary")})

	require.Error(t, err)
}

func TestSectionPromptBuilder_TruncatesLongCaptions(t *testing.T) {
	b := NewSectionPromptBuilder()
	rc := promptContext()
	rc.Social.Posts[0].Caption = strings.Repeat("x", 400)

	prompt, err := b.Build(PromptInput{Spec: SpecForTopic("content_strategy"), Context: rc})

	require.NoError(t, err)
	assert.Contains(t, prompt, strings.Repeat("x", 160)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", 161))
}
