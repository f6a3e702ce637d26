package usecase

import (
	"fmt"
	"strings"

	"research-orchestrator/internal/domain"
)

// PromptInput carries everything one section attempt needs: the aggregated
// research context plus, from the second attempt onward, the prior
// attempt's text and feedback.
type PromptInput struct {
	Spec          SectionSpec
	Context       *domain.ResearchContext
	PriorText     string
	PriorScore    float64
	PriorFeedback []string
}

// PromptBuilder assembles the generation prompt for one section attempt.
type PromptBuilder interface {
	Build(input PromptInput) (string, error)
}

// SectionPromptBuilder renders a structured prompt that separates context,
// verified data, instructions, and retry feedback.
type SectionPromptBuilder struct {
	additionalInstructions []string
}

// NewSectionPromptBuilder creates a prompt builder with optional extra
// instructions appended to every prompt.
func NewSectionPromptBuilder(additional ...string) *SectionPromptBuilder {
	return &SectionPromptBuilder{additionalInstructions: additional}
}

func (b *SectionPromptBuilder) Build(input PromptInput) (string, error) {
	if input.Context == nil {
		return "", fmt.Errorf("research context is required")
	}
	rc := input.Context

	var sb strings.Builder

	sb.WriteString("<business>\n")
	fmt.Fprintf(&sb, "name: %s\n", rc.Business.Profile.Name)
	fmt.Fprintf(&sb, "industry: %s\n", rc.Business.Profile.Industry)
	fmt.Fprintf(&sb, "description: %s\n", rc.Business.Profile.Description)
	sb.WriteString("</business>\n\n")

	if len(rc.Insights.Answers) > 0 {
		sb.WriteString("<strategic_insights>\n")
		for field, answer := range rc.Insights.Answers {
			fmt.Fprintf(&sb, "%s: %s\n", field, answer)
		}
		sb.WriteString("</strategic_insights>\n\n")
	}

	if len(rc.Competitors.Competitors) > 0 {
		sb.WriteString("<verified_competitor_metrics>\n")
		for _, comp := range rc.Competitors.Competitors {
			fmt.Fprintf(&sb, "@%s (%s): %d followers, %d posts, %.2f%% engagement\n",
				comp.Handle, comp.Platform, comp.FollowerCount, comp.PostCount, comp.EngagementRate*100)
		}
		sb.WriteString("</verified_competitor_metrics>\n\n")
	}

	if len(rc.Social.Posts) > 0 {
		sb.WriteString("<top_posts>\n")
		for i, post := range rc.Social.Posts {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&sb, "@%s: %q (%d likes, %d comments)\n",
				post.Handle, truncate(post.Caption, 160), post.Likes, post.Comments)
		}
		sb.WriteString("</top_posts>\n\n")
	}

	if len(rc.Media.Analyses) > 0 {
		sb.WriteString("<creative_analysis>\n")
		for i, analysis := range rc.Media.Analyses {
			if i >= 8 {
				break
			}
			fmt.Fprintf(&sb, "%s (%s): %s\n", analysis.AssetURL, analysis.AssetKind, truncate(analysis.Summary, 200))
		}
		sb.WriteString("</creative_analysis>\n\n")
	}

	if len(rc.MissingData) > 0 {
		sb.WriteString("<known_gaps>\n")
		for _, gap := range rc.MissingData {
			fmt.Fprintf(&sb, "- %s\n", gap)
		}
		sb.WriteString("</known_gaps>\n\n")
	}

	sb.WriteString("<instructions>\n")
	fmt.Fprintf(&sb, "Write the %q section of a social-media research report.\n", input.Spec.Title)
	fmt.Fprintf(&sb, "Length: %d-%d words.\n", input.Spec.MinWords, input.Spec.MaxWords)
	if len(input.Spec.RequiredElements) > 0 {
		fmt.Fprintf(&sb, "The section must address: %s.\n", strings.Join(input.Spec.RequiredElements, ", "))
	}
	sb.WriteString("Only cite metrics present in the verified competitor data above.\n")
	sb.WriteString("Never use placeholder handles, bracketed placeholders, or disclaimers about missing data.\n")
	for _, instruction := range b.additionalInstructions {
		sb.WriteString(instruction)
		sb.WriteString("\n")
	}
	sb.WriteString("</instructions>\n")

	if input.PriorText != "" {
		sb.WriteString("\n<previous_attempt>\n")
		fmt.Fprintf(&sb, "score: %.0f\n", input.PriorScore)
		for _, fb := range input.PriorFeedback {
			fmt.Fprintf(&sb, "feedback: %s\n", fb)
		}
		sb.WriteString(truncate(input.PriorText, 2000))
		sb.WriteString("\n</previous_attempt>\n")
		sb.WriteString("Rewrite the section addressing every feedback item.\n")
	}

	return sb.String(), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
