package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"research-orchestrator/internal/domain"
)

const sourceInsights = "insights"

// minAnswerLength is the shortest answer that still looks like a real
// questionnaire response rather than a skipped field.
const minAnswerLength = 12

// insightFieldByQuestionType is the enumerated question-type to field
// mapping. Keeping it as a table (instead of camel-casing type strings at
// runtime) makes the set of recognized types statically checkable.
var insightFieldByQuestionType = map[string]string{
	"target_audience":     "targetAudience",
	"brand_voice":         "brandVoice",
	"pain_points":         "painPoints",
	"business_goals":      "businessGoals",
	"differentiators":     "differentiators",
	"content_preferences": "contentPreferences",
	"success_metrics":     "successMetrics",
}

// Fetch loads strategic-insight answers keyed by their enumerated fields.
func (r *InsightRetriever) Fetch(ctx context.Context, jobID uuid.UUID) (domain.InsightContext, error) {
	answers, err := r.repo.ListInsightAnswers(ctx, jobID)
	if err != nil {
		return domain.InsightContext{}, fmt.Errorf("failed to load insight answers: %w", err)
	}

	var issues, warnings []string
	byField := make(map[string]string, len(answers))

	for _, answer := range answers {
		field, known := insightFieldByQuestionType[answer.QuestionType]
		if !known {
			warnings = append(warnings, fmt.Sprintf("unrecognized insight question type %q", answer.QuestionType))
			continue
		}
		trimmed := strings.TrimSpace(answer.Answer)
		if len(trimmed) < minAnswerLength {
			warnings = append(warnings, fmt.Sprintf("suspiciously short answer for %s", answer.QuestionType))
		}
		byField[field] = trimmed
	}

	if len(byField) == 0 {
		issues = append(issues, "no strategic insight answers recorded")
	}

	return domain.InsightContext{
		Answers: byField,
		Quality: r.scorer.Score(sourceInsights, len(byField), issues, warnings, expectedMinInsights),
	}, nil
}
