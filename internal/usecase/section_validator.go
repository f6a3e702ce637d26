package usecase

import (
	"context"
	"fmt"
	"strings"

	"research-orchestrator/internal/domain"
)

// ValidationResult is the validator's verdict for one attempt.
type ValidationResult struct {
	Score    float64
	Passed   bool
	Feedback []string
}

// SectionValidator scores one generated section against its spec and the
// research context it was generated from.
type SectionValidator interface {
	Validate(ctx context.Context, text string, spec SectionSpec, rc *domain.ResearchContext) (ValidationResult, error)
}

// HeuristicSectionValidator is the default validator: word-count range,
// required-element coverage, placeholder hits, and grounding in the
// business identity.
type HeuristicSectionValidator struct {
	rules    *DetectionRules
	passMark float64
}

// NewHeuristicSectionValidator creates the validator. passMark is the
// score an attempt needs to pass.
func NewHeuristicSectionValidator(rules *DetectionRules, passMark float64) *HeuristicSectionValidator {
	return &HeuristicSectionValidator{rules: rules, passMark: passMark}
}

func (v *HeuristicSectionValidator) Validate(ctx context.Context, text string, spec SectionSpec, rc *domain.ResearchContext) (ValidationResult, error) {
	score := 100.0
	var feedback []string

	words := len(strings.Fields(text))
	switch {
	case words == 0:
		return ValidationResult{Score: 0, Passed: false, Feedback: []string{"section is empty"}}, nil
	case spec.MinWords > 0 && words < spec.MinWords:
		score -= 25
		feedback = append(feedback, fmt.Sprintf("section is %d words, minimum is %d", words, spec.MinWords))
	case spec.MaxWords > 0 && words > spec.MaxWords:
		score -= 15
		feedback = append(feedback, fmt.Sprintf("section is %d words, maximum is %d", words, spec.MaxWords))
	}

	lower := strings.ToLower(text)
	for _, element := range spec.RequiredElements {
		if !strings.Contains(lower, strings.ToLower(element)) {
			score -= 15
			feedback = append(feedback, fmt.Sprintf("missing required element %q", element))
		}
	}

	if rc != nil && rc.Business.Profile.Name != "" &&
		!strings.Contains(lower, strings.ToLower(rc.Business.Profile.Name)) {
		score -= 10
		feedback = append(feedback, "section never mentions the business by name")
	}

	for _, hit := range v.rules.Detect(text) {
		if hit.Severity == domain.SeverityCritical {
			score -= 30
			feedback = append(feedback, fmt.Sprintf("placeholder content: %s", hit.Rule))
		}
	}

	if score < 0 {
		score = 0
	}

	return ValidationResult{
		Score:    score,
		Passed:   score >= v.passMark,
		Feedback: feedback,
	}, nil
}
