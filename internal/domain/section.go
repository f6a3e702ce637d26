package domain

import (
	"time"

	"github.com/google/uuid"
)

// SectionStatus marks whether a persisted section passed the quality gate.
type SectionStatus string

const (
	SectionFinal SectionStatus = "final"
	SectionDraft SectionStatus = "draft"
)

// Section is one persisted subdivision of a generated report. Only one
// FINAL row may exist per (job, topic); older FINAL rows are deleted on
// write.
type Section struct {
	ID        uuid.UUID
	JobID     uuid.UUID
	Topic     string
	Text      string
	Score     float64
	Status    SectionStatus
	Model     string
	Tokens    int
	Grounding *GroundingReport
	CreatedAt time.Time
}

// GenerationAttempt is one pass of the retry loop, ephemeral to the loop.
type GenerationAttempt struct {
	Number   int
	Text     string
	Score    float64
	Feedback []string
}

// GenerationResult is the resolved outcome of one section's retry loop.
type GenerationResult struct {
	Topic    string
	Text     string
	Score    float64
	Passed   bool
	Attempts int
	Warnings []string
	CostUSD  float64
	Tokens   int
}

// InaccuracySeverity grades a fact-check discrepancy.
type InaccuracySeverity string

const (
	SeverityLow      InaccuracySeverity = "low"
	SeverityMedium   InaccuracySeverity = "medium"
	SeverityHigh     InaccuracySeverity = "high"
	SeverityCritical InaccuracySeverity = "critical"
)

// Inaccuracy is a detected mismatch between generated text and the
// verified dataset.
type Inaccuracy struct {
	Severity   InaccuracySeverity `json:"severity"`
	Issue      string             `json:"issue"`
	Evidence   string             `json:"evidence"`
	Suggestion string             `json:"suggestion,omitempty"`
}

// FactCheckResult summarizes claim verification for one section.
type FactCheckResult struct {
	TotalClaims    int          `json:"total_claims"`
	VerifiedClaims int          `json:"verified_claims"`
	Inaccuracies   []Inaccuracy `json:"inaccuracies,omitempty"`
}

// CountBySeverity returns how many inaccuracies carry the given severity.
func (r FactCheckResult) CountBySeverity(sev InaccuracySeverity) int {
	n := 0
	for _, ia := range r.Inaccuracies {
		if ia.Severity == sev {
			n++
		}
	}
	return n
}

// GroundingReport is the durable audit record of a quality-gate
// evaluation, attached to every persisted section.
type GroundingReport struct {
	Mode               string           `json:"mode"`
	Blocked            bool             `json:"blocked"`
	ReasonCodes        []string         `json:"reason_codes,omitempty"`
	LowestSectionScore float64          `json:"lowest_section_score"`
	PlaceholderHits    int              `json:"placeholder_hits"`
	FactCheck          FactCheckResult  `json:"fact_check"`
	Readiness          ReadinessSummary `json:"readiness"`
	GeneratedAt        time.Time        `json:"generated_at"`
	Source             string           `json:"source"`
}

// MergeGroundingReports normalizes a fresh report against the previously
// persisted one so readiness metadata is never silently dropped: a report
// with a zero-valued readiness summary inherits the prior summary.
func MergeGroundingReports(prior, next *GroundingReport) *GroundingReport {
	if next == nil {
		return prior
	}
	if prior == nil {
		return next
	}
	merged := *next
	if merged.Readiness.IsZero() && !prior.Readiness.IsZero() {
		merged.Readiness = prior.Readiness
	}
	if merged.Source == "" {
		merged.Source = prior.Source
	}
	return &merged
}
