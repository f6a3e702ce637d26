package usecase

import (
	"regexp"
	"strings"

	"research-orchestrator/internal/domain"
)

// strategicVocabulary is the fixed concept list Pass 2 measures coverage
// against. A strong research document is expected to engage with most of
// these framings somewhere in its combined text.
var strategicVocabulary = []string{
	"pain point",
	"root cause",
	"jobs to be done",
	"value proposition",
	"positioning",
	"differentiation",
	"target audience",
	"call to action",
	"retention",
	"conversion",
}

const (
	minMeanSectionScore = 80.0
	minVocabCoverage    = 0.40
	minQualityMarkers   = 3
)

// Quality-marker detectors. Each marker represents a kind of concrete,
// checkable statement that separates grounded analysis from filler.
var (
	numericComparison = regexp.MustCompile(`(?i)[\d,.]+%?\s*(?:vs\.?|versus|compared (?:to|with)|(?:more|higher|lower|fewer) than)`)
	attributedQuote   = regexp.MustCompile(`"[^"]{10,}"\s*(?:[-—–]|\b(?:said|wrote|commented|noted)\b)|\b(?:said|wrote|commented|noted)\b[^"]{0,20}"[^"]{10,}"`)
	markdownTableRow  = regexp.MustCompile(`(?m)^\|.+\|.+\|\s*$`)
)

// DocumentIssue is one finding from either validation pass.
type DocumentIssue struct {
	Severity domain.InaccuracySeverity `json:"severity"`
	Pass     int                       `json:"pass"`
	Message  string                    `json:"message"`
}

// DocumentValidation is the two-pass validator's verdict over an
// assembled multi-section document.
type DocumentValidation struct {
	Pass1Passed    bool            `json:"pass1_passed"`
	Pass2Passed    bool            `json:"pass2_passed"`
	Passed         bool            `json:"passed"`
	MeanScore      float64         `json:"mean_score"`
	VocabCoverage  float64         `json:"vocab_coverage"`
	MarkersPresent int             `json:"markers_present"`
	Issues         []DocumentIssue `json:"issues,omitempty"`
}

// HasCritical reports whether any pass produced a CRITICAL issue.
func (v DocumentValidation) HasCritical() bool {
	for _, issue := range v.Issues {
		if issue.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}

// DocumentValidator is the coarse whole-document check run only when
// assembling a full multi-section document, independent of the
// per-section validation inside the generation loop.
type DocumentValidator struct {
	rules *DetectionRules
}

// NewDocumentValidator creates the validator over a compiled rule set.
func NewDocumentValidator(rules *DetectionRules) *DocumentValidator {
	return &DocumentValidator{rules: rules}
}

// Validate runs both passes over the combined section texts and their
// per-section validation scores.
func (v *DocumentValidator) Validate(texts []string, scores []float64) DocumentValidation {
	combined := strings.ToLower(strings.Join(texts, "\n\n"))

	result := DocumentValidation{Pass1Passed: true, Pass2Passed: true}

	// Pass 1: placeholder and generic-text scan. Any CRITICAL hit fails
	// outright; generic phrasing fails only past its rule tolerance.
	hits := v.rules.Detect(combined)
	for _, hit := range hits {
		if hit.Severity == domain.SeverityCritical {
			result.Pass1Passed = false
			result.Issues = append(result.Issues, DocumentIssue{
				Severity: domain.SeverityCritical,
				Pass:     1,
				Message:  "placeholder or disclaimer text: " + hit.Excerpt,
			})
		}
	}
	for _, rule := range v.rules.FlaggedRules(hits) {
		if rule.Severity == domain.SeverityCritical {
			continue // already reported per hit
		}
		result.Pass1Passed = false
		result.Issues = append(result.Issues, DocumentIssue{
			Severity: rule.Severity,
			Pass:     1,
			Message:  "generic phrasing over tolerance: " + rule.Name,
		})
	}

	// Pass 2: aggregate score and strategic coverage.
	result.MeanScore = meanScore(scores)
	if result.MeanScore < minMeanSectionScore {
		result.Issues = append(result.Issues, DocumentIssue{
			Severity: domain.SeverityCritical,
			Pass:     2,
			Message:  "mean section score below minimum",
		})
	}

	result.VocabCoverage = vocabCoverage(combined)
	if result.VocabCoverage < minVocabCoverage {
		result.Issues = append(result.Issues, DocumentIssue{
			Severity: domain.SeverityHigh,
			Pass:     2,
			Message:  "strategic vocabulary coverage below 40%",
		})
	}

	result.MarkersPresent = countQualityMarkers(combined)
	if result.MarkersPresent < minQualityMarkers {
		result.Issues = append(result.Issues, DocumentIssue{
			Severity: domain.SeverityMedium,
			Pass:     2,
			Message:  "fewer than 3 of 4 quality markers present",
		})
	}

	// Pass 2 fails only on CRITICAL issues or an insufficient mean; the
	// coverage and marker findings are advisory.
	for _, issue := range result.Issues {
		if issue.Pass == 2 && issue.Severity == domain.SeverityCritical {
			result.Pass2Passed = false
		}
	}

	result.Passed = result.Pass1Passed && result.Pass2Passed
	return result
}

func meanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func vocabCoverage(combined string) float64 {
	found := 0
	for _, term := range strategicVocabulary {
		if strings.Contains(combined, term) {
			found++
		}
	}
	return float64(found) / float64(len(strategicVocabulary))
}

// countQualityMarkers checks for four kinds of concrete evidence:
// handle+metric mentions, numeric comparisons, attributed quotes, and
// tables.
func countQualityMarkers(combined string) int {
	present := 0
	if metricClaim.MatchString(combined) {
		present++
	}
	if numericComparison.MatchString(combined) {
		present++
	}
	if attributedQuote.MatchString(combined) {
		present++
	}
	if markdownTableRow.MatchString(combined) {
		present++
	}
	return present
}
