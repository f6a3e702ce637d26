package domain

// QualityScore captures how trustworthy a single data source is for one
// generation request. Scores are always in [0,100]; a source is reliable
// iff its score is at least ReliableThreshold. Instances are created fresh
// on every retrieval and never mutated.
type QualityScore struct {
	Source     string   `json:"source"`
	Score      float64  `json:"score"`
	Issues     []string `json:"issues,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	IsReliable bool     `json:"is_reliable"`
}

const (
	// ReliableThreshold is the minimum score a source needs to count as reliable.
	ReliableThreshold = 70.0

	issuePenalty   = 25.0
	warningPenalty = 10.0
	volumePenalty  = 40.0
)

// QualityScorer computes quality scores for retrieved record sets.
// It is a stateless domain service; the same instance is shared by every
// source retriever and by the composite aggregation.
type QualityScorer struct{}

// NewQualityScorer creates the scorer.
func NewQualityScorer() QualityScorer {
	return QualityScorer{}
}

// Score rates a record set given detected hard issues and soft warnings.
// expectedMin is the minimum record volume a healthy source would carry;
// zero disables the volume check. The function is deterministic and
// side-effect free so tests can assert exact values.
func (QualityScorer) Score(source string, recordCount int, issues, warnings []string, expectedMin int) QualityScore {
	score := 100.0

	if expectedMin > 0 && recordCount < expectedMin {
		missing := float64(expectedMin-recordCount) / float64(expectedMin)
		score -= volumePenalty * missing
	}

	score -= issuePenalty * float64(len(issues))
	score -= warningPenalty * float64(len(warnings))

	score = clampScore(score)

	return QualityScore{
		Source:     source,
		Score:      score,
		Issues:     issues,
		Warnings:   warnings,
		IsReliable: score >= ReliableThreshold,
	}
}

// Composite computes the aggregate score as the unweighted mean of the
// domain scores. The mean is recomputed on every call, never cached.
func (QualityScorer) Composite(scores []QualityScore) QualityScore {
	if len(scores) == 0 {
		return QualityScore{Source: "composite", Score: 0, IsReliable: false}
	}

	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	mean := clampScore(sum / float64(len(scores)))

	return QualityScore{
		Source:     "composite",
		Score:      mean,
		IsReliable: mean >= ReliableThreshold,
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
