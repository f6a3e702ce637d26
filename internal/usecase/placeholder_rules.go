package usecase

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"research-orchestrator/internal/domain"
)

// RuleCategory groups detection rules by what a hit means.
type RuleCategory string

const (
	// CategoryPlaceholder covers placeholder handles, bracketed
	// placeholders and missing-data disclaimers: content that must never
	// reach a client document.
	CategoryPlaceholder RuleCategory = "placeholder"
	// CategoryGeneric covers filler phrasing that is tolerated in small
	// amounts.
	CategoryGeneric RuleCategory = "generic"
)

// PatternRule is one named, declarative detection rule. New rules are
// added to the list; control flow never changes.
type PatternRule struct {
	Name      string
	Category  RuleCategory
	Severity  domain.InaccuracySeverity
	Tolerance int // hits above this count flag the rule; 0 = any hit flags
	pattern   *regexp.Regexp
}

// Hit is one pattern match in a piece of text.
type Hit struct {
	Rule     string
	Category RuleCategory
	Severity domain.InaccuracySeverity
	Excerpt  string
}

// DetectionRules is the compiled rule set.
type DetectionRules struct {
	rules []PatternRule
}

func defaultRules() []PatternRule {
	return []PatternRule{
		{
			Name:     "placeholder_handle",
			Category: CategoryPlaceholder,
			Severity: domain.SeverityCritical,
			pattern:  regexp.MustCompile(`(?i)@(?:handle\d+|username|yourhandle|brandname)\b`),
		},
		{
			Name:     "bracketed_placeholder",
			Category: CategoryPlaceholder,
			Severity: domain.SeverityCritical,
			pattern:  regexp.MustCompile(`\[(?:[A-Za-z][A-Za-z0-9 _-]{0,40})\]`),
		},
		{
			Name:     "data_disclaimer",
			Category: CategoryPlaceholder,
			Severity: domain.SeverityCritical,
			pattern:  regexp.MustCompile(`(?i)(?:data (?:was )?not (?:found|available)|no data (?:was )?(?:found|available)|as an ai\b|i (?:don't|do not) have access)`),
		},
		{
			Name:      "generic_benefit",
			Category:  CategoryGeneric,
			Severity:  domain.SeverityMedium,
			Tolerance: 3,
			pattern:   regexp.MustCompile(`(?i)(?:boost your (?:brand|engagement|presence)|to the next level|unlock your potential|stand out from the crowd|game.?changer)`),
		},
		{
			Name:      "vague_quantifier",
			Category:  CategoryGeneric,
			Severity:  domain.SeverityLow,
			Tolerance: 2,
			pattern:   regexp.MustCompile(`(?i)\b(?:many|several|numerous|countless|a lot of|tons of)\b`),
		},
		{
			Name:     "algorithm_praise",
			Category: CategoryGeneric,
			Severity: domain.SeverityMedium,
			pattern:  regexp.MustCompile(`(?i)(?:the algorithm (?:loves|favors|rewards)|(?:beat|hack) the algorithm)`),
		},
	}
}

// NewDetectionRules returns the built-in rule set.
func NewDetectionRules() *DetectionRules {
	return &DetectionRules{rules: defaultRules()}
}

// yamlRule is the on-disk override format.
type yamlRule struct {
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	Severity  string `yaml:"severity"`
	Tolerance int    `yaml:"tolerance"`
	Pattern   string `yaml:"pattern"`
}

// LoadDetectionRules loads additional rules from a YAML file and appends
// them to the defaults. An empty path returns the defaults unchanged.
func LoadDetectionRules(path string) (*DetectionRules, error) {
	rules := NewDetectionRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detection rules file: %w", err)
	}

	var extra []yamlRule
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("failed to parse detection rules file: %w", err)
	}

	for _, raw := range extra {
		compiled, err := regexp.Compile(raw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for rule %q: %w", raw.Name, err)
		}
		rules.rules = append(rules.rules, PatternRule{
			Name:      raw.Name,
			Category:  RuleCategory(raw.Category),
			Severity:  domain.InaccuracySeverity(raw.Severity),
			Tolerance: raw.Tolerance,
			pattern:   compiled,
		})
	}
	return rules, nil
}

// Detect returns every match of every rule in the text. Pure function of
// its input; tolerance is applied by callers that care about it.
func (d *DetectionRules) Detect(text string) []Hit {
	var hits []Hit
	for _, rule := range d.rules {
		for _, match := range rule.pattern.FindAllString(text, -1) {
			hits = append(hits, Hit{
				Rule:     rule.Name,
				Category: rule.Category,
				Severity: rule.Severity,
				Excerpt:  match,
			})
		}
	}
	return hits
}

// FlaggedRules folds hits through each rule's tolerance: a rule appears in
// the result only when its hit count exceeds its tolerance.
func (d *DetectionRules) FlaggedRules(hits []Hit) []PatternRule {
	counts := make(map[string]int)
	for _, hit := range hits {
		counts[hit.Rule]++
	}

	var flagged []PatternRule
	for _, rule := range d.rules {
		if counts[rule.Name] > rule.Tolerance && counts[rule.Name] > 0 {
			flagged = append(flagged, rule)
		}
	}
	return flagged
}

// PlaceholderHits filters hits down to the placeholder/disclaimer family,
// which the quality gate treats with zero tolerance.
func PlaceholderHits(hits []Hit) []Hit {
	var out []Hit
	for _, hit := range hits {
		if hit.Category == CategoryPlaceholder {
			out = append(out, hit)
		}
	}
	return out
}
