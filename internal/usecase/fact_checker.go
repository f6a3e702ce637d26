package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"research-orchestrator/internal/domain"
)

// metricClaim matches "@handle ... 12,345 followers/posts" style claims.
var metricClaim = regexp.MustCompile(`@([A-Za-z0-9_.]+)(?:'s)?[^@.]{0,50}?([\d,]+)\+?\s*(followers|posts)`)

// handleMention matches any handle reference for unverifiable-handle checks.
var handleMention = regexp.MustCompile(`@([A-Za-z0-9_.]+)`)

// placeholderHandleName matches template-leak handle names (@handle1,
// @username, ...). These are not fact claims and must never be rewritten:
// the quality gate's zero-tolerance placeholder scan runs on the corrected
// text and has to see them intact.
var placeholderHandleName = regexp.MustCompile(`(?i)^(?:handle\d+|username|yourhandle|brandname)$`)

// Deviation thresholds between a claimed metric and the verified value.
const (
	deviationCritical = 0.50
	deviationHigh     = 0.20
	deviationMedium   = 0.05
)

// FactChecker verifies generated claims against the verified competitor
// metrics and can deterministically rewrite unverifiable ones. Verified
// metrics are cached per job because every section of a document re-checks
// against the same table.
type FactChecker struct {
	repo   domain.ResearchRepository
	cache  *lru.Cache[string, map[string]domain.CompetitorMetrics]
	logger *slog.Logger
}

// NewFactChecker creates the checker with an LRU of per-job metric tables.
func NewFactChecker(repo domain.ResearchRepository, logger *slog.Logger) (*FactChecker, error) {
	cache, err := lru.New[string, map[string]domain.CompetitorMetrics](64)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics cache: %w", err)
	}
	return &FactChecker{repo: repo, cache: cache, logger: logger}, nil
}

// Check inspects the text against the verified dataset.
func (f *FactChecker) Check(ctx context.Context, text string, jobID uuid.UUID) (domain.FactCheckResult, error) {
	metrics, err := f.verifiedMetrics(ctx, jobID)
	if err != nil {
		return domain.FactCheckResult{}, err
	}

	var result domain.FactCheckResult
	checkedHandles := make(map[string]struct{})

	for _, match := range metricClaim.FindAllStringSubmatch(text, -1) {
		full, handle, rawNumber, metric := match[0], match[1], match[2], match[3]
		if placeholderHandleName.MatchString(handle) {
			continue
		}
		result.TotalClaims++
		checkedHandles[strings.ToLower(handle)] = struct{}{}

		claimed, err := strconv.ParseInt(strings.ReplaceAll(rawNumber, ",", ""), 10, 64)
		if err != nil {
			continue
		}

		verified, known := metrics[strings.ToLower(handle)]
		if !known {
			result.Inaccuracies = append(result.Inaccuracies, domain.Inaccuracy{
				Severity:   domain.SeverityCritical,
				Issue:      fmt.Sprintf("metric claim for unknown competitor @%s", handle),
				Evidence:   full,
				Suggestion: "a competitor in this space",
			})
			continue
		}

		actual := verified.FollowerCount
		if metric == "posts" {
			actual = int64(verified.PostCount)
		}

		deviation := relativeDeviation(claimed, actual)
		severity := severityForDeviation(deviation)
		if severity == "" {
			result.VerifiedClaims++
			continue
		}

		result.Inaccuracies = append(result.Inaccuracies, domain.Inaccuracy{
			Severity: severity,
			Issue: fmt.Sprintf("@%s %s claimed as %d, verified value is %d",
				handle, metric, claimed, actual),
			Evidence:   full,
			Suggestion: strings.Replace(full, rawNumber, formatCount(actual), 1),
		})
	}

	// Handles mentioned without metrics still count as claims; unknown
	// ones are unverifiable.
	for _, match := range handleMention.FindAllStringSubmatch(text, -1) {
		if placeholderHandleName.MatchString(match[1]) {
			continue
		}
		handle := strings.ToLower(match[1])
		if _, done := checkedHandles[handle]; done {
			continue
		}
		checkedHandles[handle] = struct{}{}
		result.TotalClaims++

		if _, known := metrics[handle]; known {
			result.VerifiedClaims++
			continue
		}
		result.Inaccuracies = append(result.Inaccuracies, domain.Inaccuracy{
			Severity:   domain.SeverityHigh,
			Issue:      fmt.Sprintf("reference to @%s not present in verified competitor list", match[1]),
			Evidence:   match[0],
			Suggestion: "a competitor",
		})
	}

	return result, nil
}

// Sanitize deterministically rewrites or redacts every HIGH/CRITICAL
// inaccuracy using its suggestion. The rewrite is pure string replacement
// so repeated runs on the same input yield the same output.
func (f *FactChecker) Sanitize(text string, inaccuracies []domain.Inaccuracy) string {
	for _, ia := range inaccuracies {
		if ia.Severity != domain.SeverityHigh && ia.Severity != domain.SeverityCritical {
			continue
		}
		if ia.Evidence == "" || ia.Suggestion == "" {
			continue
		}
		text = strings.ReplaceAll(text, ia.Evidence, ia.Suggestion)
	}
	return text
}

// CheckAndSanitize runs the check, applies at most one sanitize pass when
// HIGH/CRITICAL inaccuracies are present, and re-checks the sanitized
// text. If sanitization itself introduces a new inaccuracy it is reported
// but not re-sanitized in the same evaluation.
func (f *FactChecker) CheckAndSanitize(ctx context.Context, text string, jobID uuid.UUID) (string, domain.FactCheckResult, error) {
	result, err := f.Check(ctx, text, jobID)
	if err != nil {
		return text, domain.FactCheckResult{}, err
	}

	if result.CountBySeverity(domain.SeverityHigh) == 0 &&
		result.CountBySeverity(domain.SeverityCritical) == 0 {
		return text, result, nil
	}

	sanitized := f.Sanitize(text, result.Inaccuracies)
	recheck, err := f.Check(ctx, sanitized, jobID)
	if err != nil {
		return text, result, err
	}

	f.logger.Info("section_sanitized",
		slog.String("job_id", jobID.String()),
		slog.Int("critical_before", result.CountBySeverity(domain.SeverityCritical)),
		slog.Int("critical_after", recheck.CountBySeverity(domain.SeverityCritical)))

	return sanitized, recheck, nil
}

func (f *FactChecker) verifiedMetrics(ctx context.Context, jobID uuid.UUID) (map[string]domain.CompetitorMetrics, error) {
	key := jobID.String()
	if cached, ok := f.cache.Get(key); ok {
		return cached, nil
	}

	competitors, err := f.repo.ListCompetitors(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load verified metrics: %w", err)
	}

	metrics := make(map[string]domain.CompetitorMetrics, len(competitors))
	for _, comp := range competitors {
		metrics[strings.ToLower(comp.Handle)] = comp
	}
	f.cache.Add(key, metrics)
	return metrics, nil
}

func relativeDeviation(claimed, actual int64) float64 {
	if actual == 0 {
		if claimed == 0 {
			return 0
		}
		return 1
	}
	diff := claimed - actual
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(actual)
}

func severityForDeviation(deviation float64) domain.InaccuracySeverity {
	switch {
	case deviation > deviationCritical:
		return domain.SeverityCritical
	case deviation > deviationHigh:
		return domain.SeverityHigh
	case deviation > deviationMedium:
		return domain.SeverityMedium
	default:
		return ""
	}
}

func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, d := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}
	return string(out)
}
