package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"research-orchestrator/internal/domain"
)

// ReadinessUsecase classifies evidence snapshots as ready, degraded or
// blocked and computes the per-request eligibility scope. Classification
// is re-run lazily: only when a job has zero READY+DEGRADED snapshots
// while UNSCORED ones exist.
type ReadinessUsecase interface {
	Classify(ctx context.Context, jobID uuid.UUID, includeDegraded bool) (*ReadinessResult, error)
}

// ReadinessResult pairs the summary with the scope retrievers filter on.
type ReadinessResult struct {
	Summary domain.ReadinessSummary
	Scope   domain.ReadinessScope
}

type readinessUsecase struct {
	snapshots domain.SnapshotRepository
	logger    *slog.Logger
}

// NewReadinessUsecase creates the classifier.
func NewReadinessUsecase(snapshots domain.SnapshotRepository, logger *slog.Logger) ReadinessUsecase {
	return &readinessUsecase{snapshots: snapshots, logger: logger}
}

func (u *readinessUsecase) Classify(ctx context.Context, jobID uuid.UUID, includeDegraded bool) (*ReadinessResult, error) {
	snaps, err := u.snapshots.ListByJob(ctx, jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	if needsScoring(snaps) {
		scored, err := u.scoreUnscored(ctx, snaps)
		if err != nil {
			return nil, err
		}
		snaps = scored
		u.logger.Info("snapshots_rescored",
			slog.String("job_id", jobID.String()),
			slog.Int("snapshot_count", len(snaps)))
	}

	allowed := []domain.ReadinessStatus{domain.ReadinessReady}
	if includeDegraded {
		allowed = append(allowed, domain.ReadinessDegraded)
	}

	scope := domain.ReadinessScope{
		AllowedStatuses:   allowed,
		ClientHandles:     make(map[string]struct{}),
		CompetitorHandles: make(map[string]struct{}),
	}

	var summary domain.ReadinessSummary
	summary.AllowedStatuses = allowed

	for _, snap := range snaps {
		counts := &summary.Client
		if snap.Scope == domain.ScopeCompetitor {
			counts = &summary.Competitor
		}
		switch snap.Readiness {
		case domain.ReadinessReady:
			counts.Ready++
		case domain.ReadinessDegraded:
			counts.Degraded++
		case domain.ReadinessBlocked:
			counts.Blocked++
		default:
			counts.Unscored++
		}

		if scope.Allows(snap.Readiness) {
			if snap.Scope == domain.ScopeCompetitor {
				scope.CompetitorHandles[snap.Handle] = struct{}{}
			} else {
				scope.ClientHandles[snap.Handle] = struct{}{}
			}
		}
	}

	// "Has ready" is computed against the allowed-status policy: degraded
	// snapshots only count when the caller opted in.
	summary.HasClientReady = summary.Client.Ready > 0 ||
		(includeDegraded && summary.Client.Degraded > 0)
	summary.HasCompetitorReady = summary.Competitor.Ready > 0 ||
		(includeDegraded && summary.Competitor.Degraded > 0)

	return &ReadinessResult{Summary: summary, Scope: scope}, nil
}

// needsScoring implements the lazy re-score trigger.
func needsScoring(snaps []domain.Snapshot) bool {
	usable, unscored := 0, 0
	for _, snap := range snaps {
		switch snap.Readiness {
		case domain.ReadinessReady, domain.ReadinessDegraded:
			usable++
		case domain.ReadinessUnscored, "":
			unscored++
		}
	}
	return usable == 0 && unscored > 0
}

// scoreUnscored labels each unscored snapshot from completeness and
// anomaly criteria and persists the label.
func (u *readinessUsecase) scoreUnscored(ctx context.Context, snaps []domain.Snapshot) ([]domain.Snapshot, error) {
	out := make([]domain.Snapshot, len(snaps))
	copy(out, snaps)

	for i := range out {
		if out[i].Readiness != domain.ReadinessUnscored && out[i].Readiness != "" {
			continue
		}
		status := classifySnapshot(out[i])
		if err := u.snapshots.UpdateReadiness(ctx, out[i].ID, status); err != nil {
			return nil, fmt.Errorf("failed to persist readiness for snapshot %s: %w", out[i].ID, err)
		}
		out[i].Readiness = status
	}
	return out, nil
}

// classifySnapshot applies the completeness/anomaly criteria.
func classifySnapshot(snap domain.Snapshot) domain.ReadinessStatus {
	if snap.ScrapeError != "" || !snap.HasProfile {
		return domain.ReadinessBlocked
	}
	if snap.FollowerCount < 0 {
		return domain.ReadinessBlocked
	}
	if snap.PostCount == 0 {
		return domain.ReadinessDegraded
	}
	return domain.ReadinessReady
}
