package repository

import (
	"context"
	"fmt"
	"time"

	"research-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) domain.SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) ListByJob(ctx context.Context, jobID uuid.UUID, statuses []domain.ReadinessStatus) ([]domain.Snapshot, error) {
	query := `
		SELECT id, job_id, scope, handle, platform, follower_count, post_count,
		       has_profile, COALESCE(scrape_error, ''), readiness, captured_at
		FROM evidence_snapshots
		WHERE job_id = $1
	`
	args := []interface{}{jobID}
	if len(statuses) > 0 {
		query += ` AND readiness = ANY($2)`
		filter := make([]string, len(statuses))
		for i, status := range statuses {
			filter[i] = string(status)
		}
		args = append(args, filter)
	}
	query += ` ORDER BY captured_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.Snapshot
	for rows.Next() {
		var snap domain.Snapshot
		err := rows.Scan(
			&snap.ID,
			&snap.JobID,
			&snap.Scope,
			&snap.Handle,
			&snap.Platform,
			&snap.FollowerCount,
			&snap.PostCount,
			&snap.HasProfile,
			&snap.ScrapeError,
			&snap.Readiness,
			&snap.CapturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

func (r *snapshotRepository) UpdateReadiness(ctx context.Context, snapshotID uuid.UUID, status domain.ReadinessStatus) error {
	query := `
		UPDATE evidence_snapshots
		SET readiness = $1, scored_at = $2
		WHERE id = $3
	`
	_, err := r.pool.Exec(ctx, query, string(status), time.Now(), snapshotID)
	if err != nil {
		return fmt.Errorf("failed to update snapshot readiness: %w", err)
	}
	return nil
}
