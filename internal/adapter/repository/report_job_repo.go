package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"research-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type reportJobRepository struct {
	pool *pgxpool.Pool
}

// NewReportJobRepository creates a new ReportJobRepository.
func NewReportJobRepository(pool *pgxpool.Pool) domain.ReportJobRepository {
	return &reportJobRepository{pool: pool}
}

func (r *reportJobRepository) Enqueue(ctx context.Context, job *domain.ReportJob) error {
	query := `
		INSERT INTO report_jobs (id, job_id, topics, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.JobID,
		job.Topics,
		job.Status,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue report job: %w", err)
	}
	return nil
}

// AcquireNextJob claims the oldest new job and flips it to processing in
// one statement, so concurrent workers never pick up the same row.
func (r *reportJobRepository) AcquireNextJob(ctx context.Context) (*domain.ReportJob, error) {
	cteQuery := `
		WITH next_job AS (
			SELECT id
			FROM report_jobs
			WHERE status = 'new'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE report_jobs
		SET status = 'processing', updated_at = $1
		FROM next_job
		WHERE report_jobs.id = next_job.id
		RETURNING report_jobs.id, report_jobs.job_id, report_jobs.topics, report_jobs.status,
		          report_jobs.error_message, report_jobs.created_at, report_jobs.updated_at
	`
	var job domain.ReportJob
	err := r.pool.QueryRow(ctx, cteQuery, time.Now()).Scan(
		&job.ID,
		&job.JobID,
		&job.Topics,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to acquire next report job: %w", err)
	}
	return &job, nil
}

func (r *reportJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	query := `
		UPDATE report_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.pool.Exec(ctx, query, status, errorMessage, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update report job status: %w", err)
	}
	return nil
}
