package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"research-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sectionRepository struct {
	pool *pgxpool.Pool
}

// NewSectionRepository creates a new SectionRepository.
func NewSectionRepository(pool *pgxpool.Pool) domain.SectionRepository {
	return &sectionRepository{pool: pool}
}

type dbExecutor interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *sectionRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

// PersistSection replaces any older row for the same (job, topic, status)
// so only one FINAL row exists per topic.
func (r *sectionRepository) PersistSection(ctx context.Context, section *domain.Section) error {
	exec := r.getExecutor(ctx)

	deleteQuery := `
		DELETE FROM report_sections
		WHERE job_id = $1 AND topic = $2 AND status = $3
	`
	if _, err := exec.Exec(ctx, deleteQuery, section.JobID, section.Topic, string(section.Status)); err != nil {
		return fmt.Errorf("failed to delete stale section rows: %w", err)
	}

	groundingBytes, err := json.Marshal(section.Grounding)
	if err != nil {
		return fmt.Errorf("failed to marshal grounding report: %w", err)
	}

	insertQuery := `
		INSERT INTO report_sections (id, job_id, topic, text, score, status, model, tokens, grounding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = exec.Exec(ctx, insertQuery,
		section.ID,
		section.JobID,
		section.Topic,
		section.Text,
		section.Score,
		string(section.Status),
		section.Model,
		section.Tokens,
		groundingBytes,
		section.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert section: %w", err)
	}
	return nil
}

func (r *sectionRepository) DeleteSections(ctx context.Context, jobID uuid.UUID, topics []string, status *domain.SectionStatus) error {
	query := `
		DELETE FROM report_sections
		WHERE job_id = $1 AND topic = ANY($2)
	`
	args := []interface{}{jobID, topics}
	if status != nil {
		query += ` AND status = $3`
		args = append(args, string(*status))
	}

	if _, err := r.getExecutor(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete sections: %w", err)
	}
	return nil
}

func (r *sectionRepository) GetLatestGrounding(ctx context.Context, jobID uuid.UUID, topic string) (*domain.GroundingReport, error) {
	query := `
		SELECT grounding
		FROM report_sections
		WHERE job_id = $1 AND topic = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var groundingBytes []byte
	err := r.getExecutor(ctx).QueryRow(ctx, query, jobID, topic).Scan(&groundingBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan grounding report: %w", err)
	}
	if len(groundingBytes) == 0 {
		return nil, nil
	}

	var report domain.GroundingReport
	if err := json.Unmarshal(groundingBytes, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grounding report: %w", err)
	}
	return &report, nil
}

func (r *sectionRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.Section, error) {
	query := `
		SELECT id, job_id, topic, text, score, status, model, tokens, grounding, created_at
		FROM report_sections
		WHERE job_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []domain.Section
	for rows.Next() {
		var section domain.Section
		var groundingBytes []byte
		err := rows.Scan(
			&section.ID,
			&section.JobID,
			&section.Topic,
			&section.Text,
			&section.Score,
			&section.Status,
			&section.Model,
			&section.Tokens,
			&groundingBytes,
			&section.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		if len(groundingBytes) > 0 {
			var report domain.GroundingReport
			if err := json.Unmarshal(groundingBytes, &report); err != nil {
				return nil, fmt.Errorf("failed to unmarshal grounding report: %w", err)
			}
			section.Grounding = &report
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}
