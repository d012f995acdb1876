package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, video_id, job_type, status, error_message, created_at, completed_at`

func scanJob(row pgx.Row) (*job.Job, error) {
	var j job.Job
	err := row.Scan(
		&j.ID,
		&j.TargetID,
		&j.Kind,
		&j.Status,
		&j.ErrorDetail,
		&j.CreatedAt,
		&j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repository) CreateJob(ctx context.Context, targetID string, kind job.Kind) (*job.Job, error) {
	query := `
		INSERT INTO jobs (id, video_id, job_type, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + jobColumns

	j, err := scanJob(r.db.Pool().QueryRow(ctx, query, uuid.New(), targetID, kind, job.StatusPending))
	if err != nil {
		switch pgCode(err) {
		case pgForeignKeyViolation:
			return nil, common.ErrVideoNotFound
		case pgUniqueViolation:
			// idx_jobs_one_active
			return nil, common.ErrJobActive
		}
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return j, nil
}

func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	j, err := scanJob(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, common.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (r *Repository) GetActiveJob(ctx context.Context, targetID string, kind job.Kind) (*job.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE video_id = $1 AND job_type = $2 AND status NOT IN ('completed', 'failed')
		ORDER BY created_at DESC
		LIMIT 1
	`

	j, err := scanJob(r.db.Pool().QueryRow(ctx, query, targetID, kind))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active job: %w", err)
	}
	return j, nil
}

func (r *Repository) UpdateJobStatus(ctx context.Context, id uuid.UUID, status job.Status, detail string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", common.ErrInvalidTransition, status)
	}

	var completedAt *time.Time
	if status.Terminal() {
		now := time.Now().UTC()
		completedAt = &now
	}

	query := `
		UPDATE jobs
		SET status = $2, error_message = $3, completed_at = $4
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
	`

	tag, err := r.db.Pool().Exec(ctx, query, id, status, job.ErrorDetailFor(status, detail), completedAt)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.Pool().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check job: %w", err)
	}
	if !exists {
		return common.ErrJobNotFound
	}
	return fmt.Errorf("%w: job %s is already terminal", common.ErrInvalidTransition, id)
}
