package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jduhalde/consulting/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// JobFilter narrows a job listing. Zero values are ignored.
type JobFilter struct {
	Status  model.JobStatus
	AgentID string
	Limit   int
}

// JobRepository persists jobs. Status transitions are conditional writes:
// each Mark* method returns false when the job was not in the expected
// source state, so a cancelled job is never overwritten by a late result.
type JobRepository interface {
	CreateJob(ctx context.Context, j *model.Job) error
	// GetJobByID is owner-scoped; a job belonging to another user is
	// indistinguishable from a missing one.
	GetJobByID(ctx context.Context, userID, jobID string) (*model.Job, error)
	// GetJobForExecution fetches by id alone, for the worker.
	GetJobForExecution(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, userID string, f JobFilter) ([]model.Job, error)
	MarkProcessing(ctx context.Context, jobID string) (bool, error)
	MarkCompleted(ctx context.Context, jobID, provider string, usedFallback bool, result map[string]any) (bool, error)
	MarkFailed(ctx context.Context, jobID string, details map[string]string) (bool, error)
	CancelJob(ctx context.Context, userID, jobID string) (bool, error)
}

type jobRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewJobRepo(pool *pgxpool.Pool, logger zerolog.Logger) JobRepository {
	return &jobRepo{pool: pool, logger: logger.With().Str("repository", "JobRepository").Logger()}
}

const jobColumns = `id, user_id, agent_id, agent_name, status, input_data, input_files,
	provider, used_fallback, result, error_details,
	created_at, started_at, completed_at, cancelled_at, updated_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	err := row.Scan(
		&j.ID, &j.UserID, &j.AgentID, &j.AgentName, &j.Status, &j.InputData,
		&j.InputFiles, &j.Provider, &j.UsedFallback, &j.Result, &j.ErrorDetails,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.CancelledAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *jobRepo) CreateJob(ctx context.Context, j *model.Job) error {
	const q = `
		INSERT INTO jobs (id, user_id, agent_id, agent_name, status, input_data,
		                  input_files, provider, used_fallback)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q,
		j.ID, j.UserID, j.AgentID, j.AgentName, j.Status, j.InputData,
		j.InputFiles, j.Provider, j.UsedFallback,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating job for user %s: %w", j.UserID, err)
	}
	return nil
}

func (r *jobRepo) GetJobByID(ctx context.Context, userID, jobID string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 AND user_id = $2`
	j, err := scanJob(r.pool.QueryRow(ctx, q, jobID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading job %s: %w", jobID, err)
	}
	return j, nil
}

func (r *jobRepo) GetJobForExecution(ctx context.Context, jobID string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	j, err := scanJob(r.pool.QueryRow(ctx, q, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading job %s for execution: %w", jobID, err)
	}
	return j, nil
}

func (r *jobRepo) ListJobs(ctx context.Context, userID string, f JobFilter) ([]model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE user_id = $1`
	args := []any{userID}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.AgentID != "" {
		args = append(args, f.AgentID)
		q += fmt.Sprintf(" AND agent_id = $%d", len(args))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs for user %s: %w", userID, err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing jobs for user %s: %w", userID, err)
	}
	return jobs, nil
}

func (r *jobRepo) MarkProcessing(ctx context.Context, jobID string) (bool, error) {
	const q = `
		UPDATE jobs
		SET status = 'processing', started_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'queued'`
	tag, err := r.pool.Exec(ctx, q, jobID)
	if err != nil {
		return false, fmt.Errorf("marking job %s processing: %w", jobID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *jobRepo) MarkCompleted(ctx context.Context, jobID, provider string, usedFallback bool, result map[string]any) (bool, error) {
	const q = `
		UPDATE jobs
		SET status = 'completed', provider = $2, used_fallback = $3,
		    result = $4, completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'processing'`
	tag, err := r.pool.Exec(ctx, q, jobID, provider, usedFallback, result)
	if err != nil {
		return false, fmt.Errorf("marking job %s completed: %w", jobID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *jobRepo) MarkFailed(ctx context.Context, jobID string, details map[string]string) (bool, error) {
	const q = `
		UPDATE jobs
		SET status = 'failed', error_details = $2,
		    completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'processing'`
	tag, err := r.pool.Exec(ctx, q, jobID, details)
	if err != nil {
		return false, fmt.Errorf("marking job %s failed: %w", jobID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *jobRepo) CancelJob(ctx context.Context, userID, jobID string) (bool, error) {
	const q = `
		UPDATE jobs
		SET status = 'cancelled', cancelled_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status IN ('queued', 'processing')`
	tag, err := r.pool.Exec(ctx, q, jobID, userID)
	if err != nil {
		return false, fmt.Errorf("cancelling job %s: %w", jobID, err)
	}
	return tag.RowsAffected() == 1, nil
}
