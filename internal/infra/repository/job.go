package repository

import (
	"context"
	"database/sql"
	"time"

	"marketpulse/internal/campaign"
	"marketpulse/internal/infra"
	"marketpulse/internal/queue"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultMaxAttempts = 3

type JobRepository struct {
	db *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Enqueue(ctx context.Context, job queue.NewJob) (uuid.UUID, error) {
	id := uuid.New()
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	// A zero RunAt defers to the database clock, like created_at.
	var runAt *time.Time
	if !job.RunAt.IsZero() {
		runAt = &job.RunAt
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO automation_jobs
			(id, kind, priority, payload, run_at, status, attempts, max_attempts, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()), 'pending', 0, $6, $7, now(), now())`,
		id, job.Kind, job.Priority, job.Payload, runAt, maxAttempts, job.UserID)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to enqueue job", err)
	}
	return id, nil
}

// ClaimBatch atomically selects due pending jobs and flips them to running,
// incrementing the attempt counter. SKIP LOCKED keeps concurrent drains from
// claiming the same rows.
func (r *JobRepository) ClaimBatch(ctx context.Context, now time.Time, limit int32) ([]queue.Job, error) {
	// UPDATE ... RETURNING row order is unspecified, so the claimed rows are
	// re-ordered in an outer SELECT.
	rows, err := r.db.Query(ctx, `
		WITH claimed AS (
			SELECT id FROM automation_jobs
			WHERE status = 'pending' AND run_at <= $1
			ORDER BY priority DESC, run_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		), updated AS (
			UPDATE automation_jobs j
			SET status = 'running', attempts = attempts + 1, updated_at = now()
			FROM claimed
			WHERE j.id = claimed.id
			RETURNING j.id, j.kind, j.priority, j.payload, j.run_at, j.status,
			          j.attempts, j.max_attempts, j.user_id, j.last_error, j.created_at, j.updated_at
		)
		SELECT id, kind, priority, payload, run_at, status,
		       attempts, max_attempts, user_id, last_error, created_at, updated_at
		FROM updated
		ORDER BY priority DESC, run_at ASC`,
		now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim job batch", err)
	}

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan claimed jobs", err)
	}
	return jobs, nil
}

func scanJobs(rows pgx.Rows) ([]queue.Job, error) {
	defer rows.Close()
	var jobs []queue.Job
	for rows.Next() {
		var (
			j         queue.Job
			userID    *uuid.UUID
			lastError sql.NullString
		)
		err := rows.Scan(
			&j.ID, &j.Kind, &j.Priority, &j.Payload, &j.RunAt, &j.Status,
			&j.Attempts, &j.MaxAttempts, &userID, &lastError, &j.CreatedAt, &j.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		j.UserID = userID
		if lastError.Valid {
			le := lastError.String
			j.LastError = &le
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *JobRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE automation_jobs
		SET status = 'completed', last_error = NULL, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return infra.WrapRepoErr("failed to mark job completed", err)
	}
	return nil
}

func (r *JobRepository) Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE automation_jobs
		SET status = 'pending', run_at = $2, last_error = $3, updated_at = now()
		WHERE id = $1`, id, runAt, lastError)
	if err != nil {
		return infra.WrapRepoErr("failed to reschedule job", err)
	}
	return nil
}

func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE automation_jobs
		SET status = 'failed', last_error = $2, updated_at = now()
		WHERE id = $1`, id, lastError)
	if err != nil {
		return infra.WrapRepoErr("failed to mark job failed", err)
	}
	return nil
}

func (r *JobRepository) CountByStatus(ctx context.Context) (map[queue.Status]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, count(*) FROM automation_jobs GROUP BY status`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to count jobs", err)
	}
	defer rows.Close()

	counts := make(map[queue.Status]int64)
	for rows.Next() {
		var (
			status queue.Status
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, infra.WrapRepoErr("failed to scan job count", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate job counts", err)
	}
	return counts, nil
}

func (r *JobRepository) ListFailed(ctx context.Context, limit int32) ([]queue.Job, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, kind, priority, payload, run_at, status,
		       attempts, max_attempts, user_id, last_error, created_at, updated_at
		FROM automation_jobs
		WHERE status = 'failed'
		ORDER BY updated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list failed jobs", err)
	}

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan failed jobs", err)
	}
	return jobs, nil
}

// ResetStaleRunning requeues jobs stuck in running past the staleness cutoff,
// typically after a crash mid-drain.
func (r *JobRepository) ResetStaleRunning(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE automation_jobs
		SET status = 'pending', updated_at = now()
		WHERE status = 'running' AND updated_at < $1`, olderThan)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to reset stale running jobs", err)
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepository) PurgeCompleted(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM automation_jobs
		WHERE status = 'completed' AND updated_at < $1`, olderThan)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to purge completed jobs", err)
	}
	return tag.RowsAffected(), nil
}

var _ queue.Store = (*JobRepository)(nil)

// CampaignJobs adapts the queue store to the narrow enqueue port processors
// depend on.
type CampaignJobs struct {
	store queue.Store
}

func NewCampaignJobs(store queue.Store) *CampaignJobs {
	return &CampaignJobs{store: store}
}

func (a *CampaignJobs) Enqueue(ctx context.Context, job campaign.JobRequest) (uuid.UUID, error) {
	return a.store.Enqueue(ctx, queue.NewJob{
		Kind:        job.Kind,
		Priority:    job.Priority,
		Payload:     job.Payload,
		RunAt:       job.RunAt,
		MaxAttempts: job.MaxAttempts,
		UserID:      job.UserID,
	})
}

var _ campaign.Jobs = (*CampaignJobs)(nil)
