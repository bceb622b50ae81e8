package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job is a queued background job row.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	FinishedAt   sql.NullTime
	ErrorMessage sql.NullString
	CreatedAt    time.Time
}

const enqueueJob = `
INSERT INTO jobs (id, job_type, payload, status, priority, attempts, max_attempts, scheduled_at, created_at)
VALUES ($1, $2, $3, 'pending', $4, 0, $5, $6, NOW())
`

// EnqueueJobParams are the fields of a new job.
type EnqueueJobParams struct {
	ID          uuid.UUID
	JobType     string
	Payload     json.RawMessage
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// EnqueueJob inserts a pending job.
func (q *Queries) EnqueueJob(ctx context.Context, params EnqueueJobParams) error {
	_, err := q.db.ExecContext(ctx, enqueueJob,
		params.ID,
		params.JobType,
		[]byte(params.Payload),
		params.Priority,
		params.MaxAttempts,
		params.ScheduledAt,
	)
	return err
}

const dequeueJob = `
SELECT id, job_type, payload, status, priority, attempts, max_attempts, scheduled_at, started_at, finished_at, error_message, created_at
FROM jobs
WHERE status = 'pending' AND scheduled_at <= NOW()
ORDER BY priority DESC, scheduled_at
LIMIT 1
FOR UPDATE SKIP LOCKED
`

// DequeueJob locks and returns the next runnable job. Must be called inside
// a transaction so SKIP LOCKED keeps concurrent workers off the same row.
// Returns sql.ErrNoRows when no jobs are available.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	var job Job
	err := q.db.QueryRowContext(ctx, dequeueJob).Scan(
		&job.ID,
		&job.JobType,
		&job.Payload,
		&job.Status,
		&job.Priority,
		&job.Attempts,
		&job.MaxAttempts,
		&job.ScheduledAt,
		&job.StartedAt,
		&job.FinishedAt,
		&job.ErrorMessage,
		&job.CreatedAt,
	)
	return job, err
}

const updateJobStarted = `
UPDATE jobs
SET status = 'running',
    attempts = attempts + 1,
    started_at = NOW()
WHERE id = $1
`

// UpdateJobStarted marks a job as running and counts the attempt.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobStarted, id)
	return err
}

const updateJobCompleted = `
UPDATE jobs
SET status = 'completed',
    finished_at = NOW(),
    error_message = NULL
WHERE id = $1
`

// UpdateJobCompleted marks a job as successfully finished.
func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobCompleted, id)
	return err
}

const updateJobFailed = `
UPDATE jobs
SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
    scheduled_at = CASE WHEN attempts >= max_attempts THEN scheduled_at
                        ELSE NOW() + (INTERVAL '1 second' * POWER(2, attempts) * 30) END,
    finished_at = CASE WHEN attempts >= max_attempts THEN NOW() ELSE NULL END,
    error_message = $2
WHERE id = $1
`

// UpdateJobFailedParams identify the failed job and its error.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

// UpdateJobFailed marks a job attempt as failed, rescheduling with
// exponential backoff until max attempts is reached.
func (q *Queries) UpdateJobFailed(ctx context.Context, params UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, updateJobFailed, params.ID, params.ErrorMessage)
	return err
}

const recoverStaleJobs = `
UPDATE jobs
SET status = 'pending',
    started_at = NULL
WHERE status = 'running'
  AND started_at < NOW() - ($1 * INTERVAL '1 second')
`

// RecoverStaleJobs resets running jobs older than the threshold back to
// pending, returning the number recovered.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	result, err := q.db.ExecContext(ctx, recoverStaleJobs, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
