package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cronplane/internal/store"

	"github.com/google/uuid"
)

const jobColumns = `id, org_id, type, payload, status, next_run_at, recurrence_rule,
	last_run_at, last_result_ok, last_result_message, retry_count, max_retries,
	claimed_at, claimed_by, created_at, updated_at`

// CreateJob inserts a new job record.
func (s *Store) CreateJob(ctx context.Context, job *store.Job) error {
	query := `
		INSERT INTO jobs (id, org_id, type, payload, status, next_run_at, recurrence_rule,
			retry_count, max_retries, claimed_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', $10, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.OrgID,
		job.Type,
		[]byte(job.Payload),
		job.Status,
		job.NextRunAt,
		job.RecurrenceRule,
		job.RetryCount,
		job.MaxRetries,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob returns a job by its ID.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE id = $1", jobColumns)
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListJobs returns jobs for an organisation, newest first.
func (s *Store) ListJobs(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*store.Job, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM jobs
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, jobColumns)

	rows, err := s.db.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs query failed: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// FindDue returns up to limit PENDING jobs whose next_run_at has passed,
// oldest-due first.
func (s *Store) FindDue(ctx context.Context, now time.Time, limit int) ([]*store.Job, error) {
	if limit <= 0 {
		limit = 1
	}

	query := fmt.Sprintf(`
		SELECT %s FROM jobs
		WHERE status = $1 AND next_run_at IS NOT NULL AND next_run_at <= $2
		ORDER BY next_run_at ASC
		LIMIT $3
	`, jobColumns)

	rows, err := s.db.QueryContext(ctx, query, store.JobStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find due query failed: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// Claim atomically transitions a PENDING job to RUNNING. The WHERE clause
// carries the old status, so under concurrent claims exactly one UPDATE
// matches; the losers see zero rows affected.
func (s *Store) Claim(ctx context.Context, id uuid.UUID, claimant string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, claimed_at = $2, claimed_by = $3, updated_at = $2
		WHERE id = $4 AND status = $5
	`, store.JobStatusRunning, now, claimant, id, store.JobStatusPending)
	if err != nil {
		return fmt.Errorf("claim update failed for job %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Lost the claim or the job does not exist; look once to tell which.
	var status store.JobStatus
	err = s.db.QueryRowContext(ctx, "SELECT status FROM jobs WHERE id = $1", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrAlreadyClaimed
}

// Complete writes the outcome of an execution and releases the claim.
// The status = RUNNING guard makes the write idempotent (the first
// completion releases the claim, so a duplicate matches nothing) and lets
// a concurrent cancellation win: a job marked CANCELLED mid-run is not
// revived by its own completion.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, outcome store.Outcome) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, next_run_at = $2, last_run_at = $3,
			last_result_ok = $4, last_result_message = $5, retry_count = $6,
			claimed_at = NULL, claimed_by = '', updated_at = $7
		WHERE id = $8 AND status = $9
	`,
		outcome.Status,
		outcome.NextRunAt,
		outcome.LastRunAt,
		outcome.Result.OK,
		outcome.Result.Message,
		outcome.RetryCount,
		time.Now().UTC(),
		id,
		store.JobStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("complete update failed for job %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	// Already completed or cancelled concurrently; drop the outcome.
	return nil
}

// Cancel marks a PENDING or RUNNING job CANCELLED and clears its schedule.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, next_run_at = NULL, updated_at = $2
		WHERE id = $3 AND status IN ($4, $5)
	`, store.JobStatusCancelled, time.Now().UTC(), id, store.JobStatusPending, store.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("cancel update failed for job %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrAlreadyFinished
}

// ReleaseStuck requeues RUNNING jobs claimed at or before cutoff.
func (s *Store) ReleaseStuck(ctx context.Context, cutoff, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, next_run_at = $2, claimed_at = NULL, claimed_by = '', updated_at = $2
		WHERE status = $3 AND claimed_at <= $4
	`, store.JobStatusPending, now, store.JobStatusRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("release stuck update failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// CountDue returns the number of currently due PENDING jobs.
func (s *Store) CountDue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM jobs
		WHERE status = $1 AND next_run_at IS NOT NULL AND next_run_at <= $2
	`, store.JobStatusPending, now).Scan(&count)
	return count, err
}

// CountActive returns the number of non-terminal jobs for an organisation.
func (s *Store) CountActive(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM jobs
		WHERE org_id = $1 AND status IN ($2, $3)
	`, orgID, store.JobStatusPending, store.JobStatusRunning).Scan(&count)
	return count, err
}

// rowScanner matches both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*store.Job, error) {
	var (
		job            store.Job
		payload        []byte
		lastResultOK   sql.NullBool
		lastResultMsg  sql.NullString
		recurrenceRule sql.NullString
	)

	err := row.Scan(
		&job.ID,
		&job.OrgID,
		&job.Type,
		&payload,
		&job.Status,
		&job.NextRunAt,
		&recurrenceRule,
		&job.LastRunAt,
		&lastResultOK,
		&lastResultMsg,
		&job.RetryCount,
		&job.MaxRetries,
		&job.ClaimedAt,
		&job.ClaimedBy,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Payload = payload
	job.RecurrenceRule = recurrenceRule.String
	if lastResultOK.Valid {
		job.LastResult = &store.RunResult{
			OK:      lastResultOK.Bool,
			Message: lastResultMsg.String,
		}
	}
	return &job, nil
}

func collectJobs(rows *sql.Rows) ([]*store.Job, error) {
	var jobs []*store.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("job scan failed: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job rows error: %w", err)
	}
	return jobs, nil
}
