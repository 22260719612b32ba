package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"surveyhub.org/internal/job"
	"surveyhub.org/internal/obs"
)

// Enqueue validates and persists a pending deletion job. The filter is stored
// as a structured jsonb document, never as a serialized query fragment.
func (s *Store) Enqueue(ctx context.Context, table job.Table, filter job.Filter) (job.Job, error) {
	if err := job.Validate(table, filter); err != nil {
		return job.Job{}, err
	}
	payload, err := json.Marshal(filter)
	if err != nil {
		return job.Job{}, fmt.Errorf("encode filter: %w", err)
	}

	var queued job.Job
	var rawFilter []byte
	err = s.db.QueryRowContext(ctx, `
		insert into deletion_jobs (table_name, payload)
		values ($1, $2)
		returning id, table_name, payload, error_count, created_at, updated_at
	`, string(table), payload).Scan(
		&queued.ID, &queued.Table, &rawFilter, &queued.ErrorCount,
		&queued.CreatedAt, &queued.UpdatedAt)
	if err != nil {
		return job.Job{}, err
	}
	if err := json.Unmarshal(rawFilter, &queued.Filter); err != nil {
		return job.Job{}, fmt.Errorf("decode filter: %w", err)
	}

	obs.JobEnqueued()
	s.events.Publish(job.Event{Type: job.EventEnqueued, Job: queued})
	return queued, nil
}

// NextPending returns the oldest pending job. No row-level claim is taken:
// the worker runs as a single instance.
func (s *Store) NextPending(ctx context.Context) (job.Job, error) {
	var pending job.Job
	var rawFilter []byte
	err := s.db.QueryRowContext(ctx, `
		select id, table_name, payload, error_count, created_at, updated_at
		from deletion_jobs
		where done_at is null
		order by created_at asc, id asc
		limit 1
	`).Scan(
		&pending.ID, &pending.Table, &rawFilter, &pending.ErrorCount,
		&pending.CreatedAt, &pending.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return job.Job{}, job.ErrNoPending
	}
	if err != nil {
		return job.Job{}, err
	}
	if err := json.Unmarshal(rawFilter, &pending.Filter); err != nil {
		return job.Job{}, fmt.Errorf("decode filter for job %d: %w", pending.ID, err)
	}
	return pending, nil
}

// MarkDone transitions the job to its terminal state so it is excluded from
// future polls.
func (s *Store) MarkDone(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		update deletion_jobs
		set done_at = now(), updated_at = now()
		where id = $1 and done_at is null
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %d not pending", id)
	}
	return nil
}

// RecordFailure increments the error count, leaving the job pending.
func (s *Store) RecordFailure(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		update deletion_jobs
		set error_count = error_count + 1, updated_at = now()
		where id = $1
	`, id)
	return err
}
