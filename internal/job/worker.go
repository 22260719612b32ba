package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"surveyhub.org/internal/obs"
)

const defaultPollInterval = 5 * time.Second

// Worker drains the deletion queue: one pending job per tick, oldest first.
// It is intended to run as exactly one instance; NextPending takes no
// row-level lock, so concurrent workers could process the same job twice.
// Scaling out requires an explicit claim step (lease or compare-and-set)
// before the delete.
type Worker struct {
	store    Store
	deleter  Deleter
	events   *Broadcast
	interval time.Duration
}

// WorkerOption configures Worker behavior.
type WorkerOption func(*Worker)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithEvents publishes job lifecycle transitions to the broadcast.
func WithEvents(b *Broadcast) WorkerOption {
	return func(w *Worker) { w.events = b }
}

// NewWorker constructs a Worker polling every five seconds by default.
func NewWorker(store Store, deleter Deleter, opts ...WorkerOption) (*Worker, error) {
	if store == nil {
		return nil, errors.New("job store is required")
	}
	if deleter == nil {
		return nil, errors.New("row deleter is required")
	}
	w := &Worker{
		store:    store,
		deleter:  deleter,
		interval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run polls until the context ends. An in-flight job finishes before Run
// returns; job failures are recovered locally and never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce processes at most one pending job. Exposed so tests and callers can
// drain the queue deterministically.
func (w *Worker) RunOnce(ctx context.Context) {
	pending, err := w.store.NextPending(ctx)
	if errors.Is(err, ErrNoPending) {
		return
	}
	if err != nil {
		obs.LogJSON(map[string]any{
			"level": "error",
			"msg":   "deletion worker: fetch pending job",
			"error": err.Error(),
		})
		return
	}
	w.process(ctx, pending)
}

func (w *Worker) process(ctx context.Context, pending Job) {
	err := w.execute(ctx, pending)
	if err != nil {
		if recordErr := w.store.RecordFailure(ctx, pending.ID); recordErr != nil {
			obs.LogJSON(map[string]any{
				"level":  "error",
				"msg":    "deletion worker: record failure",
				"job_id": pending.ID,
				"error":  recordErr.Error(),
			})
		}
		pending.ErrorCount++
		obs.JobProcessed("failure")
		w.events.Publish(Event{Type: EventFailed, Job: pending, Error: err.Error()})
		obs.LogJSON(map[string]any{
			"level":       "error",
			"msg":         "deletion worker: job failed",
			"job_id":      pending.ID,
			"table":       string(pending.Table),
			"error_count": pending.ErrorCount,
			"error":       err.Error(),
		})
		return
	}

	if err := w.store.MarkDone(ctx, pending.ID); err != nil {
		obs.LogJSON(map[string]any{
			"level":  "error",
			"msg":    "deletion worker: mark done",
			"job_id": pending.ID,
			"error":  err.Error(),
		})
		return
	}
	now := time.Now().UTC()
	pending.DoneAt = &now
	obs.JobProcessed("success")
	w.events.Publish(Event{Type: EventDone, Job: pending})
	obs.LogJSON(map[string]any{
		"level":  "info",
		"msg":    "deletion worker: job done",
		"job_id": pending.ID,
		"table":  string(pending.Table),
	})
}

// execute performs the row deletion, converting panics in the storage layer
// into ordinary failures so the poll loop survives.
func (w *Worker) execute(ctx context.Context, pending Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %d panicked: %v", pending.ID, r)
		}
	}()
	if err := Validate(pending.Table, pending.Filter); err != nil {
		return err
	}
	return w.deleter.DeleteWhere(ctx, pending.Table, pending.Filter)
}
