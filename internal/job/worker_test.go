package job

import (
	"context"
	"errors"
	"testing"
	"time"
)

// queueStub is a minimal in-memory Store for worker tests.
type queueStub struct {
	jobs     []Job
	markDone []int64
	failures []int64
}

func (q *queueStub) Enqueue(_ context.Context, table Table, filter Filter) (Job, error) {
	if err := Validate(table, filter); err != nil {
		return Job{}, err
	}
	j := Job{
		ID:        int64(len(q.jobs) + 1),
		Table:     table,
		Filter:    filter,
		CreatedAt: time.Now().UTC().Add(time.Duration(len(q.jobs)) * time.Millisecond),
	}
	q.jobs = append(q.jobs, j)
	return j, nil
}

// enqueueRaw bypasses validation, simulating a stale row written before the
// whitelist changed.
func (q *queueStub) enqueueRaw(table Table, filter Filter) Job {
	j := Job{
		ID:        int64(len(q.jobs) + 1),
		Table:     table,
		Filter:    filter,
		CreatedAt: time.Now().UTC().Add(time.Duration(len(q.jobs)) * time.Millisecond),
	}
	q.jobs = append(q.jobs, j)
	return j
}

func (q *queueStub) NextPending(_ context.Context) (Job, error) {
	for _, j := range q.jobs {
		if !j.Done() {
			return j, nil
		}
	}
	return Job{}, ErrNoPending
}

func (q *queueStub) MarkDone(_ context.Context, id int64) error {
	for i := range q.jobs {
		if q.jobs[i].ID == id {
			now := time.Now().UTC()
			q.jobs[i].DoneAt = &now
			q.markDone = append(q.markDone, id)
			return nil
		}
	}
	return errors.New("job not found")
}

func (q *queueStub) RecordFailure(_ context.Context, id int64) error {
	for i := range q.jobs {
		if q.jobs[i].ID == id {
			q.jobs[i].ErrorCount++
			q.failures = append(q.failures, id)
			return nil
		}
	}
	return errors.New("job not found")
}

func (q *queueStub) pendingCount() int {
	n := 0
	for _, j := range q.jobs {
		if !j.Done() {
			n++
		}
	}
	return n
}

type deleterStub struct {
	calls []Job
	err   error
	panic bool
}

func (d *deleterStub) DeleteWhere(_ context.Context, table Table, filter Filter) error {
	if d.panic {
		panic("storage blew up")
	}
	d.calls = append(d.calls, Job{Table: table, Filter: filter})
	return d.err
}

func TestWorkerProcessesOneJobPerRun(t *testing.T) {
	queue := &queueStub{}
	deleter := &deleterStub{}
	worker, err := NewWorker(queue, deleter)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	if _, err := queue.Enqueue(context.Background(), TableMembers, ByOrganization(7)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := queue.Enqueue(context.Background(), TableSurveys, ByOrganization(7)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	worker.RunOnce(context.Background())
	if queue.pendingCount() != 1 {
		t.Fatalf("expected 1 pending after first run, got %d", queue.pendingCount())
	}
	worker.RunOnce(context.Background())
	if queue.pendingCount() != 0 {
		t.Fatalf("expected drained queue, got %d pending", queue.pendingCount())
	}

	if len(deleter.calls) != 2 {
		t.Fatalf("expected 2 deletions, got %d", len(deleter.calls))
	}
	if deleter.calls[0].Table != TableMembers || deleter.calls[1].Table != TableSurveys {
		t.Fatalf("jobs processed out of order: %+v", deleter.calls)
	}
	if len(queue.markDone) != 2 {
		t.Fatalf("jobs not marked done: %v", queue.markDone)
	}
}

func TestWorkerUnknownTableIncrementsErrorCount(t *testing.T) {
	queue := &queueStub{}
	deleter := &deleterStub{}
	worker, err := NewWorker(queue, deleter)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	stale := queue.enqueueRaw(Table("accounts"), ByUser(1))

	worker.RunOnce(context.Background())

	if len(deleter.calls) != 0 {
		t.Fatalf("deleter must not run for unknown table")
	}
	if queue.jobs[0].ErrorCount != 1 {
		t.Fatalf("expected error_count 1, got %d", queue.jobs[0].ErrorCount)
	}
	if queue.jobs[0].Done() {
		t.Fatalf("failed job %d must stay pending", stale.ID)
	}

	// Retries are unbounded: the next run picks the same job up again.
	worker.RunOnce(context.Background())
	if queue.jobs[0].ErrorCount != 2 {
		t.Fatalf("expected error_count 2, got %d", queue.jobs[0].ErrorCount)
	}
}

func TestWorkerDeleterFailureKeepsJobPending(t *testing.T) {
	queue := &queueStub{}
	deleter := &deleterStub{err: errors.New("connection reset")}
	worker, err := NewWorker(queue, deleter)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	if _, err := queue.Enqueue(context.Background(), TableMembers, ByUser(42)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	worker.RunOnce(context.Background())

	if queue.jobs[0].Done() {
		t.Fatalf("failed job must not be marked done")
	}
	if queue.jobs[0].ErrorCount != 1 {
		t.Fatalf("expected error_count 1, got %d", queue.jobs[0].ErrorCount)
	}
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	queue := &queueStub{}
	deleter := &deleterStub{panic: true}
	worker, err := NewWorker(queue, deleter)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	if _, err := queue.Enqueue(context.Background(), TableMembers, ByUser(42)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Must not propagate the panic.
	worker.RunOnce(context.Background())

	if queue.jobs[0].ErrorCount != 1 {
		t.Fatalf("expected error_count 1 after panic, got %d", queue.jobs[0].ErrorCount)
	}
}

func TestWorkerPublishesLifecycleEvents(t *testing.T) {
	queue := &queueStub{}
	deleter := &deleterStub{}
	events := NewBroadcast()
	worker, err := NewWorker(queue, deleter, WithEvents(events))
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := events.Subscribe(ctx)

	if _, err := queue.Enqueue(context.Background(), TableSurveys, ByOrganization(7)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	worker.RunOnce(context.Background())

	select {
	case evt := <-ch:
		if evt.Type != EventDone {
			t.Fatalf("expected done event, got %s", evt.Type)
		}
		if evt.Job.Table != TableSurveys {
			t.Fatalf("unexpected job in event: %+v", evt.Job)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestWorkerRunStopsOnContextCancel(t *testing.T) {
	queue := &queueStub{}
	deleter := &deleterStub{}
	worker, err := NewWorker(queue, deleter, WithInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
