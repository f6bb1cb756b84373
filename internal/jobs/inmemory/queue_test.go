package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/jobs"
)

// waitForStatus polls the store until the job reaches want or the deadline passes.
func waitForStatus(t *testing.T, s *Store, jobID string, want jobs.JobStatus) *jobs.ExportJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := s.GetJob(context.Background(), jobID)
	t.Fatalf("job %s did not reach %s, last state %+v", jobID, want, job)
	return nil
}

func TestQueue_PublishDefaults(t *testing.T) {
	store := NewStore()
	q := NewQueue(1, store)
	defer q.Close()

	job := &jobs.ExportJob{UserID: "user-1"}
	if err := q.PublishExport(context.Background(), job); err != nil {
		t.Fatalf("PublishExport() error = %v", err)
	}
	if job.JobID == "" || job.Status != jobs.JobStatusPending || job.CreatedAt.IsZero() || job.MaxRetries != jobs.DefaultMaxRetries {
		t.Errorf("defaults not applied: %+v", job)
	}
	if _, err := store.GetJob(context.Background(), job.JobID); err != nil {
		t.Errorf("published job not saved: %v", err)
	}
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store, WithWorkers(2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Start(ctx, func(ctx context.Context, job *jobs.ExportJob) error {
		return nil
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ExportJob{JobID: "job-1", UserID: "user-1"}
	if err := q.PublishExport(ctx, job); err != nil {
		t.Fatalf("PublishExport() error = %v", err)
	}

	done := waitForStatus(t, store, "job-1", jobs.JobStatusCompleted)
	if done.StartedAt == nil || done.CompletedAt == nil || done.Error != "" {
		t.Errorf("completed job = %+v", done)
	}

	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store, WithWorkers(1), WithRetryDelay(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer q.Close()

	var attempts int32
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.ExportJob) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("sink unavailable")
	})

	if err := q.PublishExport(ctx, &jobs.ExportJob{JobID: "job-1", MaxRetries: 2}); err != nil {
		t.Fatalf("PublishExport() error = %v", err)
	}

	failed := waitForStatus(t, store, "job-1", jobs.JobStatusFailed)
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if failed.RetryCount != 2 || failed.Error != "sink unavailable" {
		t.Errorf("failed job = %+v", failed)
	}
}

func TestQueue_RetrySucceeds(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, store, WithWorkers(1), WithRetryDelay(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer q.Close()

	var attempts int32
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.ExportJob) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	})

	_ = q.PublishExport(ctx, &jobs.ExportJob{JobID: "job-1"})

	done := waitForStatus(t, store, "job-1", jobs.JobStatusCompleted)
	if done.RetryCount != 1 || done.Error != "" {
		t.Errorf("job = %+v", done)
	}
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	if err := q.PublishExport(context.Background(), &jobs.ExportJob{}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("PublishExport() error = %v, want ErrQueueClosed", err)
	}
	if err := q.Start(context.Background(), func(context.Context, *jobs.ExportJob) error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Start() error = %v, want ErrQueueClosed", err)
	}
}

func TestQueue_PublishRespectsContext(t *testing.T) {
	q := NewQueue(0, nil)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := q.PublishExport(ctx, &jobs.ExportJob{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("PublishExport() error = %v, want deadline exceeded", err)
	}
}
