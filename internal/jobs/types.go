// Package jobs defines background export jobs and the queue and store
// contracts that run them.
package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/finance-ledger/internal/export"
)

// JobStatus is the lifecycle state of an export job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusRetrying  JobStatus = "retrying"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// DefaultMaxRetries is used when a job is published without MaxRetries.
const DefaultMaxRetries = 3

// ExportJob asks for one user's ledger snapshot to be written to every
// configured sink.
type ExportJob struct {
	JobID  string    `json:"job_id"`
	UserID string    `json:"user_id"`
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error is the failure message of the last attempt.
	Error string `json:"error,omitempty"`
	// Results holds the per-sink outcome of the last attempt.
	Results []export.SinkResult `json:"results,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues export jobs.
type Publisher interface {
	// PublishExport enqueues job. Missing ID, status, creation time and
	// retry limit are filled in.
	PublishExport(ctx context.Context, job *ExportJob) error
	Close() error
}

// Consumer runs handlers for queued jobs.
type Consumer interface {
	// Start launches the workers and returns immediately.
	Start(ctx context.Context, handler JobHandler) error
	// Stop waits for in-flight jobs until ctx expires.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It may record results on the job and returns
// an error when the attempt failed and should be retried.
type JobHandler func(ctx context.Context, job *ExportJob) error

// JobStore keeps job state for status polling.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExportJob) error
	// GetJob returns a *domain.NotFoundError for unknown ids.
	GetJob(ctx context.Context, jobID string) (*ExportJob, error)
	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs. Zero values match everything; Limit 0 means
// no limit.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
	Offset int
}
