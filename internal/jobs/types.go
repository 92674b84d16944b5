// Package jobs defines the async job abstraction for document uploads:
// PDF/image statements and paystubs are parsed off the request path so an
// upload never blocks on the model.
package jobs

import (
	"context"
	"time"

	"github.com/RonStack/leaky-buckets/internal/domain"
)

// Kind discriminates what the archived document contains.
type Kind string

const (
	KindStatement Kind = "statement"
	KindPaystub   Kind = "paystub"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// ParseDocumentJob asks a worker to fetch an archived upload from the blob
// store, run extraction, and persist the result.
type ParseDocumentJob struct {
	JobID    string `json:"jobId"`
	Kind     Kind   `json:"kind"`
	UploadID string `json:"uploadId"`
	UserID   string `json:"userId"`

	// RawKey locates the archived file in the blob store.
	RawKey   string        `json:"rawKey"`
	FileName string        `json:"fileName"`
	MIMEType string        `json:"mimeType"`
	Source   domain.Source `json:"source"`

	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retryCount"`
	MaxRetries  int        `json:"maxRetries"`

	// Result summary, filled on completion.
	TransactionsProcessed int    `json:"transactionsProcessed,omitempty"`
	MonthKey              string `json:"monthKey,omitempty"`
}

// Publisher enqueues document parse jobs.
type Publisher interface {
	PublishParseDocument(ctx context.Context, job *ParseDocumentJob) error
	Close() error
}

// Handler processes one job; a returned error triggers a retry.
type Handler func(ctx context.Context, job *ParseDocumentJob) error

// Consumer runs workers against the queue.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// Store tracks job state so clients can poll upload progress.
type Store interface {
	SaveJob(ctx context.Context, job *ParseDocumentJob) error
	GetJob(ctx context.Context, jobID string) (*ParseDocumentJob, error)
	ListJobs(ctx context.Context, filter Filter) ([]*ParseDocumentJob, error)
}

// Filter narrows ListJobs results.
type Filter struct {
	UploadID string
	Status   Status
	Limit    int
}
