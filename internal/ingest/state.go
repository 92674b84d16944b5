// Package ingest ties the upload path together: archive the raw file,
// normalize or extract transactions, categorize, and persist. CSV uploads
// run the pipeline synchronously; PDF/image uploads go through the jobs
// queue so the request never waits on the model.
package ingest

import (
	"context"

	"github.com/RonStack/leaky-buckets/internal/domain"
)

// Step is a single stage of the upload pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the pipeline steps.
type State struct {
	UploadID    string
	UserID      string
	FileName    string
	ContentType string
	Source      domain.Source

	// Raw is the uploaded file content; RawKey is where it was archived.
	Raw    []byte
	RawKey string

	// Transactions and Rejected are filled by the normalize/extract step.
	Transactions []*domain.Transaction
	Rejected     []domain.RejectedRow

	MonthKey string
	Receipt  *Receipt
}

// Receipt is the file-level outcome returned to the uploader. An upload
// succeeds at the file level even when individual rows were rejected or
// need review.
type Receipt struct {
	UploadID              string  `json:"uploadId"`
	MonthKey              string  `json:"monthKey"`
	TransactionsProcessed int     `json:"transactionsProcessed"`
	NeedsReview           int     `json:"needsReview"`
	RejectedRows          int     `json:"rejectedRows"`
	TotalAmount           float64 `json:"totalAmount"`
	RawFileKey            string  `json:"rawFileKey"`
}

// run executes steps in order, stopping at the first failure.
func run(ctx context.Context, state *State, steps []Step) error {
	for _, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			return err
		}
	}
	return nil
}
