// Package bigquery implements the store repositories on top of a BigQuery
// dataset. One table per entity; point lookups and month-scoped range
// queries use parameterized queries, mutations use DML.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const (
	transactionsTable = "transactions"
	rejectedRowsTable = "rejected_rows"
	merchantsTable    = "merchants"
	bucketsTable      = "buckets"
	monthsTable       = "months"
	paystubsTable     = "paystubs"
	billsTable        = "recurring_bills"
)

// Repository holds a shared BigQuery client and implements every store
// interface against one dataset.
type Repository struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewRepository creates a Repository with a shared BigQuery client.
func NewRepository(ctx context.Context, project, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, project: project, dataset: dataset}, nil
}

// Close releases the underlying client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) table(name string) *bigquery.Table {
	return r.client.DatasetInProject(r.project, r.dataset).Table(name)
}

func (r *Repository) qualified(name string) string {
	return fmt.Sprintf("%s.%s", r.dataset, name)
}

// runDML executes a parameterized DML statement and waits for the job.
func (r *Repository) runDML(ctx context.Context, stmt string, params []bigquery.QueryParameter) error {
	q := r.client.Query(stmt)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
