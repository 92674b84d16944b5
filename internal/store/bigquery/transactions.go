package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// InsertTransactions streams a batch of transactions into the transactions
// table.
func (r *Repository) InsertTransactions(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, transactionToRow(t))
	}

	inserter := r.table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// GetTransaction returns a single transaction by id.
func (r *Repository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE transaction_id = @transaction_id
		LIMIT 1
	`, r.qualified(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: query read: %w", err)
	}

	var row TransactionRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: iter next: %w", err)
	}
	return rowToTransaction(&row), nil
}

// ListTransactionsByMonth returns all transactions for a month key, ordered
// by date.
func (r *Repository) ListTransactionsByMonth(ctx context.Context, monthKey string) ([]*domain.Transaction, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE month_key = @month_key
		ORDER BY tx_date, created_ts
	`, r.qualified(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "month_key", Value: monthKey},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByMonth: query read: %w", err)
	}

	var out []*domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsByMonth: iter next: %w", err)
		}
		out = append(out, rowToTransaction(&row))
	}
	return out, nil
}

// UpdateResolution overwrites the categorization fields of one transaction.
func (r *Repository) UpdateResolution(ctx context.Context, id string, res store.Resolution) (*domain.Transaction, error) {
	stmt := fmt.Sprintf(`
		UPDATE %s
		SET bucket = @bucket,
		    confidence = @confidence,
		    categorization_source = @source,
		    categorization_reasoning = @reasoning
		WHERE transaction_id = @transaction_id
	`, r.qualified(transactionsTable))

	params := []bigquery.QueryParameter{
		{Name: "bucket", Value: res.Bucket},
		{Name: "confidence", Value: res.Confidence},
		{Name: "source", Value: res.Source},
		{Name: "reasoning", Value: res.Reasoning},
		{Name: "transaction_id", Value: id},
	}
	if err := r.runDML(ctx, stmt, params); err != nil {
		return nil, fmt.Errorf("UpdateResolution: %w", err)
	}

	return r.GetTransaction(ctx, id)
}

// SetMonthLocked flips the locked flag on every transaction of a month.
func (r *Repository) SetMonthLocked(ctx context.Context, monthKey string) error {
	stmt := fmt.Sprintf(`
		UPDATE %s
		SET locked = TRUE
		WHERE month_key = @month_key
	`, r.qualified(transactionsTable))

	params := []bigquery.QueryParameter{
		{Name: "month_key", Value: monthKey},
	}
	if err := r.runDML(ctx, stmt, params); err != nil {
		return fmt.Errorf("SetMonthLocked: %w", err)
	}
	return nil
}

// InsertRejectedRows retains unparseable raw rows for manual handling.
func (r *Repository) InsertRejectedRows(ctx context.Context, rows []domain.RejectedRow) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now()
	bqRows := make([]*RejectedRowRow, 0, len(rows))
	for _, row := range rows {
		bqRows = append(bqRows, &RejectedRowRow{
			UploadID:  row.UploadID,
			LineNo:    int64(row.LineNo),
			Raw:       row.Raw,
			Reason:    row.Reason,
			CreatedTS: now,
		})
	}

	inserter := r.table(rejectedRowsTable).Inserter()
	if err := inserter.Put(ctx, bqRows); err != nil {
		return fmt.Errorf("InsertRejectedRows: inserting rows: %w", err)
	}
	return nil
}

// ListRejectedRows returns the retained raw rows for one upload.
func (r *Repository) ListRejectedRows(ctx context.Context, uploadID string) ([]domain.RejectedRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT upload_id, line_no, raw, reason, created_ts
		FROM %s
		WHERE upload_id = @upload_id
		ORDER BY line_no
	`, r.qualified(rejectedRowsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "upload_id", Value: uploadID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRejectedRows: query read: %w", err)
	}

	var out []domain.RejectedRow
	for {
		var row RejectedRowRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRejectedRows: iter next: %w", err)
		}
		out = append(out, domain.RejectedRow{
			UploadID: row.UploadID,
			LineNo:   int(row.LineNo),
			Raw:      row.Raw,
			Reason:   row.Reason,
		})
	}
	return out, nil
}

var _ store.TransactionRepository = (*Repository)(nil)
