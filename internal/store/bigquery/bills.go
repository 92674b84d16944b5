package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// InsertBill writes one recurring bill definition.
func (r *Repository) InsertBill(ctx context.Context, b *domain.RecurringBill) error {
	row := &BillRow{
		BillID:     b.ID,
		Name:       b.Name,
		Amount:     b.Amount,
		Bucket:     b.Bucket,
		DayOfMonth: int64(b.DayOfMonth),
	}
	ins := r.table(billsTable).Inserter()
	if err := ins.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertBill: put: %w", err)
	}
	return nil
}

// ListBills returns every recurring bill definition.
func (r *Repository) ListBills(ctx context.Context) ([]*domain.RecurringBill, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT bill_id, name, amount, bucket, day_of_month
		FROM %s
		ORDER BY day_of_month, name
	`, r.qualified(billsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBills: query read: %w", err)
	}

	var out []*domain.RecurringBill
	for {
		var row BillRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBills: iter next: %w", err)
		}
		out = append(out, &domain.RecurringBill{
			ID:         row.BillID,
			Name:       row.Name,
			Amount:     row.Amount,
			Bucket:     row.Bucket,
			DayOfMonth: int(row.DayOfMonth),
		})
	}
	return out, nil
}

// DeleteBill removes a bill definition by id.
func (r *Repository) DeleteBill(ctx context.Context, id string) error {
	stmt := fmt.Sprintf(`
		DELETE FROM %s
		WHERE bill_id = @bill_id
	`, r.qualified(billsTable))
	params := []bigquery.QueryParameter{
		{Name: "bill_id", Value: id},
	}
	if err := r.runDML(ctx, stmt, params); err != nil {
		return fmt.Errorf("DeleteBill: %w", err)
	}
	return nil
}

var _ store.BillRepository = (*Repository)(nil)
