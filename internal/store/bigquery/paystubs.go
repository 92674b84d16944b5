package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// InsertPaystub writes one extracted paystub.
func (r *Repository) InsertPaystub(ctx context.Context, p *domain.Paystub) error {
	ins := r.table(paystubsTable).Inserter()
	if err := ins.Put(ctx, paystubToRow(p)); err != nil {
		return fmt.Errorf("InsertPaystub: put: %w", err)
	}
	return nil
}

// ListPaystubsByMonth returns all paystubs landing in a month, newest pay
// date first.
func (r *Repository) ListPaystubsByMonth(ctx context.Context, monthKey string) ([]*domain.Paystub, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT paystub_id, user_id, month_key, source_name, pay_date,
		       gross_pay, net_pay, deductions, raw_file_key, uploaded_ts
		FROM %s
		WHERE month_key = @month_key
		ORDER BY pay_date DESC
	`, r.qualified(paystubsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "month_key", Value: monthKey},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPaystubsByMonth: query read: %w", err)
	}

	var out []*domain.Paystub
	for {
		var row PaystubRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListPaystubsByMonth: iter next: %w", err)
		}
		out = append(out, rowToPaystub(&row))
	}
	return out, nil
}

// DeletePaystub removes a paystub by id.
func (r *Repository) DeletePaystub(ctx context.Context, id string) error {
	stmt := fmt.Sprintf(`
		DELETE FROM %s
		WHERE paystub_id = @paystub_id
	`, r.qualified(paystubsTable))
	params := []bigquery.QueryParameter{
		{Name: "paystub_id", Value: id},
	}
	if err := r.runDML(ctx, stmt, params); err != nil {
		return fmt.Errorf("DeletePaystub: %w", err)
	}
	return nil
}

var _ store.PaystubRepository = (*Repository)(nil)
