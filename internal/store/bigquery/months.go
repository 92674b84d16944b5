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

// GetMonthState returns the lock state for a month. A month with no row in
// the table has never been locked and is open.
func (r *Repository) GetMonthState(ctx context.Context, monthKey string) (*domain.MonthState, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT month_key, locked, locked_ts
		FROM %s
		WHERE month_key = @month_key
		LIMIT 1
	`, r.qualified(monthsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "month_key", Value: monthKey},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetMonthState: query read: %w", err)
	}

	var row MonthRow
	err = it.Next(&row)
	if err == iterator.Done {
		return &domain.MonthState{MonthKey: monthKey}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetMonthState: iter next: %w", err)
	}

	state := &domain.MonthState{
		MonthKey: row.MonthKey,
		Locked:   row.Locked,
	}
	if row.LockedTS.Valid {
		t := row.LockedTS.Timestamp
		state.LockedAt = &t
	}
	return state, nil
}

// LockMonth marks the month locked. Locking an already locked month is a
// no-op; the original lock timestamp is kept and already=true is reported.
func (r *Repository) LockMonth(ctx context.Context, monthKey string, at time.Time) (bool, error) {
	state, err := r.GetMonthState(ctx, monthKey)
	if err != nil {
		return false, err
	}
	if state.Locked {
		return true, nil
	}

	stmt := fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @month_key AS month_key) src
		ON t.month_key = src.month_key
		WHEN MATCHED THEN UPDATE SET locked = TRUE, locked_ts = @locked_ts
		WHEN NOT MATCHED THEN INSERT (month_key, locked, locked_ts)
		VALUES (@month_key, TRUE, @locked_ts)
	`, r.qualified(monthsTable))

	params := []bigquery.QueryParameter{
		{Name: "month_key", Value: monthKey},
		{Name: "locked_ts", Value: at.UTC()},
	}
	if err := r.runDML(ctx, stmt, params); err != nil {
		return false, fmt.Errorf("LockMonth: %w", err)
	}
	return false, nil
}

var _ store.MonthRepository = (*Repository)(nil)
