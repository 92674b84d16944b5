package summary

import (
	"context"
	"testing"
	"time"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store/inmemory"
)

func seed(t *testing.T, st *inmemory.Store) {
	t.Helper()
	ctx := context.Background()
	buckets := []*domain.Bucket{
		{ID: "b1", Name: "Groceries", Emoji: "🛒", MonthlyTarget: 100.00, DisplayOrder: 1},
		{ID: "b2", Name: "Dining & Coffee", Emoji: "☕", MonthlyTarget: 50.00, DisplayOrder: 2},
		{ID: "b3", Name: "Fun & Travel", Emoji: "🎉", DisplayOrder: 3},
	}
	for _, b := range buckets {
		if _, err := st.CreateBucketIfMissing(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	txs := []*domain.Transaction{
		{ID: "t1", MonthKey: "2026-01", Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			Description: "WHOLE FOODS", Amount: -52.13, Bucket: "Groceries", Confidence: 0.95},
		{ID: "t2", MonthKey: "2026-01", Date: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
			Description: "TRADER JOES", Amount: -18.57, Bucket: "Groceries", Confidence: 1.0},
		{ID: "t3", MonthKey: "2026-01", Date: time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
			Description: "STARBUCKS", Amount: -5.49, Bucket: "Dining & Coffee", Confidence: 0.9},
		{ID: "t4", MonthKey: "2026-01", Date: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
			Description: "MYSTERY", Amount: -12.00, Confidence: 0},
		{ID: "t5", MonthKey: "2026-01", Date: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			Description: "PAYROLL", Amount: 2450.00, Bucket: "Groceries", Confidence: 1.0},
	}
	if err := st.InsertTransactions(context.Background(), txs); err != nil {
		t.Fatal(err)
	}
}

func newAggregator(st *inmemory.Store) *Aggregator {
	return NewAggregator(st, st, st, 0.7, 0.8, 1.0)
}

func TestSummarize(t *testing.T) {
	st := inmemory.New()
	seed(t, st)
	a := newAggregator(st)

	got, err := a.Summarize(context.Background(), "2026-01")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if got.TotalSpent != 88.19 {
		t.Errorf("totalSpent = %v, want 88.19", got.TotalSpent)
	}
	if got.TotalIncome != 2450.00 {
		t.Errorf("totalIncome = %v, want 2450.00", got.TotalIncome)
	}
	if got.TransactionCount != 5 {
		t.Errorf("transactionCount = %v, want 5", got.TransactionCount)
	}
	if got.NeedsReview != 1 {
		t.Errorf("needsReview = %v, want 1", got.NeedsReview)
	}
	if got.Locked {
		t.Error("month should be open")
	}

	byName := map[string]domain.BucketSummary{}
	for _, b := range got.Buckets {
		byName[b.Name] = b
	}

	groceries := byName["Groceries"]
	if groceries.Spent != 70.70 {
		t.Errorf("groceries spent = %v, want 70.70", groceries.Spent)
	}
	if groceries.Count != 2 {
		t.Errorf("groceries count = %v, want 2 (income row not counted)", groceries.Count)
	}
	if groceries.PercentOfTarget != 70.7 {
		t.Errorf("groceries pct = %v, want 70.7", groceries.PercentOfTarget)
	}
	if groceries.Status != domain.StatusUnder {
		t.Errorf("groceries status = %q, want under", groceries.Status)
	}

	if byName["Fun & Travel"].Status != domain.StatusUnder {
		t.Errorf("no-target bucket status = %q, want under", byName["Fun & Travel"].Status)
	}
}

func TestStatusTiers(t *testing.T) {
	tests := []struct {
		name   string
		spent  float64
		target float64
		want   domain.BucketStatus
	}{
		{"zero spend", 0, 100, domain.StatusUnder},
		{"at under cut", 80.00, 100, domain.StatusUnder},
		{"just over under cut", 80.01, 100, domain.StatusNear},
		{"at target", 100.00, 100, domain.StatusNear},
		{"over target", 100.01, 100, domain.StatusOver},
		{"no target", 500, 0, domain.StatusUnder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := inmemory.New()
			ctx := context.Background()
			if _, err := st.CreateBucketIfMissing(ctx, &domain.Bucket{ID: "b", Name: "B", MonthlyTarget: tt.target}); err != nil {
				t.Fatal(err)
			}
			if err := st.InsertTransactions(ctx, []*domain.Transaction{{
				ID: "t", MonthKey: "2026-02", Date: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
				Description: "X", Amount: -tt.spent, Bucket: "B", Confidence: 1,
			}}); err != nil {
				t.Fatal(err)
			}
			got, err := newAggregator(st).Summarize(ctx, "2026-02")
			if err != nil {
				t.Fatal(err)
			}
			if got.Buckets[0].Status != tt.want {
				t.Errorf("status = %q, want %q", got.Buckets[0].Status, tt.want)
			}
		})
	}
}

func TestLock_Idempotent(t *testing.T) {
	st := inmemory.New()
	seed(t, st)
	a := newAggregator(st)
	ctx := context.Background()

	state, err := a.Lock(ctx, "2026-01")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if !state.Locked || state.LockedAt == nil {
		t.Fatalf("state = %+v, want locked with timestamp", state)
	}
	firstLockedAt := *state.LockedAt

	// second lock is a no-op, not an error, and keeps the original stamp
	state, err = a.Lock(ctx, "2026-01")
	if err != nil {
		t.Fatalf("second Lock() error = %v", err)
	}
	if !state.Locked {
		t.Fatal("month must stay locked")
	}
	if state.LockedAt == nil || !state.LockedAt.Equal(firstLockedAt) {
		t.Errorf("lockedAt = %v, want original %v", state.LockedAt, firstLockedAt)
	}

	// transactions inherit the flag
	txs, err := st.ListTransactionsByMonth(ctx, "2026-01")
	if err != nil {
		t.Fatal(err)
	}
	for _, tx := range txs {
		if !tx.Locked {
			t.Errorf("transaction %s not stamped locked", tx.ID)
		}
	}

	sum, err := a.Summarize(ctx, "2026-01")
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Locked {
		t.Error("summary must report locked month")
	}
}

func TestSummarize_EmptyMonth(t *testing.T) {
	st := inmemory.New()
	a := newAggregator(st)
	got, err := a.Summarize(context.Background(), "2027-03")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got.TotalSpent != 0 || got.TransactionCount != 0 || got.Locked {
		t.Errorf("empty month summary = %+v", got)
	}
}
