// Package summary computes the derived month view: per-bucket spend
// against targets with tri-state status, and the one-way month lock.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/logger"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// Aggregator computes month summaries. Nothing is cached; every call
// recomputes from the transactions of record.
type Aggregator struct {
	transactions store.TransactionRepository
	buckets      store.BucketRepository
	months       store.MonthRepository

	// Review threshold and status tier cut points as ratios of the
	// monthly target.
	confidenceThreshold float64
	underRatio          float64
	nearRatio           float64
}

// NewAggregator wires an aggregator with its tier configuration.
func NewAggregator(transactions store.TransactionRepository, buckets store.BucketRepository, months store.MonthRepository, confidenceThreshold, underRatio, nearRatio float64) *Aggregator {
	return &Aggregator{
		transactions:        transactions,
		buckets:             buckets,
		months:              months,
		confidenceThreshold: confidenceThreshold,
		underRatio:          underRatio,
		nearRatio:           nearRatio,
	}
}

// Summarize computes the month view for a month key. Spend is the sum of
// negative amounts (money leaving), income the sum of positive ones;
// decimal arithmetic keeps cents exact across the sums.
func (a *Aggregator) Summarize(ctx context.Context, monthKey string) (*domain.MonthSummary, error) {
	txs, err := a.transactions.ListTransactionsByMonth(ctx, monthKey)
	if err != nil {
		return nil, fmt.Errorf("Summarize: listing transactions: %w", err)
	}
	buckets, err := a.buckets.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("Summarize: listing buckets: %w", err)
	}
	state, err := a.months.GetMonthState(ctx, monthKey)
	if err != nil {
		return nil, fmt.Errorf("Summarize: month state: %w", err)
	}

	spentByBucket := make(map[string]decimal.Decimal, len(buckets))
	countByBucket := make(map[string]int, len(buckets))
	totalSpent := decimal.Zero
	totalIncome := decimal.Zero
	needsReview := 0

	for _, tx := range txs {
		amt := decimal.NewFromFloat(tx.Amount)
		if amt.IsNegative() {
			totalSpent = totalSpent.Add(amt.Neg())
			if tx.Bucket != "" {
				spentByBucket[tx.Bucket] = spentByBucket[tx.Bucket].Add(amt.Neg())
				countByBucket[tx.Bucket]++
			}
		} else {
			totalIncome = totalIncome.Add(amt)
		}
		if tx.NeedsReview(a.confidenceThreshold) {
			needsReview++
		}
	}

	summary := &domain.MonthSummary{
		MonthKey:         monthKey,
		Locked:           state.Locked,
		TransactionCount: len(txs),
		NeedsReview:      needsReview,
	}
	summary.TotalSpent, _ = totalSpent.Round(2).Float64()
	summary.TotalIncome, _ = totalIncome.Round(2).Float64()

	for _, b := range buckets {
		spent := spentByBucket[b.Name]
		bs := domain.BucketSummary{
			BucketID: b.ID,
			Name:     b.Name,
			Emoji:    b.Emoji,
			Target:   b.MonthlyTarget,
			Count:    countByBucket[b.Name],
			Status:   a.status(spent, b.MonthlyTarget),
		}
		bs.Spent, _ = spent.Round(2).Float64()
		if b.MonthlyTarget > 0 {
			pct := spent.Div(decimal.NewFromFloat(b.MonthlyTarget)).Mul(decimal.NewFromInt(100))
			bs.PercentOfTarget, _ = pct.Round(1).Float64()
		}
		summary.Buckets = append(summary.Buckets, bs)
	}
	return summary, nil
}

// status places spend into one of three ordered tiers against the target.
// A bucket with no target is always under.
func (a *Aggregator) status(spent decimal.Decimal, target float64) domain.BucketStatus {
	if target <= 0 {
		return domain.StatusUnder
	}
	t := decimal.NewFromFloat(target)
	switch {
	case spent.LessThanOrEqual(t.Mul(decimal.NewFromFloat(a.underRatio))):
		return domain.StatusUnder
	case spent.LessThanOrEqual(t.Mul(decimal.NewFromFloat(a.nearRatio))):
		return domain.StatusNear
	default:
		return domain.StatusOver
	}
}

// Lock transitions a month to locked. The transition is one-way and
// idempotent: locking an already locked month is a no-op. The inherited
// locked flag is also stamped on the month's transactions so reads carry it
// without a join.
func (a *Aggregator) Lock(ctx context.Context, monthKey string) (*domain.MonthState, error) {
	log := logger.FromContext(ctx)

	already, err := a.months.LockMonth(ctx, monthKey, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("Lock: %w", err)
	}
	if already {
		log.Info().Str("month", monthKey).Msg("month already locked")
		return a.months.GetMonthState(ctx, monthKey)
	}

	if err := a.transactions.SetMonthLocked(ctx, monthKey); err != nil {
		return nil, fmt.Errorf("Lock: stamping transactions: %w", err)
	}
	log.Info().Str("month", monthKey).Msg("month locked")
	return a.months.GetMonthState(ctx, monthKey)
}
