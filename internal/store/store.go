// Package store defines the persistence interfaces used by the
// categorization pipeline. Implementations live in subpackages: bigquery
// for the warehouse and inmemory for tests and local single-user runs.
package store

import (
	"context"
	"time"

	"github.com/RonStack/leaky-buckets/internal/domain"
)

// Resolution carries the categorization fields a mutation may touch. These
// are the only transaction fields that change after insertion.
type Resolution struct {
	Bucket     string
	Confidence float64
	Source     string
	Reasoning  string
}

// TransactionRepository persists transactions and rejected raw rows.
type TransactionRepository interface {
	// InsertTransactions writes a batch of transactions.
	InsertTransactions(ctx context.Context, txs []*domain.Transaction) error

	// GetTransaction returns a transaction by id, or domain.ErrNotFound.
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)

	// ListTransactionsByMonth returns all transactions for a month key.
	ListTransactionsByMonth(ctx context.Context, monthKey string) ([]*domain.Transaction, error)

	// UpdateResolution overwrites the resolution fields of a transaction.
	// It does not check locks; callers enforce domain.ErrMonthLocked.
	UpdateResolution(ctx context.Context, id string, res Resolution) (*domain.Transaction, error)

	// SetMonthLocked flips the inherited locked flag on every transaction
	// of the month.
	SetMonthLocked(ctx context.Context, monthKey string) error

	// InsertRejectedRows retains unparseable input rows for manual handling.
	InsertRejectedRows(ctx context.Context, rows []domain.RejectedRow) error

	// ListRejectedRows returns the retained raw rows for an upload.
	ListRejectedRows(ctx context.Context, uploadID string) ([]domain.RejectedRow, error)
}

// MerchantRepository is the merchant memory: a pure mapping from merchant
// key to confirmed bucket, overwrite semantics, no history.
type MerchantRepository interface {
	// Lookup returns the entry for a key, or (nil, nil) when absent.
	Lookup(ctx context.Context, key string) (*domain.MerchantEntry, error)

	// ListAll returns every remembered merchant.
	ListAll(ctx context.Context) ([]*domain.MerchantEntry, error)

	// Upsert creates or overwrites the entry for its key.
	Upsert(ctx context.Context, entry *domain.MerchantEntry) error
}

// BucketRepository persists the user's spending buckets.
type BucketRepository interface {
	ListBuckets(ctx context.Context) ([]*domain.Bucket, error)

	// GetBucket returns a bucket by id, or domain.ErrNotFound.
	GetBucket(ctx context.Context, id string) (*domain.Bucket, error)

	// UpdateBucket applies the non-nil fields of upd.
	UpdateBucket(ctx context.Context, id string, upd domain.BucketUpdate) (*domain.Bucket, error)

	// CreateBucketIfMissing conditionally creates a bucket keyed by name.
	// It reports false without error when a bucket with that name already
	// exists; the existing row is never touched.
	CreateBucketIfMissing(ctx context.Context, b *domain.Bucket) (created bool, err error)
}

// MonthRepository tracks the one-way lock state per month.
type MonthRepository interface {
	// GetMonthState returns the state for a month; unknown months are open.
	GetMonthState(ctx context.Context, monthKey string) (*domain.MonthState, error)

	// LockMonth marks the month locked. It reports true when the month was
	// already locked; that is not an error.
	LockMonth(ctx context.Context, monthKey string, at time.Time) (already bool, err error)
}

// PaystubRepository persists extracted paystub income data.
type PaystubRepository interface {
	InsertPaystub(ctx context.Context, p *domain.Paystub) error
	ListPaystubsByMonth(ctx context.Context, monthKey string) ([]*domain.Paystub, error)
	DeletePaystub(ctx context.Context, id string) error
}

// BillRepository persists recurring bill definitions.
type BillRepository interface {
	InsertBill(ctx context.Context, b *domain.RecurringBill) error
	ListBills(ctx context.Context) ([]*domain.RecurringBill, error)
	DeleteBill(ctx context.Context, id string) error
}
