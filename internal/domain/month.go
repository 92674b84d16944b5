package domain

import "time"

// BucketStatus is the tri-state position of a bucket against its target.
type BucketStatus string

const (
	StatusUnder BucketStatus = "under"
	StatusNear  BucketStatus = "near"
	StatusOver  BucketStatus = "over"
)

// MonthState tracks the lock flag for a month. The only transition is
// open → locked; there is no way back.
type MonthState struct {
	MonthKey string     `json:"monthKey"`
	Locked   bool       `json:"locked"`
	LockedAt *time.Time `json:"lockedAt,omitempty"`
}

// BucketSummary is the per-bucket slice of a month summary.
type BucketSummary struct {
	BucketID        string       `json:"bucketId"`
	Name            string       `json:"name"`
	Emoji           string       `json:"emoji"`
	Spent           float64      `json:"spent"`
	Target          float64      `json:"target"`
	Count           int          `json:"count"`
	PercentOfTarget float64      `json:"percentOfTarget"`
	Status          BucketStatus `json:"status"`
}

// MonthSummary is a derived view over a month's transactions. It is never
// stored authoritatively; every read recomputes it.
type MonthSummary struct {
	MonthKey         string          `json:"monthKey"`
	Locked           bool            `json:"locked"`
	TotalSpent       float64         `json:"totalSpent"`
	TotalIncome      float64         `json:"totalIncome"`
	TransactionCount int             `json:"transactionCount"`
	NeedsReview      int             `json:"needsReview"`
	Buckets          []BucketSummary `json:"buckets"`
}
