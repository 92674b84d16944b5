package categorize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// ReviewItem is one transaction awaiting manual confirmation, with
// near-match merchant-memory suggestions attached for display.
type ReviewItem struct {
	Transaction *domain.Transaction `json:"transaction"`
	Suggestions []MemorySuggestion  `json:"suggestions,omitempty"`
}

// MemorySuggestion is a remembered merchant whose key nearly matches the
// transaction under review.
type MemorySuggestion struct {
	MerchantKey string `json:"merchantKey"`
	Bucket      string `json:"bucket"`
	Distance    int    `json:"distance"`
}

// Near-match cutoff for review suggestions.
const maxSuggestionDistance = 2

// Partition splits a month's transactions into those needing review
// (no bucket, or confidence strictly below threshold) and the rest.
func Partition(txs []*domain.Transaction, threshold float64) (needsReview, categorized []*domain.Transaction) {
	for _, tx := range txs {
		if tx.NeedsReview(threshold) {
			needsReview = append(needsReview, tx)
		} else {
			categorized = append(categorized, tx)
		}
	}
	return needsReview, categorized
}

// Suggest ranks remembered merchants by edit distance to the transaction's
// merchant key and keeps the near matches. Display-only; no resolution is
// made from these automatically.
func Suggest(tx *domain.Transaction, entries []*domain.MerchantEntry) []MemorySuggestion {
	key := domain.MerchantKey(tx.Description)
	var out []MemorySuggestion
	for _, e := range entries {
		d := levenshtein.ComputeDistance(key, strings.ToLower(e.Key))
		if d <= maxSuggestionDistance {
			out = append(out, MemorySuggestion{
				MerchantKey: e.Key,
				Bucket:      e.Bucket,
				Distance:    d,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].MerchantKey < out[j].MerchantKey
	})
	return out
}

// Reviewer handles the manual resolve path, the only way a transaction's
// bucket can change after initial categorization.
type Reviewer struct {
	transactions store.TransactionRepository
	merchants    store.MerchantRepository
	months       store.MonthRepository
}

// NewReviewer wires a reviewer.
func NewReviewer(transactions store.TransactionRepository, merchants store.MerchantRepository, months store.MonthRepository) *Reviewer {
	return &Reviewer{transactions: transactions, merchants: merchants, months: months}
}

// Resolve sets an explicit bucket on a transaction with confidence 1.0.
// It fails with domain.ErrNotFound for an unknown id and domain.ErrMonthLocked
// when the owning month is locked, leaving the transaction unchanged.
// With remember, the merchant mapping is upserted so future uploads of the
// same description resolve without the model.
func (r *Reviewer) Resolve(ctx context.Context, id, bucket string, remember bool) (*domain.Transaction, error) {
	tx, err := r.transactions.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	state, err := r.months.GetMonthState(ctx, tx.MonthKey)
	if err != nil {
		return nil, fmt.Errorf("Resolve: month state: %w", err)
	}
	if state.Locked || tx.Locked {
		return nil, fmt.Errorf("month %s: %w", tx.MonthKey, domain.ErrMonthLocked)
	}

	updated, err := r.transactions.UpdateResolution(ctx, id, store.Resolution{
		Bucket:     bucket,
		Confidence: 1.0,
		Source:     domain.ResolutionUserOverride,
		Reasoning:  "Manually confirmed during review.",
	})
	if err != nil {
		return nil, fmt.Errorf("Resolve: update: %w", err)
	}

	if remember {
		entry := &domain.MerchantEntry{
			Key:                 domain.MerchantKey(tx.Description),
			Bucket:              bucket,
			OriginalDescription: tx.Description,
			UpdatedAt:           time.Now().UTC(),
		}
		if err := r.merchants.Upsert(ctx, entry); err != nil {
			return nil, fmt.Errorf("Resolve: remembering merchant: %w", err)
		}
	}
	return updated, nil
}
