// Package categorize resolves transactions to buckets: merchant memory
// first, then a batched model call for the distinct unresolved
// descriptions, then the review-queue derivation and the user resolve
// path that writes memory back.
package categorize

import (
	"context"
	"fmt"

	"github.com/RonStack/leaky-buckets/internal/classify"
	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/logger"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// Categorizer fills the resolution fields of freshly normalized
// transactions. Merchant memory always wins over the model.
type Categorizer struct {
	merchants  store.MerchantRepository
	classifier classify.BatchCategorizer
}

// NewCategorizer wires a categorizer.
func NewCategorizer(merchants store.MerchantRepository, classifier classify.BatchCategorizer) *Categorizer {
	return &Categorizer{merchants: merchants, classifier: classifier}
}

// Categorize mutates only the resolution fields (bucket, confidence,
// source, reasoning) of txs. A classifier outage degrades every unresolved
// transaction to an ai_error resolution instead of failing; only merchant
// memory read errors propagate.
func (c *Categorizer) Categorize(ctx context.Context, txs []*domain.Transaction) error {
	log := logger.FromContext(ctx)

	// 1. Merchant memory pass. Hits are settled with confidence 1.0 and
	// never reach the classifier.
	type pending struct {
		tx  *domain.Transaction
		key string
	}
	var unresolved []pending
	for _, tx := range txs {
		key := domain.MerchantKey(tx.Description)
		entry, err := c.merchants.Lookup(ctx, key)
		if err != nil {
			return fmt.Errorf("Categorize: merchant lookup: %w", err)
		}
		if entry != nil && entry.Bucket != "" {
			tx.Bucket = entry.Bucket
			tx.Confidence = 1.0
			tx.CategorizationSource = domain.ResolutionMerchantMemory
			tx.CategorizationReasoning = fmt.Sprintf("Merchant %q previously categorized by user.", tx.Description)
			continue
		}
		unresolved = append(unresolved, pending{tx: tx, key: key})
	}
	if len(unresolved) == 0 {
		return nil
	}

	// 2. Classify each distinct description once, in input order.
	seen := make(map[string]bool, len(unresolved))
	var distinct []string
	for _, p := range unresolved {
		if !seen[p.tx.Description] {
			seen[p.tx.Description] = true
			distinct = append(distinct, p.tx.Description)
		}
	}
	log.Info().Int("transactions", len(unresolved)).Int("distinct", len(distinct)).
		Msg("categorizing via classifier")

	suggestions, err := c.classifier.CategorizeBatch(ctx, distinct)
	if err != nil {
		// Degrade: everything unresolved goes to review.
		log.Error().Err(err).Msg("batch classification unavailable")
		suggestions = nil
	}

	// 3. Map suggestions back to every transaction sharing a description.
	for _, p := range unresolved {
		s, ok := suggestions[p.tx.Description]
		if !ok {
			s = classify.Suggestion{
				Source:    domain.ResolutionAIError,
				Reasoning: "No classification result returned for this transaction.",
			}
		}
		p.tx.Bucket = s.Bucket
		p.tx.Confidence = s.Confidence
		p.tx.CategorizationSource = s.Source
		p.tx.CategorizationReasoning = s.Reasoning
	}
	return nil
}
