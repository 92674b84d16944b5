package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RonStack/leaky-buckets/internal/api/middleware"
	"github.com/RonStack/leaky-buckets/internal/categorize"
	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// TransactionsHandler serves the review queue and manual resolutions.
type TransactionsHandler struct {
	transactions store.TransactionRepository
	merchants    store.MerchantRepository
	reviewer     *categorize.Reviewer
	threshold    float64
	log          zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(transactions store.TransactionRepository, merchants store.MerchantRepository, reviewer *categorize.Reviewer, threshold float64, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		transactions: transactions,
		merchants:    merchants,
		reviewer:     reviewer,
		threshold:    threshold,
		log:          log,
	}
}

// List handles GET /api/transactions?monthKey=2026-01. The response is
// split into the review queue (with near-match merchant suggestions) and
// the already-categorized rest.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	monthKey := r.URL.Query().Get("monthKey")
	if !validMonthKey(monthKey) {
		middleware.WriteError(w, http.StatusBadRequest, "monthKey query parameter is required (e.g., 2026-01)")
		return
	}

	txs, err := h.transactions.ListTransactionsByMonth(ctx, monthKey)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to list transactions")
		return
	}

	needsReview, categorized := categorize.Partition(txs, h.threshold)

	items := make([]categorize.ReviewItem, 0, len(needsReview))
	if len(needsReview) > 0 {
		entries, err := h.merchants.ListAll(ctx)
		if err != nil {
			writeDomainError(w, h.log, err, "Failed to load merchant memory")
			return
		}
		for _, tx := range needsReview {
			items = append(items, categorize.ReviewItem{
				Transaction: tx,
				Suggestions: categorize.Suggest(tx, entries),
			})
		}
	}

	if categorized == nil {
		categorized = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"monthKey":    monthKey,
		"total":       len(txs),
		"needsReview": items,
		"categorized": categorized,
	})
}

// Resolve handles PUT /api/transactions/{transactionId}: a user-confirmed
// bucket, optionally remembered for future uploads of the same merchant.
func (h *TransactionsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "transactionId")

	var req struct {
		Bucket           string `json:"bucket"`
		RememberMerchant bool   `json:"rememberMerchant"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Bucket == "" {
		middleware.WriteError(w, http.StatusBadRequest, "bucket is required")
		return
	}

	tx, err := h.reviewer.Resolve(ctx, id, req.Bucket, req.RememberMerchant)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to resolve transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}
