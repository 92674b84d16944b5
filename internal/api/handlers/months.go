package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RonStack/leaky-buckets/internal/api/middleware"
	"github.com/RonStack/leaky-buckets/internal/summary"
)

// MonthsHandler serves month summaries and the one-way lock.
type MonthsHandler struct {
	aggregator *summary.Aggregator
	log        zerolog.Logger
}

// NewMonthsHandler creates a new months handler.
func NewMonthsHandler(aggregator *summary.Aggregator, log zerolog.Logger) *MonthsHandler {
	return &MonthsHandler{aggregator: aggregator, log: log}
}

// GetSummary handles GET /api/months/{monthKey}. Summaries are always
// recomputed from the transactions, locked or not.
func (h *MonthsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	monthKey := chi.URLParam(r, "monthKey")
	if !validMonthKey(monthKey) {
		middleware.WriteError(w, http.StatusBadRequest, "monthKey path parameter required (e.g., 2026-01)")
		return
	}

	s, err := h.aggregator.Summarize(ctx, monthKey)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to summarize month")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, s)
}

// Lock handles POST /api/months/{monthKey}/lock. Locking an already locked
// month succeeds without changing anything.
func (h *MonthsHandler) Lock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	monthKey := chi.URLParam(r, "monthKey")
	if !validMonthKey(monthKey) {
		middleware.WriteError(w, http.StatusBadRequest, "monthKey path parameter required (e.g., 2026-01)")
		return
	}

	state, err := h.aggregator.Lock(ctx, monthKey)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to lock month")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, state)
}
