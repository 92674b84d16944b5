package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RonStack/leaky-buckets/internal/api/middleware"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// PaystubsHandler serves extracted income data.
type PaystubsHandler struct {
	paystubs store.PaystubRepository
	log      zerolog.Logger
}

// NewPaystubsHandler creates a new paystubs handler.
func NewPaystubsHandler(paystubs store.PaystubRepository, log zerolog.Logger) *PaystubsHandler {
	return &PaystubsHandler{paystubs: paystubs, log: log}
}

// List handles GET /api/paystubs?monthKey=2026-01.
func (h *PaystubsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	monthKey := r.URL.Query().Get("monthKey")
	if !validMonthKey(monthKey) {
		middleware.WriteError(w, http.StatusBadRequest, "monthKey query parameter is required (e.g., 2026-01)")
		return
	}

	stubs, err := h.paystubs.ListPaystubsByMonth(ctx, monthKey)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to list paystubs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"monthKey": monthKey,
		"paystubs": stubs,
		"count":    len(stubs),
	})
}

// Delete handles DELETE /api/paystubs/{paystubId}.
func (h *PaystubsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "paystubId")

	if err := h.paystubs.DeletePaystub(ctx, id); err != nil {
		writeDomainError(w, h.log, err, "Failed to delete paystub")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
