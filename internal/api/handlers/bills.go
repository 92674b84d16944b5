package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RonStack/leaky-buckets/internal/api/middleware"
	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// BillsHandler manages recurring bill definitions and applies them to
// months as materialized transactions.
type BillsHandler struct {
	bills        store.BillRepository
	transactions store.TransactionRepository
	months       store.MonthRepository
	log          zerolog.Logger
}

// NewBillsHandler creates a new bills handler.
func NewBillsHandler(bills store.BillRepository, transactions store.TransactionRepository, months store.MonthRepository, log zerolog.Logger) *BillsHandler {
	return &BillsHandler{bills: bills, transactions: transactions, months: months, log: log}
}

// Create handles POST /api/recurring-bills.
func (h *BillsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name       string  `json:"name"`
		Amount     float64 `json:"amount"`
		Bucket     string  `json:"bucket"`
		DayOfMonth int     `json:"dayOfMonth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Amount <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Bucket == "" {
		middleware.WriteError(w, http.StatusBadRequest, "bucket is required")
		return
	}
	if req.DayOfMonth < 0 || req.DayOfMonth > 28 {
		middleware.WriteError(w, http.StatusBadRequest, "dayOfMonth must be between 1 and 28")
		return
	}
	if req.DayOfMonth == 0 {
		req.DayOfMonth = 1
	}

	bill := &domain.RecurringBill{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Amount:     req.Amount,
		Bucket:     req.Bucket,
		DayOfMonth: req.DayOfMonth,
	}
	if err := h.bills.InsertBill(ctx, bill); err != nil {
		writeDomainError(w, h.log, err, "Failed to create bill")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, bill)
}

// List handles GET /api/recurring-bills.
func (h *BillsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bills, err := h.bills.ListBills(ctx)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to list bills")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bills": bills,
		"count": len(bills),
	})
}

// Delete handles DELETE /api/recurring-bills/{billId}.
func (h *BillsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "billId")

	if err := h.bills.DeleteBill(ctx, id); err != nil {
		writeDomainError(w, h.log, err, "Failed to delete bill")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Apply handles POST /api/recurring-bills/apply. Each bill becomes a
// manual transaction in the target month; bills already applied to that
// month are skipped, so the call is safe to repeat.
func (h *BillsHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req struct {
		MonthKey string `json:"monthKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !validMonthKey(req.MonthKey) {
		middleware.WriteError(w, http.StatusBadRequest, "monthKey is required (e.g., 2026-02)")
		return
	}

	state, err := h.months.GetMonthState(ctx, req.MonthKey)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to check month lock")
		return
	}
	if state.Locked {
		writeDomainError(w, h.log, fmt.Errorf("month %s: %w", req.MonthKey, domain.ErrMonthLocked), "")
		return
	}

	bills, err := h.bills.ListBills(ctx)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to list bills")
		return
	}
	if len(bills) == 0 {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"applied": 0, "skipped": 0, "message": "No recurring bills defined.",
		})
		return
	}

	existing, err := h.transactions.ListTransactionsByMonth(ctx, req.MonthKey)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to list transactions")
		return
	}
	applied := make(map[string]bool)
	for _, tx := range existing {
		if tx.CategorizationSource == domain.ResolutionRecurringBill {
			applied[tx.UploadID] = true
		}
	}

	monthStart, err := time.Parse("2006-01", req.MonthKey)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "monthKey is required (e.g., 2026-02)")
		return
	}

	var created []*domain.Transaction
	skipped := 0
	for _, bill := range bills {
		uploadID := "bill:" + bill.ID
		if applied[uploadID] {
			skipped++
			continue
		}
		day := bill.DayOfMonth
		if day < 1 {
			day = 1
		}
		created = append(created, &domain.Transaction{
			ID:                      uuid.New().String(),
			UserID:                  userID,
			MonthKey:                req.MonthKey,
			Date:                    monthStart.AddDate(0, 0, day-1),
			Description:             bill.Name,
			OriginalDescription:     bill.Name,
			Amount:                  -bill.Amount,
			Source:                  domain.SourceManual,
			Bucket:                  bill.Bucket,
			Confidence:              1.0,
			CategorizationSource:    domain.ResolutionRecurringBill,
			CategorizationReasoning: "Applied from recurring bill schedule.",
			UploadID:                uploadID,
			CreatedAt:               time.Now().UTC(),
		})
	}

	if len(created) > 0 {
		if err := h.transactions.InsertTransactions(ctx, created); err != nil {
			writeDomainError(w, h.log, err, "Failed to apply bills")
			return
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"applied": len(created),
		"skipped": skipped,
	})
}
