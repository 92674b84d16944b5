package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RonStack/leaky-buckets/internal/api/middleware"
	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// ExpensesHandler records manual expenses in real time, outside any
// statement upload.
type ExpensesHandler struct {
	transactions store.TransactionRepository
	months       store.MonthRepository
	log          zerolog.Logger
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(transactions store.TransactionRepository, months store.MonthRepository, log zerolog.Logger) *ExpensesHandler {
	return &ExpensesHandler{transactions: transactions, months: months, log: log}
}

// Create handles POST /api/expenses. Manual entries carry an explicit
// bucket and never enter the review queue.
func (h *ExpensesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req struct {
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Bucket      string  `json:"bucket"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.Bucket == "" {
		middleware.WriteError(w, http.StatusBadRequest, "bucket is required")
		return
	}
	if req.Amount <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "date must be formatted as 2006-01-02")
			return
		}
	}
	monthKey := domain.MonthKeyOf(date)

	state, err := h.months.GetMonthState(ctx, monthKey)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to check month lock")
		return
	}
	if state.Locked {
		writeDomainError(w, h.log, fmt.Errorf("month %s: %w", monthKey, domain.ErrMonthLocked), "")
		return
	}

	tx := &domain.Transaction{
		ID:                      uuid.New().String(),
		UserID:                  userID,
		MonthKey:                monthKey,
		Date:                    date,
		Description:             req.Description,
		OriginalDescription:     req.Description,
		Amount:                  -req.Amount,
		Source:                  domain.SourceManual,
		Bucket:                  req.Bucket,
		Confidence:              1.0,
		CategorizationSource:    domain.ResolutionUserOverride,
		CategorizationReasoning: "Recorded manually.",
		CreatedAt:               time.Now().UTC(),
	}
	if err := h.transactions.InsertTransactions(ctx, []*domain.Transaction{tx}); err != nil {
		writeDomainError(w, h.log, err, "Failed to record expense")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}
