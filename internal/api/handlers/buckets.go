package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RonStack/leaky-buckets/internal/api/middleware"
	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/store"
)

// BucketsHandler manages the household's spending buckets.
type BucketsHandler struct {
	buckets store.BucketRepository
	log     zerolog.Logger
}

// NewBucketsHandler creates a new buckets handler.
func NewBucketsHandler(buckets store.BucketRepository, log zerolog.Logger) *BucketsHandler {
	return &BucketsHandler{buckets: buckets, log: log}
}

// List handles GET /api/buckets.
func (h *BucketsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	buckets, err := h.buckets.ListBuckets(ctx)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to list buckets")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"buckets": buckets,
		"count":   len(buckets),
	})
}

// Update handles PUT /api/buckets/{bucketId}: rename, re-emoji, or retarget.
func (h *BucketsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "bucketId")

	var upd domain.BucketUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if upd.Name == nil && upd.Emoji == nil && upd.MonthlyTarget == nil {
		middleware.WriteError(w, http.StatusBadRequest, "No fields to update")
		return
	}
	if upd.MonthlyTarget != nil && *upd.MonthlyTarget < 0 {
		middleware.WriteError(w, http.StatusBadRequest, "monthlyTarget must not be negative")
		return
	}

	bucket, err := h.buckets.UpdateBucket(ctx, id, upd)
	if err != nil {
		writeDomainError(w, h.log, err, "Failed to update bucket")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, bucket)
}

// Seed handles POST /api/buckets/seed: conditionally creates the default
// bucket set. Existing buckets, including user edits, are never touched,
// so seeding is safe to repeat.
func (h *BucketsHandler) Seed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var created, skipped int
	for _, b := range domain.DefaultBuckets() {
		bucket := b
		bucket.ID = uuid.New().String()
		ok, err := h.buckets.CreateBucketIfMissing(ctx, &bucket)
		if err != nil {
			writeDomainError(w, h.log, err, "Failed to seed buckets")
			return
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]int{
		"created": created,
		"skipped": skipped,
	})
}
