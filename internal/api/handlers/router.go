package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/RonStack/leaky-buckets/internal/api/middleware"
	"github.com/RonStack/leaky-buckets/internal/categorize"
	"github.com/RonStack/leaky-buckets/internal/ingest"
	"github.com/RonStack/leaky-buckets/internal/jobs"
	"github.com/RonStack/leaky-buckets/internal/store"
	"github.com/RonStack/leaky-buckets/internal/summary"
)

// Deps collects everything the router needs. All fields are required.
type Deps struct {
	Transactions store.TransactionRepository
	Merchants    store.MerchantRepository
	Buckets      store.BucketRepository
	Months       store.MonthRepository
	Paystubs     store.PaystubRepository
	Bills        store.BillRepository

	Ingest     *ingest.Service
	Reviewer   *categorize.Reviewer
	Aggregator *summary.Aggregator
	Jobs       jobs.Store

	ConfidenceThreshold float64
	Log                 zerolog.Logger
}

// NewRouter assembles the HTTP API.
func NewRouter(d Deps) http.Handler {
	uploads := NewUploadsHandler(d.Ingest, d.Transactions, d.Log)
	transactions := NewTransactionsHandler(d.Transactions, d.Merchants, d.Reviewer, d.ConfidenceThreshold, d.Log)
	buckets := NewBucketsHandler(d.Buckets, d.Log)
	months := NewMonthsHandler(d.Aggregator, d.Log)
	paystubs := NewPaystubsHandler(d.Paystubs, d.Log)
	expenses := NewExpensesHandler(d.Transactions, d.Months, d.Log)
	bills := NewBillsHandler(d.Bills, d.Transactions, d.Months, d.Log)
	jobsHandler := NewJobsHandler(d.Jobs, d.Log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.UserID)
	r.Use(middleware.Logger(d.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "X-User-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", uploads.Upload)
		r.Get("/uploads/{uploadId}/rejected", uploads.ListRejected)

		r.Get("/transactions", transactions.List)
		r.Put("/transactions/{transactionId}", transactions.Resolve)

		r.Get("/buckets", buckets.List)
		r.Put("/buckets/{bucketId}", buckets.Update)
		r.Post("/buckets/seed", buckets.Seed)

		r.Get("/months/{monthKey}", months.GetSummary)
		r.Post("/months/{monthKey}/lock", months.Lock)

		r.Get("/paystubs", paystubs.List)
		r.Delete("/paystubs/{paystubId}", paystubs.Delete)

		r.Post("/expenses", expenses.Create)

		r.Get("/recurring-bills", bills.List)
		r.Post("/recurring-bills", bills.Create)
		r.Delete("/recurring-bills/{billId}", bills.Delete)
		r.Post("/recurring-bills/apply", bills.Apply)

		r.Get("/jobs", jobsHandler.ListJobs)
		r.Get("/jobs/{jobId}", jobsHandler.GetJob)
	})

	return r
}
