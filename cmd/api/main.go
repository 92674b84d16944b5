package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"

	"github.com/RonStack/leaky-buckets/internal/api/handlers"
	"github.com/RonStack/leaky-buckets/internal/blob"
	"github.com/RonStack/leaky-buckets/internal/categorize"
	"github.com/RonStack/leaky-buckets/internal/classify"
	"github.com/RonStack/leaky-buckets/internal/config"
	"github.com/RonStack/leaky-buckets/internal/ingest"
	jobsinmem "github.com/RonStack/leaky-buckets/internal/jobs/inmemory"
	"github.com/RonStack/leaky-buckets/internal/logger"
	"github.com/RonStack/leaky-buckets/internal/store"
	storebq "github.com/RonStack/leaky-buckets/internal/store/bigquery"
	storemem "github.com/RonStack/leaky-buckets/internal/store/inmemory"
	"github.com/RonStack/leaky-buckets/internal/summary"
)

// repositories is the full persistence surface the API needs. Both store
// implementations satisfy it.
type repositories interface {
	store.TransactionRepository
	store.MerchantRepository
	store.BucketRepository
	store.MonthRepository
	store.PaystubRepository
	store.BillRepository
}

func main() {
	var (
		storeKind = flag.String("store", "bigquery", "persistence backend: bigquery or memory")
		port      = flag.String("port", "", "HTTP server port (overrides config)")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	ctx := context.Background()

	var repos repositories
	switch *storeKind {
	case "bigquery":
		repo, err := storebq.NewRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		repos = repo
	case "memory":
		log.Warn().Msg("Using in-memory store - data will not survive a restart")
		repos = storemem.New()
	default:
		log.Fatal().Str("store", *storeKind).Msg("Unknown store backend")
	}

	var archive blob.Archive
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer gcs.Close()
		archive = blob.NewGCSArchive(gcs, cfg.Storage.Bucket)
	} else {
		log.Warn().Msg("No uploads bucket configured - archiving raw files in memory")
		archive = blob.NewMemoryArchive()
	}

	gemini, err := classify.NewGemini(ctx, cfg.Classifier.Model, cfg.Categorize.ChunkSize, repos)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini classifier")
	}

	categorizer := categorize.NewCategorizer(repos, gemini)

	// Job infrastructure for async PDF/image parsing.
	jobStore := jobsinmem.NewStore()
	jobQueue := jobsinmem.NewQueue(100, jobStore)

	svc := ingest.NewService(
		repos, repos, repos,
		archive, categorizer, gemini, gemini, jobQueue,
		cfg.Categorize.ConfidenceThreshold,
	)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, svc.ProcessDocumentJob); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	router := handlers.NewRouter(handlers.Deps{
		Transactions:        repos,
		Merchants:           repos,
		Buckets:             repos,
		Months:              repos,
		Paystubs:            repos,
		Bills:               repos,
		Ingest:              svc,
		Reviewer:            categorize.NewReviewer(repos, repos, repos),
		Aggregator:          summary.NewAggregator(repos, repos, repos, cfg.Categorize.ConfidenceThreshold, cfg.Summary.UnderRatio, cfg.Summary.NearRatio),
		Jobs:                jobStore,
		ConfidenceThreshold: cfg.Categorize.ConfidenceThreshold,
		Log:                 log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("store", *storeKind).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight parse jobs finish before exiting.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
