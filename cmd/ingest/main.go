// Command ingest runs the categorization pipeline over a single CSV
// export from the command line, bypassing the API server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"

	"github.com/RonStack/leaky-buckets/internal/blob"
	"github.com/RonStack/leaky-buckets/internal/categorize"
	"github.com/RonStack/leaky-buckets/internal/classify"
	"github.com/RonStack/leaky-buckets/internal/config"
	"github.com/RonStack/leaky-buckets/internal/domain"
	"github.com/RonStack/leaky-buckets/internal/ingest"
	jobsinmem "github.com/RonStack/leaky-buckets/internal/jobs/inmemory"
	"github.com/RonStack/leaky-buckets/internal/logger"
	storebq "github.com/RonStack/leaky-buckets/internal/store/bigquery"
)

func main() {
	log := logger.New()

	var (
		file   = flag.String("file", "", "path of the CSV export to ingest")
		source = flag.String("source", "bank", "statement source: bank or credit_card")
		user   = flag.String("user", "cli", "user id to attribute the upload to")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}
	src := domain.Source(*source)
	if src != domain.SourceBank && src != domain.SourceCreditCard {
		log.Fatal().Str("source", *source).Msg("Error: --source must be bank or credit_card")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read CSV file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := storebq.NewRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	var archive blob.Archive
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer gcs.Close()
		archive = blob.NewGCSArchive(gcs, cfg.Storage.Bucket)
	} else {
		archive = blob.NewMemoryArchive()
	}

	gemini, err := classify.NewGemini(ctx, cfg.Classifier.Model, cfg.Categorize.ChunkSize, repo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini classifier")
	}

	// The CSV path never publishes jobs, but the service wants a publisher.
	queue := jobsinmem.NewQueue(1, jobsinmem.NewStore())
	defer queue.Close()

	svc := ingest.NewService(
		repo, repo, repo,
		archive, categorize.NewCategorizer(repo, gemini), gemini, gemini, queue,
		cfg.Categorize.ConfidenceThreshold,
	)

	log.Info().Str("file", *file).Str("source", *source).Msg("Starting ingestion")

	receipt, err := svc.IngestCSV(ctx, *user, filepath.Base(*file), raw, src)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	out, _ := json.MarshalIndent(receipt, "", "  ")
	fmt.Println(string(out))
}
