// Command export-notion pushes a month's summary to the household Notion
// dashboard. Typically run right after locking the month.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/RonStack/leaky-buckets/internal/config"
	"github.com/RonStack/leaky-buckets/internal/logger"
	"github.com/RonStack/leaky-buckets/internal/notion"
	storebq "github.com/RonStack/leaky-buckets/internal/store/bigquery"
	"github.com/RonStack/leaky-buckets/internal/summary"
)

var monthKeyRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

func main() {
	log := logger.New()

	var (
		monthKey   = flag.String("month", "", "month to export in YYYY-MM format (required)")
		databaseID = flag.String("notion-db-id", "", "Notion database ID (overrides config)")
	)
	flag.Parse()

	if !monthKeyRe.MatchString(*monthKey) {
		log.Fatal().Msg("Error: --month is required, in YYYY-MM format")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *databaseID == "" {
		*databaseID = cfg.Notion.DatabaseID
	}
	if *databaseID == "" {
		log.Fatal().Msg("Error: --notion-db-id or config notion.database_id is required")
	}

	token := os.Getenv(cfg.Notion.TokenEnv)
	if token == "" {
		log.Fatal().Str("env", cfg.Notion.TokenEnv).Msg("Error: Notion token env var is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := storebq.NewRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	agg := summary.NewAggregator(repo, repo, repo,
		cfg.Categorize.ConfidenceThreshold, cfg.Summary.UnderRatio, cfg.Summary.NearRatio)

	s, err := agg.Summarize(ctx, *monthKey)
	if err != nil {
		log.Fatal().Err(err).Str("month", *monthKey).Msg("Failed to summarize month")
	}
	if !s.Locked {
		log.Warn().Str("month", *monthKey).Msg("Exporting an unlocked month - totals may still change")
	}

	exporter := notion.NewExporter(notion.NewClient(token), *databaseID)
	if err := exporter.ExportMonth(ctx, s); err != nil {
		log.Fatal().Err(err).Msg("Notion export failed")
	}

	fmt.Printf("Exported %s to Notion.\n", *monthKey)
}
