package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	BigQuery   BigQueryConfig
	Classifier ClassifierConfig
	Categorize CategorizeConfig
	Summary    SummaryConfig
	Notion     NotionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// StorageConfig holds the raw-upload archive settings.
type StorageConfig struct {
	Bucket string
}

// BigQueryConfig locates the warehouse dataset.
type BigQueryConfig struct {
	Project string
	Dataset string
}

// ClassifierConfig holds the external classification model settings.
type ClassifierConfig struct {
	Model string
}

// CategorizeConfig holds the categorization pipeline constants.
type CategorizeConfig struct {
	// ConfidenceThreshold routes transactions with confidence strictly
	// below this value to the review queue.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`

	// ChunkSize is the max distinct merchants per external classification
	// call.
	ChunkSize int `mapstructure:"chunk_size"`
}

// SummaryConfig holds the bucket status tier cut points, as ratios of the
// monthly target: spent <= under*target is "under", <= near*target is
// "near", anything above is "over".
type SummaryConfig struct {
	UnderRatio float64 `mapstructure:"under_ratio"`
	NearRatio  float64 `mapstructure:"near_ratio"`
}

// NotionConfig holds export settings.
type NotionConfig struct {
	TokenEnv   string `mapstructure:"token_env"`
	DatabaseID string `mapstructure:"database_id"`
}

// Load reads configuration from file and env. Env var overrides use the
// prefix LEAKYBUCKETS_, e.g. LEAKYBUCKETS_CATEGORIZE_CHUNK_SIZE.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("storage.bucket", os.Getenv("UPLOADS_BUCKET"))
	v.SetDefault("bigquery.project", os.Getenv("GOOGLE_CLOUD_PROJECT"))
	v.SetDefault("bigquery.dataset", "household")
	v.SetDefault("classifier.model", "gemini-2.5-flash")
	v.SetDefault("categorize.confidence_threshold", 0.7)
	v.SetDefault("categorize.chunk_size", 20)
	v.SetDefault("summary.under_ratio", 0.8)
	v.SetDefault("summary.near_ratio", 1.0)
	v.SetDefault("notion.token_env", "NOTION_TOKEN")
	v.SetDefault("notion.database_id", "")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LEAKYBUCKETS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "leaky-buckets"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEAKYBUCKETS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
