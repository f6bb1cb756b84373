package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finance-ledger/internal/classifier"
	"github.com/rs/zerolog"
)

// Backend names accepted in DATA_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Category catalog sources accepted in CATEGORY_SOURCE.
const (
	CategorySourceEmbedded = "embedded"
	CategorySourceFile     = "file"
	CategorySourceBigQuery = "bigquery"
)

type Config struct {
	// HTTP Server
	Port           string
	AllowedOrigins []string
	DefaultUserID  string

	// Logging
	LogLevel  string
	LogFormat string

	// Storage
	DataBackend  string
	DatabaseURL  string
	SQLiteDBPath string

	// Categories
	CategorySource  string
	CategoryCatalog string

	// AI suggestions
	GeminiAPIKey       string
	GeminiModel        string
	AITimeout          time.Duration
	RedisURL           string
	SuggestionCacheTTL time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Cloud
	GCPProject   string
	BQDataset    string
	ExportBucket string

	// Notion
	NotionToken      string
	NotionDatabaseID string

	// Dashboard
	RecentLimit int
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		DefaultUserID:  getEnv("DEFAULT_USER_ID", "local"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		CategorySource:  getEnv("CATEGORY_SOURCE", CategorySourceEmbedded),
		CategoryCatalog: getEnv("CATEGORY_CATALOG", ""),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", classifier.DefaultModelName),
		AITimeout:          getEnvDuration("AI_TIMEOUT", classifier.DefaultTimeout),
		RedisURL:           getEnv("REDIS_URL", ""),
		SuggestionCacheTTL: getEnvDuration("SUGGESTION_CACHE_TTL", 24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_warehouse"),

		GCPProject:   getEnv("GCP_PROJECT", ""),
		BQDataset:    getEnv("BQ_DATASET", "finance"),
		ExportBucket: getEnv("EXPORT_BUCKET", ""),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),

		RecentLimit: getEnvInt("RECENT_LIMIT", 10),
	}
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DefaultUserID) == "" {
		errors = append(errors, "default user ID cannot be empty")
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil || c.LogLevel == "" {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "console" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [console json]", c.LogFormat))
	}

	validBackends := []string{BackendMemory, BackendPostgres, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	switch c.DataBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: must be a postgres:// URL")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	}

	validSources := []string{CategorySourceEmbedded, CategorySourceFile, CategorySourceBigQuery}
	if !slices.Contains(validSources, c.CategorySource) {
		errors = append(errors, fmt.Sprintf("invalid category source '%s': must be one of %v", c.CategorySource, validSources))
	}
	if c.CategorySource == CategorySourceFile && c.CategoryCatalog == "" {
		errors = append(errors, "CATEGORY_CATALOG is required when using file category source")
	}
	if c.CategorySource == CategorySourceBigQuery && c.GCPProject == "" {
		errors = append(errors, "GCP_PROJECT is required when using bigquery category source")
	}

	if c.AITimeout <= 0 || c.AITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be between 0 and 5 minutes", c.AITimeout))
	}
	if c.SuggestionCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid suggestion cache TTL %v: must not be negative", c.SuggestionCacheTTL))
	}
	if c.RedisURL != "" {
		if u, err := url.Parse(c.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': scheme must be 'redis' or 'rediss'", c.RedisURL))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.NotionToken == "") != (c.NotionDatabaseID == "") {
		errors = append(errors, "NOTION_TOKEN and NOTION_DATABASE_ID must be set together")
	}

	if c.RecentLimit < 1 || c.RecentLimit > 100 {
		errors = append(errors, fmt.Sprintf("invalid recent limit %d: must be between 1 and 100", c.RecentLimit))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// AIEnabled reports whether a Gemini key is configured.
func (c *Config) AIEnabled() bool { return c.GeminiAPIKey != "" }

// NotionEnabled reports whether the Notion mirror is configured.
func (c *Config) NotionEnabled() bool { return c.NotionToken != "" && c.NotionDatabaseID != "" }

// WarehouseEnabled reports whether BigQuery is configured.
func (c *Config) WarehouseEnabled() bool { return c.GCPProject != "" }

// ListenAddr is the HTTP listen address.
func (c *Config) ListenAddr() string { return ":" + c.Port }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
