package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Server
	Port string

	// Local store
	DBPath string

	// Remote peer
	RemoteURL      string
	RemoteAPIKey   string
	RequestTimeout time.Duration

	// Sync worker
	SyncInterval    time.Duration
	UploadBatchSize int
	BackoffBase     time.Duration
	BackoffCap      time.Duration

	// Validation
	MaxAmount      string // decimal magnitude ceiling for a single transaction
	ClockSkew      time.Duration
	DescriptionCap int
	CategoryCap    int

	// Deduplication window, in calendar days. 1 means same calendar day.
	DedupWindowDays int

	// Tombstone retention before purge.
	TombstoneRetention time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("DB_PATH", "paisa.db"),

		RemoteURL:    getEnv("REMOTE_URL", ""),
		RemoteAPIKey: getEnv("REMOTE_API_KEY", ""),

		MaxAmount:      getEnv("MAX_AMOUNT", "10000000"),
		DescriptionCap: getEnvInt("DESCRIPTION_CAP", 500),
		CategoryCap:    getEnvInt("CATEGORY_CAP", 100),

		UploadBatchSize: getEnvInt("UPLOAD_BATCH_SIZE", 50),
		DedupWindowDays: getEnvInt("DEDUP_WINDOW_DAYS", 1),
	}

	config.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
	config.SyncInterval = getEnvDuration("SYNC_INTERVAL", 30*time.Second)
	config.BackoffBase = getEnvDuration("BACKOFF_BASE", 2*time.Second)
	config.BackoffCap = getEnvDuration("BACKOFF_CAP", 5*time.Minute)
	config.ClockSkew = getEnvDuration("CLOCK_SKEW_TOLERANCE", 5*time.Minute)
	config.TombstoneRetention = getEnvDuration("TOMBSTONE_RETENTION", 90*24*time.Hour)

	return config, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %v\n", key, value, defaultValue)
		return defaultValue
	}
	return d
}
