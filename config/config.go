package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting the engine reads from the environment.
type Config struct {
	DatabaseURL string
	ServerPort  int

	// How often the scheduler retries reward distribution for tournaments
	// stuck in COMPLETED.
	DistributionRetryInterval time.Duration

	// PersistSkills disables skill profile writes when false, letting a
	// distribution run against production data without touching ratings.
	PersistSkills bool

	// Snapshot archival (S3-compatible storage). Optional: when the bucket
	// is unset, snapshots stay in Postgres only.
	ArchiveEndpoint        string
	ArchiveRegion          string
	ArchiveAccessKeyID     string
	ArchiveSecretAccessKey string
	ArchiveBucketName      string
}

// Load reads the configuration from environment variables. A local .env file
// is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	retryInterval := 5 * time.Minute
	if raw := os.Getenv("DISTRIBUTION_RETRY_INTERVAL"); raw != "" {
		retryInterval, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid DISTRIBUTION_RETRY_INTERVAL: %w", err)
		}
		if retryInterval < time.Second {
			return nil, fmt.Errorf("DISTRIBUTION_RETRY_INTERVAL must be at least 1s, got %s", retryInterval)
		}
	}

	persistSkills := true
	if raw := os.Getenv("PERSIST_SKILLS"); raw != "" {
		persistSkills, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PERSIST_SKILLS: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:               dbURL,
		ServerPort:                port,
		DistributionRetryInterval: retryInterval,
		PersistSkills:             persistSkills,

		ArchiveEndpoint:        os.Getenv("ARCHIVE_S3_ENDPOINT"),
		ArchiveRegion:          os.Getenv("ARCHIVE_S3_REGION"),
		ArchiveAccessKeyID:     os.Getenv("ARCHIVE_S3_ACCESS_KEY_ID"),
		ArchiveSecretAccessKey: os.Getenv("ARCHIVE_S3_SECRET_ACCESS_KEY"),
		ArchiveBucketName:      os.Getenv("ARCHIVE_S3_BUCKET"),
	}

	return cfg, nil
}

// ArchiveEnabled reports whether snapshot archival is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucketName != ""
}
