package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	DatabaseURL string
	ListenAddr  string

	// SourceURL is the JSON-lines endpoint the ETL pulls raw events from.
	SourceURL string

	// SessionLength is the inactivity threshold in minutes: a gap strictly
	// greater than this value starts a new session. Re-running the pipeline
	// with a different value is the supported way to re-sessionize.
	SessionLength int

	// StrictTimestamps aborts the batch on the first unparseable timestamp
	// instead of dropping the record.
	StrictTimestamps bool

	// Object storage settings for the staging bucket (MinIO-compatible).
	BucketRegion    string
	BucketEndpoint  string
	BucketAccessKey string
	BucketSecretKey string
	StagingBucket   string

	// StageKey is the object key the sessionized parquet file is staged
	// under and the API server polls for.
	StageKey string

	// StagePollSeconds is the fixed delay between stage readiness checks.
	// StagePollAttempts bounds the number of checks; 0 means wait forever.
	StagePollSeconds  int
	StagePollAttempts int

	// AdminAPIKey, if set, is registered on startup and grants access to
	// mutating endpoints such as re-sessionize.
	AdminAPIKey string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		DatabaseURL:       os.Getenv("APP_DATABASE_URL"),
		ListenAddr:        getenv("APP_LISTEN_ADDR", ":8080"),
		SourceURL:         os.Getenv("APP_SOURCE_URL"),
		SessionLength:     30,
		StrictTimestamps:  os.Getenv("APP_STRICT_TIMESTAMPS") == "true",
		BucketRegion:      getenv("APP_BUCKET_REGION", "us-east-1"),
		BucketEndpoint:    os.Getenv("APP_BUCKET_ENDPOINT"),
		BucketAccessKey:   os.Getenv("APP_BUCKET_ACCESS_KEY"),
		BucketSecretKey:   os.Getenv("APP_BUCKET_SECRET_KEY"),
		StagingBucket:     getenv("APP_STAGING_BUCKET", "sessionized"),
		StageKey:          getenv("APP_STAGE_KEY", "sessionized/events.parquet"),
		StagePollSeconds:  5,
		StagePollAttempts: 0,
		AdminAPIKey:       os.Getenv("APP_ADMIN_API_KEY"),
	}

	if v := os.Getenv("APP_SESSION_LENGTH"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins >= 0 {
			cfg.SessionLength = mins
		}
	}
	if v := os.Getenv("APP_STAGE_POLL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.StagePollSeconds = secs
		}
	}
	if v := os.Getenv("APP_STAGE_POLL_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.StagePollAttempts = n
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
