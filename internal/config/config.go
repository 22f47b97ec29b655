package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

const (
	StoreAirtable = "airtable"
	StorePostgres = "postgres"
)

type Config struct {
	RecordStore string

	AirtableAPIKey         string
	AirtableBaseID         string
	AirtablePostsTable     string
	AirtableProcessedField string

	DBURL string

	Port string

	SyncInterval     time.Duration
	SyncErrorBackoff time.Duration
	CloneTimeout     time.Duration
	LogTimeout       time.Duration
	NumstatTimeout   time.Duration
	StaleProcessAge  time.Duration
	DiffStatWorkers  int

	RabbitMQURL string
	Debug       bool
}

func configError(detail string, cause error) error {
	return errors.New(errors.RefConfig, "Invalid configuration", detail, cause, errors.LevelFatal)
}

// * LoadConfiguration reads the configuration from the .env file and the environment
func LoadConfiguration() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		RecordStore:            strings.ToLower(envOr("RECORD_STORE", StoreAirtable)),
		AirtableAPIKey:         os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID:         os.Getenv("AIRTABLE_BASE_ID"),
		AirtablePostsTable:     envOr("AIRTABLE_POSTS_TABLE", "Posts"),
		AirtableProcessedField: envOr("AIRTABLE_PROCESSED_FIELD", "TimeSpentOnAsset"),
		DBURL:                  os.Getenv("DB_PATH"),
		Port:                   os.Getenv("PORT"),
		RabbitMQURL:            os.Getenv("RABBITMQ_URL"),
	}

	durations := []struct {
		key  string
		def  time.Duration
		into *time.Duration
	}{
		{"SYNC_INTERVAL", 60 * time.Second, &cfg.SyncInterval},
		{"SYNC_ERROR_BACKOFF", 30 * time.Second, &cfg.SyncErrorBackoff},
		{"CLONE_TIMEOUT", 300 * time.Second, &cfg.CloneTimeout},
		{"LOG_TIMEOUT", 120 * time.Second, &cfg.LogTimeout},
		{"NUMSTAT_TIMEOUT", 60 * time.Second, &cfg.NumstatTimeout},
		{"STALE_PROCESS_AGE", 10 * time.Minute, &cfg.StaleProcessAge},
	}
	for _, d := range durations {
		v, err := durationEnv(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.into = v
	}

	workers, err := intEnv("DIFFSTAT_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	cfg.DiffStatWorkers = workers

	cfg.Debug, _ = strconv.ParseBool(os.Getenv("DEBUG"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info("✅ env content loaded successfully 🎉")
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.RecordStore {
	case StoreAirtable:
		if c.AirtableAPIKey == "" {
			return configError("AIRTABLE_API_KEY is required", nil)
		}
		if c.AirtableBaseID == "" {
			return configError("AIRTABLE_BASE_ID is required", nil)
		}
	case StorePostgres:
		if c.DBURL == "" {
			return configError("DB_PATH is required when RECORD_STORE=postgres", nil)
		}
	default:
		return configError(fmt.Sprintf("RECORD_STORE must be %q or %q, got %q", StoreAirtable, StorePostgres, c.RecordStore), nil)
	}

	if c.DiffStatWorkers < 1 {
		return configError("DIFFSTAT_WORKERS must be at least 1", nil)
	}
	return nil
}

// RequirePort is checked only by commands that serve HTTP.
func (c *Config) RequirePort() error {
	if c.Port == "" {
		return configError("PORT is required", nil)
	}
	if _, err := strconv.Atoi(strings.TrimPrefix(c.Port, ":")); err != nil {
		return configError(fmt.Sprintf("PORT must be numeric, got %q", c.Port), err)
	}
	return nil
}

// Addr is the listen address for the control surface.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, configError(fmt.Sprintf("%s must be a positive duration, got %q", key, v), err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, configError(fmt.Sprintf("%s must be an integer, got %q", key, v), err)
	}
	return n, nil
}
