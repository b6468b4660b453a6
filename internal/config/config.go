package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is built from defaults, then an optional YAML file named by ETL_CONFIG_FILE,
// then environment variables.
type Config struct {
	LogLevel string `yaml:"log_level"`

	DBDriver    string `yaml:"db_driver"`
	DatabaseDSN string `yaml:"database_dsn"`

	DataDir          string   `yaml:"data_dir"`
	ArchiveDir       string   `yaml:"archive_dir"`
	ArchiveOnSuccess bool     `yaml:"archive_on_success"`
	Reprocess        bool     `yaml:"reprocess"`
	FilePatterns     []string `yaml:"file_patterns"`

	NATSURL           string `yaml:"nats_url"`
	NATSFilesSubject  string `yaml:"nats_files_subject"`
	NATSEventsSubject string `yaml:"nats_events_subject"`
	PublishEvents     bool   `yaml:"publish_events"`

	APIPort           string  `yaml:"api_port"`
	MetricsPort       string  `yaml:"metrics_port"`
	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst"`
	APIMaxInFlight    int     `yaml:"api_max_in_flight"`

	PublishAttempts       int  `yaml:"publish_attempts"`
	PublishBackoffMS      int  `yaml:"publish_backoff_ms"`
	PublishMaxBackoffMS   int  `yaml:"publish_max_backoff_ms"`
	PublishTimeoutMS      int  `yaml:"publish_timeout_ms"`
	BreakerEnabled        bool `yaml:"breaker_enabled"`
	BreakerTripAfter      int  `yaml:"breaker_trip_after"`
	BreakerOpenSeconds    int  `yaml:"breaker_open_seconds"`
	BreakerHalfOpenProbes int  `yaml:"breaker_half_open_probes"`
}

func Defaults() Config {
	return Config{
		LogLevel: "info",

		DBDriver:    "sqlite",
		DatabaseDSN: "data/comex_data.db",

		DataDir:      "./data",
		ArchiveDir:   "./data/archive",
		FilePatterns: []string{"*.csv", "*.xls", "*.xlsx", "*.pdf"},

		NATSURL:           "nats://localhost:4222",
		NATSFilesSubject:  "comex.files",
		NATSEventsSubject: "comex.files.processed",

		APIPort:           "8080",
		MetricsPort:       "9090",
		APIRateLimitRPS:   20,
		APIRateLimitBurst: 40,
		APIMaxInFlight:    64,

		PublishAttempts:       3,
		PublishBackoffMS:      200,
		PublishMaxBackoffMS:   1000,
		PublishTimeoutMS:      2000,
		BreakerEnabled:        true,
		BreakerTripAfter:      3,
		BreakerOpenSeconds:    60,
		BreakerHalfOpenProbes: 1,
	}
}

func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("ETL_CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.LogLevel = mustEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DBDriver = mustEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DatabaseDSN = mustEnv("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.DataDir = mustEnv("DATA_DIR", cfg.DataDir)
	cfg.ArchiveDir = mustEnv("ARCHIVE_DIR", cfg.ArchiveDir)
	cfg.ArchiveOnSuccess = mustEnvBool("ARCHIVE_ON_SUCCESS", cfg.ArchiveOnSuccess)
	cfg.Reprocess = mustEnvBool("REPROCESS", cfg.Reprocess)
	cfg.FilePatterns = mustEnvList("FILE_PATTERNS", cfg.FilePatterns)

	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSFilesSubject = mustEnv("NATS_FILES_SUBJECT", cfg.NATSFilesSubject)
	cfg.NATSEventsSubject = mustEnv("NATS_EVENTS_SUBJECT", cfg.NATSEventsSubject)
	cfg.PublishEvents = mustEnvBool("PUBLISH_EVENTS", cfg.PublishEvents)

	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.MetricsPort = mustEnv("METRICS_PORT", cfg.MetricsPort)
	cfg.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.APIMaxInFlight = mustEnvInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)

	cfg.PublishAttempts = mustEnvInt("PUBLISH_ATTEMPTS", cfg.PublishAttempts)
	cfg.PublishBackoffMS = mustEnvInt("PUBLISH_BACKOFF_MS", cfg.PublishBackoffMS)
	cfg.PublishMaxBackoffMS = mustEnvInt("PUBLISH_MAX_BACKOFF_MS", cfg.PublishMaxBackoffMS)
	cfg.PublishTimeoutMS = mustEnvInt("PUBLISH_TIMEOUT_MS", cfg.PublishTimeoutMS)
	cfg.BreakerEnabled = mustEnvBool("BREAKER_ENABLED", cfg.BreakerEnabled)
	cfg.BreakerTripAfter = mustEnvInt("BREAKER_TRIP_AFTER", cfg.BreakerTripAfter)
	cfg.BreakerOpenSeconds = mustEnvInt("BREAKER_OPEN_SECONDS", cfg.BreakerOpenSeconds)
	cfg.BreakerHalfOpenProbes = mustEnvInt("BREAKER_HALF_OPEN_PROBES", cfg.BreakerHalfOpenProbes)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.DBDriver) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		return fmt.Errorf("config: unsupported db_driver %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return errors.New("config: database_dsn is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("config: data_dir is required")
	}
	if c.APIRateLimitRPS < 0 || c.APIRateLimitBurst < 0 || c.APIMaxInFlight < 0 {
		return errors.New("config: api limits must not be negative")
	}
	if c.PublishAttempts < 0 || c.PublishBackoffMS < 0 || c.PublishMaxBackoffMS < 0 || c.PublishTimeoutMS < 0 ||
		c.BreakerTripAfter < 0 || c.BreakerOpenSeconds < 0 || c.BreakerHalfOpenProbes < 0 {
		return errors.New("config: publish and breaker settings must not be negative")
	}
	return nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
