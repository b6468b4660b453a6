package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ETL_CONFIG_FILE", "LOG_LEVEL", "DB_DRIVER", "DATABASE_DSN", "DATA_DIR", "ARCHIVE_DIR",
		"ARCHIVE_ON_SUCCESS", "REPROCESS", "FILE_PATTERNS", "API_RATE_LIMIT_RPS", "API_MAX_IN_FLIGHT",
		"PUBLISH_ATTEMPTS", "PUBLISH_TIMEOUT_MS", "BREAKER_TRIP_AFTER", "BREAKER_OPEN_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.DatabaseDSN != "data/comex_data.db" {
		t.Fatalf("unexpected storage defaults %q %q", cfg.DBDriver, cfg.DatabaseDSN)
	}
	if len(cfg.FilePatterns) != 4 || cfg.FilePatterns[3] != "*.pdf" {
		t.Fatalf("unexpected patterns %v", cfg.FilePatterns)
	}
	if cfg.ArchiveOnSuccess || cfg.Reprocess {
		t.Fatalf("archive and reprocess must default to false")
	}
}

func TestLoadMergesFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "etl.yaml")
	content := "db_driver: postgres\n" +
		"database_dsn: postgres://etl@localhost/comex\n" +
		"data_dir: /srv/inbox\n" +
		"archive_on_success: true\n" +
		"file_patterns: [\"*.pdf\"]\n" +
		"api_rate_limit_rps: 5.5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("ETL_CONFIG_FILE", path)
	t.Setenv("DATA_DIR", "/override")
	t.Setenv("FILE_PATTERNS", "*.csv, *.xls")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDriver != "postgres" || cfg.DatabaseDSN != "postgres://etl@localhost/comex" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.DataDir != "/override" {
		t.Fatalf("env must win over file, got %q", cfg.DataDir)
	}
	if !cfg.ArchiveOnSuccess || cfg.APIRateLimitRPS != 5.5 {
		t.Fatalf("unexpected file values %+v", cfg)
	}
	if len(cfg.FilePatterns) != 2 || cfg.FilePatterns[1] != "*.xls" {
		t.Fatalf("unexpected patterns %v", cfg.FilePatterns)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("defaults must survive a partial file, got %q", cfg.LogLevel)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "mysql")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadReportsBadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("data_dir: [unterminated"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("ETL_CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestInvalidNumericEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_MAX_IN_FLIGHT", "lots")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIMaxInFlight != 64 {
		t.Fatalf("expected fallback 64, got %d", cfg.APIMaxInFlight)
	}
}

func TestLoadPublishPolicyFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BREAKER_TRIP_AFTER", "5")
	t.Setenv("PUBLISH_TIMEOUT_MS", "750")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BreakerTripAfter != 5 || cfg.PublishTimeoutMS != 750 {
		t.Fatalf("unexpected publish settings %+v", cfg)
	}
	if cfg.BreakerOpenSeconds != 60 || cfg.PublishAttempts != 3 {
		t.Fatalf("defaults must survive partial overrides %+v", cfg)
	}

	t.Setenv("BREAKER_OPEN_SECONDS", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected negative breaker setting to be rejected")
	}
}
