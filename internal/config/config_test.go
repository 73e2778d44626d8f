package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:schooldash.db")
	for _, k := range []string{"LISTEN_ADDR", "REST_TIMEOUT", "REST_MAX_RETRIES", "SQL_TIMEOUT", "REFRESH_WORKERS", "MARKETING_API_VERSION", "DIRECTORY_DB_PREFIX"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.RESTTimeout != 10*time.Second || cfg.SQLTimeout != 5*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.RESTMaxRetries != 2 || cfg.RefreshWorkers != 4 || cfg.DirectoryPrefix != "csd_" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.MarketingAPIVersion != "2023-09-15" {
		t.Errorf("MarketingAPIVersion = %q", cfg.MarketingAPIVersion)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schooldash")
	t.Setenv("REST_TIMEOUT", "750ms")
	t.Setenv("SQL_TIMEOUT", "3")
	t.Setenv("REFRESH_WORKERS", "8")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RESTTimeout != 750*time.Millisecond || cfg.SQLTimeout != 3*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.RESTTimeout, cfg.SQLTimeout)
	}
	if cfg.RefreshWorkers != 8 || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LISTEN_ADDR", ":9999")
	cfg, err := Load()
	if err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
	if cfg.ListenAddr != ":9999" {
		t.Error("config should still be populated")
	}
}

func TestGetenvIntInvalid(t *testing.T) {
	t.Setenv("REFRESH_WORKERS", "lots")
	if got := getenvInt("REFRESH_WORKERS", 4); got != 4 {
		t.Errorf("getenvInt = %d", got)
	}
}
