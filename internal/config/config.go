package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ListenAddr  string
	DatabaseURL string
	AdminToken  string

	OrdersAPIURL        string
	OrdersAccountCode   string
	MarketingAPIURL     string
	MarketingAPIVersion string
	DirectoryPrefix     string

	RESTTimeout    time.Duration
	RESTMaxRetries int
	SQLTimeout     time.Duration
	RefreshWorkers int

	LogLevel  string
	LogFormat string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads the environment, seeded from a .env file in the working
// directory when present. A missing DATABASE_URL is reported as an error
// alongside an otherwise usable Config so callers can decide.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:         getenv("APP_ENV", "development"),
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),

		OrdersAPIURL:        getenv("ORDERS_API_URL", "https://ws-use.brightpearl.com"),
		OrdersAccountCode:   os.Getenv("ORDERS_ACCOUNT_CODE"),
		MarketingAPIURL:     getenv("MARKETING_API_URL", "https://a.klaviyo.com/api"),
		MarketingAPIVersion: getenv("MARKETING_API_VERSION", "2023-09-15"),
		DirectoryPrefix:     getenv("DIRECTORY_DB_PREFIX", "csd_"),

		RESTTimeout:    getenvDuration("REST_TIMEOUT", 10*time.Second),
		RESTMaxRetries: getenvInt("REST_MAX_RETRIES", 2),
		SQLTimeout:     getenvDuration("SQL_TIMEOUT", 5*time.Second),
		RefreshWorkers: getenvInt("REFRESH_WORKERS", 4),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "text")),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}

// getenvDuration accepts Go durations ("750ms") or whole seconds ("10").
func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n := getenvInt(key, 0); n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
