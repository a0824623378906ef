package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "MARKETDASH_"

type Config struct {
	// DataDir holds the tracker file and any file-based output.
	DataDir string

	TrackerDriver string
	TrackerPath   string

	DBDriver    string
	DBDSN       string
	AutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SeriesCacheTTL enables the redis upstream series cache when positive.
	SeriesCacheTTL time.Duration

	CronSchedule string
	Port         string

	LogLevel  string
	LogFormat string

	// FXPairsJSON overrides the default currency declaration, e.g.
	// [{"currency":"EUR","ticker":"EURUSD=X","convention":"direct"}].
	FXPairsJSON string
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if n, err := strconv.Atoi(getenv(key, "")); err == nil {
		return n
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(getenv(key, "")); err == nil {
		return b
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(getenv(key, "")); err == nil && d >= 0 {
		return d
	}
	return def
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	dataDir := getenv("DATA_DIR", filepath.Join("data", "processed"))
	return Config{
		DataDir:        dataDir,
		TrackerDriver:  getenv("TRACKER_DRIVER", "csv"),
		TrackerPath:    getenv("TRACKER_PATH", filepath.Join(dataDir, "refresh_tracker.csv")),
		DBDriver:       getenv("DB_DRIVER", "sqlite"),
		DBDSN:          getenv("DB_DSN", "marketdash.db"),
		AutoMigrate:    getenvBool("AUTO_MIGRATE", true),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		RedisDB:        getenvInt("REDIS_DB", 0),
		SeriesCacheTTL: getenvDuration("SERIES_CACHE_TTL", 0),
		CronSchedule:   getenv("CRON_SCHEDULE", "@every 15m"),
		Port:           getenv("PORT", "8000"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
		FXPairsJSON:    getenv("FX_PAIRS_JSON", ""),
	}
}
