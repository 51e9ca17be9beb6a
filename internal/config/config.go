package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL           string
	Park                  string
	NATSURL               string
	NATSSubjectPrefix     string
	TickInterval          time.Duration
	PublishEveryTicks     uint64
	LayoutRefreshInterval time.Duration
	Seed                  uint64
	MetricsAddr           string
	LogLevel              string
	LogFormat             string
	LogNATSSubjects       bool
	AudioEnabled          bool
	RenderTerminal        bool
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Park name for dynamic DB resolution
	cfg.Park = firstNonEmpty(os.Getenv("PARK"), os.Getenv("PARK_NAME"))

	// Database URL (cluster DSN): prefer DATABASE_URL / PG_DSN, else build from PG* vars.
	// No database at all runs the built-in demo park.
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		db := os.Getenv("PGDATABASE")
		// With PARK set the base DB defaults to 'postgres' to resolve the park DB from.
		if db == "" && cfg.Park != "" {
			db = "postgres"
		}
		if db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}
	cfg.DatabaseURL = dsn

	// Empty NATS_URL disables publishing.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = strings.TrimSuffix(getenvDefault("NATS_SUBJECT_PREFIX", "park"), ".")

	// Tick interval, 40 ticks per second by default
	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TICK_INTERVAL_MS: %q", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.TickInterval = 25 * time.Millisecond
	}

	// Position snapshots every n ticks; 0 publishes events only
	if v := os.Getenv("PUBLISH_EVERY_TICKS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PUBLISH_EVERY_TICKS: %q", v)
		}
		cfg.PublishEveryTicks = n
	} else {
		cfg.PublishEveryTicks = 4
	}

	// Layout refresh interval (seconds)
	if v := os.Getenv("LAYOUT_REFRESH_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid LAYOUT_REFRESH_INTERVAL_SEC: %q", v)
		}
		cfg.LayoutRefreshInterval = time.Duration(sec) * time.Second
	} else {
		cfg.LayoutRefreshInterval = 30 * time.Second
	}

	if v := os.Getenv("SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil || seed == 0 {
			return nil, fmt.Errorf("invalid SEED: %q", v)
		}
		cfg.Seed = seed
	} else {
		cfg.Seed = 1
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	switch cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "json")); cfg.LogFormat {
	case "json", "console":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q", cfg.LogFormat)
	}

	// Debug logging for NATS publish subjects
	cfg.LogNATSSubjects = truthy(os.Getenv("LOG_NATS_SUBJECTS"))
	cfg.AudioEnabled = truthy(os.Getenv("AUDIO_ENABLED"))
	cfg.RenderTerminal = truthy(os.Getenv("RENDER_TERMINAL"))

	return cfg, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
