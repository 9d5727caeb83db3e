package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"railstatus-simulator/internal/rail"
)

type Config struct {
	DatabaseURL     string // empty means no Postgres source
	DataDir         string // CSV directory; empty means embedded seed
	NATSURL         string
	NATSEnabled     bool
	TickInterval    time.Duration
	StepMinutes     int
	BaseClock       rail.ClockMinutes
	JitterSeed      int64
	LogNATSSubjects bool
	LogLevel        string
	MetricsAddr     string
	APIAddr         string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Reference data source. Postgres wins when configured; otherwise a CSV
	// directory; otherwise the embedded seed tables.
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" && os.Getenv("PGDATABASE") != "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	}
	cfg.DatabaseURL = dsn
	cfg.DataDir = os.Getenv("DATA_DIR")

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.NATSEnabled = parseBool(getenvDefault("NATS_ENABLED", "true"))

	// Wall-clock tick interval
	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TICK_INTERVAL_MS: %q", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.TickInterval = time.Minute
	}

	// Simulated minutes advanced per tick
	if v := os.Getenv("SIM_STEP_MINUTES"); v != "" {
		step, err := strconv.Atoi(v)
		if err != nil || step < 1 {
			return nil, fmt.Errorf("invalid SIM_STEP_MINUTES: %q", v)
		}
		cfg.StepMinutes = step
	} else {
		cfg.StepMinutes = 1
	}

	// Virtual clock baseline
	if v := os.Getenv("SIM_BASE_CLOCK"); v != "" {
		base, err := rail.ParseClock(v)
		if err != nil || base == rail.NoTime {
			return nil, fmt.Errorf("invalid SIM_BASE_CLOCK: %q", v)
		}
		cfg.BaseClock = base
	}

	// Jitter seed; 0 keeps production non-reproducible
	if v := os.Getenv("JITTER_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid JITTER_SEED: %q", v)
		}
		cfg.JitterSeed = seed
	}

	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.APIAddr = getenvDefault("API_ADDR", ":8080")

	return cfg, nil
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

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
