package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the engine and process settings.
type Config struct {
	DBPath   string
	LogMode  string
	RedisURL string

	// Selection and estimation.
	TargetAccuracy float64
	RecentWindow   int
	AbilityWindow  int
	AbilityDecay   float64
	MinHistory     int
	MinSamples     int

	// Availability pipeline.
	LowWaterMark    int
	Workers         int
	QueueSize       int
	GenRetries      int
	GenBackoff      time.Duration
	GenBudget       time.Duration
	OnDemandTimeout time.Duration
	MetricsTimeout  time.Duration
	MonitorInterval time.Duration
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		LogMode:         "dev",
		TargetAccuracy:  0.75,
		RecentWindow:    20,
		AbilityWindow:   20,
		AbilityDecay:    0.85,
		MinHistory:      5,
		MinSamples:      10,
		LowWaterMark:    5,
		Workers:         2,
		QueueSize:       64,
		GenRetries:      2,
		GenBackoff:      time.Second,
		GenBudget:       10 * time.Second,
		OnDemandTimeout: 1500 * time.Millisecond,
		MetricsTimeout:  2 * time.Second,
		MonitorInterval: 5 * time.Minute,
	}
}

// Load reads configuration from a .env file (if present) and PREPFORGE_*
// environment variables, falling back to Default for anything missing or
// unparseable.
func Load() Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	d := Default()
	return Config{
		DBPath:          envOr("PREPFORGE_DB", d.DBPath),
		LogMode:         envOr("PREPFORGE_LOG_MODE", d.LogMode),
		RedisURL:        envOr("PREPFORGE_REDIS_URL", d.RedisURL),
		TargetAccuracy:  envFloatOr("PREPFORGE_TARGET_ACCURACY", d.TargetAccuracy),
		RecentWindow:    envIntOr("PREPFORGE_RECENT_WINDOW", d.RecentWindow),
		AbilityWindow:   envIntOr("PREPFORGE_ABILITY_WINDOW", d.AbilityWindow),
		AbilityDecay:    envFloatOr("PREPFORGE_ABILITY_DECAY", d.AbilityDecay),
		MinHistory:      envIntOr("PREPFORGE_MIN_HISTORY", d.MinHistory),
		MinSamples:      envIntOr("PREPFORGE_MIN_SAMPLES", d.MinSamples),
		LowWaterMark:    envIntOr("PREPFORGE_LOW_WATER_MARK", d.LowWaterMark),
		Workers:         envIntOr("PREPFORGE_WORKERS", d.Workers),
		QueueSize:       envIntOr("PREPFORGE_QUEUE_SIZE", d.QueueSize),
		GenRetries:      envIntOr("PREPFORGE_GEN_RETRIES", d.GenRetries),
		GenBackoff:      envDurationOr("PREPFORGE_GEN_BACKOFF", d.GenBackoff),
		GenBudget:       envDurationOr("PREPFORGE_GEN_BUDGET", d.GenBudget),
		OnDemandTimeout: envDurationOr("PREPFORGE_ONDEMAND_TIMEOUT", d.OnDemandTimeout),
		MetricsTimeout:  envDurationOr("PREPFORGE_METRICS_TIMEOUT", d.MetricsTimeout),
		MonitorInterval: envDurationOr("PREPFORGE_MONITOR_INTERVAL", d.MonitorInterval),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.TargetAccuracy <= 0 || c.TargetAccuracy >= 1 {
		errs = append(errs, fmt.Errorf("PREPFORGE_TARGET_ACCURACY must be in (0,1), got %v", c.TargetAccuracy))
	}
	if c.AbilityDecay <= 0 || c.AbilityDecay > 1 {
		errs = append(errs, fmt.Errorf("PREPFORGE_ABILITY_DECAY must be in (0,1], got %v", c.AbilityDecay))
	}
	positive := []struct {
		name string
		v    int
	}{
		{"PREPFORGE_RECENT_WINDOW", c.RecentWindow},
		{"PREPFORGE_ABILITY_WINDOW", c.AbilityWindow},
		{"PREPFORGE_WORKERS", c.Workers},
		{"PREPFORGE_QUEUE_SIZE", c.QueueSize},
	}
	for _, p := range positive {
		if p.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.v))
		}
	}
	if c.MinHistory < 0 || c.MinSamples < 0 || c.LowWaterMark < 0 || c.GenRetries < 0 {
		errs = append(errs, errors.New("PREPFORGE_MIN_HISTORY, MIN_SAMPLES, LOW_WATER_MARK and GEN_RETRIES cannot be negative"))
	}
	if c.OnDemandTimeout <= 0 || c.MetricsTimeout <= 0 || c.GenBudget <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	switch strings.ToLower(c.LogMode) {
	case "", "dev", "development", "prod", "production":
	default:
		errs = append(errs, fmt.Errorf("PREPFORGE_LOG_MODE must be dev or prod, got %q", c.LogMode))
	}
	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s=%q, using default %v", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	}
	return def
}
