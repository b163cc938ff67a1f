// Package config handles environment variable loading for ports, database strings, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the scheduler service.
type Config struct {
	// Database connection string. Empty selects the in-memory store
	// (development mode only).
	DatabaseURL string

	// HTTP server port
	HTTPPort int

	// Shared secret for the periodic dispatch endpoint. Empty disables the
	// check (development mode).
	DispatchSecret string

	// Whether authorization failures on operator endpoints reject the
	// request. When false the gate is still invoked and denials are logged.
	AuthzEnforce bool

	// Maximum due jobs selected per dispatch cycle
	BatchLimit int

	// Parallel executions within one dispatch cycle
	DispatchConcurrency int

	// Per-job handler timeout
	JobTimeout time.Duration

	// RUNNING claims older than this are requeued at the start of a
	// dispatch cycle. Zero disables the sweep.
	StuckAfter time.Duration

	// Retry backoff base and cap
	RetryBase time.Duration
	RetryMax  time.Duration

	// Per-actor rate limit for mutating operator endpoints
	// (requests per second; 0 disables limiting)
	RateLimit      float64
	RateLimitBurst int

	// OTLP collector endpoint for traces. Empty disables tracing.
	OTELEndpoint string

	// API key seeded into the in-memory store in development mode.
	DevAPIKey string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		HTTPPort:            7070,
		DispatchSecret:      os.Getenv("DISPATCH_SECRET"),
		AuthzEnforce:        true,
		BatchLimit:          50,
		DispatchConcurrency: 4,
		JobTimeout:          2 * time.Minute,
		StuckAfter:          10 * time.Minute,
		RetryBase:           10 * time.Second,
		RetryMax:            10 * time.Minute,
		RateLimit:           5,
		RateLimitBurst:      10,
		OTELEndpoint:        os.Getenv("OTEL_ENDPOINT"),
		DevAPIKey:           os.Getenv("DEV_API_KEY"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.HTTPPort = p
	}

	if enforceStr := os.Getenv("AUTHZ_ENFORCE"); enforceStr != "" {
		b, err := strconv.ParseBool(enforceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTHZ_ENFORCE: %w", err)
		}
		cfg.AuthzEnforce = b
	}

	if limitStr := os.Getenv("BATCH_LIMIT"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid BATCH_LIMIT: %q", limitStr)
		}
		cfg.BatchLimit = n
	}

	if concStr := os.Getenv("DISPATCH_CONCURRENCY"); concStr != "" {
		n, err := strconv.Atoi(concStr)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid DISPATCH_CONCURRENCY: %q", concStr)
		}
		cfg.DispatchConcurrency = n
	}

	var err error
	if cfg.JobTimeout, err = durationEnv("JOB_TIMEOUT", cfg.JobTimeout); err != nil {
		return nil, err
	}
	if cfg.StuckAfter, err = durationEnv("STUCK_AFTER", cfg.StuckAfter); err != nil {
		return nil, err
	}
	if cfg.RetryBase, err = durationEnv("RETRY_BASE", cfg.RetryBase); err != nil {
		return nil, err
	}
	if cfg.RetryMax, err = durationEnv("RETRY_MAX", cfg.RetryMax); err != nil {
		return nil, err
	}

	if rateStr := os.Getenv("RATE_LIMIT"); rateStr != "" {
		f, err := strconv.ParseFloat(rateStr, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT: %q", rateStr)
		}
		cfg.RateLimit = f
	}

	return cfg, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
