// Package main is the entry point for the cronplane scheduler service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cronplane/internal/auth"
	"cronplane/internal/authz"
	"cronplane/internal/config"
	"cronplane/internal/logger"
	"cronplane/internal/observability"
	"cronplane/internal/scheduler"
	"cronplane/internal/server"
	"cronplane/internal/store"
	"cronplane/internal/store/memory"
	"cronplane/internal/store/postgres"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New(slog.LevelInfo)
	slog.SetDefault(slogger)

	ctx := context.Background()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer pg.Close()

		if *migrateFlag {
			slogger.Info("running database migrations")
			if err := postgres.Migrate(pg.DB()); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			slogger.Info("migrations completed")
		}
		st = pg
	} else {
		slogger.Warn("DATABASE_URL not set, using in-memory store (development mode, no durability)")
		mem := memory.New()
		if cfg.DevAPIKey != "" {
			seedDev(ctx, mem, cfg.DevAPIKey, slogger)
		}
		st = mem
	}

	// Tracing
	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "cronplane-scheduler", cfg.OTELEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slogger.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slogger.Error("failed to shutdown metrics", "error", err)
		}
	}()

	// Observable gauge that queries the store only when scraped.
	meter := otel.Meter("cronplane-scheduler")
	_, err = meter.Int64ObservableGauge("cronplane.jobs.due",
		metric.WithDescription("Number of jobs currently due for dispatch"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := st.CountDue(ctx, time.Now().UTC())
			if err != nil {
				slogger.Error("failed to count due jobs", "error", err)
				return nil // Don't crash metrics scrape on store error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		slogger.Error("failed to register due-jobs metric", "error", err)
	}

	registry := scheduler.NewRegistry()
	registerBuiltins(registry, slogger)

	hostname, _ := os.Hostname()
	backoff := scheduler.ExponentialBackoff{Initial: cfg.RetryBase, Max: cfg.RetryMax}
	executor := scheduler.NewExecutor(st, registry, backoff, cfg.JobTimeout, slogger)
	dispatcher := scheduler.NewDispatcher(st, executor, scheduler.DispatcherConfig{
		Claimant:    fmt.Sprintf("scheduler@%s", hostname),
		BatchLimit:  cfg.BatchLimit,
		Concurrency: cfg.DispatchConcurrency,
		StuckAfter:  cfg.StuckAfter,
	}, slogger)
	gate := authz.New(st, st)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := server.New(server.Config{
		Addr:           addr,
		DispatchSecret: cfg.DispatchSecret,
		AuthzEnforce:   cfg.AuthzEnforce,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
	}, st, gate, executor, dispatcher, metricsHandler, slogger)

	go func() {
		slogger.Info("cronplane scheduler starting", "addr", addr, "handlers", registry.Names())
		if err := srv.Run(ctx); err != nil {
			slogger.Error("server stopped", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down scheduler")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	slogger.Info("server exited properly")
}

// registerBuiltins wires the handlers shipped with the service itself.
// Real deployments register their own job types here.
func registerBuiltins(registry *scheduler.Registry, slogger *slog.Logger) {
	// noop echoes its payload; useful for smoke-testing schedules.
	registry.Register("noop", func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		slogger.Info("noop job executed", "payload_bytes", len(payload))
		return payload, nil
	})
}

// seedDev provisions a default org and admin actor so the operator API is
// usable against the in-memory store.
func seedDev(ctx context.Context, mem *memory.Store, apiKey string, slogger *slog.Logger) {
	org := &store.Org{ID: uuid.New(), Name: "dev", CreatedAt: time.Now().UTC()}
	actor := &store.Actor{ID: uuid.New(), Name: "dev-admin", CreatedAt: time.Now().UTC()}

	mem.CreateOrg(ctx, org)
	mem.CreateActor(ctx, actor, auth.HashKey(apiKey))
	mem.SetRole(ctx, actor.ID, org.ID, store.RoleAdmin)

	slogger.Info("seeded development identity", "org_id", org.ID, "actor_id", actor.ID)
}
