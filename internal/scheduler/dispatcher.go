package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cronplane/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Summary aggregates one dispatch cycle for observability. Skipped counts
// claim contention, which is expected under overlapping triggers and is
// never an error.
type Summary struct {
	Released  int        `json:"released"`
	Attempted int        `json:"attempted"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Skipped   int        `json:"skipped"`
	Errors    []JobError `json:"errors,omitempty"`
}

// JobError is the per-job failure detail in a dispatch summary.
type JobError struct {
	JobID      string `json:"job_id"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	RetryCount int    `json:"retry_count"`
}

// DispatcherConfig holds tunables for the dispatch cycle.
type DispatcherConfig struct {
	// Claimant identifies this process in claimed_by.
	Claimant string

	// BatchLimit caps how many due jobs one cycle selects (default 50).
	BatchLimit int

	// Concurrency bounds parallel executions within a cycle (default 4).
	Concurrency int

	// StuckAfter requeues claims older than this before selecting due
	// jobs. Zero disables the sweep.
	StuckAfter time.Duration
}

// Dispatcher is the periodic entry point: it selects due jobs, claims each
// one, and hands the claimed jobs to the executor. It holds no locks of its
// own; the store's conditional claim is the only mutual exclusion, which
// makes overlapping cycles safe.
type Dispatcher struct {
	store    store.JobStore
	executor *Executor
	config   DispatcherConfig
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(s store.JobStore, e *Executor, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config.BatchLimit <= 0 {
		config.BatchLimit = 50
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.Claimant == "" {
		config.Claimant = "dispatcher"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:    s,
		executor: e,
		config:   config,
		logger:   logger,
		tracer:   otel.Tracer("cronplane-dispatcher"),
	}
}

// ProcessDueJobs runs one dispatch cycle for the given wall-clock time.
// Per-job failures are collected in the summary and never abort the batch;
// a store fault aborts the cycle and is returned with whatever summary had
// accumulated, leaving unclaimed jobs untouched for the next trigger.
func (d *Dispatcher) ProcessDueJobs(ctx context.Context, now time.Time) (*Summary, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.cycle")
	defer span.End()

	summary := &Summary{}

	if d.config.StuckAfter > 0 {
		released, err := d.store.ReleaseStuck(ctx, now.Add(-d.config.StuckAfter), now)
		if err != nil {
			return summary, fmt.Errorf("stuck claim sweep failed: %w", err)
		}
		summary.Released = released
		if released > 0 {
			d.logger.Warn("requeued stuck claims", "count", released)
		}
	}

	due, err := d.store.FindDue(ctx, now, d.config.BatchLimit)
	if err != nil {
		return summary, fmt.Errorf("due job selection failed: %w", err)
	}
	span.SetAttributes(attribute.Int("dispatch.due", len(due)))

	// Claim first, then execute. A lost claim means a concurrent dispatch
	// (or a manual trigger) took the job; skip it silently.
	var claimed []*store.Job
	for _, job := range due {
		err := d.store.Claim(ctx, job.ID, d.config.Claimant, now)
		switch {
		case err == nil:
			t := now
			job.Status = store.JobStatusRunning
			job.ClaimedAt = &t
			job.ClaimedBy = d.config.Claimant
			claimed = append(claimed, job)
		case errors.Is(err, store.ErrAlreadyClaimed), errors.Is(err, store.ErrNotFound):
			summary.Skipped++
		default:
			return summary, fmt.Errorf("claim failed for job %s: %w", job.ID, err)
		}
	}

	// Bounded parallel execution; one slow or broken job must not block
	// the rest of the batch.
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		fatalErr error
	)
	sem := make(chan struct{}, d.config.Concurrency)

	for _, job := range claimed {
		wg.Add(1)
		sem <- struct{}{}
		go func(job *store.Job) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := d.executor.Execute(ctx, job)

			mu.Lock()
			defer mu.Unlock()
			summary.Attempted++
			if err != nil {
				// Store fault: the cycle is reported failed, sibling jobs
				// already in flight still finish.
				if fatalErr == nil {
					fatalErr = err
				}
				return
			}
			if res.Error == "" {
				summary.Succeeded++
				return
			}
			summary.Failed++
			summary.Errors = append(summary.Errors, JobError{
				JobID:      res.JobID,
				Type:       res.Type,
				Message:    res.Error,
				RetryCount: res.RetryCount,
			})
		}(job)
	}
	wg.Wait()

	if fatalErr != nil {
		return summary, fatalErr
	}

	d.logger.Info("dispatch cycle finished",
		"released", summary.Released,
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary, nil
}
