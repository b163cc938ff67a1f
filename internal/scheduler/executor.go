package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"cronplane/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ExecResult summarizes one execution for the caller. Handler failures are
// reported here, never as an error return; the executor's error return is
// reserved for store faults.
type ExecResult struct {
	JobID      string          `json:"job_id"`
	Type       string          `json:"type"`
	Status     store.JobStatus `json:"status"`
	RetryCount int             `json:"retry_count"`
	NextRunAt  *time.Time      `json:"next_run_at,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Executor runs exactly one claimed job to completion and leaves the store
// in a consistent terminal-or-rescheduled state regardless of how the
// handler behaves. All state transitions go through store.Complete.
type Executor struct {
	store    store.JobStore
	registry *Registry
	backoff  BackoffStrategy
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewExecutor creates an executor. A zero timeout defaults to two minutes.
func NewExecutor(s store.JobStore, r *Registry, b BackoffStrategy, timeout time.Duration, logger *slog.Logger) *Executor {
	if b == nil {
		b = DefaultBackoff
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		store:    s,
		registry: r,
		backoff:  b,
		timeout:  timeout,
		logger:   logger,
		tracer:   otel.Tracer("cronplane-executor"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs one job that the caller has already claimed (status RUNNING).
func (e *Executor) Execute(ctx context.Context, job *store.Job) (ExecResult, error) {
	ctx, span := e.tracer.Start(ctx, "job.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.type", job.Type),
	)

	start := e.now()

	handler, ok := e.registry.Resolve(job.Type)
	if !ok {
		// Configuration error: terminal, and no retry is consumed.
		outcome := store.Outcome{
			Status:     store.JobStatusFailed,
			LastRunAt:  start,
			Result:     store.RunResult{OK: false, Message: fmt.Sprintf("UnknownJobType: no handler registered for %q", job.Type)},
			RetryCount: job.RetryCount,
		}
		return e.finish(ctx, job, outcome)
	}

	result, handlerErr := e.invoke(ctx, handler, job.Payload)

	var outcome store.Outcome
	if handlerErr == nil {
		outcome = e.successOutcome(job, start, result)
	} else {
		outcome = e.failureOutcome(job, start, handlerErr)
	}
	return e.finish(ctx, job, outcome)
}

// invoke runs the handler under the per-job timeout, converting panics and
// timeouts into ordinary failures. The handler runs in its own goroutine so
// a handler that ignores its context cannot stall the dispatch batch; on
// timeout the goroutine is abandoned and the claim is settled without it.
func (e *Executor) invoke(ctx context.Context, handler Handler, payload json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type handlerReturn struct {
		result json.RawMessage
		err    error
	}
	done := make(chan handlerReturn, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("job handler panicked",
					"panic", r,
					"stack", string(debug.Stack()),
				)
				done <- handlerReturn{err: fmt.Errorf("handler panicked: %v", r)}
			}
		}()
		result, err := handler(ctx, payload)
		done <- handlerReturn{result: result, err: err}
	}()

	select {
	case ret := <-done:
		return ret.result, ret.err
	case <-ctx.Done():
		return nil, fmt.Errorf("handler timed out after %s", e.timeout)
	}
}

// successOutcome computes the post-success state: recurring jobs go back to
// PENDING with the next activation, one-shots finish SUCCEEDED.
func (e *Executor) successOutcome(job *store.Job, start time.Time, result json.RawMessage) store.Outcome {
	outcome := store.Outcome{
		LastRunAt:  start,
		Result:     store.RunResult{OK: true, Message: resultMessage(result)},
		RetryCount: 0,
	}

	if job.RecurrenceRule == "" {
		outcome.Status = store.JobStatusSucceeded
		return outcome
	}

	next, err := NextRun(job.RecurrenceRule, start)
	if err != nil {
		// The rule was valid at creation; a rule that no longer parses is a
		// configuration error, not a retryable one.
		outcome.Status = store.JobStatusFailed
		outcome.Result = store.RunResult{OK: false, Message: err.Error()}
		outcome.RetryCount = job.RetryCount
		return outcome
	}

	outcome.Status = store.JobStatusPending
	outcome.NextRunAt = &next
	return outcome
}

// failureOutcome decides between a backoff retry and terminal failure.
// The retry budget caps the counter: once exhausted the count stays at
// max_retries and the job finishes FAILED.
func (e *Executor) failureOutcome(job *store.Job, start time.Time, handlerErr error) store.Outcome {
	outcome := store.Outcome{
		LastRunAt: start,
		Result:    store.RunResult{OK: false, Message: handlerErr.Error()},
	}

	attempt := job.RetryCount + 1
	if attempt <= job.MaxRetries {
		next := start.Add(e.backoff.Delay(attempt))
		outcome.Status = store.JobStatusPending
		outcome.NextRunAt = &next
		outcome.RetryCount = attempt
		return outcome
	}

	outcome.Status = store.JobStatusFailed
	outcome.RetryCount = job.RetryCount
	return outcome
}

func (e *Executor) finish(ctx context.Context, job *store.Job, outcome store.Outcome) (ExecResult, error) {
	if err := e.store.Complete(ctx, job.ID, outcome); err != nil {
		return ExecResult{}, fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}

	res := ExecResult{
		JobID:      job.ID.String(),
		Type:       job.Type,
		Status:     outcome.Status,
		RetryCount: outcome.RetryCount,
		NextRunAt:  outcome.NextRunAt,
	}
	if !outcome.Result.OK {
		res.Error = outcome.Result.Message
		e.logger.Warn("job run failed",
			"job_id", res.JobID,
			"type", res.Type,
			"status", res.Status,
			"retry_count", res.RetryCount,
			"error", res.Error,
		)
	} else {
		e.logger.Info("job run succeeded",
			"job_id", res.JobID,
			"type", res.Type,
			"status", res.Status,
		)
	}
	return res, nil
}

// resultMessage keeps a short printable form of the handler's result payload.
func resultMessage(result json.RawMessage) string {
	const maxLen = 256
	s := string(result)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
