// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the scheduler service.
package api

import (
	"encoding/json"
	"time"
)

// CreateJobRequest is the request body for creating a new job record.
type CreateJobRequest struct {
	OrgID   string          `json:"org_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	// RunAt is the first due time; defaults to now.
	RunAt *time.Time `json:"run_at,omitempty"`
	// RecurrenceRule is a Go duration ("5m"), an @every descriptor, or a
	// cron expression. Empty means one-shot.
	RecurrenceRule string `json:"recurrence_rule,omitempty"`
	MaxRetries     int    `json:"max_retries,omitempty"`
}

// CreateJobResponse is the response body after creating a job.
type CreateJobResponse struct {
	JobID string `json:"job_id"`
}

// JobResponse represents a job record in API responses.
type JobResponse struct {
	ID             string          `json:"id"`
	OrgID          string          `json:"org_id"`
	Type           string          `json:"type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Status         string          `json:"status"`
	NextRunAt      *time.Time      `json:"next_run_at,omitempty"`
	RecurrenceRule string          `json:"recurrence_rule,omitempty"`
	LastRunAt      *time.Time      `json:"last_run_at,omitempty"`
	LastResultOK   *bool           `json:"last_result_ok,omitempty"`
	LastResult     string          `json:"last_result,omitempty"`
	RetryCount     int             `json:"retry_count"`
	MaxRetries     int             `json:"max_retries"`
	ClaimedBy      string          `json:"claimed_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ListJobsResponse is the response body for job listings.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// TriggerResponse is the executor's result summary for a manual trigger.
type TriggerResponse struct {
	JobID      string     `json:"job_id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	RetryCount int        `json:"retry_count"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// DispatchSummary is the aggregate result of one dispatch cycle.
type DispatchSummary struct {
	Released  int             `json:"released"`
	Attempted int             `json:"attempted"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Errors    []DispatchError `json:"errors,omitempty"`
}

// DispatchError is the per-job failure detail in a dispatch summary.
type DispatchError struct {
	JobID      string `json:"job_id"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	RetryCount int    `json:"retry_count"`
}

// CancelResponse is the response body after cancelling a job.
type CancelResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
