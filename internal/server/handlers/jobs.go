package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cronplane/internal/authz"
	"cronplane/internal/logger"
	"cronplane/internal/scheduler"
	"cronplane/internal/store"
	"cronplane/pkg/api"

	"github.com/google/uuid"
)

// CreateJob handles POST /jobs.
// It validates the recurrence rule, checks the org's seat quota, and saves
// a new PENDING job record with its first due time.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req api.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Type == "" {
		h.httpError(w, "Type is required", http.StatusBadRequest)
		return
	}

	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		h.httpError(w, "Invalid org id", http.StatusBadRequest)
		return
	}

	if err := scheduler.ValidateRule(req.RecurrenceRule); err != nil {
		h.httpError(w, "Invalid recurrence rule: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !h.authorize(ctx, w, actor.ID, orgID, authz.CapabilityJobsCreate) {
		return
	}

	if err := h.gate.CheckQuota(ctx, orgID, authz.ResourceJobs); err != nil {
		if errors.Is(err, authz.ErrQuotaExceeded) {
			h.httpError(w, "Job quota exceeded for organisation", http.StatusTooManyRequests)
			return
		}
		h.httpError(w, "Quota check failed", http.StatusInternalServerError)
		return
	}

	runAt := now()
	if req.RunAt != nil {
		runAt = req.RunAt.UTC()
	}

	job := &store.Job{
		ID:             uuid.New(),
		OrgID:          orgID,
		Type:           req.Type,
		Payload:        req.Payload,
		Status:         store.JobStatusPending,
		NextRunAt:      &runAt,
		RecurrenceRule: req.RecurrenceRule,
		MaxRetries:     req.MaxRetries,
		CreatedAt:      now(),
	}

	if err := h.store.CreateJob(ctx, job); err != nil {
		logger.FromContext(ctx, h.logger).Error("failed to create job", "error", err)
		h.httpError(w, "Failed to create job", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, api.CreateJobResponse{JobID: job.ID.String()})
}

// GetJob handles GET /jobs/{id}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Job not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	if !h.authorize(ctx, w, actor.ID, job.OrgID, authz.CapabilityJobsRead) {
		return
	}

	h.respondJson(w, http.StatusOK, jobResponse(job))
}

// ListJobs handles GET /jobs?org_id=...&limit=...&offset=...
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	orgID, err := uuid.Parse(r.URL.Query().Get("org_id"))
	if err != nil {
		h.httpError(w, "Invalid org id", http.StatusBadRequest)
		return
	}

	if !h.authorize(ctx, w, actor.ID, orgID, authz.CapabilityJobsRead) {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	jobs, err := h.store.ListJobs(ctx, orgID, limit, offset)
	if err != nil {
		h.httpError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	resp := api.ListJobsResponse{Jobs: make([]api.JobResponse, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, jobResponse(job))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// TriggerJob handles POST /jobs/{id}/trigger.
// It force-runs one job immediately, bypassing next_run_at. The claim is
// the same one the dispatcher takes, so a manual trigger can never race a
// concurrently firing periodic dispatch into a double execution.
func (h *Handlers) TriggerJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Job not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	if !h.authorize(ctx, w, actor.ID, job.OrgID, authz.CapabilityJobsTrigger) {
		return
	}

	claimTime := now()
	claimant := "manual:" + actor.ID.String()
	if err := h.store.Claim(ctx, jobID, claimant, claimTime); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyClaimed):
			h.httpError(w, "Job is not pending (already claimed or finished)", http.StatusConflict)
		case errors.Is(err, store.ErrNotFound):
			h.httpError(w, "Job not found", http.StatusNotFound)
		default:
			h.httpError(w, "Failed to claim job", http.StatusInternalServerError)
		}
		return
	}

	job.Status = store.JobStatusRunning
	job.ClaimedAt = &claimTime
	job.ClaimedBy = claimant

	result, err := h.executor.Execute(ctx, job)
	if err != nil {
		logger.FromContext(ctx, h.logger).Error("manual trigger execution failed", "job_id", jobID, "error", err)
		h.httpError(w, "Execution failed", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.TriggerResponse{
		JobID:      result.JobID,
		Type:       result.Type,
		Status:     string(result.Status),
		RetryCount: result.RetryCount,
		NextRunAt:  result.NextRunAt,
		Error:      result.Error,
	})
}

// CancelJob handles POST /jobs/{id}/cancel.
// A RUNNING job keeps executing, but its completion is discarded: the
// CANCELLED mark wins over the in-flight outcome.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid job id", http.StatusBadRequest)
		return
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Job not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load job", http.StatusInternalServerError)
		return
	}

	if !h.authorize(ctx, w, actor.ID, job.OrgID, authz.CapabilityJobsCancel) {
		return
	}

	if err := h.store.Cancel(ctx, jobID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.httpError(w, "Job not found", http.StatusNotFound)
		case errors.Is(err, store.ErrAlreadyFinished):
			h.httpError(w, "Job already finished", http.StatusConflict)
		default:
			h.httpError(w, "Failed to cancel job", http.StatusInternalServerError)
		}
		return
	}

	h.respondJson(w, http.StatusOK, api.CancelResponse{
		JobID:  jobID.String(),
		Status: string(store.JobStatusCancelled),
	})
}
