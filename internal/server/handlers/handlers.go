// Package handlers contains HTTP handlers for the scheduler API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cronplane/internal/authz"
	"cronplane/internal/logger"
	"cronplane/internal/scheduler"
	"cronplane/internal/server/middleware"
	"cronplane/internal/store"
	"cronplane/pkg/api"

	"github.com/google/uuid"
)

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store      store.Store
	gate       *authz.Gate
	executor   *scheduler.Executor
	dispatcher *scheduler.Dispatcher
	logger     *slog.Logger

	// When false, gate denials on operator endpoints are logged and the
	// request proceeds (development soft-fail). The gate is invoked either way.
	authzEnforce bool
}

// New creates a new Handlers instance with the given dependencies.
func New(s store.Store, gate *authz.Gate, executor *scheduler.Executor, dispatcher *scheduler.Dispatcher, log *slog.Logger, authzEnforce bool) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		store:        s,
		gate:         gate,
		executor:     executor,
		dispatcher:   dispatcher,
		logger:       log,
		authzEnforce: authzEnforce,
	}
}

// authorize runs a capability check and maps the result to the configured
// enforcement policy. Returns true when the request may proceed.
func (h *Handlers) authorize(ctx context.Context, w http.ResponseWriter, actorID, orgID uuid.UUID, capability authz.Capability) bool {
	err := h.gate.CheckCapability(ctx, actorID, orgID, capability)
	if err == nil {
		return true
	}

	log := logger.FromContext(ctx, h.logger)
	if !errors.Is(err, authz.ErrForbidden) {
		log.Error("authorization check failed", "error", err)
		h.httpError(w, "Authorization check failed", http.StatusInternalServerError)
		return false
	}

	if h.authzEnforce {
		h.httpError(w, "Forbidden", http.StatusForbidden)
		return false
	}
	log.Warn("authorization denial ignored (enforcement disabled)",
		"actor_id", actorID,
		"org_id", orgID,
		"capability", string(capability),
		"error", err,
	)
	return true
}

// actor pulls the authenticated actor off the context; the auth middleware
// guarantees it on operator routes.
func (h *Handlers) actor(w http.ResponseWriter, r *http.Request) (*store.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return actor, true
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

func jobResponse(job *store.Job) api.JobResponse {
	resp := api.JobResponse{
		ID:             job.ID.String(),
		OrgID:          job.OrgID.String(),
		Type:           job.Type,
		Payload:        job.Payload,
		Status:         string(job.Status),
		NextRunAt:      job.NextRunAt,
		RecurrenceRule: job.RecurrenceRule,
		LastRunAt:      job.LastRunAt,
		RetryCount:     job.RetryCount,
		MaxRetries:     job.MaxRetries,
		ClaimedBy:      job.ClaimedBy,
		CreatedAt:      job.CreatedAt,
	}
	if job.LastResult != nil {
		ok := job.LastResult.OK
		resp.LastResultOK = &ok
		resp.LastResult = job.LastResult.Message
	}
	return resp
}

func now() time.Time {
	return time.Now().UTC()
}
