package handlers

import (
	"net/http"

	"cronplane/internal/logger"
	"cronplane/internal/scheduler"
	"cronplane/pkg/api"
)

// Dispatch handles POST /internal/dispatch, the periodic trigger.
// The caller is expected to fire at least once per scheduling window;
// overlapping invocations are safe because every job goes through the
// store's conditional claim.
func (h *Handlers) Dispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.dispatcher.ProcessDueJobs(ctx, now())
	if err != nil {
		// Infrastructure fault: the caller retries the whole cycle on its
		// next firing. Unclaimed job state is untouched.
		logger.FromContext(ctx, h.logger).Error("dispatch cycle failed", "error", err)
		h.httpError(w, "Dispatch failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, dispatchSummary(summary))
}

func dispatchSummary(s *scheduler.Summary) api.DispatchSummary {
	resp := api.DispatchSummary{
		Released:  s.Released,
		Attempted: s.Attempted,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
	}
	for _, e := range s.Errors {
		resp.Errors = append(resp.Errors, api.DispatchError{
			JobID:      e.JobID,
			Type:       e.Type,
			Message:    e.Message,
			RetryCount: e.RetryCount,
		})
	}
	return resp
}
