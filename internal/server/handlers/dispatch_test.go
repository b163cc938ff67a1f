package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cronplane/internal/authz"
	"cronplane/internal/scheduler"
	"cronplane/internal/store"
	"cronplane/internal/store/memory"
	"cronplane/pkg/api"
)

func TestDispatch_RunsDueJobs(t *testing.T) {
	env := newTestEnv(t, store.RoleOperator, true)
	env.addJob(t, "noop", time.Now().Add(-time.Minute))
	env.addJob(t, "boom", time.Now().Add(-time.Minute))
	env.addJob(t, "noop", time.Now().Add(time.Hour)) // not due

	req := httptest.NewRequest(http.MethodPost, "/internal/dispatch", nil)
	rr := httptest.NewRecorder()
	env.h.Dispatch(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}

	var resp api.DispatchSummary
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Attempted != 2 {
		t.Errorf("attempted = %d, want 2", resp.Attempted)
	}
	if resp.Succeeded != 1 || resp.Failed != 1 {
		t.Errorf("succeeded = %d failed = %d, want 1 and 1", resp.Succeeded, resp.Failed)
	}
	if len(resp.Errors) != 1 {
		t.Errorf("got %d errors, want 1", len(resp.Errors))
	}
}

func TestDispatch_EmptyCycle(t *testing.T) {
	env := newTestEnv(t, store.RoleOperator, true)

	rr := httptest.NewRecorder()
	env.h.Dispatch(rr, httptest.NewRequest(http.MethodPost, "/internal/dispatch", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rr.Code, rr.Body.String())
	}
	var resp api.DispatchSummary
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Attempted != 0 {
		t.Errorf("attempted = %d, want 0", resp.Attempted)
	}
}

// brokenFindDueStore fails the due query to simulate a store outage.
type brokenFindDueStore struct {
	*memory.Store
}

func (b *brokenFindDueStore) FindDue(_ context.Context, _ time.Time, _ int) ([]*store.Job, error) {
	return nil, errors.New("connection refused")
}

func TestDispatch_StoreFault(t *testing.T) {
	m := memory.New()
	broken := &brokenFindDueStore{Store: m}

	registry := scheduler.NewRegistry()
	executor := scheduler.NewExecutor(broken, registry, nil, 0, nil)
	dispatcher := scheduler.NewDispatcher(broken, executor, scheduler.DispatcherConfig{Claimant: "test"}, nil)
	h := New(m, authz.New(m, m), executor, dispatcher, nil, true)

	rr := httptest.NewRecorder()
	h.Dispatch(rr, httptest.NewRequest(http.MethodPost, "/internal/dispatch", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}
