package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cronplane/internal/auth"
	"cronplane/internal/store"

	"github.com/google/uuid"
)

// mockDirectory implements store.Directory for testing
type mockDirectory struct {
	actors map[string]*store.Actor // api key hash -> actor
	role   store.Role
	org    *store.Org
}

func (m *mockDirectory) GetActorByAPIKeyHash(_ context.Context, hash string) (*store.Actor, error) {
	actor, ok := m.actors[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return actor, nil
}

func (m *mockDirectory) GetRole(_ context.Context, _, _ uuid.UUID) (store.Role, error) {
	if m.role == "" {
		return "", store.ErrNotFound
	}
	return m.role, nil
}

func (m *mockDirectory) GetOrg(_ context.Context, _ uuid.UUID) (*store.Org, error) {
	if m.org == nil {
		return nil, store.ErrNotFound
	}
	return m.org, nil
}

func TestSessionAuth_MissingAuthHeader(t *testing.T) {
	middleware := SessionAuth(&mockDirectory{})

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSessionAuth_InvalidAuthHeaderFormat(t *testing.T) {
	middleware := SessionAuth(&mockDirectory{})

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "api-key-123"},
		{"wrong prefix", "Basic api-key-123"},
		{"too many parts", "Bearer key1 key2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("got status %d, want %d", rr.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestSessionAuth_UnknownKey(t *testing.T) {
	middleware := SessionAuth(&mockDirectory{actors: map[string]*store.Actor{}})

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-key")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSessionAuth_ValidKey(t *testing.T) {
	actor := &store.Actor{ID: uuid.New(), Name: "tester", CreatedAt: time.Now()}
	dir := &mockDirectory{actors: map[string]*store.Actor{
		auth.HashKey("valid-api-key"): actor,
	}}
	middleware := SessionAuth(dir)

	var got *store.Actor
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer valid-api-key")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusOK)
	}
	if got == nil || got.ID != actor.ID {
		t.Errorf("context actor = %v, want %v", got, actor)
	}
}

func TestActorFromContext_Empty(t *testing.T) {
	actor, ok := ActorFromContext(context.Background())
	if ok {
		t.Error("expected ok to be false for empty context")
	}
	if actor != nil {
		t.Errorf("expected nil actor, got %v", actor)
	}
}
