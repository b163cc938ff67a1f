package scheduler

import (
	"context"
	"encoding/json"
	"testing"
)

func noopHandler(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return nil, nil
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("email", noopHandler); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, ok := r.Resolve("email"); !ok {
		t.Error("Resolve should find a registered handler")
	}
	if _, ok := r.Resolve("missing"); ok {
		t.Error("Resolve should not find an unregistered type")
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("email", noopHandler); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("email", noopHandler); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register("a", noopHandler)
	r.Register("b", noopHandler)

	names := r.Names()
	if len(names) != 2 {
		t.Errorf("Names() = %v, want 2 entries", names)
	}
}
