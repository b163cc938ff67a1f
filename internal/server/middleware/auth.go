// Package middleware contains HTTP middleware for the scheduler API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"cronplane/internal/auth"
	"cronplane/internal/store"
	"cronplane/pkg/api"
)

// actorKey is the context key for the authenticated actor.
type actorKey struct{}

// SessionAuth validates the bearer API key and attaches the owning actor
// to the request context.
func SessionAuth(dir store.Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, "Invalid authorization header")
				return
			}

			actor, err := dir.GetActorByAPIKeyHash(r.Context(), auth.HashKey(parts[1]))
			if err != nil {
				unauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContextWithActor(r.Context(), actor)))
		})
	}
}

// NewContextWithActor attaches an actor to the context.
func NewContextWithActor(ctx context.Context, actor *store.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext extracts the authenticated actor from the context.
func ActorFromContext(ctx context.Context) (*store.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(*store.Actor)
	return actor, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: message, Code: "401"})
}
