package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cronplane/internal/store"

	"github.com/google/uuid"
)

// CreateActor inserts a new actor with its hashed API key.
func (s *Store) CreateActor(ctx context.Context, actor *store.Actor, hashedKey string) error {
	query := `
		INSERT INTO actors (id, name, api_key_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, actor.ID, actor.Name, hashedKey, actor.CreatedAt)
	return err
}

// GetActorByAPIKeyHash returns the actor owning the hashed API key.
func (s *Store) GetActorByAPIKeyHash(ctx context.Context, hash string) (*store.Actor, error) {
	query := "SELECT id, name, created_at FROM actors WHERE api_key_hash = $1"

	var a store.Actor
	err := s.db.QueryRowContext(ctx, query, hash).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateOrg inserts a new organisation.
func (s *Store) CreateOrg(ctx context.Context, org *store.Org) error {
	query := `
		INSERT INTO orgs (id, name, max_active_jobs, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, org.ID, org.Name, org.MaxActiveJobs, org.CreatedAt)
	return err
}

// GetOrg returns the organisation record.
func (s *Store) GetOrg(ctx context.Context, id uuid.UUID) (*store.Org, error) {
	query := "SELECT id, name, max_active_jobs, created_at FROM orgs WHERE id = $1"

	var o store.Org
	err := s.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.Name, &o.MaxActiveJobs, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SetRole upserts an actor's role within an organisation.
func (s *Store) SetRole(ctx context.Context, actorID, orgID uuid.UUID, role store.Role) error {
	query := `
		INSERT INTO memberships (actor_id, org_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (actor_id, org_id) DO UPDATE SET role = EXCLUDED.role
	`
	_, err := s.db.ExecContext(ctx, query, actorID, orgID, role, time.Now().UTC())
	return err
}

// GetRole returns the actor's role in the organisation.
func (s *Store) GetRole(ctx context.Context, actorID, orgID uuid.UUID) (store.Role, error) {
	query := "SELECT role FROM memberships WHERE actor_id = $1 AND org_id = $2"

	var role store.Role
	err := s.db.QueryRowContext(ctx, query, actorID, orgID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return role, nil
}
