// Package memory is a fully in-process implementation of the store
// interfaces. Safe for concurrent access. Intended for unit testing and
// single-process development mode; the production claim protocol requires
// a durable backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cronplane/internal/store"

	"github.com/google/uuid"
)

var _ store.Store = (*Store)(nil)

// Store holds all records behind a single mutex. The conditional
// transitions in Claim, Complete and Cancel run under the write lock, which
// gives the same atomicity as the SQL conditional updates.
type Store struct {
	mu sync.RWMutex

	jobs   map[uuid.UUID]*store.Job
	actors map[uuid.UUID]*store.Actor
	orgs   map[uuid.UUID]*store.Org
	keys   map[string]uuid.UUID                   // api key hash -> actor
	roles  map[uuid.UUID]map[uuid.UUID]store.Role // actor -> org -> role
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:   make(map[uuid.UUID]*store.Job),
		actors: make(map[uuid.UUID]*store.Actor),
		orgs:   make(map[uuid.UUID]*store.Org),
		keys:   make(map[string]uuid.UUID),
		roles:  make(map[uuid.UUID]map[uuid.UUID]store.Role),
	}
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// CreateJob inserts a new job record.
func (m *Store) CreateJob(_ context.Context, job *store.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

// GetJob returns a copy of the job, or store.ErrNotFound.
func (m *Store) GetJob(_ context.Context, id uuid.UUID) (*store.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

// ListJobs returns jobs for an organisation, newest first.
func (m *Store) ListJobs(_ context.Context, orgID uuid.UUID, limit, offset int) ([]*store.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var all []*store.Job
	for _, job := range m.jobs {
		if job.OrgID == orgID {
			cp := *job
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// FindDue returns up to limit PENDING jobs due at now, oldest-due first.
func (m *Store) FindDue(_ context.Context, now time.Time, limit int) ([]*store.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 1
	}

	var due []*store.Job
	for _, job := range m.jobs {
		if job.Status != store.JobStatusPending {
			continue
		}
		if job.NextRunAt == nil || job.NextRunAt.After(now) {
			continue
		}
		cp := *job
		due = append(due, &cp)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRunAt.Before(*due[j].NextRunAt) })

	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Claim atomically transitions a PENDING job to RUNNING.
func (m *Store) Claim(_ context.Context, id uuid.UUID, claimant string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status != store.JobStatusPending {
		return store.ErrAlreadyClaimed
	}

	t := now
	job.Status = store.JobStatusRunning
	job.ClaimedAt = &t
	job.ClaimedBy = claimant
	job.UpdatedAt = now
	return nil
}

// Complete writes the outcome for a RUNNING job and releases the claim.
// A no-op once the claim is gone, so duplicate completions and concurrent
// cancellations are both absorbed.
func (m *Store) Complete(_ context.Context, id uuid.UUID, outcome store.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status != store.JobStatusRunning {
		return nil
	}

	result := outcome.Result
	lastRun := outcome.LastRunAt

	job.Status = outcome.Status
	job.NextRunAt = copyTime(outcome.NextRunAt)
	job.LastRunAt = &lastRun
	job.LastResult = &result
	job.RetryCount = outcome.RetryCount
	job.ClaimedAt = nil
	job.ClaimedBy = ""
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel marks a PENDING or RUNNING job CANCELLED.
func (m *Store) Cancel(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status.Terminal() {
		return store.ErrAlreadyFinished
	}

	job.Status = store.JobStatusCancelled
	job.NextRunAt = nil
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// ReleaseStuck requeues RUNNING jobs claimed at or before cutoff.
func (m *Store) ReleaseStuck(_ context.Context, cutoff, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := 0
	for _, job := range m.jobs {
		if job.Status != store.JobStatusRunning || job.ClaimedAt == nil || job.ClaimedAt.After(cutoff) {
			continue
		}
		t := now
		job.Status = store.JobStatusPending
		job.NextRunAt = &t
		job.ClaimedAt = nil
		job.ClaimedBy = ""
		job.UpdatedAt = now
		released++
	}
	return released, nil
}

// CountDue returns the number of currently due PENDING jobs.
func (m *Store) CountDue(_ context.Context, now time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, job := range m.jobs {
		if job.Status == store.JobStatusPending && job.NextRunAt != nil && !job.NextRunAt.After(now) {
			count++
		}
	}
	return count, nil
}

// CountActive returns the number of non-terminal jobs for an organisation.
func (m *Store) CountActive(_ context.Context, orgID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, job := range m.jobs {
		if job.OrgID == orgID && !job.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

// CreateActor registers an actor with its hashed API key.
func (m *Store) CreateActor(_ context.Context, actor *store.Actor, hashedKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *actor
	m.actors[actor.ID] = &cp
	m.keys[hashedKey] = actor.ID
	return nil
}

// GetActorByAPIKeyHash returns the actor owning the hashed API key.
func (m *Store) GetActorByAPIKeyHash(_ context.Context, hash string) (*store.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.keys[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m.actors[id]
	return &cp, nil
}

// CreateOrg registers an organisation.
func (m *Store) CreateOrg(_ context.Context, org *store.Org) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *org
	m.orgs[org.ID] = &cp
	return nil
}

// GetOrg returns the organisation record.
func (m *Store) GetOrg(_ context.Context, id uuid.UUID) (*store.Org, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	org, ok := m.orgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

// SetRole assigns an actor's role within an organisation.
func (m *Store) SetRole(_ context.Context, actorID, orgID uuid.UUID, role store.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.roles[actorID] == nil {
		m.roles[actorID] = make(map[uuid.UUID]store.Role)
	}
	m.roles[actorID][orgID] = role
	return nil
}

// GetRole returns the actor's role in the organisation.
func (m *Store) GetRole(_ context.Context, actorID, orgID uuid.UUID) (store.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.roles[actorID][orgID]
	if !ok {
		return "", store.ErrNotFound
	}
	return role, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
