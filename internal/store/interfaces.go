package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors shared by all store implementations. Callers are expected
// to branch with errors.Is.
var (
	// ErrNotFound is returned by point lookups when no record exists.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyClaimed is returned by Claim when the record is not PENDING
	// at the time of the attempt. This is contention, not failure: another
	// dispatch already took the job.
	ErrAlreadyClaimed = errors.New("store: already claimed")

	// ErrAlreadyFinished is returned by Cancel for records in a terminal state.
	ErrAlreadyFinished = errors.New("store: already finished")
)

// JobStore handles the persistence of job records and their run history.
//
// Claim is the only synchronization point in the system: it must be an
// atomic conditional transition on the stored status, never a read followed
// by a write.
type JobStore interface {
	// CreateJob inserts a new job record.
	CreateJob(ctx context.Context, job *Job) error

	// GetJob returns a job by its ID, or ErrNotFound.
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)

	// ListJobs returns jobs for an organisation, newest first.
	// Administrative listing only; no special consistency contract.
	ListJobs(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Job, error)

	// FindDue returns up to limit PENDING jobs with next_run_at <= now,
	// oldest-due first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	// Claim atomically transitions a PENDING job to RUNNING, recording the
	// claimant and claim time. Returns ErrAlreadyClaimed if the job is in
	// any other state, ErrNotFound if it does not exist.
	Claim(ctx context.Context, id uuid.UUID, claimant string, now time.Time) error

	// Complete writes the outcome of an execution for a RUNNING job and
	// releases the claim. Idempotent: once the claim has been released the
	// call is a no-op, so a duplicate completion never overwrites the first.
	// A job cancelled while running stays CANCELLED; the outcome is dropped.
	Complete(ctx context.Context, id uuid.UUID, outcome Outcome) error

	// Cancel marks a PENDING or RUNNING job CANCELLED and clears its
	// schedule. Returns ErrAlreadyFinished for terminal jobs.
	Cancel(ctx context.Context, id uuid.UUID) error

	// ReleaseStuck returns RUNNING jobs claimed at or before cutoff back to
	// PENDING so they can be dispatched again. Returns the number released.
	ReleaseStuck(ctx context.Context, cutoff, now time.Time) (int, error)

	// CountDue returns the number of currently due PENDING jobs.
	CountDue(ctx context.Context, now time.Time) (int64, error)

	// CountActive returns the number of non-terminal jobs for an
	// organisation. Input to quota checks.
	CountActive(ctx context.Context, orgID uuid.UUID) (int64, error)
}

// Directory resolves operator identities and organisation memberships.
// Backing source of roles and limits is unconstrained.
type Directory interface {
	// GetActorByAPIKeyHash returns the actor owning the hashed API key,
	// or ErrNotFound.
	GetActorByAPIKeyHash(ctx context.Context, hash string) (*Actor, error)

	// GetRole returns the actor's role in the organisation, or ErrNotFound
	// when the actor is not a member.
	GetRole(ctx context.Context, actorID, orgID uuid.UUID) (Role, error)

	// GetOrg returns the organisation record, or ErrNotFound.
	GetOrg(ctx context.Context, id uuid.UUID) (*Org, error)
}

// Store combines everything the scheduler service needs from a backend.
type Store interface {
	JobStore
	Directory

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
