// Package authz is the authorization gate for job-affecting operations.
// It answers two questions with no side effects: does an actor hold a
// capability within an organisation, and is a resource consumption within
// the organisation's quota. Callers decide how to react to a denial.
package authz

import (
	"context"
	"errors"
	"fmt"

	"cronplane/internal/store"

	"github.com/google/uuid"
)

var (
	// ErrForbidden is returned when the actor's role lacks the capability.
	ErrForbidden = errors.New("authz: forbidden")

	// ErrQuotaExceeded is returned when consumption would exceed the
	// organisation's limit.
	ErrQuotaExceeded = errors.New("authz: quota exceeded")
)

// Capability is a named permission an actor may hold within an organisation.
type Capability string

const (
	CapabilityJobsRead    Capability = "jobs:read"
	CapabilityJobsCreate  Capability = "jobs:create"
	CapabilityJobsTrigger Capability = "jobs:trigger"
	CapabilityJobsCancel  Capability = "jobs:cancel"
)

// Resource identifies a quota-limited resource kind.
type Resource string

// ResourceJobs counts non-terminal jobs against the org's seat limit.
const ResourceJobs Resource = "jobs"

// roleCapabilities maps each role to the capabilities it grants.
var roleCapabilities = map[store.Role]map[Capability]bool{
	store.RoleViewer: {
		CapabilityJobsRead: true,
	},
	store.RoleOperator: {
		CapabilityJobsRead:    true,
		CapabilityJobsCreate:  true,
		CapabilityJobsTrigger: true,
	},
	store.RoleAdmin: {
		CapabilityJobsRead:    true,
		CapabilityJobsCreate:  true,
		CapabilityJobsTrigger: true,
		CapabilityJobsCancel:  true,
	},
}

// Gate performs capability and quota checks against the directory.
type Gate struct {
	dir  store.Directory
	jobs store.JobStore
}

// New creates a Gate backed by the given directory and job store.
func New(dir store.Directory, jobs store.JobStore) *Gate {
	return &Gate{dir: dir, jobs: jobs}
}

// CheckCapability returns ErrForbidden when the actor's role in the
// organisation does not grant the capability. A missing membership is
// equivalent to no role at all.
func (g *Gate) CheckCapability(ctx context.Context, actorID, orgID uuid.UUID, capability Capability) error {
	role, err := g.dir.GetRole(ctx, actorID, orgID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("actor %s has no role in org %s: %w", actorID, orgID, ErrForbidden)
	}
	if err != nil {
		return fmt.Errorf("role lookup failed: %w", err)
	}

	if !roleCapabilities[role][capability] {
		return fmt.Errorf("role %q lacks %q: %w", role, capability, ErrForbidden)
	}
	return nil
}

// CheckQuota returns ErrQuotaExceeded when consuming one more unit of the
// resource would exceed the organisation's limit. A limit of zero means
// unlimited.
func (g *Gate) CheckQuota(ctx context.Context, orgID uuid.UUID, resource Resource) error {
	if resource != ResourceJobs {
		return fmt.Errorf("unknown resource kind %q", resource)
	}

	org, err := g.dir.GetOrg(ctx, orgID)
	if err != nil {
		return fmt.Errorf("org lookup failed: %w", err)
	}
	if org.MaxActiveJobs <= 0 {
		return nil
	}

	active, err := g.jobs.CountActive(ctx, orgID)
	if err != nil {
		return fmt.Errorf("active job count failed: %w", err)
	}
	if active >= int64(org.MaxActiveJobs) {
		return fmt.Errorf("org %s at %d of %d active jobs: %w", orgID, active, org.MaxActiveJobs, ErrQuotaExceeded)
	}
	return nil
}
