// Package store contains the database layer for cronplane.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job record.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether no further dispatch may consider the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed || s == JobStatusCancelled
}

// Job represents one unit of schedulable work and its run history.
// Execution state is mutated only through Claim and Complete; operators
// may additionally cancel. Records are never deleted by the engine.
type Job struct {
	ID      uuid.UUID
	OrgID   uuid.UUID
	Type    string
	Payload json.RawMessage

	Status         JobStatus
	NextRunAt      *time.Time // nil once a one-shot has run or the job is terminal
	RecurrenceRule string     // empty = one-shot

	LastRunAt  *time.Time
	LastResult *RunResult
	RetryCount int
	MaxRetries int

	ClaimedAt *time.Time
	ClaimedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RunResult records the outcome of the most recent execution attempt.
type RunResult struct {
	OK      bool
	Message string
}

// Outcome is the single write applied by Complete after an execution.
// It carries every field the executor is allowed to touch.
type Outcome struct {
	Status     JobStatus // PENDING (reschedule/retry), SUCCEEDED or FAILED
	NextRunAt  *time.Time
	LastRunAt  time.Time
	Result     RunResult
	RetryCount int
}

// Role is an actor's role within an organisation.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Actor represents an authenticated operator identity.
type Actor struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Org represents an organisation: the authorization context and the
// subject of resource quotas.
type Org struct {
	ID            uuid.UUID
	Name          string
	MaxActiveJobs int // 0 = unlimited
	CreatedAt     time.Time
}
