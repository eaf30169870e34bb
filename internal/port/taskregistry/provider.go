// Package taskregistry defines the port interface for the external task
// registry the dispatcher pulls work from (Notion-style databases, issue
// trackers, and similar systems of record).
package taskregistry

import (
	"context"
	"errors"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/task"
)

// ErrNotSupported is returned when a provider does not support the requested
// operation.
var ErrNotSupported = errors.New("operation not supported by this provider")

// Query narrows a task listing. Statuses is a status-in-set filter evaluated
// by the registry; an empty set means unfiltered. Providers must exclude
// archived and soft-deleted items and must request priority-ascending,
// last-edited-descending ordering where the backend supports it.
type Query struct {
	Statuses []string
	Limit    int
}

// Capabilities declares what a registry provider supports.
type Capabilities struct {
	QueryTasks   bool `json:"query_tasks"`
	UpdateStatus bool `json:"update_status"`
	CreateTask   bool `json:"create_task"`
}

// Provider is the port interface for external task registries. Registries
// are rate limited and occasionally schema-inconsistent; callers treat read
// failures as transient and never let them abort a dispatch cycle.
type Provider interface {
	// Name returns the provider identifier (e.g., "notion").
	Name() string

	// Capabilities returns what this provider supports.
	Capabilities() Capabilities

	// QueryTasks returns work-item snapshots matching q.
	QueryTasks(ctx context.Context, q Query) ([]task.Task, error)

	// UpdateStatus sets the status field of one task. Best effort: callers
	// must not treat failure as invalidating work already dispatched.
	UpdateStatus(ctx context.Context, taskID, status string) error

	// CreateTask records a new task in the registry.
	// Returns ErrNotSupported if the provider cannot create tasks.
	CreateTask(ctx context.Context, t *task.Task) (*task.Task, error)
}
