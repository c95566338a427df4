package tasks

import (
	"context"
	"errors"
)

// ErrTaskNotFound is returned when a task does not exist for the given
// owner. An existing task owned by someone else produces the same error:
// the two cases are indistinguishable by design.
var ErrTaskNotFound = errors.New("task not found")

// Store is the ownership-filtered task storage interface. Every method
// takes the owner's subject identifier and constrains its queries with
// it; implementations must not offer unfiltered access.
type Store interface {
	// Create inserts a task owned by ownerID and returns it with
	// database-assigned fields populated.
	Create(ctx context.Context, ownerID string, req *CreateTaskRequest) (*Task, error)

	// List returns the owner's tasks ordered by creation time
	// descending, plus the owner's total task count.
	List(ctx context.Context, ownerID string, limit, offset int) ([]*Task, int64, error)

	// Get returns a single task, or ErrTaskNotFound when it does not
	// exist or is owned by someone else.
	Get(ctx context.Context, ownerID string, id int64) (*Task, error)

	// Update applies the non-nil fields of req. Ownership, completion
	// state, and creation time are preserved.
	Update(ctx context.Context, ownerID string, id int64, req *UpdateTaskRequest) (*Task, error)

	// ToggleComplete flips the completion flag.
	ToggleComplete(ctx context.Context, ownerID string, id int64) (*Task, error)

	// Delete removes the task, or returns ErrTaskNotFound.
	Delete(ctx context.Context, ownerID string, id int64) error

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error
}
