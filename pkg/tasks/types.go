package tasks

import (
	"errors"
	"strings"
	"time"
)

const (
	// MaxTitleLength is the maximum accepted title length after trimming.
	MaxTitleLength = 500
	// MaxDescriptionLength is the maximum accepted description length.
	MaxDescriptionLength = 5000
)

// Task represents a todo item owned by a single user.
type Task struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateTaskRequest is the request body for task creation. It carries no
// owner field: the owner is always taken from the resolved identity, and
// unknown fields in the body (including owner-like ones) are discarded
// by JSON decoding.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// Validate normalizes and checks the request in place. Title and
// description are whitespace-trimmed; an empty description becomes nil.
func (r *CreateTaskRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return errors.New("title is required")
	}
	if len(r.Title) > MaxTitleLength {
		return errors.New("title must be at most 500 characters")
	}

	if r.Description != nil {
		trimmed := strings.TrimSpace(*r.Description)
		if len(trimmed) > MaxDescriptionLength {
			return errors.New("description must be at most 5000 characters")
		}
		if trimmed == "" {
			r.Description = nil
		} else {
			r.Description = &trimmed
		}
	}

	return nil
}

// UpdateTaskRequest is the request body for task updates. Nil fields are
// left unchanged; a provided empty description clears it.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Validate normalizes and checks the request in place.
func (r *UpdateTaskRequest) Validate() error {
	if r.Title != nil {
		trimmed := strings.TrimSpace(*r.Title)
		if trimmed == "" {
			return errors.New("title cannot be empty")
		}
		if len(trimmed) > MaxTitleLength {
			return errors.New("title must be at most 500 characters")
		}
		r.Title = &trimmed
	}

	if r.Description != nil {
		trimmed := strings.TrimSpace(*r.Description)
		if len(trimmed) > MaxDescriptionLength {
			return errors.New("description must be at most 5000 characters")
		}
		r.Description = &trimmed
	}

	return nil
}

// IsEmpty reports whether the update carries no changes.
func (r *UpdateTaskRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil
}
