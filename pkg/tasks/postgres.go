package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/taskdeck/pkg/observability"
)

// PostgresStore implements Store on PostgreSQL. Every query carries an
// equality predicate on user_id; the single-row variants combine it with
// the primary key so an ownership mismatch scans zero rows.
type PostgresStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewPostgresStore creates a PostgreSQL-backed task store. metrics may
// be nil (instrumentation disabled).
func NewPostgresStore(db *sql.DB, metrics *observability.Metrics) *PostgresStore {
	return &PostgresStore{db: db, metrics: metrics}
}

// DB exposes the underlying handle for health checks and the metrics
// refresher.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const taskColumns = "id, user_id, title, description, completed, created_at, updated_at"

// Create implements Store
func (s *PostgresStore) Create(ctx context.Context, ownerID string, req *CreateTaskRequest) (task *Task, err error) {
	defer s.observe("create")(&err)

	// Owner comes exclusively from the resolved identity.
	query := `
		INSERT INTO tasks (user_id, title, description, completed)
		VALUES ($1, $2, $3, FALSE)
		RETURNING ` + taskColumns

	task, err = scanTask(s.db.QueryRowContext(ctx, query, ownerID, req.Title, req.Description))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// List implements Store
func (s *PostgresStore) List(ctx context.Context, ownerID string, limit, offset int) (tasks []*Task, total int64, err error) {
	defer s.observe("list")(&err)

	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE user_id = $1", ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks = make([]*Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan task: %w", scanErr)
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// Get implements Store
func (s *PostgresStore) Get(ctx context.Context, ownerID string, id int64) (task *Task, err error) {
	defer s.observe("get")(&err)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	task, err = scanTask(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// Update implements Store
func (s *PostgresStore) Update(ctx context.Context, ownerID string, id int64, req *UpdateTaskRequest) (task *Task, err error) {
	defer s.observe("update")(&err)

	// COALESCE keeps an absent title unchanged; the description flag
	// distinguishes "not provided" from "clear it".
	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = CASE WHEN $4 THEN $5 ELSE description END,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns

	setDescription := req.Description != nil
	var description interface{}
	if setDescription && *req.Description != "" {
		description = *req.Description
	}

	task, err = scanTask(s.db.QueryRowContext(ctx, query, id, ownerID, req.Title, setDescription, description))
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// ToggleComplete implements Store
func (s *PostgresStore) ToggleComplete(ctx context.Context, ownerID string, id int64) (task *Task, err error) {
	defer s.observe("toggle")(&err)

	query := `
		UPDATE tasks
		SET completed = NOT completed, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns

	task, err = scanTask(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle task: %w", err)
	}

	return task, nil
}

// Delete implements Store
func (s *PostgresStore) Delete(ctx context.Context, ownerID string, id int64) (err error) {
	defer s.observe("delete")(&err)

	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// HealthCheck implements Store
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*Task, error) {
	var task Task
	var description sql.NullString
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&task.Completed,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		task.Description = &description.String
	}
	return &task, nil
}

// observe starts a storage operation timer. The returned function
// records count and duration; a not-found outcome counts as ok since it
// is an expected result, not a storage failure.
func (s *PostgresStore) observe(operation string) func(*error) {
	if s.metrics == nil {
		return func(*error) {}
	}
	start := time.Now()
	return func(errp *error) {
		status := "ok"
		if err := *errp; err != nil && !errors.Is(err, ErrTaskNotFound) {
			status = "error"
		}
		s.metrics.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
		s.metrics.StorageOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
