package audit

import (
	"context"
	"database/sql"
	"time"
)

// DBLogger persists audit events to the audit_events table. Inserts are
// best-effort: a storage failure must never fail the request that
// produced the event.
type DBLogger struct {
	db      *sql.DB
	onError func(error)
}

// NewDBLogger creates a database-backed audit logger. onError, when
// non-nil, is invoked with insert failures (typically to log them).
func NewDBLogger(db *sql.DB, onError func(error)) *DBLogger {
	return &DBLogger{db: db, onError: onError}
}

// Record implements Logger
func (l *DBLogger) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (timestamp, event_type, status, user_id, request_id, method, path, remote_ip, task_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var taskID interface{}
	if event.TaskID != 0 {
		taskID = event.TaskID
	}

	_, err := l.db.ExecContext(ctx, query,
		event.Timestamp,
		string(event.EventType),
		string(event.Status),
		nullIfEmpty(event.UserID),
		nullIfEmpty(event.RequestID),
		nullIfEmpty(event.Method),
		nullIfEmpty(event.Path),
		nullIfEmpty(event.RemoteIP),
		taskID,
		nullIfEmpty(event.Reason),
	)
	if err != nil && l.onError != nil {
		l.onError(err)
	}
}

// Close implements Logger. The database handle is owned by the caller.
func (l *DBLogger) Close() error { return nil }

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
