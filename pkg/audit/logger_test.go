package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_Record(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	logger.Record(context.Background(), Event{
		EventType: EventTypeDataTaskCreate,
		Status:    EventStatusSuccess,
		UserID:    "user-1",
		RequestID: "req-1",
		Method:    "POST",
		Path:      "/api/v1/tasks",
		TaskID:    42,
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "data.task_create", entry["event_type"])
	assert.Equal(t, "success", entry["status"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, float64(42), entry["task_id"])
}

func TestDBLogger_Record(t *testing.T) {
	t.Run("inserts event", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("INSERT INTO audit_events").
			WithArgs(sqlmock.AnyArg(), "auth.token_validate_fail", "failure", nil, "req-1", "GET", "/api/v1/tasks", "10.0.0.1", nil, "expired").
			WillReturnResult(sqlmock.NewResult(1, 1))

		logger := NewDBLogger(db, nil)
		logger.Record(context.Background(), Event{
			Timestamp: time.Now().UTC(),
			EventType: EventTypeAuthTokenValidateFail,
			Status:    EventStatusFailure,
			RequestID: "req-1",
			Method:    "GET",
			Path:      "/api/v1/tasks",
			RemoteIP:  "10.0.0.1",
			Reason:    "expired",
		})

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure reaches onError, not the caller", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("INSERT INTO audit_events").
			WillReturnError(errors.New("table missing"))

		var captured error
		logger := NewDBLogger(db, func(err error) { captured = err })
		logger.Record(context.Background(), Event{EventType: EventTypeDataTaskDelete, Status: EventStatusSuccess})

		assert.Error(t, captured)
	})
}

func TestMultiLogger(t *testing.T) {
	var first, second bytes.Buffer
	logger := NewMultiLogger(NewWriterLogger(&first), NewWriterLogger(&second))

	logger.Record(context.Background(), Event{EventType: EventTypeDataTaskUpdate, Status: EventStatusSuccess})

	assert.Contains(t, first.String(), "data.task_update")
	assert.Contains(t, second.String(), "data.task_update")
	assert.NoError(t, logger.Close())
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Record(context.Background(), Event{})
	assert.NoError(t, logger.Close())
}
