package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events. There is no denied-access event type:
	// ownership mismatches are masked to not-found at the storage layer,
	// so no code path ever observes a denial to record.
	EventTypeAuthTokenValidateFail EventType = "auth.token_validate_fail"
	EventTypeAuthMissingCredential EventType = "auth.missing_credential"

	// Data mutation events
	EventTypeDataTaskCreate EventType = "data.task_create"
	EventTypeDataTaskUpdate EventType = "data.task_update"
	EventTypeDataTaskToggle EventType = "data.task_toggle"
	EventTypeDataTaskDelete EventType = "data.task_delete"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
)

// Event represents a single audit log entry
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor. UserID is the resolved subject; empty for failed
	// authentication where no identity was established.
	UserID string `json:"user_id,omitempty"`

	// Request context
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	RemoteIP  string `json:"remote_ip,omitempty"`

	// Resource, for data events
	TaskID int64 `json:"task_id,omitempty"`

	// Reason is the internal failure cause (e.g. "token expired").
	// Responses sent to clients never include it.
	Reason string `json:"reason,omitempty"`
}
