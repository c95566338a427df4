package tasks

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/taskdeck/pkg/async"
	"github.com/platinummonkey/taskdeck/pkg/audit"
	"github.com/platinummonkey/taskdeck/pkg/auth"
	"github.com/platinummonkey/taskdeck/pkg/contextkeys"
	"github.com/platinummonkey/taskdeck/pkg/httputil"
	"github.com/platinummonkey/taskdeck/pkg/observability"
)

// MaxListLimit caps the page size a client can request.
const MaxListLimit = 100

// ListResponse is the body of the list endpoint.
type ListResponse struct {
	Tasks []*Task `json:"tasks"`
	Count int     `json:"count"`
	Total int64   `json:"total"`
}

// Handlers serves the task endpoints. Every handler resolves the caller's
// identity from the request context and scopes storage calls with it; the
// request body and URL never influence which owner's rows are touched.
type Handlers struct {
	store   Store
	logger  *observability.Logger
	auditor audit.Logger
}

// NewHandlers creates the task HTTP handlers. auditor may be nil.
func NewHandlers(store Store, logger *observability.Logger, auditor audit.Logger) *Handlers {
	if auditor == nil {
		auditor = audit.NewNopLogger()
	}
	return &Handlers{store: store, logger: logger, auditor: auditor}
}

// RegisterRoutes registers the task endpoints on the given router. The
// router is expected to already carry the authentication middleware.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/tasks", h.CreateTask).Methods(http.MethodPost)
	router.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	router.HandleFunc("/tasks/{id:[0-9]+}", h.GetTask).Methods(http.MethodGet)
	router.HandleFunc("/tasks/{id:[0-9]+}", h.UpdateTask).Methods(http.MethodPut)
	router.HandleFunc("/tasks/{id:[0-9]+}", h.DeleteTask).Methods(http.MethodDelete)
	router.HandleFunc("/tasks/{id:[0-9]+}/complete", h.ToggleComplete).Methods(http.MethodPatch)
}

// log returns the handler logger enriched with the request and user IDs
// carried by the context.
func (h *Handlers) log(r *http.Request) *observability.Logger {
	return observability.FromContext(observability.WithLogger(r.Context(), h.logger))
}

// identity returns the caller's identity or writes a 401. A nil identity
// on an authenticated route means the middleware chain is misconfigured;
// rejecting is the safe response.
func (h *Handlers) identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		h.log(r).Error("request reached task handler without identity")
		httputil.WriteUnauthorized(w)
		return nil, false
	}
	return identity, true
}

// CreateTask handles POST /tasks
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	task, err := h.store.Create(r.Context(), identity.UserID, &req)
	if err != nil {
		h.log(r).WithError(err).Error("failed to create task")
		httputil.WriteInternalError(w, err)
		return
	}

	h.recordMutation(r, audit.EventTypeDataTaskCreate, identity.UserID, task.ID)
	httputil.WriteCreated(w, task)
}

// ListTasks handles GET /tasks
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", DefaultListLimit)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if limit < 1 || limit > MaxListLimit {
		httputil.WriteValidationError(w, "limit must be between 1 and 100")
		return
	}
	if offset < 0 {
		httputil.WriteValidationError(w, "offset must not be negative")
		return
	}

	tasks, total, err := h.store.List(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		h.log(r).WithError(err).Error("failed to list tasks")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, ListResponse{Tasks: tasks, Count: len(tasks), Total: total})
}

// GetTask handles GET /tasks/{id}
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	task, err := h.store.Get(r.Context(), identity.UserID, id)
	if err != nil {
		h.writeStoreError(w, r, err, "failed to get task")
		return
	}

	httputil.WriteSuccess(w, task)
}

// UpdateTask handles PUT /tasks/{id}
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.IsEmpty() {
		httputil.WriteValidationError(w, "no fields to update")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	task, err := h.store.Update(r.Context(), identity.UserID, id, &req)
	if err != nil {
		h.writeStoreError(w, r, err, "failed to update task")
		return
	}

	h.recordMutation(r, audit.EventTypeDataTaskUpdate, identity.UserID, id)
	httputil.WriteSuccess(w, task)
}

// ToggleComplete handles PATCH /tasks/{id}/complete
func (h *Handlers) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	task, err := h.store.ToggleComplete(r.Context(), identity.UserID, id)
	if err != nil {
		h.writeStoreError(w, r, err, "failed to toggle task")
		return
	}

	h.recordMutation(r, audit.EventTypeDataTaskToggle, identity.UserID, id)
	httputil.WriteSuccess(w, task)
}

// DeleteTask handles DELETE /tasks/{id}
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), identity.UserID, id); err != nil {
		h.writeStoreError(w, r, err, "failed to delete task")
		return
	}

	h.recordMutation(r, audit.EventTypeDataTaskDelete, identity.UserID, id)
	httputil.WriteNoContent(w)
}

// writeStoreError maps ErrTaskNotFound to the generic 404; an ownership
// mismatch took the same path in the store, so the response is identical
// for both. Everything else is a 500 with the detail kept in the log.
func (h *Handlers) writeStoreError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, ErrTaskNotFound) {
		httputil.WriteNotFound(w)
		return
	}
	h.log(r).WithError(err).Error(msg)
	httputil.WriteInternalError(w, err)
}

// recordMutation writes the audit event off the request path. Recording
// is best-effort and must not add latency to the response.
func (h *Handlers) recordMutation(r *http.Request, eventType audit.EventType, userID string, taskID int64) {
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    audit.EventStatusSuccess,
		UserID:    userID,
		RequestID: contextkeys.GetRequestID(r.Context()),
		Method:    r.Method,
		Path:      r.URL.Path,
		RemoteIP:  remoteIP(r),
		TaskID:    taskID,
	}

	async.SafeGoNoError(context.WithoutCancel(r.Context()), 5*time.Second, "audit record", h.logger, func(ctx context.Context) {
		h.auditor.Record(ctx, event)
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
