package tasks

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskdeck/pkg/auth"
	"github.com/platinummonkey/taskdeck/pkg/contextkeys"
	"github.com/platinummonkey/taskdeck/pkg/observability"
)

// newTestRouter wires the handlers behind a middleware that injects a
// fixed identity, standing in for the verification middleware.
func newTestRouter(store Store, userID string) *mux.Router {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	handlers := NewHandlers(store, logger, nil)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	if userID != "" {
		api.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := contextkeys.WithIdentity(r.Context(), &auth.Identity{UserID: userID})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
	}
	handlers.RegisterRoutes(api)
	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_CreateTask(t *testing.T) {
	t.Run("creates with identity as owner", func(t *testing.T) {
		store := newCountingStore()
		router := newTestRouter(store, "user-1")

		rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "Buy milk"})

		require.Equal(t, http.StatusCreated, rec.Code)
		var task Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.Equal(t, "user-1", task.UserID)
		assert.Equal(t, "Buy milk", task.Title)
	})

	// Owner-like fields in the body are dead weight: ownership comes from
	// the verified token, nothing else.
	t.Run("owner field in body is ignored", func(t *testing.T) {
		store := newCountingStore()
		router := newTestRouter(store, "user-1")

		rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", map[string]string{
			"title":   "Buy milk",
			"user_id": "attacker",
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		var task Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.Equal(t, "user-1", task.UserID)
	})

	t.Run("missing title", func(t *testing.T) {
		router := newTestRouter(newCountingStore(), "user-1")
		rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "  "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		router := newTestRouter(newCountingStore(), "user-1")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no identity", func(t *testing.T) {
		router := newTestRouter(newCountingStore(), "")
		rec := doJSON(t, router, http.MethodPost, "/api/v1/tasks", map[string]string{"title": "x"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})
}

func TestHandlers_ListTasks(t *testing.T) {
	store := newCountingStore()
	store.add(&Task{ID: 1, UserID: "user-1", Title: "Mine"})
	store.add(&Task{ID: 2, UserID: "user-2", Title: "Theirs"})
	router := newTestRouter(store, "user-1")

	t.Run("returns only own tasks", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Tasks, 1)
		assert.Equal(t, "Mine", resp.Tasks[0].Title)
		assert.Equal(t, 1, resp.Count)
		assert.Equal(t, int64(1), resp.Total)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks?limit=0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/v1/tasks?limit=101", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/v1/tasks?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects negative offset", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks?offset=-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlers_GetTask(t *testing.T) {
	store := newCountingStore()
	store.add(&Task{ID: 1, UserID: "user-1", Title: "Mine"})
	store.add(&Task{ID: 2, UserID: "user-2", Title: "Theirs"})
	router := newTestRouter(store, "user-1")

	t.Run("own task", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks/1", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	// An existing task owned by someone else and a task that does not
	// exist at all must be indistinguishable in the response.
	t.Run("masks other owners' tasks", func(t *testing.T) {
		otherOwner := doJSON(t, router, http.MethodGet, "/api/v1/tasks/2", nil)
		absent := doJSON(t, router, http.MethodGet, "/api/v1/tasks/999", nil)

		assert.Equal(t, http.StatusNotFound, otherOwner.Code)
		assert.Equal(t, http.StatusNotFound, absent.Code)
		assert.Equal(t, absent.Body.String(), otherOwner.Body.String())
	})

	t.Run("non-numeric id does not match route", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/tasks/abc", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandlers_UpdateTask(t *testing.T) {
	t.Run("updates title", func(t *testing.T) {
		store := newCountingStore()
		store.add(&Task{ID: 1, UserID: "user-1", Title: "Old"})
		router := newTestRouter(store, "user-1")

		rec := doJSON(t, router, http.MethodPut, "/api/v1/tasks/1", map[string]string{"title": "New"})

		require.Equal(t, http.StatusOK, rec.Code)
		var task Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.Equal(t, "New", task.Title)
	})

	t.Run("empty update rejected", func(t *testing.T) {
		store := newCountingStore()
		store.add(&Task{ID: 1, UserID: "user-1", Title: "Old"})
		router := newTestRouter(store, "user-1")

		rec := doJSON(t, router, http.MethodPut, "/api/v1/tasks/1", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("other owner's task", func(t *testing.T) {
		store := newCountingStore()
		store.add(&Task{ID: 1, UserID: "user-2", Title: "Theirs"})
		router := newTestRouter(store, "user-1")

		rec := doJSON(t, router, http.MethodPut, "/api/v1/tasks/1", map[string]string{"title": "Hijack"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Theirs", store.tasks["user-2"][1].Title)
	})
}

func TestHandlers_ToggleComplete(t *testing.T) {
	store := newCountingStore()
	store.add(&Task{ID: 1, UserID: "user-1", Title: "Mine"})
	router := newTestRouter(store, "user-1")

	rec := doJSON(t, router, http.MethodPatch, "/api/v1/tasks/1/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var task Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.True(t, task.Completed)

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/tasks/1/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.False(t, task.Completed)
}

func TestHandlers_DeleteTask(t *testing.T) {
	t.Run("deletes own task", func(t *testing.T) {
		store := newCountingStore()
		store.add(&Task{ID: 1, UserID: "user-1", Title: "Mine"})
		router := newTestRouter(store, "user-1")

		rec := doJSON(t, router, http.MethodDelete, "/api/v1/tasks/1", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("other owner's task survives", func(t *testing.T) {
		store := newCountingStore()
		store.add(&Task{ID: 1, UserID: "user-2", Title: "Theirs"})
		router := newTestRouter(store, "user-1")

		rec := doJSON(t, router, http.MethodDelete, "/api/v1/tasks/1", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotNil(t, store.tasks["user-2"][1])
	})
}
