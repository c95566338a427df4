package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/taskdeck/pkg/auth"
	"github.com/platinummonkey/taskdeck/pkg/observability"
)

const testSecret = "test-secret-test-secret-test-secret-1234"

func newTestMiddleware(t *testing.T) (*AuthMiddleware, *observability.Metrics) {
	t.Helper()
	verifier, err := auth.NewVerifier(testSecret, "HS256", 0)
	require.NoError(t, err)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewAuthMiddleware(verifier, logger, metrics, nil), metrics
}

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// echoIdentity records whether the wrapped handler ran and with what
// identity.
func echoIdentity(captured **auth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	m, _ := newTestMiddleware(t)

	expiredToken := signTestToken(t, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	noSubjectToken := signTestToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"lowercase bearer", "bearer sometoken"},
		{"bearer without token", "Bearer"},
		{"garbage token", "Bearer not-a-token"},
		{"expired token", "Bearer " + expiredToken},
		{"token without subject", "Bearer " + noSubjectToken},
	}

	var bodies []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var identity *auth.Identity
			handler := m.Handler(echoIdentity(&identity))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
			assert.Nil(t, identity, "wrapped handler must not run")

			bodies = append(bodies, rec.Body.String())
		})
	}

	// Every rejection reads identically regardless of the internal reason.
	for i := 1; i < len(bodies); i++ {
		assert.Equal(t, bodies[0], bodies[i])
	}
}

func TestAuthMiddleware_Success(t *testing.T) {
	m, _ := newTestMiddleware(t)

	token := signTestToken(t, jwt.MapClaims{
		"sub":   "user-123",
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	var identity *auth.Identity
	handler := m.Handler(echoIdentity(&identity))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, "user-123", identity.UserID)
	assert.Equal(t, "user@example.com", identity.Email)
}

func TestAuthMiddleware_FailureMetrics(t *testing.T) {
	m, metrics := newTestMiddleware(t)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuthFailuresTotal.WithLabelValues("missing_header")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuthFailuresTotal.WithLabelValues("malformed")))
}

func TestClassifyReason(t *testing.T) {
	assert.Equal(t, reasonExpired, classifyReason(auth.ErrTokenExpired))
	assert.Equal(t, reasonSignature, classifyReason(auth.ErrSignatureInvalid))
	assert.Equal(t, reasonMissingSubject, classifyReason(auth.ErrMissingSubject))
	assert.Equal(t, reasonMalformed, classifyReason(auth.ErrTokenMalformed))
}
