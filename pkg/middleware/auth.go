package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/taskdeck/pkg/audit"
	"github.com/platinummonkey/taskdeck/pkg/auth"
	"github.com/platinummonkey/taskdeck/pkg/contextkeys"
	"github.com/platinummonkey/taskdeck/pkg/httputil"
	"github.com/platinummonkey/taskdeck/pkg/observability"
)

// Internal failure reasons used for logging, metrics, and audit. None of
// them appear in responses: every failure produces the same generic 401.
const (
	reasonMissingHeader  = "missing_header"
	reasonBadScheme      = "bad_scheme"
	reasonMalformed      = "malformed"
	reasonSignature      = "signature"
	reasonExpired        = "expired"
	reasonMissingSubject = "missing_subject"
)

// AuthMiddleware resolves the Authorization header into an Identity and
// injects it into the request context. Requests that fail verification
// never reach the wrapped handler.
type AuthMiddleware struct {
	verifier *auth.Verifier
	logger   *observability.Logger
	metrics  *observability.Metrics
	auditor  audit.Logger
}

// NewAuthMiddleware creates the authentication middleware. metrics and
// auditor may be nil (disabled).
func NewAuthMiddleware(verifier *auth.Verifier, logger *observability.Logger, metrics *observability.Metrics, auditor audit.Logger) *AuthMiddleware {
	if auditor == nil {
		auditor = audit.NewNopLogger()
	}
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
		auditor:  auditor,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.reject(w, r, reasonMissingHeader)
			return
		}

		// Format: "Bearer <token>". The verifier is not consulted for
		// headers that don't match the expected scheme.
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.reject(w, r, reasonBadScheme)
			return
		}

		claims, err := m.verifier.Verify(parts[1])
		if err != nil {
			m.reject(w, r, classifyReason(err))
			return
		}

		identity := auth.IdentityFromClaims(claims)

		ctx := contextkeys.WithIdentity(r.Context(), identity)
		ctx = contextkeys.WithUserID(ctx, identity.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject records the internal reason and writes the generic 401. The
// reason never appears in the response body or headers.
func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, reason string) {
	m.logger.WithFields(map[string]interface{}{
		"reason":     reason,
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": contextkeys.GetRequestID(r.Context()),
	}).Warn("authentication rejected")

	if m.metrics != nil {
		m.metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}

	eventType := audit.EventTypeAuthTokenValidateFail
	if reason == reasonMissingHeader || reason == reasonBadScheme {
		eventType = audit.EventTypeAuthMissingCredential
	}
	m.auditor.Record(r.Context(), audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    audit.EventStatusFailure,
		RequestID: contextkeys.GetRequestID(r.Context()),
		Method:    r.Method,
		Path:      r.URL.Path,
		RemoteIP:  remoteIP(r),
		Reason:    reason,
	})

	httputil.WriteUnauthorized(w)
}

func classifyReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return reasonExpired
	case errors.Is(err, auth.ErrSignatureInvalid):
		return reasonSignature
	case errors.Is(err, auth.ErrMissingSubject):
		return reasonMissingSubject
	default:
		return reasonMalformed
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
