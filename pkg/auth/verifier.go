package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted signing secret length in bytes.
// Anything shorter is trivially brute-forceable for HS256.
const MinSecretLength = 32

// Verification failure reasons. Distinct for logging and metrics; all of
// them map to the same outward unauthorized response.
var (
	// ErrTokenMalformed indicates the token could not be parsed at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrSignatureInvalid indicates the signature did not verify against
	// the shared secret.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenExpired indicates the exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrMissingSubject indicates no accepted subject claim was present.
	ErrMissingSubject = errors.New("token missing subject claim")
)

// subjectClaims are the accepted subject claim names, checked in priority
// order. Different issuers put the user identifier in different claims;
// the order is fixed so resolution is deterministic.
var subjectClaims = []string{"sub", "user_id", "id"}

// Claims is the validated claim set recovered from a verified token.
type Claims struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verifier validates bearer tokens against the shared signing secret.
// The secret and algorithm are fixed at construction and never mutated.
type Verifier struct {
	secret []byte
	method jwt.SigningMethod
	maxTTL time.Duration
	parser *jwt.Parser
}

// NewVerifier creates a token verifier for the given shared secret and
// signing algorithm identifier (e.g. "HS256"). maxTTL, when positive,
// bounds the token lifetime: tokens whose exp-iat span exceeds it are
// rejected as invalid regardless of signature.
func NewVerifier(secret string, algorithm string, maxTTL time.Duration) (*Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}

	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm: %s", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm: %s (HMAC family required)", algorithm)
	}

	return &Verifier{
		secret: []byte(secret),
		method: method,
		maxTTL: maxTTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{algorithm}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Verify validates a raw token string and returns its claim set.
//
// Failure reasons are distinguishable via errors.Is against the sentinel
// errors above. Verification is side-effect free: verifying the same
// token twice yields the same result.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	mapClaims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, mapClaims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims := &Claims{}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	// Lifetime cap: a token claiming to live longer than the issuer's
	// configured TTL was not produced by a well-behaved issuer.
	if v.maxTTL > 0 && !claims.IssuedAt.IsZero() && !claims.ExpiresAt.IsZero() {
		if claims.ExpiresAt.Sub(claims.IssuedAt) > v.maxTTL {
			return nil, ErrSignatureInvalid
		}
	}

	subject, ok := extractSubject(mapClaims)
	if !ok {
		return nil, ErrMissingSubject
	}
	claims.Subject = subject

	return claims, nil
}

// classifyParseError maps jwt parse failures onto the package sentinels.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		// Unknown parse failures (bad claims types, missing exp, future
		// nbf) are treated as malformed rather than inventing new
		// outward-visible categories.
		return ErrTokenMalformed
	}
}

// extractSubject resolves the subject identifier from the claim set,
// trying the accepted claim names in priority order. String subjects are
// used verbatim; numeric subjects are canonicalized to their decimal
// string form since the owner column is TEXT.
func extractSubject(claims jwt.MapClaims) (string, bool) {
	for _, name := range subjectClaims {
		raw, ok := claims[name]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			// encoding/json decodes JSON numbers as float64
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case int64:
			return strconv.FormatInt(v, 10), true
		}
	}
	return "", false
}
