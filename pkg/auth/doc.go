// Package auth verifies bearer tokens issued by the external identity
// provider and resolves them into request-scoped identities.
//
// The service never issues tokens. It shares an HMAC signing secret with
// the issuer and accepts any token that carries a valid signature, an
// unexpired exp claim, and a subject claim. Verification is pure and
// synchronous: no network calls, no retries, no state.
//
// Failure reasons are distinct sentinel errors so that callers can log
// the precise cause, but every authentication failure must be surfaced
// to clients through the same generic unauthorized response (see
// pkg/httputil) to avoid leaking whether an account or token exists.
package auth
