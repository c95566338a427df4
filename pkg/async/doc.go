// Package async provides panic-safe background task execution for
// best-effort work that must not block or crash the request path, such
// as audit trail recording.
package async
