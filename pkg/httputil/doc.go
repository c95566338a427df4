// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and request parsing.
//
// Error responses share one shape, {"error": "<reason>"}, where reason
// is a short machine-stable string. Authentication and ownership
// failures deliberately carry no further detail: the externally visible
// message never distinguishes a missing credential from an expired one,
// and a resource owned by someone else is reported identically to one
// that does not exist.
package httputil
