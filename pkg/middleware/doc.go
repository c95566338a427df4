// Package middleware provides HTTP middleware for the task API, most
// importantly the authentication middleware that resolves bearer tokens
// into request-scoped identities.
package middleware
