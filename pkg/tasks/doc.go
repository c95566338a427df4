// Package tasks implements the task API: types, validation, the
// ownership-filtered PostgreSQL store, the cache tier, and HTTP
// handlers.
//
// Every storage operation is constrained by the owner's subject
// identifier. There is no code path that reads or mutates a task row
// without that predicate. Single-resource operations report an
// ownership mismatch identically to an absent row so that callers
// cannot probe for the existence of other users' tasks.
package tasks
