// Package audit records security-relevant events: rejected
// authentication attempts, denied access, and task mutations.
//
// Events carry the internal failure reason that HTTP responses
// deliberately omit. They never contain token contents or request
// bodies.
package audit
