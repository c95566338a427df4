// Package config loads application configuration from an optional YAML
// file and TASKDECK_-prefixed environment variables, with environment
// values taking precedence. Validation is fatal at startup: a missing or
// weak JWT secret must never fall back to a default.
package config
