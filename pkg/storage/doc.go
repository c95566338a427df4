// Package storage holds backend configuration and connection setup for
// PostgreSQL and the optional Redis cache tier.
package storage
