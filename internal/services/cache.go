package services

import (
	"context"
	"time"
)

// Cache is the key-value store that holds battle snapshots. The health check
// pings it.
type Cache interface {
	// Ping tests the cache connection
	Ping(ctx context.Context) error

	// Set stores a value with an optional expiration
	Set(ctx context.Context, key string, value any, expiration time.Duration) error

	// Get returns the value for key, or "" when it does not exist
	Get(ctx context.Context, key string) (string, error)

	Close() error

	// WaitForConnection retries Ping until it succeeds or ctx ends
	WaitForConnection(ctx context.Context) error
}
