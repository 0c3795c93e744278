package core

import (
	"context"
)

// SeenHashCache remembers identity hashes that are known to be in the catalog.
// It only short-circuits the database existence check; a miss is never authoritative.
type SeenHashCache interface {
	// Seen reports whether hash was remembered.
	Seen(ctx context.Context, hash string) (bool, error)

	// Remember records hashes after they are durably committed.
	Remember(ctx context.Context, hashes ...string) error
}

// NoopSeenHashCache is used when Redis is not configured.
type NoopSeenHashCache struct{}

// Seen always reports a miss.
func (NoopSeenHashCache) Seen(context.Context, string) (bool, error) { return false, nil }

// Remember does nothing.
func (NoopSeenHashCache) Remember(context.Context, ...string) error { return nil }
