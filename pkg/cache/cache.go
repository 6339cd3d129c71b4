// Package cache stores generated content keyed by a hash of its redacted
// input. Values are JSON encoded and, once written, never overwritten until
// they expire.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type Cache interface {
	// Get decodes the value stored under key into dst and reports whether
	// it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores value under key unless a live entry already exists.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Key joins a namespace with the sha256 of the given parts.
func Key(namespace string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return namespace + ":" + hex.EncodeToString(h[:])
}
