// Package cache stores finished humanization results keyed by a request fingerprint.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache closed")

// Cache is a key/value store with per-entry TTL. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Available reports whether the backend is usable.
	Available() bool
	// Name identifies the backend.
	Name() string
	Close() error
}

// Key returns the fingerprint of a humanize request. Equal inputs give equal keys.
func Key(text, tier string, intensity float64) string {
	payload := text + ":" + tier + ":" + strconv.FormatFloat(intensity, 'f', -1, 64)
	sum := sha256.Sum256([]byte(payload))
	return "humanize:" + hex.EncodeToString(sum[:])
}
