// Package limiter defines interfaces and implementations for login rate limiting.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Key identifies one throttled login stream.
type Key struct {
	Kind   string // principal kind, "user" or "admin"
	Email  string // lower-cased
	IPHash []byte
}

// NewKey builds a Key, hashing the raw peer address.
func NewKey(kind, email, ip string) Key {
	return Key{Kind: kind, Email: email, IPHash: HashIP(ip)}
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, k Key) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, k Key) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, k Key) (bool, time.Duration, error)
}

// Disabled never throttles.
type Disabled struct{}

func (Disabled) Allow(context.Context, Key) (bool, time.Duration, error) { return true, 0, nil }
func (Disabled) Success(context.Context, Key) error                        { return nil }
func (Disabled) Failure(context.Context, Key) (bool, time.Duration, error) { return false, 0, nil }
