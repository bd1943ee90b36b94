// Package state issues and consumes the anti-forgery tokens round-tripped
// through the provider redirect.
package state

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL bounds how long an unconsumed state token stays valid.
const DefaultTTL = 10 * time.Minute

// ErrNotFound covers forged, already-consumed and expired tokens alike; the
// caller cannot distinguish them and must treat all three as a rejected
// callback.
var ErrNotFound = errors.New("state: token not found")

// Purpose tags what flow a state token was issued for.
type Purpose string

const PurposeLogin Purpose = "login"

// Entry is the metadata recorded at issuance and returned on consumption.
type Entry struct {
	Purpose  Purpose
	IssuedAt time.Time
	Extra    map[string]string
}

// Registry is an in-memory single-use token registry. Consumption is an
// atomic check-and-remove: under concurrent callbacks with the same token at
// most one caller succeeds.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]Entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Issue generates an unpredictable URL-safe token (256 bits of entropy) and
// records it. Expired leftovers are purged on the way in.
func (r *Registry) Issue(purpose Purpose, extra map[string]string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for t, e := range r.entries {
		if now.Sub(e.IssuedAt) > r.ttl {
			delete(r.entries, t)
		}
	}

	r.entries[token] = Entry{
		Purpose:  purpose,
		IssuedAt: now,
		Extra:    extra,
	}
	return token, nil
}

// ValidateAndConsume removes the token and returns its entry. A second call
// with the same token, or a call past the TTL, gets ErrNotFound. Expired
// entries are removed even though lookup already rejects them.
func (r *Registry) ValidateAndConsume(token string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[token]
	if !ok {
		return Entry{}, ErrNotFound
	}
	delete(r.entries, token)

	if r.now().Sub(entry.IssuedAt) > r.ttl {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Len reports the number of live entries, expired or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
