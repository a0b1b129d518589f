package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSkew is the early-refresh margin before a token's expiry. Refreshing
// ahead of time avoids races with calls already in flight.
const DefaultSkew = 10 * time.Minute

// Error reports a token issuance or claim-decoding failure for a resource.
type Error struct {
	Resource string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth: %s: %v", e.Resource, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cache holds one bearer token per resource audience and refreshes entries on
// expiry or explicit invalidation. It is shared across concurrent
// reconciliation and webhook fan-out paths.
type Cache struct {
	issuer Issuer
	skew   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// entry serializes refresh decisions per resource. Refreshes for different
// resources proceed independently.
type entry struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithSkew overrides the early-refresh margin.
func WithSkew(skew time.Duration) CacheOption {
	return func(c *Cache) { c.skew = skew }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a token cache around the issuer.
func NewCache(issuer Issuer, opts ...CacheOption) *Cache {
	c := &Cache{
		issuer:  issuer,
		skew:    DefaultSkew,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a bearer token for the resource, issuing a fresh one when no
// usable cached value exists. Issuance failures are not retried here; the
// caller decides whether to retry the outer operation.
func (c *Cache) Token(ctx context.Context, resource string) (string, error) {
	e := c.entry(resource)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.token != "" && c.now().Before(e.expiresAt.Add(-c.skew)) {
		return e.token, nil
	}
	return c.refreshLocked(ctx, resource, e)
}

// Invalidate drops the cached entry for the resource and warms a replacement
// in the background. Callers never wait on the warm-up; the next Token call
// performs its own check if the prefetch has not landed yet.
func (c *Cache) Invalidate(ctx context.Context, resource string) {
	c.mu.Lock()
	delete(c.entries, resource)
	c.mu.Unlock()

	prefetchCtx := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(prefetchCtx, 30*time.Second)
		defer cancel()
		if _, err := c.Token(ctx, resource); err != nil {
			slog.Debug("token prefetch failed", "resource", resource, "error", err)
		}
	}()
}

func (c *Cache) entry(resource string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[resource]
	if !ok {
		e = &entry{}
		c.entries[resource] = e
	}
	return e
}

// refreshLocked issues and stores a fresh token. Callers hold the entry lock,
// so concurrent requests for the same resource collapse into one issuer call.
func (c *Cache) refreshLocked(ctx context.Context, resource string, e *entry) (string, error) {
	token, err := c.issuer.Issue(ctx, resource)
	if err != nil {
		return "", &Error{Resource: resource, Err: err}
	}
	expiresAt, err := tokenExpiry(token)
	if err != nil {
		return "", &Error{Resource: resource, Err: err}
	}
	e.token = token
	e.expiresAt = expiresAt
	return token, nil
}
