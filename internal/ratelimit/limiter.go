// Package ratelimit bounds login and QR-validation attempts with counters
// kept in a shared store, so every instance of the API enforces the same
// budget for a given identifier.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/observability"
)

// CounterStore is the shared backend both policies count against.
// Implementations must be safe for concurrent callers across processes.
type CounterStore interface {
	// IncrWindow atomically increments the counter for key, arming its expiry
	// on first touch, and reports the new count plus the time left in the
	// window.
	IncrWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
	// DebitBucket takes one token from the bucket for key, refilling at
	// refillPerMinute up to capacity. When the bucket is empty it reports
	// allowed=false and how long until the next token.
	DebitBucket(ctx context.Context, key string, capacity, refillPerMinute int) (allowed bool, remaining int64, retryAfter time.Duration, err error)
}

type policyKind int

const (
	kindWindow policyKind = iota
	kindBucket
)

// Policy names a guarded boundary and how its counter behaves.
type Policy struct {
	name string
	kind policyKind

	attempts int
	window   time.Duration

	capacity        int
	refillPerMinute int
}

// WindowPolicy allows attempts hits per window per identifier.
func WindowPolicy(name string, attempts int, window time.Duration) Policy {
	if attempts <= 0 {
		attempts = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return Policy{
		name:     name,
		kind:     kindWindow,
		attempts: attempts,
		window:   window,
	}
}

// BucketPolicy holds capacity tokens per identifier, refilled at
// refillPerMinute.
func BucketPolicy(name string, capacity, refillPerMinute int) Policy {
	if refillPerMinute <= 0 {
		refillPerMinute = 1
	}
	if capacity <= 0 {
		capacity = refillPerMinute
	}
	return Policy{
		name:            name,
		kind:            kindBucket,
		capacity:        capacity,
		refillPerMinute: refillPerMinute,
	}
}

func (p Policy) Name() string {
	return p.name
}

// RateLimitedError reports a denied check. It carries the decision so the
// boundary layer can render the remaining quota and a retry hint.
type RateLimitedError struct {
	Policy   string
	Decision domain.RateLimitDecision
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for policy %q", e.Policy)
}

type Limiter struct {
	store    CounterStore
	disabled bool
	failOpen bool
	now      func() time.Time
}

// New builds a limiter over store. disabled bypasses every check and failOpen
// allows the guarded action when the store is unreachable; both must be opted
// into explicitly, the zero values keep the limiter enforcing and fail-closed.
func New(store CounterStore, disabled, failOpen bool) *Limiter {
	return &Limiter{
		store:    store,
		disabled: disabled,
		failOpen: failOpen,
		now:      time.Now,
	}
}

// Check consumes one attempt for identifier under p. A denied attempt returns
// a *RateLimitedError; a store failure returns the wrapped store error unless
// the limiter was built fail-open.
func (l *Limiter) Check(ctx context.Context, p Policy, identifier string) (domain.RateLimitDecision, error) {
	if l.disabled {
		return domain.RateLimitDecision{Allowed: true}, nil
	}

	key := "ratelimit:" + p.name + ":" + identifier

	var (
		decision domain.RateLimitDecision
		err      error
	)
	switch p.kind {
	case kindBucket:
		decision, err = l.checkBucket(ctx, p, key)
	default:
		decision, err = l.checkWindow(ctx, p, key)
	}
	if err != nil {
		if l.failOpen {
			zap.L().Warn("rate limit store unavailable, failing open",
				zap.String("policy", p.name),
				zap.Error(err))
			return domain.RateLimitDecision{Allowed: true}, nil
		}
		return domain.RateLimitDecision{}, err
	}

	if !decision.Allowed {
		observability.RateLimitRejections.WithLabelValues(p.name).Inc()
		return decision, &RateLimitedError{Policy: p.name, Decision: decision}
	}

	return decision, nil
}

func (l *Limiter) checkWindow(ctx context.Context, p Policy, key string) (domain.RateLimitDecision, error) {
	count, ttl, err := l.store.IncrWindow(ctx, key, p.window)
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("l.store.IncrWindow -> %w", err)
	}

	remaining := p.attempts - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return domain.RateLimitDecision{
		Allowed:   count <= int64(p.attempts),
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl),
	}, nil
}

func (l *Limiter) checkBucket(ctx context.Context, p Policy, key string) (domain.RateLimitDecision, error) {
	allowed, remaining, retryAfter, err := l.store.DebitBucket(ctx, key, p.capacity, p.refillPerMinute)
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("l.store.DebitBucket -> %w", err)
	}

	return domain.RateLimitDecision{
		Allowed:   allowed,
		Remaining: int(remaining),
		ResetAt:   l.now().Add(retryAfter),
	}, nil
}
