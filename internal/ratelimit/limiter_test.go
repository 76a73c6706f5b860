package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) IncrWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func (failingStore) DebitBucket(context.Context, string, int, int) (bool, int64, time.Duration, error) {
	return false, 0, 0, errors.New("store down")
}

func TestWindowPolicyAllowsUpToLimit(t *testing.T) {
	limiter := New(NewMemoryStore(), false, false)
	policy := WindowPolicy("login", 5, time.Hour)

	for want := 4; want >= 0; want-- {
		decision, err := limiter.Check(context.Background(), policy, "user@campus.edu")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, want, decision.Remaining)
	}

	decision, err := limiter.Check(context.Background(), policy, "user@campus.edu")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
	assert.True(t, decision.ResetAt.After(time.Now()))

	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, "login", limited.Policy)
	assert.False(t, limited.Decision.Allowed)
}

func TestWindowPolicyIsolatesIdentifiers(t *testing.T) {
	limiter := New(NewMemoryStore(), false, false)
	policy := WindowPolicy("login", 2, time.Hour)

	for i := 0; i < 3; i++ {
		limiter.Check(context.Background(), policy, "first@campus.edu")
	}

	decision, err := limiter.Check(context.Background(), policy, "second@campus.edu")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Remaining)
}

func TestWindowResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	limiter := New(store, false, false)
	policy := WindowPolicy("login", 2, time.Hour)

	for i := 0; i < 2; i++ {
		_, err := limiter.Check(context.Background(), policy, "user@campus.edu")
		require.NoError(t, err)
	}
	_, err := limiter.Check(context.Background(), policy, "user@campus.edu")
	require.Error(t, err)

	now = now.Add(time.Hour + time.Second)

	decision, err := limiter.Check(context.Background(), policy, "user@campus.edu")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Remaining)
}

func TestBucketPolicyDeniesWhenDrained(t *testing.T) {
	limiter := New(NewMemoryStore(), false, false)
	policy := BucketPolicy("qr", 3, 1)

	for i := 0; i < 3; i++ {
		decision, err := limiter.Check(context.Background(), policy, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	decision, err := limiter.Check(context.Background(), policy, "203.0.113.7")
	assert.False(t, decision.Allowed)

	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, "qr", limited.Policy)
	assert.True(t, decision.ResetAt.After(time.Now()))
}

func TestBucketRefillsOverTime(t *testing.T) {
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	limiter := New(store, false, false)
	policy := BucketPolicy("qr", 2, 60)

	for i := 0; i < 2; i++ {
		_, err := limiter.Check(context.Background(), policy, "203.0.113.7")
		require.NoError(t, err)
	}
	_, err := limiter.Check(context.Background(), policy, "203.0.113.7")
	require.Error(t, err)

	// 60 per minute is one token per second.
	now = now.Add(time.Second)

	decision, err := limiter.Check(context.Background(), policy, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	_, err = limiter.Check(context.Background(), policy, "203.0.113.7")
	require.Error(t, err)
}

func TestDisabledBypassesStore(t *testing.T) {
	limiter := New(failingStore{}, true, false)

	decision, err := limiter.Check(context.Background(), WindowPolicy("login", 1, time.Hour), "user@campus.edu")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestStoreFailureFailsClosed(t *testing.T) {
	limiter := New(failingStore{}, false, false)

	decision, err := limiter.Check(context.Background(), WindowPolicy("login", 5, time.Hour), "user@campus.edu")
	require.Error(t, err)
	assert.False(t, decision.Allowed)

	var limited *RateLimitedError
	assert.False(t, errors.As(err, &limited))
}

func TestStoreFailureFailsOpenWhenConfigured(t *testing.T) {
	limiter := New(failingStore{}, false, true)

	decision, err := limiter.Check(context.Background(), BucketPolicy("qr", 10, 10), "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
