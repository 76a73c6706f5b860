package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

type windowState struct {
	count     int64
	expiresAt time.Time
}

type bucketState struct {
	tokens float64
	last   time.Time
}

// MemoryStore is an in-process CounterStore for development and tests. It
// cannot coordinate across instances; production deployments use RedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*windowState
	buckets map[string]*bucketState
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*windowState),
		buckets: make(map[string]*bucketState),
		now:     time.Now,
	}
}

func (s *MemoryStore) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &windowState{expiresAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++

	return w.count, w.expiresAt.Sub(now), nil
}

func (s *MemoryStore) DebitBucket(_ context.Context, key string, capacity, refillPerMinute int) (bool, int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucketState{tokens: float64(capacity), last: now}
		s.buckets[key] = b
	}

	if elapsed := now.Sub(b.last); elapsed > 0 {
		b.tokens = math.Min(float64(capacity), b.tokens+elapsed.Minutes()*float64(refillPerMinute))
		b.last = now
	}

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / float64(refillPerMinute) * float64(time.Minute))
		return false, 0, wait, nil
	}
	b.tokens--

	return true, int64(math.Floor(b.tokens)), 0, nil
}
