package domain

import "time"

// RateLimitDecision is the outcome of a single limiter check.
// Ephemeral; never persisted.
type RateLimitDecision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}
