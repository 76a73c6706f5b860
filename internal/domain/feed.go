package domain

import "time"

type FeedKind string

const (
	FeedCheckIn  FeedKind = "check_in"
	FeedCheckOut FeedKind = "check_out"
	FeedVerified FeedKind = "verified"
)

// FeedUpdate is one frame on an event's live attendance feed.
type FeedUpdate struct {
	Kind         FeedKind           `json:"kind"`
	EventID      uint               `json:"event_id"`
	AttendanceID uint               `json:"attendance_id"`
	UserID       uint               `json:"user_id"`
	Status       VerificationStatus `json:"status"`
	Distance     float64            `json:"distance,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}
