package domain

import "time"

type EventStatus string

const (
	EventActive    EventStatus = "Active"
	EventCompleted EventStatus = "Completed"
	EventCancelled EventStatus = "Cancelled"
)

// Event is a scheduled gathering with a circular geofence around its venue.
// The venue coordinate is fixed at creation.
type Event struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	VenueName string     `json:"venue_name"`
	Venue     Coordinate `json:"venue"`

	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	CheckInBufferMinutes  int       `json:"check_in_buffer_minutes"`
	CheckOutBufferMinutes int       `json:"check_out_buffer_minutes"`

	Status    EventStatus `json:"status"`
	QRCode    string      `json:"qr_code"`
	CreatedBy uint        `json:"created_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckInOpensAt is the earliest instant check-in submissions are accepted.
func (e Event) CheckInOpensAt() time.Time {
	return e.StartTime.Add(-time.Duration(e.CheckInBufferMinutes) * time.Minute)
}

// CheckOutClosesAt is the latest instant check-out submissions are accepted.
// The lifecycle sweep completes the event once this has passed.
func (e Event) CheckOutClosesAt() time.Time {
	return e.EndTime.Add(time.Duration(e.CheckOutBufferMinutes) * time.Minute)
}

func (e Event) AcceptsCheckInAt(t time.Time) bool {
	return e.Status == EventActive && !t.Before(e.CheckInOpensAt()) && !t.After(e.EndTime)
}

func (e Event) AcceptsCheckOutAt(t time.Time) bool {
	return e.Status == EventActive && !t.After(e.CheckOutClosesAt())
}
