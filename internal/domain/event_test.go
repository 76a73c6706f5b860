package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventWindows(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	event := Event{
		StartTime:             start,
		EndTime:               start.Add(2 * time.Hour),
		CheckInBufferMinutes:  15,
		CheckOutBufferMinutes: 30,
		Status:                EventActive,
	}

	assert.Equal(t, start.Add(-15*time.Minute), event.CheckInOpensAt())
	assert.Equal(t, start.Add(2*time.Hour+30*time.Minute), event.CheckOutClosesAt())

	assert.False(t, event.AcceptsCheckInAt(start.Add(-16*time.Minute)))
	assert.True(t, event.AcceptsCheckInAt(start.Add(-15*time.Minute)))
	assert.True(t, event.AcceptsCheckInAt(start.Add(time.Hour)))
	assert.False(t, event.AcceptsCheckInAt(start.Add(2*time.Hour+time.Minute)))

	assert.True(t, event.AcceptsCheckOutAt(start.Add(2*time.Hour+30*time.Minute)))
	assert.False(t, event.AcceptsCheckOutAt(start.Add(2*time.Hour+31*time.Minute)))

	event.Status = EventCompleted
	assert.False(t, event.AcceptsCheckInAt(start.Add(time.Hour)))
	assert.False(t, event.AcceptsCheckOutAt(start.Add(time.Hour)))
}
