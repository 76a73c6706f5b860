package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendry/attendry-api/internal/domain"
)

func endedEvent(repo *fakeEventRepo, endedBefore time.Duration, bufferMinutes int) domain.Event {
	return repo.add(domain.Event{
		Name:                  "Guest Lecture",
		Venue:                 venue,
		StartTime:             testNow.Add(-endedBefore - 2*time.Hour),
		EndTime:               testNow.Add(-endedBefore),
		CheckOutBufferMinutes: bufferMinutes,
		Status:                domain.EventActive,
	})
}

func TestSweepRespectsCheckOutBuffer(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := NewLifecycleService(eventRepo)

	// Ended ten minutes ago with a thirty minute buffer: still inside the
	// check-out window, so the sweep must leave it alone.
	inside := endedEvent(eventRepo, 10*time.Minute, 30)
	// Same end time with a five minute buffer is past the window.
	expired := endedEvent(eventRepo, 10*time.Minute, 5)

	count, err := svc.Sweep(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	kept, err := eventRepo.FindByID(context.Background(), inside.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventActive, kept.Status)

	swept, err := eventRepo.FindByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCompleted, swept.Status)
}

func TestSweepTwiceCountsOnce(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := NewLifecycleService(eventRepo)
	endedEvent(eventRepo, time.Hour, 5)

	first, err := svc.Sweep(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := svc.Sweep(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second)
}

func TestSweepLeavesFutureEvents(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := NewLifecycleService(eventRepo)
	running := eventRepo.add(domain.Event{
		Venue:                 venue,
		StartTime:             testNow.Add(-time.Hour),
		EndTime:               testNow.Add(time.Hour),
		CheckOutBufferMinutes: 30,
		Status:                domain.EventActive,
	})

	count, err := svc.Sweep(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	kept, err := eventRepo.FindByID(context.Background(), running.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventActive, kept.Status)
}

func TestCheckOneTransitionsOnce(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := NewLifecycleService(eventRepo)
	expired := endedEvent(eventRepo, time.Hour, 5)

	transitioned, err := svc.CheckOne(context.Background(), expired.ID, testNow)
	require.NoError(t, err)
	assert.True(t, transitioned)

	again, err := svc.CheckOne(context.Background(), expired.ID, testNow)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestCheckOneInsideBuffer(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := NewLifecycleService(eventRepo)
	inside := endedEvent(eventRepo, 10*time.Minute, 30)

	transitioned, err := svc.CheckOne(context.Background(), inside.ID, testNow)
	require.NoError(t, err)
	assert.False(t, transitioned)

	kept, err := eventRepo.FindByID(context.Background(), inside.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventActive, kept.Status)
}

func TestPendingClosureListsEndedActiveEvents(t *testing.T) {
	eventRepo := newFakeEventRepo()
	svc := NewLifecycleService(eventRepo)

	insideBuffer := endedEvent(eventRepo, 10*time.Minute, 30)
	pastBuffer := endedEvent(eventRepo, time.Hour, 5)
	eventRepo.add(domain.Event{
		Venue:     venue,
		StartTime: testNow.Add(-time.Hour),
		EndTime:   testNow.Add(time.Hour),
		Status:    domain.EventActive,
	})

	pending, err := svc.PendingClosure(context.Background(), testNow)
	require.NoError(t, err)

	ids := make([]uint, 0, len(pending))
	for _, e := range pending {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []uint{insideBuffer.ID, pastBuffer.ID}, ids)
}
