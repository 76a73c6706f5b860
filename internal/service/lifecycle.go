package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/observability"
)

type LifecycleEventRepository interface {
	CompleteExpired(ctx context.Context, now time.Time) (int64, error)
	CompleteExpiredByID(ctx context.Context, id uint, now time.Time) (bool, error)
	FindActiveEndingBefore(ctx context.Context, ts time.Time) ([]domain.Event, error)
}

// LifecycleService completes events whose check-out window has elapsed. It
// only exposes sweeps; the recurring schedule belongs to the process wiring,
// not to the service.
type LifecycleService struct {
	repo LifecycleEventRepository
}

func NewLifecycleService(repo LifecycleEventRepository) *LifecycleService {
	return &LifecycleService{
		repo: repo,
	}
}

// Sweep transitions every Active event whose end time plus check-out buffer
// lies before now, and reports how many rows it moved. The transition is a
// single conditional update, so overlapping sweeps and concurrent manual
// cancellations never double-count an event.
func (s *LifecycleService) Sweep(ctx context.Context, now time.Time) (int64, error) {
	started := time.Now()

	count, err := s.repo.CompleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("s.repo.CompleteExpired -> %w", err)
	}

	observability.SweepDuration.Observe(time.Since(started).Seconds())
	if count > 0 {
		observability.SweepTransitionsTotal.Add(float64(count))
		zap.L().Info("swept expired events", zap.Int64("completed", count))
	}

	return count, nil
}

// CheckOne applies the sweep rule to a single event, for read paths that want
// fresh status without waiting for the next tick. It reports whether the
// event transitioned.
func (s *LifecycleService) CheckOne(ctx context.Context, eventID uint, now time.Time) (bool, error) {
	transitioned, err := s.repo.CompleteExpiredByID(ctx, eventID, now)
	if err != nil {
		return false, fmt.Errorf("s.repo.CompleteExpiredByID -> %w", err)
	}

	if transitioned {
		observability.SweepTransitionsTotal.Inc()
	}

	return transitioned, nil
}

// PendingClosure lists Active events already past their end time. Some may
// still be inside their check-out buffer; they appear here so operators can
// see what the coming sweeps will take.
func (s *LifecycleService) PendingClosure(ctx context.Context, now time.Time) ([]domain.Event, error) {
	events, err := s.repo.FindActiveEndingBefore(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindActiveEndingBefore -> %w", err)
	}

	return events, nil
}
