package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/repository/dao"
)

var (
	ErrEventNotFound       = dao.ErrEventNotFound
	ErrEventAlreadyClosed  = dao.ErrEventAlreadyClosed
	ErrEventQRCodeNotFound = dao.ErrEventQRCodeNotFound
)

type EventDAO interface {
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	FindByID(ctx context.Context, id uint) (dao.Event, error)
	FindByQRCode(ctx context.Context, qrCode string) (dao.Event, error)
	FindAll(ctx context.Context, limit, offset int) ([]dao.Event, error)
	FindActiveEndingBefore(ctx context.Context, ts time.Time) ([]dao.Event, error)
	CompleteExpired(ctx context.Context, now time.Time) (int64, error)
	CompleteExpiredByID(ctx context.Context, id uint, now time.Time) (bool, error)
	Cancel(ctx context.Context, id uint) (dao.Event, error)
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *EventRepository) FindByQRCode(ctx context.Context, qrCode string) (domain.Event, error) {
	found, err := r.dao.FindByQRCode(ctx, qrCode)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByQRCode -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *EventRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	found, err := r.dao.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	return r.daoToDomainAll(found), nil
}

func (r *EventRepository) FindActiveEndingBefore(ctx context.Context, ts time.Time) ([]domain.Event, error) {
	found, err := r.dao.FindActiveEndingBefore(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindActiveEndingBefore -> %w", err)
	}

	return r.daoToDomainAll(found), nil
}

func (r *EventRepository) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	count, err := r.dao.CompleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CompleteExpired -> %w", err)
	}

	return count, nil
}

func (r *EventRepository) CompleteExpiredByID(ctx context.Context, id uint, now time.Time) (bool, error) {
	transitioned, err := r.dao.CompleteExpiredByID(ctx, id, now)
	if err != nil {
		return false, fmt.Errorf("r.dao.CompleteExpiredByID -> %w", err)
	}

	return transitioned, nil
}

func (r *EventRepository) Cancel(ctx context.Context, id uint) (domain.Event, error) {
	cancelled, err := r.dao.Cancel(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Cancel -> %w", err)
	}

	return r.daoToDomain(cancelled), nil
}

func (r *EventRepository) domainToDao(e domain.Event) dao.Event {
	return dao.Event{
		ID:                    e.ID,
		Name:                  e.Name,
		Description:           e.Description,
		VenueName:             e.VenueName,
		VenueLat:              e.Venue.Lat,
		VenueLng:              e.Venue.Lng,
		StartTime:             e.StartTime,
		EndTime:               e.EndTime,
		CheckInBufferMinutes:  e.CheckInBufferMinutes,
		CheckOutBufferMinutes: e.CheckOutBufferMinutes,
		Status:                string(e.Status),
		QRCode:                e.QRCode,
		CreatedBy:             e.CreatedBy,
	}
}

func (r *EventRepository) daoToDomain(e dao.Event) domain.Event {
	return domain.Event{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		VenueName:   e.VenueName,
		Venue: domain.Coordinate{
			Lat: e.VenueLat,
			Lng: e.VenueLng,
		},
		StartTime:             e.StartTime,
		EndTime:               e.EndTime,
		CheckInBufferMinutes:  e.CheckInBufferMinutes,
		CheckOutBufferMinutes: e.CheckOutBufferMinutes,
		Status:                domain.EventStatus(e.Status),
		QRCode:                e.QRCode,
		CreatedBy:             e.CreatedBy,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

func (r *EventRepository) daoToDomainAll(events []dao.Event) []domain.Event {
	out := make([]domain.Event, len(events))
	for i, e := range events {
		out[i] = r.daoToDomain(e)
	}

	return out
}
