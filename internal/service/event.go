package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/repository"
)

var (
	ErrEventNotFound       = repository.ErrEventNotFound
	ErrEventAlreadyClosed  = repository.ErrEventAlreadyClosed
	ErrEventQRCodeNotFound = repository.ErrEventQRCodeNotFound
	ErrInvalidCoordinate   = errors.New("coordinate out of range")
	ErrInvalidEventWindow  = errors.New("event must end after it starts")
)

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	FindByQRCode(ctx context.Context, code string) (domain.Event, error)
	FindAll(ctx context.Context, limit, offset int) ([]domain.Event, error)
	Cancel(ctx context.Context, id uint) (domain.Event, error)
}

type EventService struct {
	repo EventRepository
}

func NewEventService(repo EventRepository) *EventService {
	return &EventService{
		repo: repo,
	}
}

// CreateEvent opens a new event with a fresh QR code. The venue coordinate is
// fixed at creation; editing it afterwards is not supported.
func (s *EventService) CreateEvent(ctx context.Context, event domain.Event, creatorID uint) (domain.Event, error) {
	if !event.Venue.Valid() {
		return domain.Event{}, ErrInvalidCoordinate
	}
	if !event.EndTime.After(event.StartTime) {
		return domain.Event{}, ErrInvalidEventWindow
	}

	event.Status = domain.EventActive
	event.QRCode = uuid.NewString()
	event.CreatedBy = creatorID

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

func (s *EventService) GetEvent(ctx context.Context, id uint) (domain.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context, page, perPage int) ([]domain.Event, error) {
	limit, offset := pageBounds(page, perPage)

	events, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindAll -> %w", err)
	}

	return events, nil
}

// ResolveQRCode maps a scanned payload back to its event.
func (s *EventService) ResolveQRCode(ctx context.Context, code string) (domain.Event, error) {
	event, err := s.repo.FindByQRCode(ctx, code)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByQRCode -> %w", err)
	}

	return event, nil
}

// CancelEvent is a manual terminal transition. Only the event's creator or an
// administrator may cancel, and a cancelled event never reopens.
func (s *EventService) CancelEvent(ctx context.Context, id uint, principal domain.User) (domain.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if !domain.CanVerify(principal, event) {
		return domain.Event{}, ErrVerifierNotAllowed
	}

	cancelled, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Cancel -> %w", err)
	}

	return cancelled, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pageBounds(page, perPage int) (limit, offset int) {
	if perPage < 1 || perPage > maxPageSize {
		perPage = defaultPageSize
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
