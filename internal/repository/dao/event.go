package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrEventAlreadyClosed  = errors.New("event already closed")
	ErrEventQRCodeNotFound = errors.New("no event matches the QR code")
)

type Event struct {
	ID uint `gorm:"primaryKey"`

	Name        string `gorm:"not null"`
	Description string

	VenueName string  `gorm:"not null"`
	VenueLat  float64 `gorm:"not null"`
	VenueLng  float64 `gorm:"not null"`

	StartTime             time.Time `gorm:"not null"`
	EndTime               time.Time `gorm:"not null"`
	CheckInBufferMinutes  int       `gorm:"not null"`
	CheckOutBufferMinutes int       `gorm:"not null"`

	Status    string `gorm:"not null;index"` // "Active", "Completed", or "Cancelled"
	QRCode    string `gorm:"unique;not null"`
	CreatedBy uint   `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id uint) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByQRCode(ctx context.Context, qrCode string) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).First(&event, "qr_code = ?", qrCode)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventQRCodeNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindAll(ctx context.Context, limit, offset int) ([]Event, error) {
	var events []Event

	result := d.db.WithContext(ctx).
		Order("start_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}

// FindActiveEndingBefore lists events still marked Active whose end time has
// passed, whether or not their check-out buffer has elapsed yet.
func (d *EventDAO) FindActiveEndingBefore(ctx context.Context, ts time.Time) ([]Event, error) {
	var events []Event

	result := d.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", "Active", ts).
		Order("end_time ASC").
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}

// CompleteExpired transitions every Active event whose check-out window has
// fully elapsed to Completed in one conditional UPDATE. Rows another writer
// got to first no longer match the guard and drop out of the count.
func (d *EventDAO) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Model(&Event{}).
		Where("status = ? AND end_time <= ? AND end_time + make_interval(mins => check_out_buffer_minutes) < ?",
			"Active", now, now).
		Update("status", "Completed")
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// CompleteExpiredByID applies the sweep guard to a single event. Returns
// true when this call performed the transition.
func (d *EventDAO) CompleteExpiredByID(ctx context.Context, id uint, now time.Time) (bool, error) {
	result := d.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND status = ? AND end_time <= ? AND end_time + make_interval(mins => check_out_buffer_minutes) < ?",
			id, "Active", now, now).
		Update("status", "Completed")
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// Cancel marks an Active or Completed event Cancelled. Cancellation never
// reverses, so a row already Cancelled fails with ErrEventAlreadyClosed.
func (d *EventDAO) Cancel(ctx context.Context, id uint) (Event, error) {
	result := d.db.WithContext(ctx).Model(&Event{}).
		Where("id = ? AND status IN ?", id, []string{"Active", "Completed"}).
		Update("status", "Cancelled")
	if result.Error != nil {
		return Event{}, result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := d.FindByID(ctx, id); err != nil {
			return Event{}, err
		}

		return Event{}, ErrEventAlreadyClosed
	}

	return d.FindByID(ctx, id)
}
