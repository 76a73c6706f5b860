package dao

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrAlreadyCheckedIn   = errors.New("attendance already recorded for this event")
	ErrAlreadyCheckedOut  = errors.New("check-out already recorded")
	ErrAlreadyVerified    = errors.New("attendance already verified")
)

type Attendance struct {
	ID      uint `gorm:"primaryKey"`
	EventID uint `gorm:"not null;uniqueIndex:idx_attendances_event_user"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_attendances_event_user"`

	CheckInAt       time.Time `gorm:"not null"`
	CheckInLat      float64   `gorm:"not null"`
	CheckInLng      float64   `gorm:"not null"`
	CheckInDistance float64   `gorm:"not null"`

	CheckOutAt       *time.Time
	CheckOutLat      *float64
	CheckOutLng      *float64
	CheckOutDistance *float64

	Status string `gorm:"not null;index"` // "Pending", "Approved", or "Rejected"

	DisputeNote     string
	ResolutionNotes string
	VerifiedBy      *uint
	VerifiedAt      *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type AttendanceDAO struct {
	db *gorm.DB
}

func NewAttendanceDAO(db *gorm.DB) *AttendanceDAO {
	return &AttendanceDAO{
		db: db,
	}
}

func (d *AttendanceDAO) Insert(ctx context.Context, attendance Attendance) (Attendance, error) {
	result := d.db.WithContext(ctx).Create(&attendance)
	if result.Error != nil {
		var err *pgconn.PgError
		if errors.As(result.Error, &err) &&
			err.Code == pgerrcode.UniqueViolation &&
			strings.Contains(err.Message, `unique constraint "idx_attendances_event_user"`) {
			return Attendance{}, ErrAlreadyCheckedIn
		}

		return Attendance{}, result.Error
	}

	return attendance, nil
}

func (d *AttendanceDAO) FindByID(ctx context.Context, id uint) (Attendance, error) {
	var attendance Attendance

	result := d.db.WithContext(ctx).First(&attendance, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Attendance{}, ErrAttendanceNotFound
		}

		return Attendance{}, result.Error
	}

	return attendance, nil
}

func (d *AttendanceDAO) FindByEventID(ctx context.Context, eventID uint, limit, offset int) ([]Attendance, error) {
	var attendances []Attendance

	result := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("check_in_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&attendances)
	if result.Error != nil {
		return nil, result.Error
	}

	return attendances, nil
}

func (d *AttendanceDAO) FindByEventAndUser(ctx context.Context, eventID, userID uint) (Attendance, error) {
	var attendance Attendance

	result := d.db.WithContext(ctx).
		First(&attendance, "event_id = ? AND user_id = ?", eventID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Attendance{}, ErrAttendanceNotFound
		}

		return Attendance{}, result.Error
	}

	return attendance, nil
}

func (d *AttendanceDAO) CountByStatus(ctx context.Context, eventID uint) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}

	result := d.db.WithContext(ctx).Model(&Attendance{}).
		Select("status, count(*) as count").
		Where("event_id = ?", eventID).
		Group("status").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}

// RecordCheckOut attaches check-out evidence to a record that has none yet.
// The recomputed status only lands while no human verifier has acted; the
// evidence columns are written either way so late check-outs still leave an
// audit trail.
func (d *AttendanceDAO) RecordCheckOut(ctx context.Context, id uint, at time.Time, lat, lng, distance float64, recomputed string) (Attendance, error) {
	result := d.db.WithContext(ctx).Model(&Attendance{}).
		Where("id = ? AND check_out_at IS NULL", id).
		Updates(map[string]interface{}{
			"check_out_at":       at,
			"check_out_lat":      lat,
			"check_out_lng":      lng,
			"check_out_distance": distance,
			"status":             gorm.Expr("CASE WHEN verified_by IS NULL THEN ? ELSE status END", recomputed),
		})
	if result.Error != nil {
		return Attendance{}, result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := d.FindByID(ctx, id); err != nil {
			return Attendance{}, err
		}

		return Attendance{}, ErrAlreadyCheckedOut
	}

	return d.FindByID(ctx, id)
}

// Verify records a manual decision. The verifier columns are written at most
// once; a second manual action matches zero rows and fails with
// ErrAlreadyVerified so the first decision's audit trail stays intact.
func (d *AttendanceDAO) Verify(ctx context.Context, id uint, verifierID uint, at time.Time, status, disputeNote, resolutionNotes string) (Attendance, error) {
	updates := map[string]interface{}{
		"status":      status,
		"verified_by": verifierID,
		"verified_at": at,
	}
	if disputeNote != "" {
		updates["dispute_note"] = disputeNote
	}
	if resolutionNotes != "" {
		updates["resolution_notes"] = resolutionNotes
	}

	result := d.db.WithContext(ctx).Model(&Attendance{}).
		Where("id = ? AND verified_by IS NULL", id).
		Updates(updates)
	if result.Error != nil {
		return Attendance{}, result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := d.FindByID(ctx, id); err != nil {
			return Attendance{}, err
		}

		return Attendance{}, ErrAlreadyVerified
	}

	return d.FindByID(ctx, id)
}
