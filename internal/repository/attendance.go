package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/repository/dao"
)

var (
	ErrAttendanceNotFound = dao.ErrAttendanceNotFound
	ErrAlreadyCheckedIn   = dao.ErrAlreadyCheckedIn
	ErrAlreadyCheckedOut  = dao.ErrAlreadyCheckedOut
	ErrAlreadyVerified    = dao.ErrAlreadyVerified
)

type AttendanceDAO interface {
	Insert(ctx context.Context, attendance dao.Attendance) (dao.Attendance, error)
	FindByID(ctx context.Context, id uint) (dao.Attendance, error)
	FindByEventID(ctx context.Context, eventID uint, limit, offset int) ([]dao.Attendance, error)
	FindByEventAndUser(ctx context.Context, eventID, userID uint) (dao.Attendance, error)
	CountByStatus(ctx context.Context, eventID uint) (map[string]int64, error)
	RecordCheckOut(ctx context.Context, id uint, at time.Time, lat, lng, distance float64, recomputed string) (dao.Attendance, error)
	Verify(ctx context.Context, id uint, verifierID uint, at time.Time, status, disputeNote, resolutionNotes string) (dao.Attendance, error)
}

type AttendanceRepository struct {
	dao AttendanceDAO
}

func NewAttendanceRepository(dao AttendanceDAO) *AttendanceRepository {
	return &AttendanceRepository{
		dao: dao,
	}
}

// CreateCheckIn inserts the record a check-in submission opens. The unique
// (event, user) index turns a duplicate submission into ErrAlreadyCheckedIn.
func (r *AttendanceRepository) CreateCheckIn(ctx context.Context, attendance domain.Attendance) (domain.Attendance, error) {
	created, err := r.dao.Insert(ctx, dao.Attendance{
		EventID:         attendance.EventID,
		UserID:          attendance.UserID,
		CheckInAt:       attendance.CheckInAt,
		CheckInLat:      attendance.CheckInCoord.Lat,
		CheckInLng:      attendance.CheckInCoord.Lng,
		CheckInDistance: attendance.CheckInDistance,
		Status:          string(attendance.Status),
	})
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *AttendanceRepository) FindByID(ctx context.Context, id uint) (domain.Attendance, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *AttendanceRepository) FindByEventID(ctx context.Context, eventID uint, limit, offset int) ([]domain.Attendance, error) {
	found, err := r.dao.FindByEventID(ctx, eventID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEventID -> %w", err)
	}

	out := make([]domain.Attendance, len(found))
	for i, a := range found {
		out[i] = r.daoToDomain(a)
	}

	return out, nil
}

func (r *AttendanceRepository) FindByEventAndUser(ctx context.Context, eventID, userID uint) (domain.Attendance, error) {
	found, err := r.dao.FindByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("r.dao.FindByEventAndUser -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *AttendanceRepository) Summarize(ctx context.Context, eventID uint) (domain.AttendanceSummary, error) {
	counts, err := r.dao.CountByStatus(ctx, eventID)
	if err != nil {
		return domain.AttendanceSummary{}, fmt.Errorf("r.dao.CountByStatus -> %w", err)
	}

	summary := domain.AttendanceSummary{
		EventID:  eventID,
		Approved: counts[string(domain.VerificationApproved)],
		Pending:  counts[string(domain.VerificationPending)],
		Rejected: counts[string(domain.VerificationRejected)],
	}
	summary.Total = summary.Approved + summary.Pending + summary.Rejected

	return summary, nil
}

func (r *AttendanceRepository) RecordCheckOut(ctx context.Context, id uint, at time.Time, coord domain.Coordinate, distance float64, recomputed domain.VerificationStatus) (domain.Attendance, error) {
	updated, err := r.dao.RecordCheckOut(ctx, id, at, coord.Lat, coord.Lng, distance, string(recomputed))
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("r.dao.RecordCheckOut -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *AttendanceRepository) Verify(ctx context.Context, id uint, verifierID uint, at time.Time, status domain.VerificationStatus, disputeNote, resolutionNotes string) (domain.Attendance, error) {
	verified, err := r.dao.Verify(ctx, id, verifierID, at, string(status), disputeNote, resolutionNotes)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("r.dao.Verify -> %w", err)
	}

	return r.daoToDomain(verified), nil
}

func (r *AttendanceRepository) daoToDomain(a dao.Attendance) domain.Attendance {
	attendance := domain.Attendance{
		ID:      a.ID,
		EventID: a.EventID,
		UserID:  a.UserID,

		CheckInAt: a.CheckInAt,
		CheckInCoord: domain.Coordinate{
			Lat: a.CheckInLat,
			Lng: a.CheckInLng,
		},
		CheckInDistance: a.CheckInDistance,

		CheckOutAt:       a.CheckOutAt,
		CheckOutDistance: a.CheckOutDistance,

		Status: domain.VerificationStatus(a.Status),

		DisputeNote:     a.DisputeNote,
		ResolutionNotes: a.ResolutionNotes,
		VerifiedBy:      a.VerifiedBy,
		VerifiedAt:      a.VerifiedAt,

		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}

	if a.CheckOutLat != nil && a.CheckOutLng != nil {
		attendance.CheckOutCoord = &domain.Coordinate{
			Lat: *a.CheckOutLat,
			Lng: *a.CheckOutLng,
		}
	}

	return attendance
}
