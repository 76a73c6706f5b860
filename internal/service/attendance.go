package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/observability"
	"github.com/attendry/attendry-api/internal/pkg/geo"
	"github.com/attendry/attendry-api/internal/repository"
)

var (
	ErrAttendanceNotFound  = repository.ErrAttendanceNotFound
	ErrAlreadyCheckedIn    = repository.ErrAlreadyCheckedIn
	ErrAlreadyCheckedOut   = repository.ErrAlreadyCheckedOut
	ErrAlreadyVerified     = repository.ErrAlreadyVerified
	ErrCheckInClosed       = errors.New("event is not accepting check-ins")
	ErrCheckOutClosed      = errors.New("event is not accepting check-outs")
	ErrNotRecordOwner      = errors.New("attendance belongs to a different user")
	ErrDisputeNoteRequired = errors.New("rejecting an attendance requires a dispute note")
	ErrVerifierNotAllowed  = errors.New("only an administrator or the event's creator may do this")
)

type AttendanceRepository interface {
	CreateCheckIn(ctx context.Context, attendance domain.Attendance) (domain.Attendance, error)
	FindByID(ctx context.Context, id uint) (domain.Attendance, error)
	FindByEventID(ctx context.Context, eventID uint, limit, offset int) ([]domain.Attendance, error)
	FindByEventAndUser(ctx context.Context, eventID, userID uint) (domain.Attendance, error)
	Summarize(ctx context.Context, eventID uint) (domain.AttendanceSummary, error)
	RecordCheckOut(ctx context.Context, id uint, at time.Time, coord domain.Coordinate, distance float64, recomputed domain.VerificationStatus) (domain.Attendance, error)
	Verify(ctx context.Context, id uint, verifierID uint, at time.Time, status domain.VerificationStatus, disputeNote, resolutionNotes string) (domain.Attendance, error)
}

// Notifier pushes attendance activity to live event feeds. A nil notifier is
// ignored.
type Notifier interface {
	Notify(update domain.FeedUpdate)
}

type AttendanceService struct {
	repo      AttendanceRepository
	eventRepo EventRepository
	notifier  Notifier
	now       func() time.Time
}

func NewAttendanceService(repo AttendanceRepository, eventRepo EventRepository, notifier Notifier) *AttendanceService {
	return &AttendanceService{
		repo:      repo,
		eventRepo: eventRepo,
		notifier:  notifier,
		now:       time.Now,
	}
}

// SubmitCheckIn opens an attendance record for the caller. The distance to
// the venue is derived server-side from the submitted coordinate and the
// status starts at the single-sided classification of that distance.
func (s *AttendanceService) SubmitCheckIn(ctx context.Context, eventID, userID uint, coord domain.Coordinate) (domain.Attendance, error) {
	if !coord.Valid() {
		return domain.Attendance{}, ErrInvalidCoordinate
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}

	now := s.now()
	if !event.AcceptsCheckInAt(now) {
		return domain.Attendance{}, ErrCheckInClosed
	}

	distance := geo.Distance(coord.Lat, coord.Lng, event.Venue.Lat, event.Venue.Lng)
	status := domain.ClassifySingle(distance)

	created, err := s.repo.CreateCheckIn(ctx, domain.Attendance{
		EventID:         eventID,
		UserID:          userID,
		CheckInAt:       now,
		CheckInCoord:    coord,
		CheckInDistance: distance,
		Status:          status,
	})
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.repo.CreateCheckIn -> %w", err)
	}

	observability.SubmissionsTotal.WithLabelValues("check_in").Inc()
	observability.ClassificationsTotal.WithLabelValues(string(status)).Inc()
	s.notify(domain.FeedUpdate{
		Kind:         domain.FeedCheckIn,
		EventID:      eventID,
		AttendanceID: created.ID,
		UserID:       userID,
		Status:       created.Status,
		Distance:     distance,
		OccurredAt:   now,
	})

	return created, nil
}

// SubmitCheckOut records the closing coordinate and recomputes the status
// from both distances. The recomputation only lands while no human verifier
// has acted; a verified record keeps its decided status.
func (s *AttendanceService) SubmitCheckOut(ctx context.Context, attendanceID, userID uint, coord domain.Coordinate) (domain.Attendance, error) {
	if !coord.Valid() {
		return domain.Attendance{}, ErrInvalidCoordinate
	}

	attendance, err := s.repo.FindByID(ctx, attendanceID)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if attendance.UserID != userID {
		return domain.Attendance{}, ErrNotRecordOwner
	}

	event, err := s.eventRepo.FindByID(ctx, attendance.EventID)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}

	now := s.now()
	if !event.AcceptsCheckOutAt(now) {
		return domain.Attendance{}, ErrCheckOutClosed
	}

	distance := geo.Distance(coord.Lat, coord.Lng, event.Venue.Lat, event.Venue.Lng)
	recomputed := domain.ClassifyCombined(attendance.CheckInDistance, distance)

	updated, err := s.repo.RecordCheckOut(ctx, attendanceID, now, coord, distance, recomputed)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.repo.RecordCheckOut -> %w", err)
	}

	observability.SubmissionsTotal.WithLabelValues("check_out").Inc()
	observability.ClassificationsTotal.WithLabelValues(string(recomputed)).Inc()
	s.notify(domain.FeedUpdate{
		Kind:         domain.FeedCheckOut,
		EventID:      updated.EventID,
		AttendanceID: updated.ID,
		UserID:       userID,
		Status:       updated.Status,
		Distance:     distance,
		OccurredAt:   now,
	})

	return updated, nil
}

// Approve is the positive manual transition. It fails with ErrAlreadyVerified
// when any verifier, including the caller, has already acted on the record.
func (s *AttendanceService) Approve(ctx context.Context, attendanceID uint, verifier domain.User, resolutionNotes string) (domain.Attendance, error) {
	return s.verify(ctx, attendanceID, verifier, domain.VerificationApproved, "", resolutionNotes)
}

// Reject is the negative manual transition and requires a dispute note so the
// record carries the reason.
func (s *AttendanceService) Reject(ctx context.Context, attendanceID uint, verifier domain.User, disputeNote, resolutionNotes string) (domain.Attendance, error) {
	if strings.TrimSpace(disputeNote) == "" {
		return domain.Attendance{}, ErrDisputeNoteRequired
	}

	return s.verify(ctx, attendanceID, verifier, domain.VerificationRejected, disputeNote, resolutionNotes)
}

func (s *AttendanceService) verify(ctx context.Context, attendanceID uint, verifier domain.User, status domain.VerificationStatus, disputeNote, resolutionNotes string) (domain.Attendance, error) {
	attendance, err := s.repo.FindByID(ctx, attendanceID)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	event, err := s.eventRepo.FindByID(ctx, attendance.EventID)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}

	if !domain.CanVerify(verifier, event) {
		return domain.Attendance{}, ErrVerifierNotAllowed
	}

	now := s.now()
	verified, err := s.repo.Verify(ctx, attendanceID, verifier.ID, now, status, disputeNote, resolutionNotes)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.repo.Verify -> %w", err)
	}

	action := "approve"
	if status == domain.VerificationRejected {
		action = "reject"
	}
	observability.VerificationsTotal.WithLabelValues(action).Inc()
	s.notify(domain.FeedUpdate{
		Kind:         domain.FeedVerified,
		EventID:      verified.EventID,
		AttendanceID: verified.ID,
		UserID:       verified.UserID,
		Status:       verified.Status,
		OccurredAt:   now,
	})

	return verified, nil
}

func (s *AttendanceService) GetAttendance(ctx context.Context, id uint) (domain.Attendance, error) {
	attendance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return attendance, nil
}

// FindForEventAndUser returns the caller's record for the event, or
// ErrAttendanceNotFound if they never checked in.
func (s *AttendanceService) FindForEventAndUser(ctx context.Context, eventID, userID uint) (domain.Attendance, error) {
	attendance, err := s.repo.FindByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return domain.Attendance{}, fmt.Errorf("s.repo.FindByEventAndUser -> %w", err)
	}

	return attendance, nil
}

func (s *AttendanceService) ListByEvent(ctx context.Context, eventID uint, page, perPage int) ([]domain.Attendance, error) {
	if _, err := s.eventRepo.FindByID(ctx, eventID); err != nil {
		return nil, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}

	limit, offset := pageBounds(page, perPage)

	records, err := s.repo.FindByEventID(ctx, eventID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByEventID -> %w", err)
	}

	return records, nil
}

func (s *AttendanceService) Summarize(ctx context.Context, eventID uint) (domain.AttendanceSummary, error) {
	if _, err := s.eventRepo.FindByID(ctx, eventID); err != nil {
		return domain.AttendanceSummary{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}

	summary, err := s.repo.Summarize(ctx, eventID)
	if err != nil {
		return domain.AttendanceSummary{}, fmt.Errorf("s.repo.Summarize -> %w", err)
	}

	return summary, nil
}

const exportBatchSize = 500

// ExportCSV streams every record of the event as CSV rows, batching reads so
// large events do not load into memory at once.
func (s *AttendanceService) ExportCSV(ctx context.Context, eventID uint, w io.Writer) error {
	if _, err := s.eventRepo.FindByID(ctx, eventID); err != nil {
		return fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{
		"attendance_id", "user_id",
		"check_in_at", "check_in_distance_m",
		"check_out_at", "check_out_distance_m",
		"status", "verified_by", "verified_at",
		"dispute_note", "resolution_notes",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("cw.Write -> %w", err)
	}

	for offset := 0; ; offset += exportBatchSize {
		records, err := s.repo.FindByEventID(ctx, eventID, exportBatchSize, offset)
		if err != nil {
			return fmt.Errorf("s.repo.FindByEventID -> %w", err)
		}

		for _, record := range records {
			if err := cw.Write(csvRow(record)); err != nil {
				return fmt.Errorf("cw.Write -> %w", err)
			}
		}

		if len(records) < exportBatchSize {
			break
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(a domain.Attendance) []string {
	row := []string{
		strconv.FormatUint(uint64(a.ID), 10),
		strconv.FormatUint(uint64(a.UserID), 10),
		a.CheckInAt.Format(time.RFC3339),
		strconv.FormatFloat(a.CheckInDistance, 'f', 1, 64),
		"", "",
		string(a.Status),
		"", "",
		a.DisputeNote,
		a.ResolutionNotes,
	}

	if a.CheckOutAt != nil {
		row[4] = a.CheckOutAt.Format(time.RFC3339)
	}
	if a.CheckOutDistance != nil {
		row[5] = strconv.FormatFloat(*a.CheckOutDistance, 'f', 1, 64)
	}
	if a.VerifiedBy != nil {
		row[7] = strconv.FormatUint(uint64(*a.VerifiedBy), 10)
	}
	if a.VerifiedAt != nil {
		row[8] = a.VerifiedAt.Format(time.RFC3339)
	}

	return row
}

func (s *AttendanceService) notify(update domain.FeedUpdate) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(update)
}
