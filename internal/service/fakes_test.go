package service

import (
	"context"
	"time"

	"github.com/attendry/attendry-api/internal/domain"
)

type fakeUserRepo struct {
	users  map[uint]domain.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	for _, u := range f.users {
		if u.Email == user.Email {
			return domain.User{}, ErrUserEmailExists
		}
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uint) (domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, ErrUserNotFound
}

type fakeEventRepo struct {
	events map[uint]domain.Event
	nextID uint
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[uint]domain.Event)}
}

func (f *fakeEventRepo) add(event domain.Event) domain.Event {
	f.nextID++
	event.ID = f.nextID
	f.events[event.ID] = event
	return event
}

func (f *fakeEventRepo) Create(_ context.Context, event domain.Event) (domain.Event, error) {
	return f.add(event), nil
}

func (f *fakeEventRepo) FindByID(_ context.Context, id uint) (domain.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return domain.Event{}, ErrEventNotFound
	}
	return event, nil
}

func (f *fakeEventRepo) FindByQRCode(_ context.Context, code string) (domain.Event, error) {
	for _, e := range f.events {
		if e.QRCode == code {
			return e, nil
		}
	}
	return domain.Event{}, ErrEventQRCodeNotFound
}

func (f *fakeEventRepo) FindAll(_ context.Context, limit, offset int) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range f.events {
		out = append(out, e)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEventRepo) Cancel(_ context.Context, id uint) (domain.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return domain.Event{}, ErrEventNotFound
	}
	if event.Status == domain.EventCancelled {
		return domain.Event{}, ErrEventAlreadyClosed
	}
	event.Status = domain.EventCancelled
	f.events[id] = event
	return event, nil
}

func (f *fakeEventRepo) CompleteExpired(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for id, e := range f.events {
		if f.expired(e, now) {
			e.Status = domain.EventCompleted
			f.events[id] = e
			count++
		}
	}
	return count, nil
}

func (f *fakeEventRepo) CompleteExpiredByID(_ context.Context, id uint, now time.Time) (bool, error) {
	e, ok := f.events[id]
	if !ok {
		return false, ErrEventNotFound
	}
	if !f.expired(e, now) {
		return false, nil
	}
	e.Status = domain.EventCompleted
	f.events[id] = e
	return true, nil
}

func (f *fakeEventRepo) FindActiveEndingBefore(_ context.Context, ts time.Time) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range f.events {
		if e.Status == domain.EventActive && !e.EndTime.After(ts) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) expired(e domain.Event, now time.Time) bool {
	return e.Status == domain.EventActive && !e.EndTime.After(now) && e.CheckOutClosesAt().Before(now)
}

type fakeAttendanceRepo struct {
	records map[uint]domain.Attendance
	nextID  uint
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: make(map[uint]domain.Attendance)}
}

func (f *fakeAttendanceRepo) CreateCheckIn(_ context.Context, attendance domain.Attendance) (domain.Attendance, error) {
	for _, a := range f.records {
		if a.EventID == attendance.EventID && a.UserID == attendance.UserID {
			return domain.Attendance{}, ErrAlreadyCheckedIn
		}
	}
	f.nextID++
	attendance.ID = f.nextID
	f.records[attendance.ID] = attendance
	return attendance, nil
}

func (f *fakeAttendanceRepo) FindByID(_ context.Context, id uint) (domain.Attendance, error) {
	attendance, ok := f.records[id]
	if !ok {
		return domain.Attendance{}, ErrAttendanceNotFound
	}
	return attendance, nil
}

func (f *fakeAttendanceRepo) FindByEventID(_ context.Context, eventID uint, limit, offset int) ([]domain.Attendance, error) {
	var out []domain.Attendance
	for _, a := range f.records {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAttendanceRepo) FindByEventAndUser(_ context.Context, eventID, userID uint) (domain.Attendance, error) {
	for _, a := range f.records {
		if a.EventID == eventID && a.UserID == userID {
			return a, nil
		}
	}
	return domain.Attendance{}, ErrAttendanceNotFound
}

func (f *fakeAttendanceRepo) Summarize(_ context.Context, eventID uint) (domain.AttendanceSummary, error) {
	summary := domain.AttendanceSummary{EventID: eventID}
	for _, a := range f.records {
		if a.EventID != eventID {
			continue
		}
		summary.Total++
		switch a.Status {
		case domain.VerificationApproved:
			summary.Approved++
		case domain.VerificationRejected:
			summary.Rejected++
		default:
			summary.Pending++
		}
	}
	return summary, nil
}

// RecordCheckOut mirrors the conditional update the real store performs: the
// check-out lands once, and the recomputed status only applies while no human
// verifier has acted.
func (f *fakeAttendanceRepo) RecordCheckOut(_ context.Context, id uint, at time.Time, coord domain.Coordinate, distance float64, recomputed domain.VerificationStatus) (domain.Attendance, error) {
	a, ok := f.records[id]
	if !ok {
		return domain.Attendance{}, ErrAttendanceNotFound
	}
	if a.CheckOutAt != nil {
		return domain.Attendance{}, ErrAlreadyCheckedOut
	}

	a.CheckOutAt = &at
	a.CheckOutCoord = &coord
	a.CheckOutDistance = &distance
	if a.VerifiedBy == nil {
		a.Status = recomputed
	}

	f.records[id] = a
	return a, nil
}

// Verify mirrors the update-only-if-unverified guard.
func (f *fakeAttendanceRepo) Verify(_ context.Context, id uint, verifierID uint, at time.Time, status domain.VerificationStatus, disputeNote, resolutionNotes string) (domain.Attendance, error) {
	a, ok := f.records[id]
	if !ok {
		return domain.Attendance{}, ErrAttendanceNotFound
	}
	if a.VerifiedBy != nil {
		return domain.Attendance{}, ErrAlreadyVerified
	}

	a.Status = status
	a.VerifiedBy = &verifierID
	a.VerifiedAt = &at
	if disputeNote != "" {
		a.DisputeNote = disputeNote
	}
	if resolutionNotes != "" {
		a.ResolutionNotes = resolutionNotes
	}

	f.records[id] = a
	return a, nil
}

type capturingNotifier struct {
	updates []domain.FeedUpdate
}

func (n *capturingNotifier) Notify(update domain.FeedUpdate) {
	n.updates = append(n.updates, update)
}
