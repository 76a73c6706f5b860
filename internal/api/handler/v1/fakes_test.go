package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/attendry/attendry-api/internal/api/middleware"
	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/service"
)

var (
	testStudent   = domain.User{ID: 7, Email: "dana@example.com", Name: "Dana", Role: domain.RoleStudent}
	testModerator = domain.User{ID: 8, Email: "mo@example.com", Name: "Mo", Role: domain.RoleModerator}
	testAdmin     = domain.User{ID: 9, Email: "root@example.com", Name: "Root", Role: domain.RoleAdmin}
)

// newTestRouter builds a bare engine; a non-zero user ID is injected the way
// the JWT middleware would.
func newTestRouter(authedUserID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if authedUserID != 0 {
		router.Use(func(ctx *gin.Context) {
			ctx.Set(middleware.ContextKeyUserID, authedUserID)
		})
	}

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

type fakeUserService struct {
	getUser func(ctx context.Context, id uint) (domain.User, error)
}

func (f *fakeUserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	return f.getUser(ctx, id)
}

// userServiceFor resolves exactly one known user, as the real service would
// after that user authenticated.
func userServiceFor(users ...domain.User) *fakeUserService {
	return &fakeUserService{
		getUser: func(_ context.Context, id uint) (domain.User, error) {
			for _, u := range users {
				if u.ID == id {
					return u, nil
				}
			}

			return domain.User{}, service.ErrUserNotFound
		},
	}
}

type fakeAuthService struct {
	signup func(ctx context.Context, user domain.User) (domain.User, error)
	login  func(ctx context.Context, email, password string) (domain.User, error)
}

func (f *fakeAuthService) Signup(ctx context.Context, user domain.User) (domain.User, error) {
	return f.signup(ctx, user)
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	return f.login(ctx, email, password)
}

type fakeEventService struct {
	createEvent   func(ctx context.Context, event domain.Event, creatorID uint) (domain.Event, error)
	getEvent      func(ctx context.Context, id uint) (domain.Event, error)
	listEvents    func(ctx context.Context, page, perPage int) ([]domain.Event, error)
	resolveQRCode func(ctx context.Context, code string) (domain.Event, error)
	cancelEvent   func(ctx context.Context, id uint, principal domain.User) (domain.Event, error)
}

func (f *fakeEventService) CreateEvent(ctx context.Context, event domain.Event, creatorID uint) (domain.Event, error) {
	return f.createEvent(ctx, event, creatorID)
}

func (f *fakeEventService) GetEvent(ctx context.Context, id uint) (domain.Event, error) {
	return f.getEvent(ctx, id)
}

func (f *fakeEventService) ListEvents(ctx context.Context, page, perPage int) ([]domain.Event, error) {
	return f.listEvents(ctx, page, perPage)
}

func (f *fakeEventService) ResolveQRCode(ctx context.Context, code string) (domain.Event, error) {
	return f.resolveQRCode(ctx, code)
}

func (f *fakeEventService) CancelEvent(ctx context.Context, id uint, principal domain.User) (domain.Event, error) {
	return f.cancelEvent(ctx, id, principal)
}

type fakeLifecycleService struct {
	sweep          func(ctx context.Context, now time.Time) (int64, error)
	checkOne       func(ctx context.Context, eventID uint, now time.Time) (bool, error)
	pendingClosure func(ctx context.Context, now time.Time) ([]domain.Event, error)
}

func (f *fakeLifecycleService) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return f.sweep(ctx, now)
}

func (f *fakeLifecycleService) CheckOne(ctx context.Context, eventID uint, now time.Time) (bool, error) {
	return f.checkOne(ctx, eventID, now)
}

func (f *fakeLifecycleService) PendingClosure(ctx context.Context, now time.Time) ([]domain.Event, error) {
	return f.pendingClosure(ctx, now)
}

type fakeAttendanceService struct {
	submitCheckIn       func(ctx context.Context, eventID, userID uint, coord domain.Coordinate) (domain.Attendance, error)
	submitCheckOut      func(ctx context.Context, attendanceID, userID uint, coord domain.Coordinate) (domain.Attendance, error)
	approve             func(ctx context.Context, attendanceID uint, verifier domain.User, resolutionNotes string) (domain.Attendance, error)
	reject              func(ctx context.Context, attendanceID uint, verifier domain.User, disputeNote, resolutionNotes string) (domain.Attendance, error)
	getAttendance       func(ctx context.Context, id uint) (domain.Attendance, error)
	findForEventAndUser func(ctx context.Context, eventID, userID uint) (domain.Attendance, error)
	listByEvent         func(ctx context.Context, eventID uint, page, perPage int) ([]domain.Attendance, error)
	summarize           func(ctx context.Context, eventID uint) (domain.AttendanceSummary, error)
	exportCSV           func(ctx context.Context, eventID uint, w io.Writer) error
}

func (f *fakeAttendanceService) SubmitCheckIn(ctx context.Context, eventID, userID uint, coord domain.Coordinate) (domain.Attendance, error) {
	return f.submitCheckIn(ctx, eventID, userID, coord)
}

func (f *fakeAttendanceService) SubmitCheckOut(ctx context.Context, attendanceID, userID uint, coord domain.Coordinate) (domain.Attendance, error) {
	return f.submitCheckOut(ctx, attendanceID, userID, coord)
}

func (f *fakeAttendanceService) Approve(ctx context.Context, attendanceID uint, verifier domain.User, resolutionNotes string) (domain.Attendance, error) {
	return f.approve(ctx, attendanceID, verifier, resolutionNotes)
}

func (f *fakeAttendanceService) Reject(ctx context.Context, attendanceID uint, verifier domain.User, disputeNote, resolutionNotes string) (domain.Attendance, error) {
	return f.reject(ctx, attendanceID, verifier, disputeNote, resolutionNotes)
}

func (f *fakeAttendanceService) GetAttendance(ctx context.Context, id uint) (domain.Attendance, error) {
	return f.getAttendance(ctx, id)
}

func (f *fakeAttendanceService) FindForEventAndUser(ctx context.Context, eventID, userID uint) (domain.Attendance, error) {
	return f.findForEventAndUser(ctx, eventID, userID)
}

func (f *fakeAttendanceService) ListByEvent(ctx context.Context, eventID uint, page, perPage int) ([]domain.Attendance, error) {
	return f.listByEvent(ctx, eventID, page, perPage)
}

func (f *fakeAttendanceService) Summarize(ctx context.Context, eventID uint) (domain.AttendanceSummary, error) {
	return f.summarize(ctx, eventID)
}

func (f *fakeAttendanceService) ExportCSV(ctx context.Context, eventID uint, w io.Writer) error {
	return f.exportCSV(ctx, eventID, w)
}
