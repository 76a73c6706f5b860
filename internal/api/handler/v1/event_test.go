package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendry/attendry-api/internal/api/handler/v1/response"
	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/service"
)

func quietLifecycle() *fakeLifecycleService {
	return &fakeLifecycleService{
		checkOne: func(context.Context, uint, time.Time) (bool, error) {
			return false, nil
		},
	}
}

func newEventRouter(user domain.User, svc EventService, lifecycleSvc LifecycleService, attSvc AttendanceService) *gin.Engine {
	handler := NewEventHandler(svc, lifecycleSvc, attSvc, userServiceFor(user))

	router := newTestRouter(user.ID)
	router.POST("/events", handler.HandleCreateEvent)
	router.GET("/events", handler.HandleListEvents)
	router.GET("/events/:eventID", handler.HandleGetEvent)
	router.DELETE("/events/:eventID", handler.HandleCancelEvent)
	router.POST("/qr/validate", handler.HandleValidateQRCode)

	return router
}

func TestHandleCreateEvent(t *testing.T) {
	svc := &fakeEventService{
		createEvent: func(_ context.Context, event domain.Event, creatorID uint) (domain.Event, error) {
			require.Equal(t, testModerator.ID, creatorID)
			event.ID = 42
			event.Status = domain.EventActive
			return event, nil
		},
	}
	router := newEventRouter(testModerator, svc, quietLifecycle(), nil)

	w := doJSON(t, router, http.MethodPost, "/events", gin.H{
		"name":                     "Orientation Day",
		"venue_name":               "Main Hall",
		"lat":                      9.787448,
		"lng":                      125.494373,
		"start_time":               time.Now().Add(time.Hour).Format(time.RFC3339),
		"end_time":                 time.Now().Add(3 * time.Hour).Format(time.RFC3339),
		"check_in_buffer_minutes":  15,
		"check_out_buffer_minutes": 30,
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, uint(42), created.ID)
	assert.Equal(t, domain.EventActive, created.Status)
}

func TestHandleCreateEventStudentForbidden(t *testing.T) {
	router := newEventRouter(testStudent, nil, quietLifecycle(), nil)

	w := doJSON(t, router, http.MethodPost, "/events", gin.H{"name": "Nope"})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleCreateEventInvalidWindow(t *testing.T) {
	svc := &fakeEventService{
		createEvent: func(context.Context, domain.Event, uint) (domain.Event, error) {
			return domain.Event{}, service.ErrInvalidEventWindow
		},
	}
	router := newEventRouter(testModerator, svc, quietLifecycle(), nil)

	w := doJSON(t, router, http.MethodPost, "/events", gin.H{
		"name":       "Backwards",
		"start_time": time.Now().Add(2 * time.Hour).Format(time.RFC3339),
		"end_time":   time.Now().Add(time.Hour).Format(time.RFC3339),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetEventAppliesLifecycleCheck(t *testing.T) {
	var checked uint
	lifecycleSvc := &fakeLifecycleService{
		checkOne: func(_ context.Context, eventID uint, _ time.Time) (bool, error) {
			checked = eventID
			return true, nil
		},
	}
	svc := &fakeEventService{
		getEvent: func(_ context.Context, id uint) (domain.Event, error) {
			return domain.Event{ID: id, Status: domain.EventCompleted}, nil
		},
	}
	router := newEventRouter(testStudent, svc, lifecycleSvc, nil)

	w := doJSON(t, router, http.MethodGet, "/events/42", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(42), checked)

	var event domain.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &event))
	assert.Equal(t, domain.EventCompleted, event.Status)
}

func TestHandleGetEventUnknownID(t *testing.T) {
	svc := &fakeEventService{
		getEvent: func(context.Context, uint) (domain.Event, error) {
			return domain.Event{}, service.ErrEventNotFound
		},
	}
	router := newEventRouter(testStudent, svc, quietLifecycle(), nil)

	w := doJSON(t, router, http.MethodGet, "/events/999", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCancelEventAlreadyClosed(t *testing.T) {
	svc := &fakeEventService{
		cancelEvent: func(context.Context, uint, domain.User) (domain.Event, error) {
			return domain.Event{}, service.ErrEventAlreadyClosed
		},
	}
	router := newEventRouter(testAdmin, svc, quietLifecycle(), nil)

	w := doJSON(t, router, http.MethodDelete, "/events/42", nil)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp response.Err
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONFLICT", resp.ErrorCode)
}

func TestHandleValidateQRCode(t *testing.T) {
	event := domain.Event{ID: 42, Name: "Orientation Day", QRCode: "qr-42"}
	svc := &fakeEventService{
		resolveQRCode: func(_ context.Context, code string) (domain.Event, error) {
			require.Equal(t, "qr-42", code)
			return event, nil
		},
	}
	attSvc := &fakeAttendanceService{
		findForEventAndUser: func(_ context.Context, eventID, userID uint) (domain.Attendance, error) {
			return domain.Attendance{ID: 7, EventID: eventID, UserID: userID}, nil
		},
	}
	router := newEventRouter(testStudent, svc, quietLifecycle(), attSvc)

	w := doJSON(t, router, http.MethodPost, "/qr/validate", gin.H{"code": "qr-42"})

	require.Equal(t, http.StatusOK, w.Code)

	var resp response.QRValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint(42), resp.Event.ID)
	assert.True(t, resp.CheckedIn)
	require.NotNil(t, resp.Attendance)
	assert.Equal(t, uint(7), resp.Attendance.ID)
}

func TestHandleValidateQRCodeFirstScan(t *testing.T) {
	svc := &fakeEventService{
		resolveQRCode: func(context.Context, string) (domain.Event, error) {
			return domain.Event{ID: 42}, nil
		},
	}
	attSvc := &fakeAttendanceService{
		findForEventAndUser: func(context.Context, uint, uint) (domain.Attendance, error) {
			return domain.Attendance{}, service.ErrAttendanceNotFound
		},
	}
	router := newEventRouter(testStudent, svc, quietLifecycle(), attSvc)

	w := doJSON(t, router, http.MethodPost, "/qr/validate", gin.H{"code": "qr-42"})

	require.Equal(t, http.StatusOK, w.Code)

	var resp response.QRValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.CheckedIn)
	assert.Nil(t, resp.Attendance)
}

func TestHandleValidateQRCodeUnknown(t *testing.T) {
	svc := &fakeEventService{
		resolveQRCode: func(context.Context, string) (domain.Event, error) {
			return domain.Event{}, service.ErrEventQRCodeNotFound
		},
	}
	router := newEventRouter(testStudent, svc, quietLifecycle(), nil)

	w := doJSON(t, router, http.MethodPost, "/qr/validate", gin.H{"code": "stale"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleListEventsPassesPagination(t *testing.T) {
	var gotPage, gotPerPage int
	svc := &fakeEventService{
		listEvents: func(_ context.Context, page, perPage int) ([]domain.Event, error) {
			gotPage, gotPerPage = page, perPage
			return []domain.Event{{ID: 1}, {ID: 2}}, nil
		},
	}
	router := newEventRouter(testStudent, svc, quietLifecycle(), nil)

	w := doJSON(t, router, http.MethodGet, "/events?page=3&per_page=50", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, gotPage)
	assert.Equal(t, 50, gotPerPage)

	var events []domain.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.Len(t, events, 2)
}
