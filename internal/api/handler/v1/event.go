package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/attendry/attendry-api/internal/api/handler/v1/request"
	"github.com/attendry/attendry-api/internal/api/handler/v1/response"
	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/service"
)

type EventService interface {
	CreateEvent(ctx context.Context, event domain.Event, creatorID uint) (domain.Event, error)
	GetEvent(ctx context.Context, id uint) (domain.Event, error)
	ListEvents(ctx context.Context, page, perPage int) ([]domain.Event, error)
	ResolveQRCode(ctx context.Context, code string) (domain.Event, error)
	CancelEvent(ctx context.Context, id uint, principal domain.User) (domain.Event, error)
}

type LifecycleService interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
	CheckOne(ctx context.Context, eventID uint, now time.Time) (bool, error)
	PendingClosure(ctx context.Context, now time.Time) ([]domain.Event, error)
}

type EventHandler struct {
	svc          EventService
	lifecycleSvc LifecycleService
	attSvc       AttendanceService
	uSvc         UserService
}

func NewEventHandler(svc EventService, lifecycleSvc LifecycleService, attSvc AttendanceService, uSvc UserService) *EventHandler {
	return &EventHandler{
		svc:          svc,
		lifecycleSvc: lifecycleSvc,
		attSvc:       attSvc,
		uSvc:         uSvc,
	}
}

// HandleCreateEvent godoc
// @Summary      Create a new event
// @Tags         events
// @Produce      json
// @Param        request   body      request.CreateEventRequest true "request body"
// @Success      201      {object}   domain.Event
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /events [post]
// @Security BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if user.Role == domain.RoleStudent {
		response.RenderErr(ctx, response.ErrPermissionDenied(errors.New("students cannot create events")))
		return
	}

	var req request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.CreateEvent(ctx.Request.Context(), domain.Event{
		Name:                  req.Name,
		Description:           req.Description,
		VenueName:             req.VenueName,
		Venue:                 domain.Coordinate{Lat: req.Lat, Lng: req.Lng},
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		CheckInBufferMinutes:  req.CheckInBufferMinutes,
		CheckOutBufferMinutes: req.CheckOutBufferMinutes,
	}, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCoordinate) || errors.Is(err, service.ErrInvalidEventWindow) {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}

		err = fmt.Errorf("v1.HandleCreateEvent -> h.svc.CreateEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, event)
}

// HandleListEvents godoc
// @Summary      List events
// @Tags         events
// @Produce      json
// @Param        page      query     int  false  "page number"
// @Param        per_page  query     int  false  "events per page"
// @Success      200      {object}   []domain.Event
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /events [get]
// @Security BearerAuth
func (h *EventHandler) HandleListEvents(ctx *gin.Context) {
	page, perPage := parsePagination(ctx)

	events, err := h.svc.ListEvents(ctx.Request.Context(), page, perPage)
	if err != nil {
		err = fmt.Errorf("v1.HandleListEvents -> h.svc.ListEvents -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, events)
}

// HandleGetEvent godoc
// @Summary      Get an event by ID
// @Tags         events
// @Produce      json
// @Param        eventID   path      int  true  "event ID"
// @Success      200      {object}   domain.Event
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /events/{eventID} [get]
// @Security BearerAuth
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	eventID, err := strconv.ParseUint(ctx.Param("eventID"), 10, 64)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid event ID: %w", err)))
		return
	}

	// Apply the closure rule inline so a stale Active event reads as
	// Completed without waiting for the next sweep tick.
	if _, err := h.lifecycleSvc.CheckOne(ctx.Request.Context(), uint(eventID), time.Now()); err != nil {
		zap.L().Warn("inline lifecycle check failed", zap.Uint64("event_id", eventID), zap.Error(err))
	}

	event, err := h.svc.GetEvent(ctx.Request.Context(), uint(eventID))
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
			return
		}

		err = fmt.Errorf("v1.HandleGetEvent -> h.svc.GetEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleCancelEvent godoc
// @Summary      Cancel an event
// @Tags         events
// @Produce      json
// @Param        eventID   path      int  true  "event ID"
// @Success      200      {object}   domain.Event
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /events/{eventID} [delete]
// @Security BearerAuth
func (h *EventHandler) HandleCancelEvent(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, err := strconv.ParseUint(ctx.Param("eventID"), 10, 64)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid event ID: %w", err)))
		return
	}

	event, err := h.svc.CancelEvent(ctx.Request.Context(), uint(eventID), user)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
		case errors.Is(err, service.ErrVerifierNotAllowed):
			response.RenderErr(ctx, response.ErrPermissionDenied(err))
		case errors.Is(err, service.ErrEventAlreadyClosed):
			response.RenderErr(ctx, response.ErrConflict(err))
		default:
			err = fmt.Errorf("v1.HandleCancelEvent -> h.svc.CancelEvent -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleValidateQRCode godoc
// @Summary      Resolve a scanned QR code to its event
// @Tags         events
// @Produce      json
// @Param        request   body      request.QRValidateRequest true "request body"
// @Success      200      {object}   response.QRValidateResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      429      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /qr/validate [post]
// @Security BearerAuth
func (h *EventHandler) HandleValidateQRCode(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.QRValidateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := h.svc.ResolveQRCode(ctx.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, service.ErrEventQRCodeNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "QR code", req.Code))
			return
		}

		err = fmt.Errorf("v1.HandleValidateQRCode -> h.svc.ResolveQRCode -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	resp := response.QRValidateResponse{Event: event}

	attendance, err := h.attSvc.FindForEventAndUser(ctx.Request.Context(), event.ID, user.ID)
	switch {
	case err == nil:
		resp.CheckedIn = true
		resp.Attendance = &attendance
	case errors.Is(err, service.ErrAttendanceNotFound):
		// First scan for this user, nothing recorded yet.
	default:
		err = fmt.Errorf("v1.HandleValidateQRCode -> h.attSvc.FindForEventAndUser -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// parsePagination reads page/per_page query values, leaving bounds
// enforcement to the service layer.
func parsePagination(ctx *gin.Context) (int, int) {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}

	perPage, err := strconv.Atoi(ctx.DefaultQuery("per_page", "0"))
	if err != nil {
		perPage = 0
	}

	return page, perPage
}
