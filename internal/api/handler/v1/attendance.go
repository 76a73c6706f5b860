package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/attendry/attendry-api/internal/api/handler/v1/request"
	"github.com/attendry/attendry-api/internal/api/handler/v1/response"
	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/service"
)

type AttendanceService interface {
	SubmitCheckIn(ctx context.Context, eventID, userID uint, coord domain.Coordinate) (domain.Attendance, error)
	SubmitCheckOut(ctx context.Context, attendanceID, userID uint, coord domain.Coordinate) (domain.Attendance, error)
	Approve(ctx context.Context, attendanceID uint, verifier domain.User, resolutionNotes string) (domain.Attendance, error)
	Reject(ctx context.Context, attendanceID uint, verifier domain.User, disputeNote, resolutionNotes string) (domain.Attendance, error)
	GetAttendance(ctx context.Context, id uint) (domain.Attendance, error)
	FindForEventAndUser(ctx context.Context, eventID, userID uint) (domain.Attendance, error)
	ListByEvent(ctx context.Context, eventID uint, page, perPage int) ([]domain.Attendance, error)
	Summarize(ctx context.Context, eventID uint) (domain.AttendanceSummary, error)
	ExportCSV(ctx context.Context, eventID uint, w io.Writer) error
}

type AttendanceHandler struct {
	svc  AttendanceService
	uSvc UserService
}

func NewAttendanceHandler(svc AttendanceService, uSvc UserService) *AttendanceHandler {
	return &AttendanceHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleCheckIn godoc
// @Summary      Check in to an event from the current device location
// @Tags         attendance
// @Produce      json
// @Param        eventID   path      int  true  "event ID"
// @Param        request   body      request.CheckInRequest true "request body"
// @Success      201      {object}   domain.Attendance
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /events/{eventID}/attendance/check-in [post]
// @Security BearerAuth
func (h *AttendanceHandler) HandleCheckIn(ctx *gin.Context) {
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

	var req request.CheckInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	attendance, err := h.svc.SubmitCheckIn(ctx.Request.Context(), uint(eventID), user.ID, domain.Coordinate{
		Lat: req.Lat,
		Lng: req.Lng,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
		case errors.Is(err, service.ErrAlreadyCheckedIn):
			response.RenderErr(ctx, response.ErrConflict(err))
		case errors.Is(err, service.ErrCheckInClosed), errors.Is(err, service.ErrInvalidCoordinate):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("v1.HandleCheckIn -> h.svc.SubmitCheckIn -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusCreated, attendance)
}

// HandleCheckOut godoc
// @Summary      Check out of an event from the current device location
// @Tags         attendance
// @Produce      json
// @Param        attendanceID   path      int  true  "attendance ID"
// @Param        request        body      request.CheckOutRequest true "request body"
// @Success      200      {object}   domain.Attendance
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /attendance/{attendanceID}/check-out [post]
// @Security BearerAuth
func (h *AttendanceHandler) HandleCheckOut(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	attendanceID, err := strconv.ParseUint(ctx.Param("attendanceID"), 10, 64)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid attendance ID: %w", err)))
		return
	}

	var req request.CheckOutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	attendance, err := h.svc.SubmitCheckOut(ctx.Request.Context(), uint(attendanceID), user.ID, domain.Coordinate{
		Lat: req.Lat,
		Lng: req.Lng,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttendanceNotFound):
			response.RenderErr(ctx, response.ErrNotFound("attendance", "ID", attendanceID))
		case errors.Is(err, service.ErrNotRecordOwner):
			response.RenderErr(ctx, response.ErrPermissionDenied(err))
		case errors.Is(err, service.ErrAlreadyCheckedOut):
			response.RenderErr(ctx, response.ErrConflict(err))
		case errors.Is(err, service.ErrCheckOutClosed), errors.Is(err, service.ErrInvalidCoordinate):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("v1.HandleCheckOut -> h.svc.SubmitCheckOut -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, attendance)
}

// HandleApprove godoc
// @Summary      Manually approve an attendance record
// @Tags         attendance
// @Produce      json
// @Param        attendanceID   path      int  true  "attendance ID"
// @Param        request        body      request.ApproveRequest true "request body"
// @Success      200      {object}   domain.Attendance
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /attendance/{attendanceID}/approve [post]
// @Security BearerAuth
func (h *AttendanceHandler) HandleApprove(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	attendanceID, err := strconv.ParseUint(ctx.Param("attendanceID"), 10, 64)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid attendance ID: %w", err)))
		return
	}

	var req request.ApproveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	attendance, err := h.svc.Approve(ctx.Request.Context(), uint(attendanceID), user, req.ResolutionNotes)
	if err != nil {
		h.renderVerifyErr(ctx, "v1.HandleApprove -> h.svc.Approve", attendanceID, err)
		return
	}

	ctx.JSON(http.StatusOK, attendance)
}

// HandleReject godoc
// @Summary      Manually reject an attendance record with a dispute note
// @Tags         attendance
// @Produce      json
// @Param        attendanceID   path      int  true  "attendance ID"
// @Param        request        body      request.RejectRequest true "request body"
// @Success      200      {object}   domain.Attendance
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      409      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /attendance/{attendanceID}/reject [post]
// @Security BearerAuth
func (h *AttendanceHandler) HandleReject(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	attendanceID, err := strconv.ParseUint(ctx.Param("attendanceID"), 10, 64)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid attendance ID: %w", err)))
		return
	}

	var req request.RejectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	attendance, err := h.svc.Reject(ctx.Request.Context(), uint(attendanceID), user, req.DisputeNote, req.ResolutionNotes)
	if err != nil {
		h.renderVerifyErr(ctx, "v1.HandleReject -> h.svc.Reject", attendanceID, err)
		return
	}

	ctx.JSON(http.StatusOK, attendance)
}

// renderVerifyErr maps the shared error set of the approve and reject paths.
func (h *AttendanceHandler) renderVerifyErr(ctx *gin.Context, label string, attendanceID uint64, err error) {
	switch {
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.RenderErr(ctx, response.ErrNotFound("attendance", "ID", attendanceID))
	case errors.Is(err, service.ErrEventNotFound):
		response.RenderErr(ctx, response.ErrNotFound("event", "attendance ID", attendanceID))
	case errors.Is(err, service.ErrVerifierNotAllowed):
		response.RenderErr(ctx, response.ErrPermissionDenied(err))
	case errors.Is(err, service.ErrAlreadyVerified):
		response.RenderErr(ctx, response.ErrConflict(err))
	case errors.Is(err, service.ErrDisputeNoteRequired):
		response.RenderErr(ctx, response.ErrBadRequest(err))
	default:
		err = fmt.Errorf("%s -> %w", label, err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
	}
}

// HandleGetAttendance godoc
// @Summary      Get an attendance record by ID
// @Tags         attendance
// @Produce      json
// @Param        attendanceID   path      int  true  "attendance ID"
// @Success      200      {object}   domain.Attendance
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /attendance/{attendanceID} [get]
// @Security BearerAuth
func (h *AttendanceHandler) HandleGetAttendance(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	attendanceID, err := strconv.ParseUint(ctx.Param("attendanceID"), 10, 64)
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid attendance ID: %w", err)))
		return
	}

	attendance, err := h.svc.GetAttendance(ctx.Request.Context(), uint(attendanceID))
	if err != nil {
		if errors.Is(err, service.ErrAttendanceNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("attendance", "ID", attendanceID))
			return
		}

		err = fmt.Errorf("v1.HandleGetAttendance -> h.svc.GetAttendance -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	// Students only see their own records; staff see everything.
	if user.Role == domain.RoleStudent && attendance.UserID != user.ID {
		response.RenderErr(ctx, response.ErrPermissionDenied(errors.New("not your attendance record")))
		return
	}

	ctx.JSON(http.StatusOK, attendance)
}

// HandleListEventAttendance godoc
// @Summary      List attendance records for an event
// @Tags         attendance
// @Produce      json
// @Param        eventID   path      int  true   "event ID"
// @Param        page      query     int  false  "page number"
// @Param        per_page  query     int  false  "records per page"
// @Success      200      {object}   []domain.Attendance
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /events/{eventID}/attendance [get]
// @Security BearerAuth
func (h *AttendanceHandler) HandleListEventAttendance(ctx *gin.Context) {
	eventID, respErr := h.staffEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	page, perPage := parsePagination(ctx)

	records, err := h.svc.ListByEvent(ctx.Request.Context(), eventID, page, perPage)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
			return
		}

		err = fmt.Errorf("v1.HandleListEventAttendance -> h.svc.ListByEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, records)
}

// HandleAttendanceSummary godoc
// @Summary      Summarize attendance counts for an event
// @Tags         attendance
// @Produce      json
// @Param        eventID   path      int  true  "event ID"
// @Success      200      {object}   domain.AttendanceSummary
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /events/{eventID}/attendance/summary [get]
// @Security BearerAuth
func (h *AttendanceHandler) HandleAttendanceSummary(ctx *gin.Context) {
	eventID, respErr := h.staffEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	summary, err := h.svc.Summarize(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
			return
		}

		err = fmt.Errorf("v1.HandleAttendanceSummary -> h.svc.Summarize -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, summary)
}

// HandleExportAttendance godoc
// @Summary      Export an event's attendance as CSV
// @Tags         attendance
// @Produce      text/csv
// @Param        eventID   path      int  true  "event ID"
// @Success      200      {string}   string
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /events/{eventID}/attendance/export [get]
// @Security BearerAuth
func (h *AttendanceHandler) HandleExportAttendance(ctx *gin.Context) {
	eventID, respErr := h.staffEventID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ctx.Header("Content-Type", "text/csv")
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=event_%d_attendance.csv", eventID))

	if err := h.svc.ExportCSV(ctx.Request.Context(), eventID, ctx.Writer); err != nil {
		if ctx.Writer.Written() {
			// Rows already went out, the download is truncated either way.
			zap.L().Error("attendance export aborted mid-stream", zap.Uint("event_id", eventID), zap.Error(err))
			ctx.Abort()
			return
		}

		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
			return
		}

		err = fmt.Errorf("v1.HandleExportAttendance -> h.svc.ExportCSV -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}
}

// staffEventID parses the event ID and rejects callers without a staff role.
func (h *AttendanceHandler) staffEventID(ctx *gin.Context) (uint, *response.Err) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		return 0, respErr
	}

	if user.Role == domain.RoleStudent {
		return 0, response.ErrPermissionDenied(errors.New("staff role required"))
	}

	eventID, err := strconv.ParseUint(ctx.Param("eventID"), 10, 64)
	if err != nil {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid event ID: %w", err))
	}

	return uint(eventID), nil
}
