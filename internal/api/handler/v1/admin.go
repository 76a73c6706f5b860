package v1

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attendry/attendry-api/internal/api/handler/v1/response"
	"github.com/attendry/attendry-api/internal/domain"
)

// AdminHandler exposes the operational endpoints behind the admin role.
type AdminHandler struct {
	lifecycleSvc LifecycleService
	uSvc         UserService
}

func NewAdminHandler(lifecycleSvc LifecycleService, uSvc UserService) *AdminHandler {
	return &AdminHandler{
		lifecycleSvc: lifecycleSvc,
		uSvc:         uSvc,
	}
}

// HandleSweep godoc
// @Summary      Complete every event whose check-out window has elapsed
// @Tags         admin
// @Produce      json
// @Success      200      {object}   response.SweepResponse
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /admin/events/sweep [post]
// @Security BearerAuth
func (h *AdminHandler) HandleSweep(ctx *gin.Context) {
	if respErr := h.requireAdmin(ctx); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	completed, err := h.lifecycleSvc.Sweep(ctx.Request.Context(), time.Now())
	if err != nil {
		err = fmt.Errorf("v1.HandleSweep -> h.lifecycleSvc.Sweep -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.SweepResponse{
		Completed: completed,
	})
}

// HandleListPendingClosure godoc
// @Summary      List Active events already past their end time
// @Tags         admin
// @Produce      json
// @Success      200      {object}   []domain.Event
// @Failure      401      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /admin/events/pending-closure [get]
// @Security BearerAuth
func (h *AdminHandler) HandleListPendingClosure(ctx *gin.Context) {
	if respErr := h.requireAdmin(ctx); respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	events, err := h.lifecycleSvc.PendingClosure(ctx.Request.Context(), time.Now())
	if err != nil {
		err = fmt.Errorf("v1.HandleListPendingClosure -> h.lifecycleSvc.PendingClosure -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, events)
}

func (h *AdminHandler) requireAdmin(ctx *gin.Context) *response.Err {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		return respErr
	}

	if user.Role != domain.RoleAdmin {
		return response.ErrPermissionDenied(errors.New("admin role required"))
	}

	return nil
}
