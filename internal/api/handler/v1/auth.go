package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/attendry/attendry-api/internal/api/handler/v1/request"
	"github.com/attendry/attendry-api/internal/api/handler/v1/response"
	"github.com/attendry/attendry-api/internal/api/middleware"
	"github.com/attendry/attendry-api/internal/config"
	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/pkg/jwthelper"
	"github.com/attendry/attendry-api/internal/ratelimit"
	"github.com/attendry/attendry-api/internal/service"
)

type AuthService interface {
	Signup(ctx context.Context, user domain.User) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.User, error)
}

type AuthHandler struct {
	conf        *config.APIConfig
	svc         AuthService
	limiter     *ratelimit.Limiter
	loginPolicy ratelimit.Policy
}

func NewAuthHandler(conf *config.APIConfig, svc AuthService, limiter *ratelimit.Limiter, loginPolicy ratelimit.Policy) *AuthHandler {
	return &AuthHandler{
		conf:        conf,
		svc:         svc,
		limiter:     limiter,
		loginPolicy: loginPolicy,
	}
}

// HandleSignup godoc
// @Summary      Signup a new user
// @Tags         auth
// @Produce      json
// @Param        request   body      request.SignupRequest true "request body"
// @Success      201      {object}   domain.User
// @Failure      400      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/signup [post]
func (h *AuthHandler) HandleSignup(ctx *gin.Context) {
	var req request.SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	user, err := h.svc.Signup(ctx.Request.Context(), domain.User{
		Email:    strings.ToLower(req.Email),
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserEmailExists) {
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrUserEmailExists))
			return
		}

		err = fmt.Errorf("v1.HandleSignup -> h.svc.Signup -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, user)
}

// HandleLogin godoc
// @Summary      Login a user
// @Tags         auth
// @Produce      json
// @Param        request   body      request.LoginRequest true "request body"
// @Success      200      {object}   response.LoginResponse
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      429      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /auth/login [post]
func (h *AuthHandler) HandleLogin(ctx *gin.Context) {
	req := request.LoginRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	email := strings.ToLower(req.Email)

	// Throttle before touching credentials so attempts with bad passwords
	// still count against the account.
	if _, err := h.limiter.Check(ctx.Request.Context(), h.loginPolicy, email); err != nil {
		var limited *ratelimit.RateLimitedError
		if errors.As(err, &limited) {
			ctx.Header("Retry-After", middleware.RetryAfterSeconds(limited.Decision.ResetAt))
			response.RenderErr(ctx, response.ErrTooManyRequests(errors.New("too many login attempts, please retry later")))

			return
		}

		err = fmt.Errorf("v1.HandleLogin -> h.limiter.Check -> %w", err)
		response.RenderErr(ctx, response.ErrServiceUnavailable(err))

		return
	}

	user, err := h.svc.Login(ctx.Request.Context(), email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrWrongPassword) {
			response.RenderErr(ctx, response.ErrWrongCredentials(err))

			return
		}

		err = fmt.Errorf("v1.HandleLogin -> h.svc.Login -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	token, err := jwthelper.GenerateToken([]byte(h.conf.JWTSigningKey), user.ID, ctx.Request.UserAgent())
	if err != nil {
		err = fmt.Errorf("v1.HandleLogin -> jwthelper.GenerateToken -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, response.LoginResponse{
		Token: token,
		User:  user,
	})
}
