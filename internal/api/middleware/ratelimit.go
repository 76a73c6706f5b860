package middleware

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attendry/attendry-api/internal/api/handler/v1/response"
	"github.com/attendry/attendry-api/internal/ratelimit"
)

// RateLimit guards a route group with the given policy, keyed by client IP.
func RateLimit(limiter *ratelimit.Limiter, policy ratelimit.Policy) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		if ip == "" {
			ip = "unknown"
		}

		decision, err := limiter.Check(ctx.Request.Context(), policy, ip)
		if err != nil {
			var limited *ratelimit.RateLimitedError
			if errors.As(err, &limited) {
				ctx.Header("Retry-After", RetryAfterSeconds(limited.Decision.ResetAt))
				response.RenderErr(ctx, response.ErrTooManyRequests(errors.New("too many attempts, please retry later")))
				return
			}

			response.RenderErr(ctx, response.ErrServiceUnavailable(fmt.Errorf("middleware.RateLimit -> %w", err)))
			return
		}

		ctx.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		ctx.Next()
	}
}

// RetryAfterSeconds formats a reset timestamp as a Retry-After header value,
// rounded up so clients never retry early.
func RetryAfterSeconds(resetAt time.Time) string {
	seconds := int(math.Ceil(time.Until(resetAt).Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
