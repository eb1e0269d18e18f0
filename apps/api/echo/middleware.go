package echoapi

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sarang-youth/mokjang/services/ratelimit"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if getActor(ctx).isAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// ipKey keys the rate limiters by client IP.
func ipKey(ctx echo.Context) string {
	return "ip:" + ctx.RealIP()
}

// userKey keys the rate limiters by session user, falling back to the client IP.
func userKey(ctx echo.Context) string {
	if a := getActor(ctx); a.user.ID != "" {
		return "user:" + a.user.ID
	}
	return ipKey(ctx)
}

// rateLimit rejects the requests over the limiter's budget with 429 and a Retry-After header (seconds).
func (s *Server) rateLimit(limiter *ratelimit.Limiter, key func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(ctx echo.Context) error {
			ok, retryAfter := limiter.Allow(key(ctx), s.now())
			if !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
