package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// health pings the database; it is not authenticated.
func (s *Server) health(ctx echo.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Timestamp: s.now().UTC()}
	if err := s.deps.DB.PingContext(pingCtx); err != nil {
		s.deps.Logger.Error("health: database ping failed: "+err.Error(), err)
		resp.Status = "error"
		resp.Error = "database unavailable"
		return ctx.JSON(http.StatusServiceUnavailable, resp)
	}
	return ctx.JSON(http.StatusOK, resp)
}
