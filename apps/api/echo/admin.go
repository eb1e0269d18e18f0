package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/audit"
)

type adminApi struct {
	*Server
}

// registerAdminAPI expects `g` to be restricted to admins.
func registerAdminAPI(g *echo.Group, s *Server) {
	api := adminApi{s}

	g.GET("/logs/login", api.loginLogs)
	g.GET("/logs/changes", api.changeLogs)
}

func bindAuditFilter(ctx echo.Context) (audit.QueryFilter, error) {
	filter := audit.QueryFilter{
		UserID: ctx.QueryParam("user_id"),
		Entity: ctx.QueryParam("entity"),
	}
	var err error
	if filter.From, err = queryDate(ctx, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryDate(ctx, "to"); err != nil {
		return filter, err
	}
	page, err := queryInt(ctx, "page", 1)
	if err != nil {
		return filter, err
	}
	pageSize, err := queryInt(ctx, "page_size", 0)
	if err != nil {
		return filter, err
	}
	filter.Page = core.Page{Page: page, PageSize: pageSize}
	return filter, nil
}

func (api adminApi) loginLogs(ctx echo.Context) error {
	filter, err := bindAuditFilter(ctx)
	if err != nil {
		return err
	}
	logs, err := api.deps.Audit.LoginLogs(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying login logs")
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api adminApi) changeLogs(ctx echo.Context) error {
	filter, err := bindAuditFilter(ctx)
	if err != nil {
		return err
	}
	logs, err := api.deps.Audit.ChangeLogs(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying change logs")
	}
	return ctx.JSON(http.StatusOK, logs)
}
