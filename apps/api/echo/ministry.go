package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/ministry"
)

var errMinistryNotInCtx = errors.New("ministry object not found in echo.Context")

type ministryApi struct {
	*Server
}

func registerMinistryAPI(g *echo.Group, admin echo.MiddlewareFunc, s *Server) {
	api := ministryApi{s}

	g.GET("", api.ministryQuery)
	g.POST("", api.ministryCreate, admin)

	dg := g.Group("/:id", api.ministryMiddleware)
	dg.GET("", api.ministryRetrieve)
	dg.PUT("", api.ministryUpdate, admin)
	dg.DELETE("", api.ministryDestroy, admin)
	dg.PUT("/members", api.ministrySetMembers, admin)
}

func (api ministryApi) ministryMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		m, err := api.deps.MinistrySvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		ctx.Set("object", m)
		return next(ctx)
	}
}

func (api ministryApi) ministryQuery(ctx echo.Context) error {
	ministries, err := api.deps.MinistrySvc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying ministries")
	}
	return ctx.JSON(http.StatusOK, ministries)
}

func (api ministryApi) ministryCreate(ctx echo.Context) error {
	var data ministry.NewMinistry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMinistry")
	}

	m, err := api.deps.MinistrySvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating ministry")
	}
	api.logChange(ctx, audit.ActionCreate, "ministry", m.ID, echo.Map{"name": m.Name})
	return ctx.JSON(http.StatusCreated, m)
}

func (api ministryApi) ministryRetrieve(ctx echo.Context) error {
	m, ok := ctx.Get("object").(ministry.Ministry)
	if !ok {
		return errMinistryNotInCtx
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api ministryApi) ministryUpdate(ctx echo.Context) error {
	m, ok := ctx.Get("object").(ministry.Ministry)
	if !ok {
		return errMinistryNotInCtx
	}

	var data ministry.UpdateMinistry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMinistry")
	}

	m, err := api.deps.MinistrySvc.Update(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "updating ministry")
	}
	api.logChange(ctx, audit.ActionUpdate, "ministry", m.ID, data)
	return ctx.JSON(http.StatusOK, m)
}

func (api ministryApi) ministrySetMembers(ctx echo.Context) error {
	m, ok := ctx.Get("object").(ministry.Ministry)
	if !ok {
		return errMinistryNotInCtx
	}

	var data ministry.SetMembers
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetMembers")
	}

	m, err := api.deps.MinistrySvc.SetMembers(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "setting ministry members")
	}
	api.logChange(ctx, audit.ActionUpdate, "ministry", m.ID, echo.Map{"teacher_ids": m.TeacherIDs, "student_ids": m.StudentIDs})
	return ctx.JSON(http.StatusOK, m)
}

func (api ministryApi) ministryDestroy(ctx echo.Context) error {
	m, ok := ctx.Get("object").(ministry.Ministry)
	if !ok {
		return errMinistryNotInCtx
	}

	if err := api.deps.MinistrySvc.Delete(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "deleting ministry")
	}
	api.logChange(ctx, audit.ActionDelete, "ministry", m.ID, echo.Map{"name": m.Name})
	return ctx.NoContent(http.StatusNoContent)
}
