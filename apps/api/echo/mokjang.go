package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/student"
)

var errMokjangNotInCtx = errors.New("mokjang object not found in echo.Context")

// MokjangDetail is a mokjang with its students.
type MokjangDetail struct {
	mokjang.Mokjang
	Students []student.Student `json:"students"`
}

type mokjangApi struct {
	*Server
}

func registerMokjangAPI(g *echo.Group, admin echo.MiddlewareFunc, s *Server) {
	api := mokjangApi{s}

	g.GET("", api.mokjangQuery)
	g.POST("", api.mokjangCreate, admin)

	dg := g.Group("/:id", api.mokjangMiddleware)
	dg.GET("", api.mokjangRetrieve)
	dg.PUT("", api.mokjangUpdate, admin)
	dg.DELETE("", api.mokjangDestroy, admin)
	dg.PUT("/teachers", api.mokjangSetTeachers, admin)
}

func (api mokjangApi) mokjangMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		m, err := api.deps.MokjangSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		ctx.Set("object", m)
		return next(ctx)
	}
}

func (api mokjangApi) mokjangQuery(ctx echo.Context) error {
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}
	filter := mokjang.QueryFilter{IsActive: isActive, TeacherID: ctx.QueryParam("teacher_id")}

	mokjangs, err := api.deps.MokjangSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying mokjangs")
	}
	return ctx.JSON(http.StatusOK, mokjangs)
}

func (api mokjangApi) mokjangCreate(ctx echo.Context) error {
	var data mokjang.NewMokjang
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMokjang")
	}

	m, err := api.deps.MokjangSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating mokjang")
	}
	api.logChange(ctx, audit.ActionCreate, "mokjang", m.ID, echo.Map{"name": m.Name, "teacher_ids": m.TeacherIDs})
	return ctx.JSON(http.StatusCreated, m)
}

func (api mokjangApi) mokjangRetrieve(ctx echo.Context) error {
	m, ok := ctx.Get("object").(mokjang.Mokjang)
	if !ok {
		return errMokjangNotInCtx
	}

	var ord Ordering
	ord.Bind(ctx)
	students, err := api.deps.StudentSvc.Query(ctx.Request().Context(), student.QueryFilter{MokjangID: m.ID}, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying mokjang students")
	}
	return ctx.JSON(http.StatusOK, MokjangDetail{Mokjang: m, Students: students})
}

func (api mokjangApi) mokjangUpdate(ctx echo.Context) error {
	m, ok := ctx.Get("object").(mokjang.Mokjang)
	if !ok {
		return errMokjangNotInCtx
	}

	var data mokjang.UpdateMokjang
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMokjang")
	}

	m, err := api.deps.MokjangSvc.Update(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "updating mokjang")
	}
	api.logChange(ctx, audit.ActionUpdate, "mokjang", m.ID, data)
	return ctx.JSON(http.StatusOK, m)
}

func (api mokjangApi) mokjangSetTeachers(ctx echo.Context) error {
	m, ok := ctx.Get("object").(mokjang.Mokjang)
	if !ok {
		return errMokjangNotInCtx
	}

	var data mokjang.SetTeachers
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetTeachers")
	}

	m, err := api.deps.MokjangSvc.SetTeachers(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "setting mokjang teachers")
	}
	api.logChange(ctx, audit.ActionUpdate, "mokjang", m.ID, echo.Map{"teacher_ids": m.TeacherIDs})
	return ctx.JSON(http.StatusOK, m)
}

// mokjangDestroy leaves the mokjang's students without a mokjang.
func (api mokjangApi) mokjangDestroy(ctx echo.Context) error {
	m, ok := ctx.Get("object").(mokjang.Mokjang)
	if !ok {
		return errMokjangNotInCtx
	}

	if err := api.deps.MokjangSvc.Delete(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "deleting mokjang")
	}
	api.logChange(ctx, audit.ActionDelete, "mokjang", m.ID, echo.Map{"name": m.Name})
	return ctx.NoContent(http.StatusNoContent)
}
