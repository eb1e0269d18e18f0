package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/teacher"
)

var errTeacherNotInCtx = errors.New("teacher object not found in echo.Context")

type teacherApi struct {
	*Server
}

func registerTeacherAPI(g *echo.Group, admin echo.MiddlewareFunc, s *Server) {
	api := teacherApi{s}

	g.GET("", api.teacherQuery)
	g.POST("", api.teacherCreate, admin)

	dg := g.Group("/:id", api.teacherMiddleware)
	dg.GET("", api.teacherRetrieve)
	dg.PUT("", api.teacherUpdate, admin)
	dg.DELETE("", api.teacherDestroy, admin)
}

// teacherMiddleware loads the teacher of the `:id` path param into the context.
func (api teacherApi) teacherMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		t, err := api.deps.TeacherSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		ctx.Set("object", t)
		return next(ctx)
	}
}

func (api teacherApi) teacherQuery(ctx echo.Context) error {
	filter := teacher.QueryFilter{
		Status:    ctx.QueryParam("status"),
		Search:    ctx.QueryParam("search"),
		MokjangID: ctx.QueryParam("mokjang_id"),
	}
	teachers, err := api.deps.TeacherSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api teacherApi) teacherCreate(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}

	t, err := api.deps.TeacherSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	api.logChange(ctx, audit.ActionCreate, "teacher", t.ID, echo.Map{"name": t.Name, "username": t.Username})
	return ctx.JSON(http.StatusCreated, t)
}

func (api teacherApi) teacherRetrieve(ctx echo.Context) error {
	t, ok := ctx.Get("object").(teacher.Teacher)
	if !ok {
		return errTeacherNotInCtx
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api teacherApi) teacherUpdate(ctx echo.Context) error {
	t, ok := ctx.Get("object").(teacher.Teacher)
	if !ok {
		return errTeacherNotInCtx
	}

	var data teacher.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}

	t, err := api.deps.TeacherSvc.Update(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	api.logChange(ctx, audit.ActionUpdate, "teacher", t.ID, data)
	return ctx.JSON(http.StatusOK, t)
}

func (api teacherApi) teacherDestroy(ctx echo.Context) error {
	t, ok := ctx.Get("object").(teacher.Teacher)
	if !ok {
		return errTeacherNotInCtx
	}
	if t.UserID == getActor(ctx).user.ID {
		return invalidParam("id", "you cannot delete your own account")
	}

	if err := api.deps.TeacherSvc.Delete(ctx.Request().Context(), t.ID); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	api.logChange(ctx, audit.ActionDelete, "teacher", t.ID, echo.Map{"name": t.Name, "username": t.Username})
	return ctx.NoContent(http.StatusNoContent)
}
