package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/observation"
	"github.com/sarang-youth/mokjang/core/student"
)

var (
	errObservationNotInCtx = errors.New("observation object not found in echo.Context")
	errNotObservationOwner = core.NewPermissionError("only the author of the observation or an admin can change it")
)

type observationApi struct {
	*Server
}

func registerObservationAPI(g *echo.Group, s *Server) {
	api := observationApi{s}

	g.GET("", api.observationQuery)
	g.POST("", api.observationCreate)

	dg := g.Group("/:id", api.observationOwnerMiddleware)
	dg.PUT("", api.observationUpdate)
	dg.DELETE("", api.observationDestroy)
}

func (api observationApi) observationOwnerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		o, err := api.deps.ObservationSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		a := getActor(ctx)
		if !a.isAdmin() && (o.TeacherID == nil || a.teacher == nil || *o.TeacherID != a.teacher.ID) {
			return errNotObservationOwner
		}
		ctx.Set("object", o)
		return next(ctx)
	}
}

func (api observationApi) observationQuery(ctx echo.Context) error {
	from, err := queryDate(ctx, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(ctx, "to")
	if err != nil {
		return err
	}
	filter := observation.QueryFilter{
		StudentID: ctx.QueryParam("student_id"),
		TeacherID: ctx.QueryParam("teacher_id"),
		From:      from,
		To:        to,
	}

	observations, err := api.deps.ObservationSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying observations")
	}
	return ctx.JSON(http.StatusOK, observations)
}

func (api observationApi) observationCreate(ctx echo.Context) error {
	var data observation.NewObservation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewObservation")
	}
	if data.StudentID != "" {
		if _, err := api.deps.StudentSvc.GetByID(ctx.Request().Context(), data.StudentID); err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return core.NewValidationError(student.ErrNotFound, core.FieldError{Field: "student_id", Error: "student not found"})
			}
			return errors.Wrap(err, "finding student")
		}
	}

	o, err := api.deps.ObservationSvc.Create(ctx.Request().Context(), data, getActor(ctx).teacherID())
	if err != nil {
		return errors.Wrap(err, "creating observation")
	}
	api.logChange(ctx, audit.ActionCreate, "observation", o.ID, echo.Map{"student_id": o.StudentID, "date": o.Date.String()})
	return ctx.JSON(http.StatusCreated, o)
}

func (api observationApi) observationUpdate(ctx echo.Context) error {
	o, ok := ctx.Get("object").(observation.Observation)
	if !ok {
		return errObservationNotInCtx
	}

	var data observation.UpdateObservation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateObservation")
	}

	o, err := api.deps.ObservationSvc.Update(ctx.Request().Context(), o, data)
	if err != nil {
		return errors.Wrap(err, "updating observation")
	}
	api.logChange(ctx, audit.ActionUpdate, "observation", o.ID, data)
	return ctx.JSON(http.StatusOK, o)
}

func (api observationApi) observationDestroy(ctx echo.Context) error {
	o, ok := ctx.Get("object").(observation.Observation)
	if !ok {
		return errObservationNotInCtx
	}

	if err := api.deps.ObservationSvc.Delete(ctx.Request().Context(), o.ID); err != nil {
		return errors.Wrap(err, "deleting observation")
	}
	api.logChange(ctx, audit.ActionDelete, "observation", o.ID, echo.Map{"student_id": o.StudentID})
	return ctx.NoContent(http.StatusNoContent)
}
