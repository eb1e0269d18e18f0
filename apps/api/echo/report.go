package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/report"
)

var (
	errReportNotInCtx = errors.New("report object not found in echo.Context")
	errNotYourReport  = core.NewPermissionError("only the teachers of the mokjang or an admin can access its reports")
)

type reportApi struct {
	*Server
}

func registerReportAPI(g *echo.Group, admin echo.MiddlewareFunc, s *Server) {
	api := reportApi{s}

	g.GET("", api.reportQuery)
	g.POST("", api.reportSave)

	dg := g.Group("/:id", api.reportMiddleware)
	dg.GET("", api.reportRetrieve)
	dg.DELETE("", api.reportDestroy, admin)
}

// reportMiddleware loads the report and checks the actor may see its mokjang.
func (api reportApi) reportMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		r, err := api.deps.ReportSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		allowed, err := api.canAccessMokjang(ctx, r.MokjangID)
		if err != nil {
			return err
		}
		if !allowed {
			return errNotYourReport
		}
		ctx.Set("object", r)
		return next(ctx)
	}
}

func (api reportApi) reportQuery(ctx echo.Context) error {
	from, err := queryDate(ctx, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(ctx, "to")
	if err != nil {
		return err
	}
	scope, err := api.mokjangScope(ctx)
	if err != nil {
		return err
	}

	filter := report.QueryFilter{
		MokjangID:  ctx.QueryParam("mokjang_id"),
		MokjangIDs: scope,
		From:       from,
		To:         to,
	}
	reports, err := api.deps.ReportSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	return ctx.JSON(http.StatusOK, reports)
}

// reportSave answers 201 when the report is submitted for the first time and 200 when it is updated.
func (api reportApi) reportSave(ctx echo.Context) error {
	var data report.SaveReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveReport")
	}
	data.Clean()
	if err := api.deps.Validate.Struct(data); err != nil {
		return err
	}

	m, err := api.deps.MokjangSvc.GetByID(ctx.Request().Context(), data.MokjangID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return core.NewValidationError(mokjang.ErrNotFound, core.FieldError{Field: "mokjang_id", Error: "mokjang not found"})
		}
		return errors.Wrap(err, "finding mokjang")
	}

	a := getActor(ctx)
	teacherID := a.teacherID()
	if !a.isAdmin() && (teacherID == nil || !m.HasTeacher(*teacherID)) {
		return errNotYourReport
	}

	r, created, err := api.deps.ReportSvc.Save(ctx.Request().Context(), data, m.Name, report.Author{
		TeacherID: teacherID,
		Name:      a.name(),
	})
	if err != nil {
		return errors.Wrap(err, "saving report")
	}

	action, code := audit.ActionUpdate, http.StatusOK
	if created {
		action, code = audit.ActionCreate, http.StatusCreated
	}
	api.logChange(ctx, action, "report", r.ID, echo.Map{"mokjang_id": r.MokjangID, "date": r.Date.String()})
	return ctx.JSON(code, r)
}

func (api reportApi) reportRetrieve(ctx echo.Context) error {
	r, ok := ctx.Get("object").(report.Report)
	if !ok {
		return errReportNotInCtx
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api reportApi) reportDestroy(ctx echo.Context) error {
	r, ok := ctx.Get("object").(report.Report)
	if !ok {
		return errReportNotInCtx
	}

	if err := api.deps.ReportSvc.Delete(ctx.Request().Context(), r.ID); err != nil {
		return errors.Wrap(err, "deleting report")
	}
	api.logChange(ctx, audit.ActionDelete, "report", r.ID, echo.Map{"mokjang_id": r.MokjangID, "date": r.Date.String()})
	return ctx.NoContent(http.StatusNoContent)
}
