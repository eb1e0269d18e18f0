package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/dashboard"
)

var errNoTeacherProfile = core.NewPermissionError("a teacher profile is required")

type dashboardApi struct {
	*Server
}

func registerDashboardAPI(g *echo.Group, session, admin echo.MiddlewareFunc, s *Server) {
	api := dashboardApi{s}

	g.GET("/dashboard-widgets", api.widgets, session, admin)
	g.GET("/teacher-dashboard", api.teacherDashboard, session)
	g.GET("/stats", api.stats, session)
}

func (api dashboardApi) widgets(ctx echo.Context) error {
	w, err := api.deps.DashboardSvc.Widgets(ctx.Request().Context(), api.today())
	if err != nil {
		return errors.Wrap(err, "building dashboard widgets")
	}
	return ctx.JSON(http.StatusOK, w)
}

// teacherDashboard shows the actor's mokjangs on `?date=` (today by default).
// Admins without a teacher profile see every active mokjang.
func (api dashboardApi) teacherDashboard(ctx echo.Context) error {
	today := api.today()
	date, err := queryDate(ctx, "date")
	if err != nil {
		return err
	}
	if date.IsZero() {
		date = today
	}

	a := getActor(ctx)
	var teacherID string
	switch {
	case a.teacher != nil:
		teacherID = a.teacher.ID
	case !a.isAdmin():
		return errNoTeacherProfile
	}

	d, err := api.deps.DashboardSvc.ForTeacher(ctx.Request().Context(), teacherID, date, today)
	if err != nil {
		return errors.Wrap(err, "building teacher dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}

// stats defaults to the last 12 Sundays.
func (api dashboardApi) stats(ctx echo.Context) error {
	from, to := dashboard.StatsRange(api.today())
	if d, err := queryDate(ctx, "from"); err != nil {
		return err
	} else if !d.IsZero() {
		from = d
	}
	if d, err := queryDate(ctx, "to"); err != nil {
		return err
	} else if !d.IsZero() {
		to = d
	}

	mokjangID := ctx.QueryParam("mokjang_id")
	if mokjangID != "" {
		allowed, err := api.canAccessMokjang(ctx, mokjangID)
		if err != nil {
			return err
		}
		if !allowed {
			return errNotYourMokjangAttendance
		}
	}

	counts, err := api.deps.DashboardSvc.Stats(ctx.Request().Context(), from, to, mokjangID)
	if err != nil {
		return errors.Wrap(err, "computing attendance stats")
	}
	return ctx.JSON(http.StatusOK, counts)
}
