package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/attendance"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/student"
)

var errNotYourMokjangAttendance = core.NewPermissionError("you can only check the attendance of your mokjangs")

type attendanceApi struct {
	*Server
}

func registerAttendanceAPI(g *echo.Group, s *Server) {
	api := attendanceApi{s}

	g.GET("", api.attendanceRoster)
	g.POST("", api.attendanceSave)
	g.DELETE("", api.attendanceDestroy)
	g.GET("/long-absence", api.attendanceLongAbsence)
}

// scopeFor narrows the actor's mokjang scope to `mokjangID` when given.
func (s *Server) scopeFor(ctx echo.Context, mokjangID string) ([]string, error) {
	if mokjangID == "" {
		return s.mokjangScope(ctx)
	}
	allowed, err := s.canAccessMokjang(ctx, mokjangID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errNotYourMokjangAttendance
	}
	return []string{mokjangID}, nil
}

// checkStudentsScope fails when one of the students is outside the actor's mokjangs.
// Unknown students are left for the repository to report.
func (s *Server) checkStudentsScope(ctx echo.Context, studentIDs []string) error {
	scope, err := s.mokjangScope(ctx)
	if err != nil || scope == nil {
		return err
	}
	students, err := s.deps.StudentSvc.Query(ctx.Request().Context(), student.QueryFilter{IDs: studentIDs})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	for _, st := range students {
		if !st.InMokjangs(scope) {
			return errNotYourStudent
		}
	}
	return nil
}

func (api attendanceApi) attendanceRoster(ctx echo.Context) error {
	date, err := queryDate(ctx, "date")
	if err != nil {
		return err
	}
	if date.IsZero() {
		date = api.today()
	}
	scope, err := api.scopeFor(ctx, ctx.QueryParam("mokjang_id"))
	if err != nil {
		return err
	}

	roster, err := api.deps.AttendanceSvc.Roster(ctx.Request().Context(), date, scope)
	if err != nil {
		return errors.Wrap(err, "building attendance roster")
	}
	return ctx.JSON(http.StatusOK, roster)
}

func (api attendanceApi) attendanceSave(ctx echo.Context) error {
	var data attendance.SaveAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveAttendance")
	}
	data.Clean()
	if err := api.checkStudentsScope(ctx, data.StudentIDs()); err != nil {
		return err
	}

	logs, err := api.deps.AttendanceSvc.Save(ctx.Request().Context(), data, getActor(ctx).teacherID())
	if err != nil {
		return errors.Wrap(err, "saving attendance")
	}
	api.logChange(ctx, audit.ActionUpdate, "attendance", "", echo.Map{
		"date":  data.Date.String(),
		"count": len(logs),
	})
	return ctx.JSON(http.StatusOK, logs)
}

func (api attendanceApi) attendanceDestroy(ctx echo.Context) error {
	studentID := ctx.QueryParam("student_id")
	if studentID == "" {
		return invalidParam("student_id", "this field is required")
	}
	date, err := queryDate(ctx, "date")
	if err != nil {
		return err
	}
	if date.IsZero() {
		return invalidParam("date", "this field is required")
	}

	st, err := api.deps.StudentSvc.GetByID(ctx.Request().Context(), studentID)
	if err != nil {
		return err
	}
	allowed, err := api.canAccessStudent(ctx, st)
	if err != nil {
		return err
	}
	if !allowed {
		return errNotYourStudent
	}

	if err = api.deps.AttendanceSvc.Delete(ctx.Request().Context(), st.ID, date); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	api.logChange(ctx, audit.ActionDelete, "attendance", st.ID, echo.Map{"date": date.String()})
	return ctx.NoContent(http.StatusNoContent)
}

// attendanceLongAbsence defaults the threshold to the admin or teacher one depending on the actor.
func (api attendanceApi) attendanceLongAbsence(ctx echo.Context) error {
	defWeeks := api.deps.Conf.Attendance.TeacherLongAbsenceWeeks
	if getActor(ctx).isAdmin() {
		defWeeks = api.deps.Conf.Attendance.AdminLongAbsenceWeeks
	}
	weeks, err := queryInt(ctx, "weeks", defWeeks)
	if err != nil {
		return err
	}
	scope, err := api.scopeFor(ctx, ctx.QueryParam("mokjang_id"))
	if err != nil {
		return err
	}

	absences, err := api.deps.AttendanceSvc.LongAbsence(ctx.Request().Context(), api.today(), weeks, scope)
	if err != nil {
		return errors.Wrap(err, "listing long absences")
	}
	return ctx.JSON(http.StatusOK, absences)
}
