package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/memo"
	"github.com/sarang-youth/mokjang/core/student"
)

var (
	errStudentNotInCtx = errors.New("student object not found in echo.Context")

	errNotYourStudent = core.NewPermissionError("this student is not in one of your mokjangs")
	errNotYourMokjang = core.NewPermissionError("you can only move students to one of your mokjangs")
)

type studentApi struct {
	*Server
}

func registerStudentAPI(g *echo.Group, admin echo.MiddlewareFunc, s *Server) {
	api := studentApi{s}

	g.GET("", api.studentQuery)
	g.POST("", api.studentCreate, admin)
	g.POST("/move", api.studentMove, admin)

	dg := g.Group("/:id", api.studentMiddleware)
	dg.GET("", api.studentRetrieve)
	dg.PUT("", api.studentUpdate)
	dg.DELETE("", api.studentDestroy, admin)
	dg.GET("/attendance", api.studentAttendance)
	dg.GET("/memos", api.studentMemos)
	dg.POST("/memos", api.studentMemoCreate)
}

func (api studentApi) studentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		s, err := api.deps.StudentSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		ctx.Set("object", s)
		return next(ctx)
	}
}

// canAccessStudent reports whether the actor is an admin or leads the student's mokjang.
func (s *Server) canAccessStudent(ctx echo.Context, st student.Student) (bool, error) {
	scope, err := s.mokjangScope(ctx)
	if err != nil {
		return false, err
	}
	return scope == nil || st.InMokjangs(scope), nil
}

func (api studentApi) studentQuery(ctx echo.Context) error {
	noMokjang, err := queryBool(ctx, "no_mokjang")
	if err != nil {
		return err
	}
	filter := student.QueryFilter{
		MokjangID: ctx.QueryParam("mokjang_id"),
		Status:    ctx.QueryParam("status"),
		Grade:     ctx.QueryParam("grade"),
		Search:    ctx.QueryParam("search"),
		NoMokjang: noMokjang != nil && *noMokjang,
	}
	var ord Ordering
	ord.Bind(ctx)

	students, err := api.deps.StudentSvc.Query(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api studentApi) studentCreate(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	s, err := api.deps.StudentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	api.logChange(ctx, audit.ActionCreate, "student", s.ID, echo.Map{"name": s.Name, "mokjang_id": s.MokjangID})
	return ctx.JSON(http.StatusCreated, s)
}

func (api studentApi) studentRetrieve(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errStudentNotInCtx
	}
	return ctx.JSON(http.StatusOK, s)
}

// studentUpdate lets teachers edit the students of their mokjangs, without moving them elsewhere.
func (api studentApi) studentUpdate(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errStudentNotInCtx
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	if !getActor(ctx).isAdmin() {
		allowed, err := api.canAccessStudent(ctx, s)
		if err != nil {
			return err
		}
		if !allowed {
			return errNotYourStudent
		}
		if data.ChangesMokjang(s) {
			if *data.MokjangID == "" {
				return errNotYourMokjang
			}
			if allowed, err = api.canAccessMokjang(ctx, *data.MokjangID); err != nil {
				return err
			}
			if !allowed {
				return errNotYourMokjang
			}
		}
	}

	s, err := api.deps.StudentSvc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	api.logChange(ctx, audit.ActionUpdate, "student", s.ID, data)
	return ctx.JSON(http.StatusOK, s)
}

func (api studentApi) studentMove(ctx echo.Context) error {
	var data student.MoveStudents
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveStudents")
	}

	moved, err := api.deps.StudentSvc.Move(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "moving students")
	}
	api.logChange(ctx, audit.ActionUpdate, "student", "", echo.Map{
		"moved":       moved,
		"student_ids": data.StudentIDs,
		"mokjang_id":  data.MokjangID,
	})
	return ctx.JSON(http.StatusOK, echo.Map{"moved": moved})
}

func (api studentApi) studentDestroy(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errStudentNotInCtx
	}

	if err := api.deps.StudentSvc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	api.logChange(ctx, audit.ActionDelete, "student", s.ID, echo.Map{"name": s.Name})
	return ctx.NoContent(http.StatusNoContent)
}

// studentAttendance returns the attendance history of the student, newest first.
func (api studentApi) studentAttendance(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errStudentNotInCtx
	}
	from, err := queryDate(ctx, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(ctx, "to")
	if err != nil {
		return err
	}

	logs, err := api.deps.AttendanceSvc.History(ctx.Request().Context(), s.ID, from, to)
	if err != nil {
		return errors.Wrap(err, "querying attendance history")
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api studentApi) studentMemos(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errStudentNotInCtx
	}

	memos, err := api.deps.MemoSvc.ForStudent(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "querying student memos")
	}
	return ctx.JSON(http.StatusOK, memos)
}

func (api studentApi) studentMemoCreate(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errStudentNotInCtx
	}

	var data memo.NewMemo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMemo")
	}

	m, err := api.deps.MemoSvc.Create(ctx.Request().Context(), s.ID, data, getActor(ctx).user.ID)
	if err != nil {
		return errors.Wrap(err, "creating memo")
	}
	api.logChange(ctx, audit.ActionCreate, "memo", m.ID, echo.Map{"student_id": s.ID})
	return ctx.JSON(http.StatusCreated, m)
}
