package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/memo"
)

var (
	errMemoNotInCtx = errors.New("memo object not found in echo.Context")
	errNotMemoOwner = core.NewPermissionError("only the author of the memo or an admin can change it")
)

type memoApi struct {
	*Server
}

func registerMemoAPI(g *echo.Group, s *Server) {
	api := memoApi{s}

	dg := g.Group("/:id", api.memoOwnerMiddleware)
	dg.PUT("", api.memoUpdate)
	dg.DELETE("", api.memoDestroy)
}

// memoOwnerMiddleware loads the memo and only lets its author or an admin through.
func (api memoApi) memoOwnerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		m, err := api.deps.MemoSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		a := getActor(ctx)
		if !a.isAdmin() && (m.AuthorID == nil || *m.AuthorID != a.user.ID) {
			return errNotMemoOwner
		}
		ctx.Set("object", m)
		return next(ctx)
	}
}

func (api memoApi) memoUpdate(ctx echo.Context) error {
	m, ok := ctx.Get("object").(memo.Memo)
	if !ok {
		return errMemoNotInCtx
	}

	var data memo.UpdateMemo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMemo")
	}

	m, err := api.deps.MemoSvc.Update(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "updating memo")
	}
	api.logChange(ctx, audit.ActionUpdate, "memo", m.ID, data)
	return ctx.JSON(http.StatusOK, m)
}

func (api memoApi) memoDestroy(ctx echo.Context) error {
	m, ok := ctx.Get("object").(memo.Memo)
	if !ok {
		return errMemoNotInCtx
	}

	if err := api.deps.MemoSvc.Delete(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "deleting memo")
	}
	api.logChange(ctx, audit.ActionDelete, "memo", m.ID, echo.Map{"student_id": m.StudentID})
	return ctx.NoContent(http.StatusNoContent)
}
