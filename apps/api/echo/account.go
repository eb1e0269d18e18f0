package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/teacher"
	"github.com/sarang-youth/mokjang/core/user"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	// MeResponse is the session user with their teacher profile, if any.
	MeResponse struct {
		User    user.User        `json:"user"`
		Teacher *teacher.Teacher `json:"teacher"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

type accountApi struct {
	*Server
}

func registerAuthAPI(g *echo.Group, session echo.MiddlewareFunc, s *Server) {
	api := accountApi{s}
	lim := s.deps.Limiters

	ag := g.Group("/auth")
	ag.POST("/login", api.login, s.rateLimit(lim.Login, ipKey))
	ag.POST("/logout", api.logout)
	ag.POST("/register", api.register, s.rateLimit(lim.Register, ipKey))
	ag.GET("/me", api.me, session)
	ag.PUT("/password", api.changePassword, session, s.rateLimit(lim.Password, userKey))
}

func (api accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	attempt := audit.LoginLog{
		Username:  data.Username,
		IP:        ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
	}

	usr, err := api.deps.UserSvc.GetByUsernameOrEmail(rctx, data.Username)
	if err != nil {
		if errors.Cause(err) != core.ErrNotFound {
			return errors.Wrap(err, "finding user by username or email")
		}
		api.deps.Audit.LogLogin(rctx, attempt)
		return errAuthenticationFailed
	}
	attempt.UserID = &usr.ID
	if err = usr.CheckPassword(data.Password); err != nil {
		api.deps.Audit.LogLogin(rctx, attempt)
		return errAuthenticationFailed
	}
	if !usr.IsActive {
		api.deps.Audit.LogLogin(rctx, attempt)
		return errAccountDeactivated
	}

	if usr, err = api.deps.UserSvc.SetLastLogin(rctx, usr); err != nil {
		return errors.Wrap(err, "setting last login")
	}
	cookie, err := api.SessionCookie(usr)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	attempt.Success = true
	api.deps.Audit.LogLogin(rctx, attempt)

	resp, err := api.meResponse(ctx, usr)
	if err != nil {
		return err
	}
	ctx.SetCookie(cookie)
	return ctx.JSON(http.StatusOK, resp)
}

func (api accountApi) logout(ctx echo.Context) error {
	ctx.SetCookie(api.expiredSessionCookie())
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "logged out"})
}

// register is the public sign-up of a teacher; an admin activates the account later.
func (api accountApi) register(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}

	t, err := api.deps.TeacherSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	api.deps.Audit.LogChange(ctx.Request().Context(), t.UserID, audit.ActionCreate, "teacher", t.ID,
		echo.Map{"name": t.Name, "username": t.Username, "self_registered": true})
	return ctx.JSON(http.StatusCreated, t)
}

func (api accountApi) meResponse(ctx echo.Context, usr user.User) (MeResponse, error) {
	resp := MeResponse{User: usr}
	t, err := api.deps.TeacherSvc.GetByUserID(ctx.Request().Context(), usr.ID)
	switch {
	case err == nil:
		resp.Teacher = &t
	case errors.Cause(err) != core.ErrNotFound:
		return MeResponse{}, errors.Wrap(err, "finding teacher profile")
	}
	return resp, nil
}

func (api accountApi) me(ctx echo.Context) error {
	a := getActor(ctx)
	return ctx.JSON(http.StatusOK, MeResponse{User: a.user, Teacher: a.teacher})
}

func (api accountApi) changePassword(ctx echo.Context) error {
	usr := getActor(ctx).user

	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(api.deps.Validate, usr); err != nil {
		return err
	}
	if _, err := api.deps.UserSvc.ChangePassword(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	api.logChange(ctx, audit.ActionUpdate, "user", usr.ID, echo.Map{"password": "changed"})
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "password changed"})
}

// logChange records a data change made by the actor of the request.
func (s *Server) logChange(ctx echo.Context, action, entity, entityID string, detail interface{}) {
	s.deps.Audit.LogChange(ctx.Request().Context(), getActor(ctx).user.ID, action, entity, entityID, detail)
}
