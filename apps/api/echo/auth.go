package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/teacher"
	"github.com/sarang-youth/mokjang/core/user"
)

const (
	tokenContextKey = "userToken"
	actorContextKey = "actor"
)

// Claims represents the authorization claims carried by the session cookie.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// userClaims uses the wall clock: jwt-go checks expiry against it.
func (s *Server) userClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.deps.Conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(s.deps.Conf.Server.SessionExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Role:     usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (s *Server) GenerateToken(usr user.User) (string, error) {
	method := jwt.GetSigningMethod(s.jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, s.userClaims(usr))

	ss, err := token.SignedString(s.jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// SessionCookie returns the cookie authenticating `usr`.
func (s *Server) SessionCookie(usr user.User) (*http.Cookie, error) {
	token, err := s.GenerateToken(usr)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     s.deps.Conf.Server.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.deps.Conf.Server.SessionExpirationDelta),
		HttpOnly: true,
		Secure:   s.deps.Conf.Server.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

func (s *Server) expiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.deps.Conf.Server.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.deps.Conf.Server.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// actor is the authenticated user making the request, with their teacher profile if any.
type actor struct {
	user    user.User
	teacher *teacher.Teacher
}

func (a actor) isAdmin() bool {
	return a.user.IsAdmin()
}

// teacherID returns the ID of the actor's teacher profile, or nil.
func (a actor) teacherID() *string {
	if a.teacher == nil {
		return nil
	}
	id := a.teacher.ID
	return &id
}

func (a actor) name() string {
	if a.teacher != nil {
		return a.teacher.Name
	}
	return a.user.Name
}

// sessionMiddleware authenticates the session cookie and loads the actor of the request.
func (s *Server) sessionMiddleware() echo.MiddlewareFunc {
	jwtMiddleware := middleware.JWTWithConfig(s.jwtConf)
	loadActor := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Cause(err) == core.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding session user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}

			a := actor{user: usr}
			t, err := s.deps.TeacherSvc.GetByUserID(ctx.Request().Context(), usr.ID)
			switch {
			case err == nil:
				a.teacher = &t
			case errors.Cause(err) != core.ErrNotFound:
				return errors.Wrap(err, "finding session teacher")
			}
			ctx.Set(actorContextKey, a)
			return next(ctx)
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(loadActor(next))
	}
}

func getActor(ctx echo.Context) actor {
	a, _ := ctx.Get(actorContextKey).(actor)
	return a
}

// mokjangScope returns the mokjangs the actor may act on: nil (all) for admins,
// the led mokjangs for teachers (possibly empty, matching nothing).
func (s *Server) mokjangScope(ctx echo.Context) ([]string, error) {
	a := getActor(ctx)
	if a.isAdmin() {
		return nil, nil
	}
	if a.teacher == nil {
		return []string{}, nil
	}
	ids, err := s.deps.MokjangSvc.IDsForTeacher(ctx.Request().Context(), a.teacher.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing teacher mokjangs")
	}
	return ids, nil
}

// canAccessMokjang reports whether the actor is an admin or leads the mokjang.
func (s *Server) canAccessMokjang(ctx echo.Context, mokjangID string) (bool, error) {
	scope, err := s.mokjangScope(ctx)
	if err != nil {
		return false, err
	}
	return scope == nil || core.ContainsString(scope, mokjangID), nil
}
