package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/attendance"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/dashboard"
	"github.com/sarang-youth/mokjang/core/memo"
	"github.com/sarang-youth/mokjang/core/ministry"
	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/observation"
	"github.com/sarang-youth/mokjang/core/report"
	"github.com/sarang-youth/mokjang/core/sms"
	"github.com/sarang-youth/mokjang/core/student"
	"github.com/sarang-youth/mokjang/core/teacher"
	"github.com/sarang-youth/mokjang/core/user"
	"github.com/sarang-youth/mokjang/services/ratelimit"
)

type (
	// Limiters guard the sensitive endpoints; a nil limiter disables its check.
	Limiters struct {
		Login    *ratelimit.Limiter
		Register *ratelimit.Limiter
		Password *ratelimit.Limiter
		SMS      *ratelimit.Limiter
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		DB         core.Pinger
		Validate   *validator.Validate
		Translator ut.Translator
		Limiters   Limiters
		Clock      func() time.Time // defaults to time.Now

		UserSvc        *user.Service
		TeacherSvc     *teacher.Service
		MokjangSvc     *mokjang.Service
		StudentSvc     *student.Service
		AttendanceSvc  *attendance.Service
		ReportSvc      *report.Service
		ObservationSvc *observation.Service
		MemoSvc        *memo.Service
		MinistrySvc    *ministry.Service
		SMSSvc         *sms.Service
		DashboardSvc   *dashboard.Service
		Audit          *audit.Recorder
	}

	Server struct {
		app      *echo.Echo
		srv      *http.Server
		deps     ServerDeps
		jwtConf  middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	conf := deps.Conf

	s := &Server{
		app:      echo.New(),
		deps:     deps,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.srv = &http.Server{
		Addr:         conf.Server.Host,
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
	}
	s.jwtConf = middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
		TokenLookup:   "cookie:" + conf.Server.SessionCookie,
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.AllowedOrigins,
		AllowCredentials: true,
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	api := s.app.Group("/api")
	api.GET("/health", s.health)

	session := s.sessionMiddleware()
	admin := adminMiddleware()

	registerAuthAPI(api, session, s)
	registerTeacherAPI(api.Group("/teachers", session), admin, s)
	registerMokjangAPI(api.Group("/mokjangs", session), admin, s)
	registerStudentAPI(api.Group("/students", session), admin, s)
	registerMemoAPI(api.Group("/memos", session), s)
	registerAttendanceAPI(api.Group("/attendance", session), s)
	registerReportAPI(api.Group("/reports", session), admin, s)
	registerObservationAPI(api.Group("/observations", session), s)
	registerMinistryAPI(api.Group("/ministries", session), admin, s)
	registerSMSAPI(api.Group("/sms", session, admin, s.rateLimit(s.deps.Limiters.SMS, userKey)), s)
	registerAdminAPI(api.Group("/admin", session, admin), s)
	registerDashboardAPI(api, session, admin, s)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

// Start blocks until the server stops; listener errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.StartServer(s.srv); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) now() time.Time {
	return s.deps.Clock()
}

// today is the current calendar day in the configured time zone.
func (s *Server) today() core.Date {
	return core.NewDate(s.now().In(s.deps.Conf.Location()))
}
