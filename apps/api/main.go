package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/sarang-youth/mokjang/apps/api/echo"
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
	appfs "github.com/sarang-youth/mokjang/fs"
	emailsvc "github.com/sarang-youth/mokjang/services/email"
	logsvc "github.com/sarang-youth/mokjang/services/logger"
	"github.com/sarang-youth/mokjang/services/ratelimit"
	smssvc "github.com/sarang-youth/mokjang/services/sms"
	"github.com/sarang-youth/mokjang/storage/database"
	sqlxrepos "github.com/sarang-youth/mokjang/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	teacher.InitValidators(validate)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf.Debug /* strict */, logger)

	// set up gateways
	var mailSvc core.EmailService
	var smsGateway sms.Gateway
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
		smsGateway = smssvc.NewConsoleGateway(logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
		smsGateway = smssvc.NewAligoGateway(conf.SMS, logger)
	}

	// set up services
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	teacherSvc := teacher.NewService(sqlxrepos.NewTeacherRepository(db), usrSvc, validate)
	mokjangSvc := mokjang.NewService(sqlxrepos.NewMokjangRepository(db), validate)
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db), validate)
	attendanceSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), studentSvc, validate)

	limits := conf.RateLimit
	limiters := echoapi.Limiters{
		Login:    ratelimit.New(limits.Login.Window, limits.Login.Max),
		Register: ratelimit.New(limits.Register.Window, limits.Register.Max),
		Password: ratelimit.New(limits.Password.Window, limits.Password.Max),
		SMS:      ratelimit.New(limits.SMS.Window, limits.SMS.Max),
	}
	defer func() {
		for _, l := range []*ratelimit.Limiter{limiters.Login, limiters.Register, limiters.Password, limiters.SMS} {
			l.Close()
		}
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			DB:         db,
			Validate:   validate,
			Translator: translator,
			Limiters:   limiters,

			UserSvc:        usrSvc,
			TeacherSvc:     teacherSvc,
			MokjangSvc:     mokjangSvc,
			StudentSvc:     studentSvc,
			AttendanceSvc:  attendanceSvc,
			ReportSvc:      report.NewService(sqlxrepos.NewReportRepository(db), usrSvc, mailSvc, validate, logger),
			ObservationSvc: observation.NewService(sqlxrepos.NewObservationRepository(db), validate),
			MemoSvc:        memo.NewService(sqlxrepos.NewMemoRepository(db), validate),
			MinistrySvc:    ministry.NewService(sqlxrepos.NewMinistryRepository(db), validate),
			SMSSvc:         sms.NewService(smsGateway, studentSvc, validate, logger),
			DashboardSvc:   dashboard.NewService(conf, studentSvc, teacherSvc, mokjangSvc, attendanceSvc),
			Audit:          audit.NewRecorder(sqlxrepos.NewAuditRepository(db), logger),
		},
	)

	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Host))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpDB creates the database if needed, opens it and runs the pending migrations.
func setUpDB(conf *core.Config, logger core.Logger) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	logger.Info(fmt.Sprintf("Connecting to %s/%s", conf.Database.Address(), conf.Database.Name))
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	logger.Info("Applying migrations")
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
