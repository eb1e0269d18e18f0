package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/sarang-youth/mokjang/apps/api/echo"
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
	smssvc "github.com/sarang-youth/mokjang/services/sms"
	inmemdb "github.com/sarang-youth/mokjang/storage/database/inmem"
	testutil "github.com/sarang-youth/mokjang/tests"
)

var errMissingSession = httpErr{Error: "user not authenticated"}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testEnv is a server over an in-memory database, with console email and SMS.
type testEnv struct {
	server *Server
	conf   *core.Config
	clock  *fakeClock
	db     *inmemdb.DB

	usrRepo    user.Repository
	auditRepo  audit.Repository
	teacherSvc *teacher.Service
	mokjangSvc *mokjang.Service
	studentSvc *student.Service
}

func setup(t *testing.T, opts ...func(*ServerDeps)) *testEnv {
	conf := testutil.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	teacher.InitValidators(validate)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true /* strict */, logger)

	// set up DB & repos
	db := inmemdb.Open()
	env := &testEnv{
		conf:      conf,
		clock:     &fakeClock{now: time.Date(2021, 3, 14, 3, 0, 0, 0, time.UTC)}, // a Sunday noon in Seoul
		db:        db,
		usrRepo:   inmemdb.NewUserRepository(db),
		auditRepo: inmemdb.NewAuditRepository(db),
	}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(env.usrRepo)
	env.teacherSvc = teacher.NewService(inmemdb.NewTeacherRepository(db), usrSvc, validate)
	env.mokjangSvc = mokjang.NewService(inmemdb.NewMokjangRepository(db), validate)
	env.studentSvc = student.NewService(inmemdb.NewStudentRepository(db), validate)
	attendanceSvc := attendance.NewService(inmemdb.NewAttendanceRepository(db), env.studentSvc, validate)
	smssvc.ClearSentMessages()
	emailsvc.ClearSentMessages()

	deps := ServerDeps{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Validate:   validate,
		Translator: translator,
		Clock:      env.clock.Now,

		UserSvc:        usrSvc,
		TeacherSvc:     env.teacherSvc,
		MokjangSvc:     env.mokjangSvc,
		StudentSvc:     env.studentSvc,
		AttendanceSvc:  attendanceSvc,
		ReportSvc:      report.NewService(inmemdb.NewReportRepository(db), usrSvc, mailSvc, validate, logger),
		ObservationSvc: observation.NewService(inmemdb.NewObservationRepository(db), validate),
		MemoSvc:        memo.NewService(inmemdb.NewMemoRepository(db), validate),
		MinistrySvc:    ministry.NewService(inmemdb.NewMinistryRepository(db), validate),
		SMSSvc:         sms.NewService(smssvc.NewConsoleGateway(logger), env.studentSvc, validate, logger),
		DashboardSvc:   dashboard.NewService(conf, env.studentSvc, env.teacherSvc, env.mokjangSvc, attendanceSvc),
		Audit:          audit.NewRecorder(env.auditRepo, logger),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	// set up server
	env.server = NewServer(deps)
	return env
}

func (env *testEnv) createAdmin(t *testing.T) teacher.Teacher {
	return testutil.CreateTeacher(t, env.teacherSvc, "Pastor Lee", "pastor_lee", user.RoleAdmin)
}

func (env *testEnv) createTeacher(t *testing.T, uname string, mokjangIDs ...string) teacher.Teacher {
	return testutil.CreateTeacher(t, env.teacherSvc, "Teacher "+uname, uname, user.RoleTeacher, mokjangIDs...)
}

func (env *testEnv) createMokjang(t *testing.T, name string) mokjang.Mokjang {
	m, err := env.mokjangSvc.Create(ctxBg(), mokjang.NewMokjang{Name: name})
	if err != nil {
		t.Fatalf("createMokjang() failed: %v", err)
	}
	return m
}

func (env *testEnv) createStudent(t *testing.T, name string, mokjangID *string) student.Student {
	s, err := env.studentSvc.Create(ctxBg(), student.NewStudent{
		Name:        name,
		Grade:       "2",
		ParentPhone: "010-1234-5678",
		MokjangID:   mokjangID,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s
}

// sessionFor returns the session cookie of the teacher's login user.
func (env *testEnv) sessionFor(t *testing.T, tchr teacher.Teacher) *http.Cookie {
	usr, err := env.usrRepo.GetUser(ctxBg(), user.GetFilter{ID: tchr.UserID})
	if err != nil {
		t.Fatalf("sessionFor() failed: %v", err)
	}
	cookie, err := env.server.SessionCookie(usr)
	if err != nil {
		t.Fatalf("sessionFor() failed: %v", err)
	}
	return cookie
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func ctxBg() context.Context {
	return context.Background()
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookie   *http.Cookie
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path string, cookie *http.Cookie, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, nil, data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshalBody(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if assert.NoError(t, err) {
		assert.True(t, ok, "data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(newAuthRequest(tt.method, tt.path, tt.cookie, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
