package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/sarang-youth/mokjang/apps/api/echo"
	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/audit"
	"github.com/sarang-youth/mokjang/core/teacher"
	"github.com/sarang-youth/mokjang/core/user"
	testutil "github.com/sarang-youth/mokjang/tests"
)

func loginLogs(t *testing.T, env *testEnv) []audit.LoginLog {
	logs, err := env.auditRepo.QueryLoginLogs(ctxBg(), audit.QueryFilter{Page: core.Page{Page: 1, PageSize: 50}})
	require.NoError(t, err)
	return logs
}

func TestUserLogin(t *testing.T) {
	env := setup(t)
	admin := env.createAdmin(t)
	inactive := testutil.CreateUser(t, env.usrRepo, "Old Teacher", "old_teacher", "old@church.test",
		testutil.Password, user.RoleTeacher, false)

	tests := []httpTest{
		{
			name:     "empty data",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "unknown user",
			body:     []byte(`{"username":"nobody","password":"whatever"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name:     "wrong password",
			body:     []byte(`{"username":"pastor_lee","password":"wrong-password"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name:     "inactive user",
			body:     marshalObj(t, LoginRequest{Username: inactive.Username, Password: testutil.Password}),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "by username",
			body:     marshalObj(t, LoginRequest{Username: admin.Username, Password: testutil.Password}),
			wantCode: http.StatusOK,
		},
		{
			name:     "by email, case insensitive",
			body:     marshalObj(t, LoginRequest{Username: "PASTOR_LEE@church.test", Password: testutil.Password}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(newRequest(http.MethodPost, "/api/auth/login", tt.body))
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp MeResponse
				unmarshalBody(t, rec, &resp)
				assert.Equal(t, admin.UserID, resp.User.ID)
				if assert.NotNil(t, resp.Teacher) {
					assert.Equal(t, admin.ID, resp.Teacher.ID)
				}
				assert.NotNil(t, resp.User.LastLogin)

				cookies := rec.Result().Cookies()
				if assert.Len(t, cookies, 1) {
					assert.Equal(t, env.conf.Server.SessionCookie, cookies[0].Name)
					assert.True(t, cookies[0].HttpOnly)
					assert.NotEmpty(t, cookies[0].Value)
				}
			}
		})
	}

	// every attempt past validation is recorded
	logs := loginLogs(t, env)
	require.Len(t, logs, 5)
	var succeeded int
	for _, l := range logs {
		if l.Success {
			succeeded++
			assert.Equal(t, admin.UserID, *l.UserID)
		}
	}
	assert.Equal(t, 2, succeeded)
}

func TestUserLogout(t *testing.T) {
	env := setup(t)

	rec := env.do(newRequest(http.MethodPost, "/api/auth/logout"))
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		assert.Equal(t, "", cookies[0].Value)
		assert.True(t, cookies[0].MaxAge < 0)
	}
}

func TestUserRegister(t *testing.T) {
	env := setup(t)

	data := teacher.NewTeacher{
		Name:            "Choi Eunji",
		Username:        "choi_eunji",
		Email:           "eunji@church.test",
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
		Role:            user.RoleAdmin, // ignored
	}
	rec := env.do(newRequest(http.MethodPost, "/api/auth/register", marshalObj(t, data)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tchr teacher.Teacher
	unmarshalBody(t, rec, &tchr)
	assert.Equal(t, teacher.StatusRest, tchr.Status)
	assert.False(t, tchr.IsActive)

	usr, err := env.usrRepo.GetUser(ctxBg(), user.GetFilter{ID: tchr.UserID})
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, usr.Role)

	t.Run("cannot log in before activation", func(t *testing.T) {
		rec := env.do(newRequest(http.MethodPost, "/api/auth/login",
			marshalObj(t, LoginRequest{Username: data.Username, Password: testutil.Password})))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("username taken", func(t *testing.T) {
		rec := env.do(newRequest(http.MethodPost, "/api/auth/register", marshalObj(t, data)))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"a user with this username already exists"}`),
		}, rec)
	})

	t.Run("weak password", func(t *testing.T) {
		weak := data
		weak.Username, weak.Email = "another_one", ""
		weak.Password, weak.PasswordConfirm = "12345678", "12345678"
		rec := env.do(newRequest(http.MethodPost, "/api/auth/register", marshalObj(t, weak)))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password":"password cannot be entirely numeric"}`),
		}, rec)
	})
}

func TestUserMe(t *testing.T) {
	env := setup(t)
	tchr := env.createTeacher(t, "kim_minsu")
	session := env.sessionFor(t, tchr)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "no session",
			method:   http.MethodGet,
			path:     "/api/auth/me",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingSession),
		},
		{
			name:     "forged session",
			method:   http.MethodGet,
			path:     "/api/auth/me",
			cookie:   &http.Cookie{Name: session.Name, Value: "not-a-jwt"},
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingSession),
		},
	})

	rec := env.do(newAuthRequest(http.MethodGet, "/api/auth/me", session))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp MeResponse
	unmarshalBody(t, rec, &resp)
	assert.Equal(t, tchr.UserID, resp.User.ID)
	if assert.NotNil(t, resp.Teacher) {
		assert.Equal(t, tchr.ID, resp.Teacher.ID)
	}

	t.Run("deactivated after login", func(t *testing.T) {
		active := false
		_, err := env.teacherSvc.Update(ctxBg(), tchr, teacher.UpdateTeacher{IsActive: &active})
		require.NoError(t, err)

		rec := env.do(newAuthRequest(http.MethodGet, "/api/auth/me", session))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestUserChangePassword(t *testing.T) {
	env := setup(t)
	tchr := env.createTeacher(t, "park_jisoo")
	session := env.sessionFor(t, tchr)
	newPwd := "Praise&Worship77"

	runHTTPTests(t, env, []httpTest{
		{
			name:     "wrong current password",
			method:   http.MethodPut,
			path:     "/api/auth/password",
			body:     marshalObj(t, user.ChangePassword{CurrentPassword: "nope", Password: newPwd, PasswordConfirm: newPwd}),
			cookie:   session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"current_password":"invalid password"}`),
		},
		{
			name:     "confirmation mismatch",
			method:   http.MethodPut,
			path:     "/api/auth/password",
			body:     marshalObj(t, user.ChangePassword{CurrentPassword: testutil.Password, Password: newPwd, PasswordConfirm: "other"}),
			cookie:   session,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "changed",
			method:   http.MethodPut,
			path:     "/api/auth/password",
			body:     marshalObj(t, user.ChangePassword{CurrentPassword: testutil.Password, Password: newPwd, PasswordConfirm: newPwd}),
			cookie:   session,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, SuccessResponse{Success: "password changed"}),
		},
	})

	rec := env.do(newRequest(http.MethodPost, "/api/auth/login",
		marshalObj(t, LoginRequest{Username: tchr.Username, Password: newPwd})))
	assert.Equal(t, http.StatusOK, rec.Code)
}
