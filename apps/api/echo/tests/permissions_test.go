package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/student"
	"github.com/sarang-youth/mokjang/core/teacher"
	testutil "github.com/sarang-youth/mokjang/tests"
)

var errForbidden = httpErr{Error: "permission denied"}

func TestTeacherCannotUseAdminEndpoints(t *testing.T) {
	env := setup(t)
	mkj := env.createMokjang(t, "Joshua")
	tchr := env.createTeacher(t, "kim_minsu", mkj.ID)
	session := env.sessionFor(t, tchr)

	newTeacher := teacher.NewTeacher{
		Name:            "Lee Daeun",
		Username:        "lee_daeun",
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
	}

	runHTTPTests(t, env, []httpTest{
		{
			name:     "create teacher",
			method:   http.MethodPost,
			path:     "/api/teachers",
			body:     marshalObj(t, newTeacher),
			cookie:   session,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "create mokjang",
			method:   http.MethodPost,
			path:     "/api/mokjangs",
			body:     marshalObj(t, mokjang.NewMokjang{Name: "Caleb"}),
			cookie:   session,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "delete own mokjang",
			method:   http.MethodDelete,
			path:     "/api/mokjangs/" + mkj.ID,
			cookie:   session,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "send sms",
			method:   http.MethodPost,
			path:     "/api/sms/send",
			body:     []byte(`{"receivers":["010-1111-2222"],"message":"hello"}`),
			cookie:   session,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "read change logs",
			method:   http.MethodGet,
			path:     "/api/admin/logs/changes",
			cookie:   session,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "dashboard widgets",
			method:   http.MethodGet,
			path:     "/api/dashboard-widgets",
			cookie:   session,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "list teachers",
			method:   http.MethodGet,
			path:     "/api/teachers",
			cookie:   session,
			wantCode: http.StatusOK,
		},
	})

	// nothing was written
	mokjangs, err := env.mokjangSvc.Query(ctxBg(), mokjang.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, mokjangs, 1)
}

func TestAdminManagesMokjangs(t *testing.T) {
	env := setup(t)
	admin := env.createAdmin(t)
	session := env.sessionFor(t, admin)

	rec := env.do(newAuthRequest(http.MethodPost, "/api/mokjangs", session, marshalObj(t, mokjang.NewMokjang{Name: "Joshua"})))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var mkj mokjang.Mokjang
	unmarshalBody(t, rec, &mkj)

	t.Run("name is unique, case insensitive", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodPost, "/api/mokjangs", session, marshalObj(t, mokjang.NewMokjang{Name: "JOSHUA"})))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	st := env.createStudent(t, "Jung Hana", &mkj.ID)
	rec = env.do(newAuthRequest(http.MethodDelete, "/api/mokjangs/"+mkj.ID, session))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// students are kept, without mokjang
	s, err := env.studentSvc.GetByID(ctxBg(), st.ID)
	require.NoError(t, err)
	assert.Nil(t, s.MokjangID)

	rec = env.do(newAuthRequest(http.MethodGet, "/api/mokjangs/"+mkj.ID, session))
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "Not Found"})}, rec)
}

func TestTeacherUpdatesOnlyTheirStudents(t *testing.T) {
	env := setup(t)
	mine := env.createMokjang(t, "Joshua")
	other := env.createMokjang(t, "Caleb")
	tchr := env.createTeacher(t, "kim_minsu", mine.ID)
	session := env.sessionFor(t, tchr)

	myStudent := env.createStudent(t, "Jung Hana", &mine.ID)
	otherStudent := env.createStudent(t, "Han Yuna", &other.ID)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "own student",
			method:   http.MethodPut,
			path:     "/api/students/" + myStudent.ID,
			body:     []byte(`{"school":"Sarang Middle School"}`),
			cookie:   session,
			wantCode: http.StatusOK,
		},
		{
			name:     "other mokjang's student",
			method:   http.MethodPut,
			path:     "/api/students/" + otherStudent.ID,
			body:     []byte(`{"school":"Sarang Middle School"}`),
			cookie:   session,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "move own student out",
			method:   http.MethodPut,
			path:     "/api/students/" + myStudent.ID,
			body:     marshalObj(t, student.UpdateStudent{MokjangID: &other.ID}),
			cookie:   session,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "bulk move",
			method:   http.MethodPost,
			path:     "/api/students/move",
			body:     marshalObj(t, student.MoveStudents{StudentIDs: []string{myStudent.ID}, MokjangID: &other.ID}),
			cookie:   session,
			wantCode: http.StatusForbidden,
		},
	})

	s, err := env.studentSvc.GetByID(ctxBg(), myStudent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sarang Middle School", s.School)
	assert.Equal(t, mine.ID, *s.MokjangID)
}
