package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarang-youth/mokjang/core/dashboard"
	"github.com/sarang-youth/mokjang/core/memo"
	"github.com/sarang-youth/mokjang/core/ministry"
	"github.com/sarang-youth/mokjang/core/observation"
	"github.com/sarang-youth/mokjang/core/report"
	"github.com/sarang-youth/mokjang/core/sms"
	emailsvc "github.com/sarang-youth/mokjang/services/email"
	smssvc "github.com/sarang-youth/mokjang/services/sms"
)

func TestReportSave(t *testing.T) {
	env := setup(t)
	env.createAdmin(t)
	mkj := env.createMokjang(t, "Joshua")
	other := env.createMokjang(t, "Caleb")
	tchr := env.createTeacher(t, "kim_minsu", mkj.ID)
	session := env.sessionFor(t, tchr)

	body := []byte(`{"mokjang_id":"` + mkj.ID + `","date":"2021-03-14","content":"We read Psalm 23."}`)
	rec := env.do(newAuthRequest(http.MethodPost, "/api/reports", session, body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first report.Report
	unmarshalBody(t, rec, &first)

	// admins are notified once
	sent := emailsvc.GetSentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "pastor_lee@church.test", sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "We read Psalm 23.")
	}

	body = []byte(`{"mokjang_id":"` + mkj.ID + `","date":"2021-03-14","content":"We read Psalm 23 and prayed."}`)
	rec = env.do(newAuthRequest(http.MethodPost, "/api/reports", session, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second report.Report
	unmarshalBody(t, rec, &second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "We read Psalm 23 and prayed.", second.Content)
	assert.Len(t, emailsvc.GetSentMessages(), 1)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "another mokjang",
			method:   http.MethodPost,
			path:     "/api/reports",
			body:     []byte(`{"mokjang_id":"` + other.ID + `","date":"2021-03-14","content":"..."}`),
			cookie:   session,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown mokjang",
			method:   http.MethodPost,
			path:     "/api/reports",
			body:     []byte(`{"mokjang_id":"8d6b6c58-7f4a-4d1e-9a55-0d9b9a0f6a11","date":"2021-03-14","content":"..."}`),
			cookie:   session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"mokjang_id":"mokjang not found"}`),
		},
		{
			name:     "teacher cannot delete",
			method:   http.MethodDelete,
			path:     "/api/reports/" + first.ID,
			cookie:   session,
			wantCode: http.StatusForbidden,
		},
	})

	rec = env.do(newAuthRequest(http.MethodGet, "/api/reports?mokjang_id="+mkj.ID, session))
	require.Equal(t, http.StatusOK, rec.Code)
	var reports []report.Report
	unmarshalBody(t, rec, &reports)
	assert.Len(t, reports, 1)
}

func TestMemoOwnership(t *testing.T) {
	env := setup(t)
	mkj := env.createMokjang(t, "Joshua")
	author := env.createTeacher(t, "kim_minsu", mkj.ID)
	colleague := env.createTeacher(t, "park_jisoo", mkj.ID)
	admin := env.createAdmin(t)
	st := env.createStudent(t, "Jung Hana", &mkj.ID)

	rec := env.do(newAuthRequest(http.MethodPost, "/api/students/"+st.ID+"/memos", env.sessionFor(t, author),
		[]byte(`{"content":"Prefers to be called Hana","is_pinned":false}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m memo.Memo
	unmarshalBody(t, rec, &m)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "colleague cannot edit",
			method:   http.MethodPut,
			path:     "/api/memos/" + m.ID,
			body:     []byte(`{"is_pinned":true}`),
			cookie:   env.sessionFor(t, colleague),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "author pins",
			method:   http.MethodPut,
			path:     "/api/memos/" + m.ID,
			body:     []byte(`{"is_pinned":true}`),
			cookie:   env.sessionFor(t, author),
			wantCode: http.StatusOK,
		},
		{
			name:     "blank content",
			method:   http.MethodPost,
			path:     "/api/students/" + st.ID + "/memos",
			body:     []byte(`{"content":"   "}`),
			cookie:   env.sessionFor(t, author),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "admin deletes",
			method:   http.MethodDelete,
			path:     "/api/memos/" + m.ID,
			cookie:   env.sessionFor(t, admin),
			wantCode: http.StatusNoContent,
		},
	})
}

func TestObservations(t *testing.T) {
	env := setup(t)
	mkj := env.createMokjang(t, "Joshua")
	author := env.createTeacher(t, "kim_minsu", mkj.ID)
	colleague := env.createTeacher(t, "park_jisoo", mkj.ID)
	st := env.createStudent(t, "Jung Hana", &mkj.ID)
	session := env.sessionFor(t, author)

	body := []byte(`{"student_id":"` + st.ID + `","date":"2021-03-14","content":"Led the opening prayer."}`)
	rec := env.do(newAuthRequest(http.MethodPost, "/api/observations", session, body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var o observation.Observation
	unmarshalBody(t, rec, &o)
	if assert.NotNil(t, o.TeacherID) {
		assert.Equal(t, author.ID, *o.TeacherID)
	}

	rec = env.do(newAuthRequest(http.MethodGet, "/api/observations?student_id="+st.ID, env.sessionFor(t, colleague)))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []observation.Observation
	unmarshalBody(t, rec, &list)
	assert.Len(t, list, 1)

	rec = env.do(newAuthRequest(http.MethodDelete, "/api/observations/"+o.ID, env.sessionFor(t, colleague)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(newAuthRequest(http.MethodDelete, "/api/observations/"+o.ID, session))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMinistryMembers(t *testing.T) {
	env := setup(t)
	admin := env.createAdmin(t)
	session := env.sessionFor(t, admin)
	tchr := env.createTeacher(t, "kim_minsu")
	st := env.createStudent(t, "Jung Hana", nil)

	rec := env.do(newAuthRequest(http.MethodPost, "/api/ministries", session, []byte(`{"name":"Praise Team"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m ministry.Ministry
	unmarshalBody(t, rec, &m)

	members := ministry.SetMembers{TeacherIDs: []string{tchr.ID}, StudentIDs: []string{st.ID}}
	rec = env.do(newAuthRequest(http.MethodPut, "/api/ministries/"+m.ID+"/members", session, marshalObj(t, members)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshalBody(t, rec, &m)
	assert.Equal(t, []string{tchr.ID}, m.TeacherIDs)
	assert.Equal(t, []string{st.ID}, m.StudentIDs)

	s, err := env.studentSvc.GetByID(ctxBg(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, s.MinistryIDs)

	rec = env.do(newAuthRequest(http.MethodPost, "/api/ministries", session, []byte(`{"name":"praise team"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSMSSend(t *testing.T) {
	env := setup(t)
	admin := env.createAdmin(t)
	session := env.sessionFor(t, admin)
	mkj := env.createMokjang(t, "Joshua")
	st := env.createStudent(t, "Jung Hana", &mkj.ID)

	req := sms.SendRequest{
		Receivers:  []string{"010-1234-5678", "010-9999-0000"},
		StudentIDs: []string{st.ID},
		Message:    "Retreat registration closes on Sunday.",
	}
	rec := env.do(newAuthRequest(http.MethodPost, "/api/sms/send", session, marshalObj(t, req)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1", resp["result_code"])
	assert.Equal(t, "SMS", resp["msg_type"])

	// the parent's number was already listed
	receivers := make([]string, 0)
	for _, m := range smssvc.GetSentMessages() {
		receivers = append(receivers, m.Receiver)
	}
	assert.ElementsMatch(t, []string{"01012345678", "01099990000"}, receivers)

	t.Run("no recipient", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodPost, "/api/sms/send", session, []byte(`{"message":"hello"}`)))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"receivers":"no recipient with a phone number"}`),
		}, rec)
	})

	t.Run("half reservation is not sent", func(t *testing.T) {
		smssvc.ClearSentMessages()
		tests := []struct {
			body     string
			wantData string
		}{
			{body: `{"receivers":["010-1234-5678"],"message":"hello","rtime":"1030"}`, wantData: `{"rdate":"this field is required"}`},
			{body: `{"receivers":["010-1234-5678"],"message":"hello","rdate":"20261025"}`, wantData: `{"rtime":"this field is required"}`},
			{body: `{"receivers":["010-1234-5678"],"message":"hello","rdate":"20261399","rtime":"9999"}`, wantData: `{"rdate":"invalid date or time","rtime":"invalid date or time"}`},
		}
		for _, tt := range tests {
			rec := env.do(newAuthRequest(http.MethodPost, "/api/sms/send", session, []byte(tt.body)))
			checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(tt.wantData)}, rec)
		}
		assert.Empty(t, smssvc.GetSentMessages())
	})

	t.Run("name placeholder with direct receivers", func(t *testing.T) {
		body := []byte(`{"receivers":["010-1234-5678"],"message":"{name}, hello"}`)
		rec := env.do(newAuthRequest(http.MethodPost, "/api/sms/send", session, body))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"message":"{name} can only be sent to students"}`),
		}, rec)
	})
}

func TestDashboards(t *testing.T) {
	env := setup(t)
	admin := env.createAdmin(t)
	mkj := env.createMokjang(t, "Joshua")
	tchr := env.createTeacher(t, "kim_minsu", mkj.ID)
	env.createStudent(t, "Jung Hana", &mkj.ID)
	env.createStudent(t, "Han Yuna", nil)

	rec := env.do(newAuthRequest(http.MethodGet, "/api/dashboard-widgets", env.sessionFor(t, admin)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var widgets dashboard.Widgets
	unmarshalBody(t, rec, &widgets)
	assert.Equal(t, 2, widgets.Totals.Students)
	assert.Equal(t, 1, widgets.Totals.ActiveMokjangs)
	assert.Equal(t, "2021-03-14", widgets.LastSunday.String())

	rec = env.do(newAuthRequest(http.MethodGet, "/api/teacher-dashboard", env.sessionFor(t, tchr)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var td dashboard.TeacherDashboard
	unmarshalBody(t, rec, &td)
	assert.Len(t, td.Mokjangs, 1)
	assert.Len(t, td.Roster, 1)

	rec = env.do(newAuthRequest(http.MethodGet, "/api/stats?from=2021-03-14&to=2021-01-01", env.sessionFor(t, tchr)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

}
