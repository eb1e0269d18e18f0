package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/attendance"
)

func TestAttendanceSaveUpserts(t *testing.T) {
	env := setup(t)
	mkj := env.createMokjang(t, "Joshua")
	other := env.createMokjang(t, "Caleb")
	tchr := env.createTeacher(t, "kim_minsu", mkj.ID)
	session := env.sessionFor(t, tchr)

	hana := env.createStudent(t, "Jung Hana", &mkj.ID)
	yuna := env.createStudent(t, "Han Yuna", &other.ID)
	sunday, err := core.ParseDate("2021-03-14")
	require.NoError(t, err)

	save := func(status string) attendance.SaveAttendance {
		return attendance.SaveAttendance{
			Date:    sunday,
			Entries: []attendance.Entry{{StudentID: hana.ID, Status: status}},
		}
	}

	rec := env.do(newAuthRequest(http.MethodPost, "/api/attendance", session, marshalObj(t, save(attendance.StatusAbsent))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(newAuthRequest(http.MethodPost, "/api/attendance", session, marshalObj(t, save(attendance.StatusLate))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var logs []attendance.Log
	unmarshalBody(t, rec, &logs)
	if assert.Len(t, logs, 1) {
		assert.Equal(t, attendance.StatusLate, logs[0].Status)
		if assert.NotNil(t, logs[0].CheckedBy) {
			assert.Equal(t, tchr.ID, *logs[0].CheckedBy)
		}
	}

	t.Run("history has a single log", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/api/students/"+hana.ID+"/attendance", session))
		require.Equal(t, http.StatusOK, rec.Code)
		var history []attendance.Log
		unmarshalBody(t, rec, &history)
		if assert.Len(t, history, 1) {
			assert.Equal(t, attendance.StatusLate, history[0].Status)
		}
	})

	t.Run("roster of the teacher's mokjangs", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/api/attendance?date=2021-03-14", session))
		require.Equal(t, http.StatusOK, rec.Code)
		var roster []attendance.RosterEntry
		unmarshalBody(t, rec, &roster)
		if assert.Len(t, roster, 1) {
			assert.Equal(t, hana.ID, roster[0].StudentID)
			assert.Equal(t, attendance.StatusLate, roster[0].Status)
		}
	})

	t.Run("roster of another mokjang", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/api/attendance?date=2021-03-14&mokjang_id="+other.ID, session))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("student of another mokjang", func(t *testing.T) {
		data := attendance.SaveAttendance{Date: sunday, Entries: []attendance.Entry{{StudentID: yuna.ID, Status: attendance.StatusAttended}}}
		rec := env.do(newAuthRequest(http.MethodPost, "/api/attendance", session, marshalObj(t, data)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("invalid date", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/api/attendance?date=14/03/2021", session))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"date":"enter a valid date (YYYY-MM-DD)"}`),
		}, rec)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodDelete, "/api/attendance?student_id="+hana.ID+"&date=2021-03-14", session))
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = env.do(newAuthRequest(http.MethodDelete, "/api/attendance?student_id="+hana.ID+"&date=2021-03-14", session))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAttendanceLongAbsence(t *testing.T) {
	env := setup(t)
	mkj := env.createMokjang(t, "Joshua")
	tchr := env.createTeacher(t, "kim_minsu", mkj.ID)
	session := env.sessionFor(t, tchr)

	hana := env.createStudent(t, "Jung Hana", &mkj.ID)
	yuna := env.createStudent(t, "Han Yuna", &mkj.ID)

	// clock: 2021-03-14; hana came 3 weeks ago, yuna last Sunday
	for id, date := range map[string]string{hana.ID: "2021-02-21", yuna.ID: "2021-03-07"} {
		d, err := core.ParseDate(date)
		require.NoError(t, err)
		data := attendance.SaveAttendance{Date: d, Entries: []attendance.Entry{{StudentID: id, Status: attendance.StatusAttended}}}
		rec := env.do(newAuthRequest(http.MethodPost, "/api/attendance", session, marshalObj(t, data)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := env.do(newAuthRequest(http.MethodGet, "/api/attendance/long-absence", session))
	require.Equal(t, http.StatusOK, rec.Code)
	var absences []attendance.Absence
	unmarshalBody(t, rec, &absences)
	if assert.Len(t, absences, 1) {
		assert.Equal(t, hana.ID, absences[0].StudentID)
	}

	rec = env.do(newAuthRequest(http.MethodGet, "/api/attendance/long-absence?weeks=1", session))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshalBody(t, rec, &absences)
	assert.Len(t, absences, 2)
}
