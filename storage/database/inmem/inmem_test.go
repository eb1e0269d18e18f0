package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/attendance"
	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/report"
	"github.com/sarang-youth/mokjang/core/student"
)

func mustDate(t *testing.T, s string) core.Date {
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestAttendanceUpsert(t *testing.T) {
	ctx := context.Background()
	db := Open()
	students := NewStudentRepository(db)
	repo := NewAttendanceRepository(db)

	s, err := students.CreateStudent(ctx, student.Student{Name: "Minji", Status: student.StatusActive})
	require.NoError(t, err)

	date := mustDate(t, "2024-03-03")
	first, err := repo.UpsertLogs(ctx, []attendance.Log{{StudentID: s.ID, Date: date, Status: attendance.StatusAbsent}})
	require.NoError(t, err)
	second, err := repo.UpsertLogs(ctx, []attendance.Log{{StudentID: s.ID, Date: date, Status: attendance.StatusLate, Memo: "bus"}})
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
	logs, err := repo.QueryLogs(ctx, attendance.QueryFilter{StudentID: s.ID})
	require.NoError(t, err)
	if assert.Len(t, logs, 1) {
		assert.Equal(t, attendance.StatusLate, logs[0].Status)
		assert.Equal(t, "bus", logs[0].Memo)
	}

	_, err = repo.UpsertLogs(ctx, []attendance.Log{{StudentID: "unknown", Date: date, Status: attendance.StatusLate}})
	_, ok := errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok, "unknown student must be a validation error")
}

func TestAttendanceLastAttendedAndCounts(t *testing.T) {
	ctx := context.Background()
	db := Open()
	students := NewStudentRepository(db)
	repo := NewAttendanceRepository(db)

	a, _ := students.CreateStudent(ctx, student.Student{Name: "A", Status: student.StatusActive})
	b, _ := students.CreateStudent(ctx, student.Student{Name: "B", Status: student.StatusActive})

	d1, d2 := mustDate(t, "2024-03-03"), mustDate(t, "2024-03-10")
	_, err := repo.UpsertLogs(ctx, []attendance.Log{
		{StudentID: a.ID, Date: d1, Status: attendance.StatusAttended},
		{StudentID: a.ID, Date: d2, Status: attendance.StatusAbsent},
		{StudentID: b.ID, Date: d2, Status: attendance.StatusExcused},
	})
	require.NoError(t, err)

	last, err := repo.LastAttended(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]core.Date{a.ID: d1}, last)

	counts, err := repo.CountByDate(ctx, attendance.StatsFilter{From: d1, To: d2})
	require.NoError(t, err)
	assert.Equal(t, []attendance.DailyCount{
		{Date: d1, Attended: 1},
		{Date: d2, Absent: 1, Excused: 1},
	}, counts)
}

func TestQueryStudentsFilters(t *testing.T) {
	ctx := context.Background()
	db := Open()
	mokjangs := NewMokjangRepository(db)
	repo := NewStudentRepository(db)

	m, err := mokjangs.CreateMokjang(ctx, mokjang.Mokjang{Name: "Joy", IsActive: true})
	require.NoError(t, err)

	inM, _ := repo.CreateStudent(ctx, student.Student{Name: "In", Status: student.StatusActive, MokjangID: &m.ID})
	out, _ := repo.CreateStudent(ctx, student.Student{Name: "Out", Status: student.StatusActive})

	tests := []struct {
		name   string
		filter student.QueryFilter
		want   []string
	}{
		{"no filter", student.QueryFilter{}, []string{inM.ID, out.ID}},
		{"empty ids match nothing", student.QueryFilter{IDs: []string{}}, []string{}},
		{"empty mokjangs match nothing", student.QueryFilter{MokjangIDs: []string{}}, []string{}},
		{"mokjang", student.QueryFilter{MokjangIDs: []string{m.ID}}, []string{inM.ID}},
		{"no mokjang", student.QueryFilter{NoMokjang: true}, []string{out.ID}},
		{"search", student.QueryFilter{Search: "ou"}, []string{out.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			students, err := repo.QueryStudents(ctx, tc.filter)
			require.NoError(t, err)
			ids := make([]string, len(students))
			for i, s := range students {
				ids[i] = s.ID
			}
			assert.Equal(t, tc.want, ids)
		})
	}

	got, err := mokjangs.GetMokjang(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StudentCount)

	require.NoError(t, mokjangs.DeleteMokjang(ctx, m.ID))
	s, err := repo.GetStudent(ctx, inM.ID)
	require.NoError(t, err)
	assert.Nil(t, s.MokjangID)
}

func TestReportUpsert(t *testing.T) {
	ctx := context.Background()
	db := Open()
	m, err := NewMokjangRepository(db).CreateMokjang(ctx, mokjang.Mokjang{Name: "Hope"})
	require.NoError(t, err)
	repo := NewReportRepository(db)

	date := mustDate(t, "2024-03-03")
	r1, created, err := repo.UpsertReport(ctx, report.Report{MokjangID: m.ID, Date: date, Content: "v1", CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, created)

	r2, created, err := repo.UpsertReport(ctx, report.Report{MokjangID: m.ID, Date: date, Content: "v2", CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, r1.ID, r2.ID)
	assert.Equal(t, "v2", r2.Content)
}
