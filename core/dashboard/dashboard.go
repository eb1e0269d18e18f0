package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/attendance"
	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/student"
	"github.com/sarang-youth/mokjang/core/teacher"
)

type (
	Totals struct {
		Students         int            `json:"students"`
		StudentsByStatus map[string]int `json:"students_by_status"`
		ActiveTeachers   int            `json:"active_teachers"`
		ActiveMokjangs   int            `json:"active_mokjangs"`
	}

	// Widgets feed the admin dashboard.
	Widgets struct {
		Totals       Totals                `json:"totals"`
		LastSunday   core.Date             `json:"last_sunday"`
		Attendance   attendance.DailyCount `json:"attendance"`
		LongAbsence  []attendance.Absence  `json:"long_absence"`
		AbsenceWeeks int                   `json:"absence_weeks"`
	}

	// TeacherDashboard is the attendance-checking view of a teacher.
	TeacherDashboard struct {
		Date         core.Date                `json:"date"`
		Mokjangs     []mokjang.Mokjang        `json:"mokjangs"`
		Roster       []attendance.RosterEntry `json:"roster"`
		LongAbsence  []attendance.Absence     `json:"long_absence"`
		AbsenceWeeks int                      `json:"absence_weeks"`
	}

	Service struct {
		students   *student.Service
		teachers   *teacher.Service
		mokjangs   *mokjang.Service
		attendance *attendance.Service
		conf       *core.Config
	}
)

func NewService(
	conf *core.Config,
	students *student.Service,
	teachers *teacher.Service,
	mokjangs *mokjang.Service,
	attendanceSvc *attendance.Service,
) *Service {
	return &Service{
		students:   students,
		teachers:   teachers,
		mokjangs:   mokjangs,
		attendance: attendanceSvc,
		conf:       conf,
	}
}

// LastSunday returns `today` if it is a Sunday, else the Sunday before it.
func LastSunday(today core.Date) core.Date {
	return today.AddDays(-int(today.Weekday()))
}

func (svc *Service) Widgets(ctx context.Context, today core.Date) (Widgets, error) {
	students, err := svc.students.Query(ctx, student.QueryFilter{})
	if err != nil {
		return Widgets{}, errors.Wrap(err, "querying students")
	}
	totals := Totals{Students: len(students), StudentsByStatus: make(map[string]int)}
	for _, s := range students {
		totals.StudentsByStatus[s.Status]++
	}

	teachers, err := svc.teachers.Query(ctx, teacher.QueryFilter{Status: teacher.StatusActive})
	if err != nil {
		return Widgets{}, errors.Wrap(err, "querying teachers")
	}
	totals.ActiveTeachers = len(teachers)

	isActive := true
	mokjangs, err := svc.mokjangs.Query(ctx, mokjang.QueryFilter{IsActive: &isActive})
	if err != nil {
		return Widgets{}, errors.Wrap(err, "querying mokjangs")
	}
	totals.ActiveMokjangs = len(mokjangs)

	sunday := LastSunday(today)
	counts, err := svc.attendance.Stats(ctx, attendance.StatsFilter{From: sunday, To: sunday})
	if err != nil {
		return Widgets{}, errors.Wrap(err, "counting attendance")
	}
	daily := attendance.DailyCount{Date: sunday}
	if len(counts) > 0 {
		daily = counts[0]
	}

	weeks := svc.conf.Attendance.AdminLongAbsenceWeeks
	longAbsence, err := svc.attendance.LongAbsence(ctx, today, weeks, nil)
	if err != nil {
		return Widgets{}, err
	}

	return Widgets{
		Totals:       totals,
		LastSunday:   sunday,
		Attendance:   daily,
		LongAbsence:  longAbsence,
		AbsenceWeeks: weeks,
	}, nil
}

// ForTeacher builds the dashboard of the mokjangs led by teacherID.
// An empty teacherID (an admin without a teacher profile) gets every active mokjang.
func (svc *Service) ForTeacher(ctx context.Context, teacherID string, date, today core.Date) (TeacherDashboard, error) {
	var (
		mokjangs []mokjang.Mokjang
		err      error
	)
	if teacherID == "" {
		isActive := true
		mokjangs, err = svc.mokjangs.Query(ctx, mokjang.QueryFilter{IsActive: &isActive})
	} else {
		mokjangs, err = svc.mokjangs.ForTeacher(ctx, teacherID)
	}
	if err != nil {
		return TeacherDashboard{}, errors.Wrap(err, "querying mokjangs")
	}

	ids := make([]string, len(mokjangs))
	for i, m := range mokjangs {
		ids[i] = m.ID
	}

	roster, err := svc.attendance.Roster(ctx, date, ids)
	if err != nil {
		return TeacherDashboard{}, err
	}

	weeks := svc.conf.Attendance.TeacherLongAbsenceWeeks
	longAbsence, err := svc.attendance.LongAbsence(ctx, today, weeks, ids)
	if err != nil {
		return TeacherDashboard{}, err
	}

	return TeacherDashboard{
		Date:         date,
		Mokjangs:     mokjangs,
		Roster:       roster,
		LongAbsence:  longAbsence,
		AbsenceWeeks: weeks,
	}, nil
}

// StatsRange returns the default range of the stats: the 12 Sundays ending at the last one.
func StatsRange(today core.Date) (from, to core.Date) {
	to = LastSunday(today)
	from = to.AddDays(-7 * 11)
	return from, to
}

// Stats returns the per-date attendance counts in [from, to] for a mokjang (or all of them).
func (svc *Service) Stats(ctx context.Context, from, to core.Date, mokjangID string) ([]attendance.DailyCount, error) {
	if to.Sub(from.Time) > 366*24*time.Hour {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "from", Error: "range cannot exceed one year"})
	}
	if to.Before(from.Time) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "must not be before from"})
	}
	return svc.attendance.Stats(ctx, attendance.StatsFilter{From: from, To: to, MokjangID: mokjangID})
}
