package attendance

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/student"
)

var ErrNotFound = errors.Wrap(core.ErrNotFound, "attendance log")

type (
	Repository interface {
		// UpsertLogs inserts the logs or updates the existing ones of the same (student, date).
		UpsertLogs(ctx context.Context, logs []Log) ([]Log, error)
		// QueryLogs returns the matching logs, newest first.
		QueryLogs(ctx context.Context, filter QueryFilter) ([]Log, error)
		DeleteLog(ctx context.Context, studentID string, date core.Date) error
		// LastAttended returns, per student, the date of their most recent attended or late log.
		// Students without one are absent from the map.
		LastAttended(ctx context.Context, studentIDs []string) (map[string]core.Date, error)
		// CountByDate returns the number of logs per status and date, oldest first.
		CountByDate(ctx context.Context, filter StatsFilter) ([]DailyCount, error)
	}

	StudentQuerier interface {
		Query(ctx context.Context, filter student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error)
	}

	Service struct {
		repo     Repository
		students StudentQuerier
		validate *validator.Validate
	}
)

func NewService(repo Repository, students StudentQuerier, validate *validator.Validate) *Service {
	return &Service{repo: repo, students: students, validate: validate}
}

// Save upserts the attendance of the entries' students. `checkedBy` is the teacher ID, if any.
func (svc *Service) Save(ctx context.Context, data SaveAttendance, checkedBy *string) ([]Log, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	logs := make([]Log, len(data.Entries))
	for i, e := range data.Entries {
		logs[i] = Log{
			StudentID: e.StudentID,
			Date:      data.Date,
			Status:    e.Status,
			Memo:      e.Memo,
			CheckedBy: checkedBy,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return svc.repo.UpsertLogs(ctx, logs)
}

// Roster lists the active students (of the mokjangs, if not nil) with their attendance on date.
func (svc *Service) Roster(ctx context.Context, date core.Date, mokjangIDs []string) ([]RosterEntry, error) {
	students, err := svc.students.Query(ctx, student.QueryFilter{Status: student.StatusActive, MokjangIDs: mokjangIDs})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	roster := make([]RosterEntry, len(students))
	if len(students) == 0 {
		return roster, nil
	}

	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	logs, err := svc.repo.QueryLogs(ctx, QueryFilter{StudentIDs: ids, Date: date})
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}
	byStudent := make(map[string]Log, len(logs))
	for _, l := range logs {
		byStudent[l.StudentID] = l
	}

	for i, s := range students {
		l := byStudent[s.ID]
		roster[i] = RosterEntry{
			StudentID:   s.ID,
			StudentName: s.Name,
			Grade:       s.Grade,
			MokjangID:   s.MokjangID,
			Status:      l.Status,
			Memo:        l.Memo,
		}
	}
	return roster, nil
}

// History returns the logs of a student, newest first.
func (svc *Service) History(ctx context.Context, studentID string, from, to core.Date) ([]Log, error) {
	return svc.repo.QueryLogs(ctx, QueryFilter{StudentID: studentID, From: from, To: to})
}

func (svc *Service) Delete(ctx context.Context, studentID string, date core.Date) error {
	return svc.repo.DeleteLog(ctx, studentID, date)
}

// Absences computes the weeks-absent of the active students (of the mokjangs, if not nil)
// with a single lookup of their last attendance.
func (svc *Service) Absences(ctx context.Context, today core.Date, mokjangIDs []string) ([]Absence, error) {
	students, err := svc.students.Query(ctx, student.QueryFilter{Status: student.StatusActive, MokjangIDs: mokjangIDs})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	if len(students) == 0 {
		return []Absence{}, nil
	}

	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	lastAttended, err := svc.repo.LastAttended(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying last attendances")
	}
	return Absences(today, students, lastAttended), nil
}

// LongAbsence lists the active students away for at least `weeks` weeks.
func (svc *Service) LongAbsence(ctx context.Context, today core.Date, weeks int, mokjangIDs []string) ([]Absence, error) {
	absences, err := svc.Absences(ctx, today, mokjangIDs)
	if err != nil {
		return nil, err
	}
	return LongAbsent(absences, weeks), nil
}

// Stats returns the per-date counts in [from, to].
func (svc *Service) Stats(ctx context.Context, filter StatsFilter) ([]DailyCount, error) {
	return svc.repo.CountByDate(ctx, filter)
}
