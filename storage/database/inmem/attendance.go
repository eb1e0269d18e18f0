package inmemdb

import (
	"context"
	"sort"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/attendance"
	"github.com/sarang-youth/mokjang/core/student"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertLogs(_ context.Context, logs []attendance.Log) ([]attendance.Log, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, l := range logs {
		if _, ok := repo.db.students[l.StudentID]; !ok {
			return nil, core.NewValidationError(student.ErrNotFound, core.FieldError{Field: "student_id", Error: "unknown student " + l.StudentID})
		}
	}

	saved := make([]attendance.Log, len(logs))
	for i, l := range logs {
		key := attendanceKey{studentID: l.StudentID, date: l.Date.String()}
		if existing, ok := repo.db.attendance[key]; ok {
			existing.Status = l.Status
			existing.Memo = l.Memo
			existing.CheckedBy = copyStr(l.CheckedBy)
			existing.UpdatedAt = l.UpdatedAt
			saved[i] = *existing
			continue
		}
		l.ID = newID()
		l.CheckedBy = copyStr(l.CheckedBy)
		stored := l
		repo.db.attendance[key] = &stored
		saved[i] = l
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryLogs(_ context.Context, filter attendance.QueryFilter) ([]attendance.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	logs := make([]attendance.Log, 0)
	if filter.StudentIDs != nil && len(filter.StudentIDs) == 0 {
		return logs, nil
	}
	for _, l := range repo.db.attendance {
		if filter.StudentID != "" && l.StudentID != filter.StudentID {
			continue
		}
		if filter.StudentIDs != nil && !core.ContainsString(filter.StudentIDs, l.StudentID) {
			continue
		}
		if !filter.Date.IsZero() && !l.Date.Equal(filter.Date.Time) {
			continue
		}
		if !inRange(l.Date, filter.From, filter.To) {
			continue
		}
		logs = append(logs, *l)
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].Date.Equal(logs[j].Date.Time) {
			return logs[i].Date.After(logs[j].Date.Time)
		}
		return logs[i].StudentID < logs[j].StudentID
	})
	return logs, nil
}

func (repo *attendanceRepository) DeleteLog(_ context.Context, studentID string, date core.Date) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := attendanceKey{studentID: studentID, date: date.String()}
	if _, ok := repo.db.attendance[key]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.attendance, key)
	return nil
}

func (repo *attendanceRepository) LastAttended(_ context.Context, studentIDs []string) (map[string]core.Date, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	last := make(map[string]core.Date, len(studentIDs))
	for _, l := range repo.db.attendance {
		if !core.ContainsString(studentIDs, l.StudentID) || !core.ContainsString(attendance.PresentStatuses, l.Status) {
			continue
		}
		if d, ok := last[l.StudentID]; !ok || l.Date.After(d.Time) {
			last[l.StudentID] = l.Date
		}
	}
	return last, nil
}

func (repo *attendanceRepository) CountByDate(_ context.Context, filter attendance.StatsFilter) ([]attendance.DailyCount, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byDate := make(map[string]*attendance.DailyCount)
	for _, l := range repo.db.attendance {
		if !inRange(l.Date, filter.From, filter.To) {
			continue
		}
		if filter.MokjangID != "" {
			s, ok := repo.db.students[l.StudentID]
			if !ok || s.MokjangID == nil || *s.MokjangID != filter.MokjangID {
				continue
			}
		}
		c, ok := byDate[l.Date.String()]
		if !ok {
			c = &attendance.DailyCount{Date: l.Date}
			byDate[l.Date.String()] = c
		}
		switch l.Status {
		case attendance.StatusAttended:
			c.Attended++
		case attendance.StatusLate:
			c.Late++
		case attendance.StatusAbsent:
			c.Absent++
		case attendance.StatusExcused:
			c.Excused++
		}
	}

	counts := make([]attendance.DailyCount, 0, len(byDate))
	for _, c := range byDate {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Date.Before(counts[j].Date.Time) })
	return counts, nil
}
