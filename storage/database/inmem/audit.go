package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/sarang-youth/mokjang/core/audit"
)

type auditRepository struct {
	db *DB
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateLoginLog(_ context.Context, l audit.LoginLog) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l.ID = newID()
	l.UserID = copyStr(l.UserID)
	repo.db.loginLogs = append(repo.db.loginLogs, l)
	return nil
}

func (repo *auditRepository) CreateChangeLog(_ context.Context, l audit.ChangeLog) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l.ID = newID()
	l.UserID = copyStr(l.UserID)
	repo.db.changeLogs = append(repo.db.changeLogs, l)
	return nil
}

func matchAudit(filter audit.QueryFilter, userID *string, createdAt time.Time) bool {
	if filter.UserID != "" && (userID == nil || *userID != filter.UserID) {
		return false
	}
	if !filter.From.IsZero() && createdAt.Before(filter.From.Time) {
		return false
	}
	if !filter.To.IsZero() && !createdAt.Before(filter.To.AddDays(1).Time) {
		return false
	}
	return true
}

// paginate returns the [start, end) bounds of the requested page within n items.
func paginate(filter audit.QueryFilter, n int) (int, int) {
	start := filter.Offset()
	if start > n {
		start = n
	}
	end := start + filter.Limit()
	if end > n {
		end = n
	}
	return start, end
}

func (repo *auditRepository) QueryLoginLogs(_ context.Context, filter audit.QueryFilter) ([]audit.LoginLog, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	logs := make([]audit.LoginLog, 0)
	for _, l := range repo.db.loginLogs {
		if matchAudit(filter, l.UserID, l.CreatedAt) {
			logs = append(logs, l)
		}
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })
	start, end := paginate(filter, len(logs))
	return logs[start:end], nil
}

func (repo *auditRepository) QueryChangeLogs(_ context.Context, filter audit.QueryFilter) ([]audit.ChangeLog, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	logs := make([]audit.ChangeLog, 0)
	for _, l := range repo.db.changeLogs {
		if filter.Entity != "" && l.Entity != filter.Entity {
			continue
		}
		if matchAudit(filter, l.UserID, l.CreatedAt) {
			logs = append(logs, l)
		}
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })
	start, end := paginate(filter, len(logs))
	return logs[start:end], nil
}
