package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sarang-youth/mokjang/core/audit"
)

type loginLogRow struct {
	ID        string      `db:"id"`
	UserID    null.String `db:"user_id"`
	Username  string      `db:"username"`
	IP        string      `db:"ip"`
	UserAgent string      `db:"user_agent"`
	Success   bool        `db:"success"`
	CreatedAt time.Time   `db:"created_at"`
}

type changeLogRow struct {
	ID        string      `db:"id"`
	UserID    null.String `db:"user_id"`
	Action    string      `db:"action"`
	Entity    string      `db:"entity"`
	EntityID  string      `db:"entity_id"`
	Detail    null.JSON   `db:"detail"`
	CreatedAt time.Time   `db:"created_at"`
}

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *sqlx.DB) *auditRepository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateLoginLog(ctx context.Context, l audit.LoginLog) error {
	q := `INSERT INTO login_log (id, user_id, username, ip, user_agent, success, created_at)
VALUES (:id, :user_id, :username, :ip, :user_agent, :success, :created_at)`
	_, err := repo.db.NamedExecContext(ctx, q, loginLogRow{
		ID:        newID(),
		UserID:    nullStringPtr(l.UserID),
		Username:  l.Username,
		IP:        l.IP,
		UserAgent: l.UserAgent,
		Success:   l.Success,
		CreatedAt: l.CreatedAt,
	})
	return errors.Wrap(err, "inserting login log")
}

func (repo *auditRepository) CreateChangeLog(ctx context.Context, l audit.ChangeLog) error {
	q := `INSERT INTO data_change_log (id, user_id, action, entity, entity_id, detail, created_at)
VALUES (:id, :user_id, :action, :entity, :entity_id, :detail, :created_at)`
	_, err := repo.db.NamedExecContext(ctx, q, changeLogRow{
		ID:        newID(),
		UserID:    nullStringPtr(l.UserID),
		Action:    l.Action,
		Entity:    l.Entity,
		EntityID:  l.EntityID,
		Detail:    null.NewJSON(l.Detail, len(l.Detail) > 0),
		CreatedAt: l.CreatedAt,
	})
	return errors.Wrap(err, "inserting change log")
}

func auditWhere(filter audit.QueryFilter, withEntity bool) where {
	var w where
	if filter.UserID != "" {
		w.add(`user_id::text = ?`, filter.UserID)
	}
	if withEntity && filter.Entity != "" {
		w.add(`entity = ?`, filter.Entity)
	}
	if !filter.From.IsZero() {
		w.add(`created_at >= ?`, filter.From.Time)
	}
	if !filter.To.IsZero() {
		w.add(`created_at < ?`, filter.To.AddDays(1).Time)
	}
	return w
}

func (repo *auditRepository) QueryLoginLogs(ctx context.Context, filter audit.QueryFilter) ([]audit.LoginLog, error) {
	w := auditWhere(filter, false)
	q := repo.db.Rebind(`SELECT id, user_id, username, ip, user_agent, success, created_at FROM login_log` +
		w.String() + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	args := append(w.args, filter.Limit(), filter.Offset())

	var rows []loginLogRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying login logs")
	}
	logs := make([]audit.LoginLog, len(rows))
	for i, row := range rows {
		logs[i] = audit.LoginLog{
			ID:        row.ID,
			UserID:    row.UserID.Ptr(),
			Username:  row.Username,
			IP:        row.IP,
			UserAgent: row.UserAgent,
			Success:   row.Success,
			CreatedAt: row.CreatedAt.UTC(),
		}
	}
	return logs, nil
}

func (repo *auditRepository) QueryChangeLogs(ctx context.Context, filter audit.QueryFilter) ([]audit.ChangeLog, error) {
	w := auditWhere(filter, true)
	q := repo.db.Rebind(`SELECT id, user_id, action, entity, entity_id, detail, created_at FROM data_change_log` +
		w.String() + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	args := append(w.args, filter.Limit(), filter.Offset())

	var rows []changeLogRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying change logs")
	}
	logs := make([]audit.ChangeLog, len(rows))
	for i, row := range rows {
		l := audit.ChangeLog{
			ID:        row.ID,
			UserID:    row.UserID.Ptr(),
			Action:    row.Action,
			Entity:    row.Entity,
			EntityID:  row.EntityID,
			CreatedAt: row.CreatedAt.UTC(),
		}
		if row.Detail.Valid {
			l.Detail = row.Detail.JSON
		}
		logs[i] = l
	}
	return logs, nil
}
