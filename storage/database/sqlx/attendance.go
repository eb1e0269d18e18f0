package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/attendance"
	"github.com/sarang-youth/mokjang/core/student"
)

type attendanceRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	Date      core.Date   `db:"date"`
	Status    string      `db:"status"`
	Memo      string      `db:"memo"`
	CheckedBy null.String `db:"checked_by"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r attendanceRow) toLog() attendance.Log {
	return attendance.Log{
		ID:        r.ID,
		StudentID: r.StudentID,
		Date:      r.Date,
		Status:    r.Status,
		Memo:      r.Memo,
		CheckedBy: r.CheckedBy.Ptr(),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const attendanceColumns = `id, student_id, date, status, memo, checked_by, created_at, updated_at`

// upsertAttendanceQuery relies on the (student_id, date) unique constraint:
// concurrent saves of the same student and date update a single row.
const upsertAttendanceQuery = `INSERT INTO attendance_log (` + attendanceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT ON CONSTRAINT attendance_log_student_date_key DO UPDATE SET
status = EXCLUDED.status, memo = EXCLUDED.memo, checked_by = EXCLUDED.checked_by, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceColumns

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertLogs(ctx context.Context, logs []attendance.Log) ([]attendance.Log, error) {
	saved := make([]attendance.Log, 0, len(logs))
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, l := range logs {
			var row attendanceRow
			err := tx.QueryRowxContext(ctx, upsertAttendanceQuery,
				newID(), l.StudentID, l.Date, l.Status, l.Memo, nullStringPtr(l.CheckedBy), l.CreatedAt, l.UpdatedAt,
			).StructScan(&row)
			if err != nil {
				if isForeignKeyViolation(err) {
					return core.NewValidationError(student.ErrNotFound, core.FieldError{Field: "student_id", Error: "unknown student " + l.StudentID})
				}
				return errors.Wrap(err, "upserting attendance log")
			}
			saved = append(saved, row.toLog())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryLogs(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Log, error) {
	if filter.StudentIDs != nil && len(filter.StudentIDs) == 0 {
		return []attendance.Log{}, nil
	}

	var w where
	if filter.StudentID != "" {
		w.add(`student_id::text = ?`, filter.StudentID)
	}
	if filter.StudentIDs != nil {
		w.add(`student_id::text = ANY(?)`, pq.Array(filter.StudentIDs))
	}
	if !filter.Date.IsZero() {
		w.add(`date = ?`, filter.Date)
	}
	if !filter.From.IsZero() {
		w.add(`date >= ?`, filter.From)
	}
	if !filter.To.IsZero() {
		w.add(`date <= ?`, filter.To)
	}

	q := repo.db.Rebind(`SELECT ` + attendanceColumns + ` FROM attendance_log` + w.String() + ` ORDER BY date DESC, student_id`)
	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance logs")
	}
	logs := make([]attendance.Log, len(rows))
	for i, row := range rows {
		logs[i] = row.toLog()
	}
	return logs, nil
}

func (repo *attendanceRepository) DeleteLog(ctx context.Context, studentID string, date core.Date) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM attendance_log WHERE student_id::text = $1 AND date = $2`, studentID, date)
	if err != nil {
		return errors.Wrap(err, "deleting attendance log")
	}
	return checkAffected(res, attendance.ErrNotFound)
}

func (repo *attendanceRepository) LastAttended(ctx context.Context, studentIDs []string) (map[string]core.Date, error) {
	last := make(map[string]core.Date, len(studentIDs))
	if len(studentIDs) == 0 {
		return last, nil
	}

	q := `SELECT student_id, MAX(date) AS last_date FROM attendance_log
WHERE student_id::text = ANY($1) AND status = ANY($2)
GROUP BY student_id`
	var rows []struct {
		StudentID string    `db:"student_id"`
		LastDate  core.Date `db:"last_date"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(studentIDs), pq.Array(attendance.PresentStatuses)); err != nil {
		return nil, errors.Wrap(err, "querying last attendances")
	}
	for _, row := range rows {
		last[row.StudentID] = row.LastDate
	}
	return last, nil
}

func (repo *attendanceRepository) CountByDate(ctx context.Context, filter attendance.StatsFilter) ([]attendance.DailyCount, error) {
	q := `SELECT a.date,
COUNT(*) FILTER (WHERE a.status = 'attended') AS attended,
COUNT(*) FILTER (WHERE a.status = 'late') AS late,
COUNT(*) FILTER (WHERE a.status = 'absent') AS absent,
COUNT(*) FILTER (WHERE a.status = 'excused') AS excused
FROM attendance_log a JOIN student s ON s.id = a.student_id
WHERE a.date >= $1 AND a.date <= $2`
	args := []interface{}{filter.From, filter.To}
	if filter.MokjangID != "" {
		q += ` AND s.mokjang_id::text = $3`
		args = append(args, filter.MokjangID)
	}
	q += ` GROUP BY a.date ORDER BY a.date`

	counts := make([]attendance.DailyCount, 0)
	if err := queries.Raw(q, args...).Bind(ctx, repo.db, &counts); err != nil {
		return nil, errors.Wrap(err, "counting attendance")
	}
	return counts, nil
}
