package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/report"
)

type reportRow struct {
	ID             string      `db:"id"`
	MokjangID      string      `db:"mokjang_id"`
	Date           core.Date   `db:"date"`
	Content        string      `db:"content"`
	PrayerRequests string      `db:"prayer_requests"`
	Suggestions    string      `db:"suggestions"`
	AuthorID       null.String `db:"author_id"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func (r reportRow) toReport() report.Report {
	return report.Report{
		ID:             r.ID,
		MokjangID:      r.MokjangID,
		Date:           r.Date,
		Content:        r.Content,
		PrayerRequests: r.PrayerRequests,
		Suggestions:    r.Suggestions,
		AuthorID:       r.AuthorID.Ptr(),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

const reportColumns = `id, mokjang_id, date, content, prayer_requests, suggestions, author_id, created_at, updated_at`

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) UpsertReport(ctx context.Context, r report.Report) (report.Report, bool, error) {
	// xmax is 0 for freshly inserted rows
	q := `INSERT INTO report (` + reportColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT ON CONSTRAINT report_mokjang_date_key DO UPDATE SET
content = EXCLUDED.content, prayer_requests = EXCLUDED.prayer_requests, suggestions = EXCLUDED.suggestions,
author_id = EXCLUDED.author_id, updated_at = EXCLUDED.updated_at
RETURNING ` + reportColumns + `, (xmax = 0) AS inserted`

	var row struct {
		reportRow
		Inserted bool `db:"inserted"`
	}
	err := repo.db.QueryRowxContext(ctx, q,
		newID(), r.MokjangID, r.Date, r.Content, r.PrayerRequests, r.Suggestions,
		nullStringPtr(r.AuthorID), r.CreatedAt, r.UpdatedAt,
	).StructScan(&row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return report.Report{}, false, core.NewValidationError(err, core.FieldError{Field: "mokjang_id", Error: "unknown mokjang"})
		}
		return report.Report{}, false, errors.Wrap(err, "upserting report")
	}
	return row.toReport(), row.Inserted, nil
}

func (repo *reportRepository) GetReport(ctx context.Context, id string) (report.Report, error) {
	var row reportRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+reportColumns+` FROM report WHERE id::text = $1`, id); err != nil {
		return report.Report{}, trapNoRowsErr(err, report.ErrNotFound)
	}
	return row.toReport(), nil
}

func (repo *reportRepository) QueryReports(ctx context.Context, filter report.QueryFilter) ([]report.Report, error) {
	if filter.MokjangIDs != nil && len(filter.MokjangIDs) == 0 {
		return []report.Report{}, nil
	}

	var w where
	if filter.MokjangID != "" {
		w.add(`mokjang_id::text = ?`, filter.MokjangID)
	}
	if filter.MokjangIDs != nil {
		w.add(`mokjang_id::text = ANY(?)`, pq.Array(filter.MokjangIDs))
	}
	if !filter.From.IsZero() {
		w.add(`date >= ?`, filter.From)
	}
	if !filter.To.IsZero() {
		w.add(`date <= ?`, filter.To)
	}

	q := repo.db.Rebind(`SELECT ` + reportColumns + ` FROM report` + w.String() + ` ORDER BY date DESC, created_at DESC`)
	var rows []reportRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	reports := make([]report.Report, len(rows))
	for i, row := range rows {
		reports[i] = row.toReport()
	}
	return reports, nil
}

func (repo *reportRepository) DeleteReport(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM report WHERE id::text = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting report")
	}
	return checkAffected(res, report.ErrNotFound)
}
