package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/observation"
)

type observationRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	Date      core.Date   `db:"date"`
	Content   string      `db:"content"`
	TeacherID null.String `db:"teacher_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r observationRow) toObservation() observation.Observation {
	return observation.Observation{
		ID:        r.ID,
		StudentID: r.StudentID,
		Date:      r.Date,
		Content:   r.Content,
		TeacherID: r.TeacherID.Ptr(),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const observationColumns = `id, student_id, date, content, teacher_id, created_at, updated_at`

type observationRepository struct {
	db *sqlx.DB
}

var _ observation.Repository = (*observationRepository)(nil)

func NewObservationRepository(db *sqlx.DB) *observationRepository {
	return &observationRepository{db: db}
}

func (repo *observationRepository) CreateObservation(ctx context.Context, o observation.Observation) (observation.Observation, error) {
	o.ID = newID()
	q := `INSERT INTO student_observation (` + observationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q, o.ID, o.StudentID, o.Date, o.Content, nullStringPtr(o.TeacherID), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return observation.Observation{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: "unknown student"})
		}
		return observation.Observation{}, errors.Wrap(err, "inserting observation")
	}
	return o, nil
}

func (repo *observationRepository) GetObservation(ctx context.Context, id string) (observation.Observation, error) {
	var row observationRow
	q := `SELECT ` + observationColumns + ` FROM student_observation WHERE id::text = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return observation.Observation{}, trapNoRowsErr(err, observation.ErrNotFound)
	}
	return row.toObservation(), nil
}

func (repo *observationRepository) QueryObservations(ctx context.Context, filter observation.QueryFilter) ([]observation.Observation, error) {
	var w where
	if filter.StudentID != "" {
		w.add(`student_id::text = ?`, filter.StudentID)
	}
	if filter.TeacherID != "" {
		w.add(`teacher_id::text = ?`, filter.TeacherID)
	}
	if !filter.From.IsZero() {
		w.add(`date >= ?`, filter.From)
	}
	if !filter.To.IsZero() {
		w.add(`date <= ?`, filter.To)
	}

	q := repo.db.Rebind(`SELECT ` + observationColumns + ` FROM student_observation` + w.String() + ` ORDER BY date DESC, created_at DESC`)
	var rows []observationRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying observations")
	}
	observations := make([]observation.Observation, len(rows))
	for i, row := range rows {
		observations[i] = row.toObservation()
	}
	return observations, nil
}

func (repo *observationRepository) UpdateObservation(ctx context.Context, o observation.Observation) (observation.Observation, error) {
	q := `UPDATE student_observation SET date = $2, content = $3, updated_at = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, o.ID, o.Date, o.Content, o.UpdatedAt)
	if err != nil {
		return observation.Observation{}, errors.Wrap(err, "updating observation")
	}
	if err = checkAffected(res, observation.ErrNotFound); err != nil {
		return observation.Observation{}, err
	}
	return o, nil
}

func (repo *observationRepository) DeleteObservation(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student_observation WHERE id::text = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting observation")
	}
	return checkAffected(res, observation.ErrNotFound)
}
