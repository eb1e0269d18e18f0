package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core/mokjang"
)

type mokjangRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	TargetGrade  string         `db:"target_grade"`
	IsActive     bool           `db:"is_active"`
	TeacherIDs   pq.StringArray `db:"teacher_ids"`
	StudentCount int            `db:"student_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r mokjangRow) toMokjang() mokjang.Mokjang {
	return mokjang.Mokjang{
		ID:           r.ID,
		Name:         r.Name,
		TargetGrade:  r.TargetGrade,
		IsActive:     r.IsActive,
		TeacherIDs:   stringSlice(r.TeacherIDs),
		StudentCount: r.StudentCount,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const selectMokjangsQuery = `SELECT m.id, m.name, m.target_grade, m.is_active, m.created_at, m.updated_at,
COALESCE((SELECT array_agg(mt.teacher_id::text ORDER BY mt.teacher_id) FROM mokjang_teacher mt WHERE mt.mokjang_id = m.id), '{}') AS teacher_ids,
(SELECT COUNT(*) FROM student s WHERE s.mokjang_id = m.id AND s.status = 'active') AS student_count
FROM mokjang m`

type mokjangRepository struct {
	db *sqlx.DB
}

var _ mokjang.Repository = (*mokjangRepository)(nil)

func NewMokjangRepository(db *sqlx.DB) *mokjangRepository {
	return &mokjangRepository{db: db}
}

func (repo *mokjangRepository) CheckNameUniqueness(ctx context.Context, name, excludedID string) error {
	var found bool
	q := `SELECT EXISTS (SELECT 1 FROM mokjang WHERE lower(name) = lower($1) AND id::text <> $2)`
	if err := repo.db.GetContext(ctx, &found, q, name, excludedID); err != nil {
		return errors.Wrap(err, "checking mokjang name")
	}
	if found {
		return mokjang.ErrNameExists
	}
	return nil
}

func (repo *mokjangRepository) CreateMokjang(ctx context.Context, m mokjang.Mokjang) (mokjang.Mokjang, error) {
	m.ID = newID()
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO mokjang (id, name, target_grade, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, q, m.ID, m.Name, m.TargetGrade, m.IsActive, m.CreatedAt, m.UpdatedAt); err != nil {
			if ok, _ := isUniqueViolation(err); ok {
				return mokjang.ErrNameExists
			}
			return errors.Wrap(err, "inserting mokjang")
		}
		return replaceLinks(ctx, tx, "mokjang_teacher", "mokjang_id", "teacher_id", m.ID, m.TeacherIDs)
	})
	if err != nil {
		return mokjang.Mokjang{}, err
	}
	return repo.GetMokjang(ctx, m.ID)
}

func (repo *mokjangRepository) GetMokjang(ctx context.Context, id string) (mokjang.Mokjang, error) {
	var row mokjangRow
	if err := repo.db.GetContext(ctx, &row, selectMokjangsQuery+` WHERE m.id::text = $1`, id); err != nil {
		return mokjang.Mokjang{}, trapNoRowsErr(err, mokjang.ErrNotFound)
	}
	return row.toMokjang(), nil
}

func (repo *mokjangRepository) QueryMokjangs(ctx context.Context, filter mokjang.QueryFilter) ([]mokjang.Mokjang, error) {
	var w where
	if filter.IsActive != nil {
		w.add(`m.is_active = ?`, *filter.IsActive)
	}
	if filter.TeacherID != "" {
		w.add(`EXISTS (SELECT 1 FROM mokjang_teacher mt WHERE mt.mokjang_id = m.id AND mt.teacher_id::text = ?)`, filter.TeacherID)
	}

	q := repo.db.Rebind(selectMokjangsQuery + w.String() + ` ORDER BY m.name`)
	var rows []mokjangRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying mokjangs")
	}
	mokjangs := make([]mokjang.Mokjang, len(rows))
	for i, row := range rows {
		mokjangs[i] = row.toMokjang()
	}
	return mokjangs, nil
}

func (repo *mokjangRepository) UpdateMokjang(ctx context.Context, m mokjang.Mokjang) (mokjang.Mokjang, error) {
	q := `UPDATE mokjang SET name = $2, target_grade = $3, is_active = $4, updated_at = $5 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, m.ID, m.Name, m.TargetGrade, m.IsActive, m.UpdatedAt)
	if err != nil {
		if ok, _ := isUniqueViolation(err); ok {
			return mokjang.Mokjang{}, mokjang.ErrNameExists
		}
		return mokjang.Mokjang{}, errors.Wrap(err, "updating mokjang")
	}
	if err = checkAffected(res, mokjang.ErrNotFound); err != nil {
		return mokjang.Mokjang{}, err
	}
	return repo.GetMokjang(ctx, m.ID)
}

func (repo *mokjangRepository) SetTeachers(ctx context.Context, id string, teacherIDs []string) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return replaceLinks(ctx, tx, "mokjang_teacher", "mokjang_id", "teacher_id", id, teacherIDs)
	})
}

func (repo *mokjangRepository) DeleteMokjang(ctx context.Context, id string) error {
	// students are detached by ON DELETE SET NULL
	res, err := repo.db.ExecContext(ctx, `DELETE FROM mokjang WHERE id::text = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting mokjang")
	}
	return checkAffected(res, mokjang.ErrNotFound)
}
