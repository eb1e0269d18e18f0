package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sarang-youth/mokjang/core/teacher"
	"github.com/sarang-youth/mokjang/core/user"
)

type teacherRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Username    string         `db:"username"`
	IsActive    bool           `db:"is_active"`
	Name        string         `db:"name"`
	Phone       null.String    `db:"phone"`
	Email       null.String    `db:"email"`
	Birth       null.Time      `db:"birth"`
	Status      string         `db:"status"`
	Memo        string         `db:"memo"`
	MokjangIDs  pq.StringArray `db:"mokjang_ids"`
	MinistryIDs pq.StringArray `db:"ministry_ids"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r teacherRow) toTeacher() teacher.Teacher {
	return teacher.Teacher{
		ID:          r.ID,
		UserID:      r.UserID,
		Username:    r.Username,
		IsActive:    r.IsActive,
		Name:        r.Name,
		Phone:       r.Phone.String,
		Email:       r.Email.String,
		Birth:       datePtr(r.Birth),
		Status:      r.Status,
		Memo:        r.Memo,
		MokjangIDs:  stringSlice(r.MokjangIDs),
		MinistryIDs: stringSlice(r.MinistryIDs),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

const selectTeachersQuery = `SELECT t.id, t.user_id, u.username, u.is_active, t.name, t.phone, t.email, t.birth,
t.status, t.memo, t.created_at, t.updated_at,
COALESCE((SELECT array_agg(mt.mokjang_id::text ORDER BY mt.mokjang_id) FROM mokjang_teacher mt WHERE mt.teacher_id = t.id), '{}') AS mokjang_ids,
COALESCE((SELECT array_agg(mi.ministry_id::text ORDER BY mi.ministry_id) FROM ministry_teacher mi WHERE mi.teacher_id = t.id), '{}') AS ministry_ids
FROM teacher t JOIN "user" u ON u.id = t.user_id`

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *sqlx.DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, usr user.User, t teacher.Teacher) (teacher.Teacher, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, &usr); err != nil {
			return err
		}

		t.ID = newID()
		q := `INSERT INTO teacher (id, user_id, name, phone, email, birth, status, memo, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err := tx.ExecContext(ctx, q,
			t.ID, usr.ID, t.Name, nullString(t.Phone), nullString(t.Email), nullDate(t.Birth),
			t.Status, t.Memo, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "inserting teacher")
		}
		return replaceLinks(ctx, tx, "mokjang_teacher", "teacher_id", "mokjang_id", t.ID, t.MokjangIDs)
	})
	if err != nil {
		return teacher.Teacher{}, err
	}
	return repo.GetTeacher(ctx, teacher.GetFilter{ID: t.ID})
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, filter teacher.GetFilter) (teacher.Teacher, error) {
	q := selectTeachersQuery + ` WHERE `
	var arg string
	switch {
	case filter.ID != "":
		q += `t.id::text = $1`
		arg = filter.ID
	case filter.UserID != "":
		q += `t.user_id::text = $1`
		arg = filter.UserID
	default:
		return teacher.Teacher{}, teacher.ErrNotFound
	}

	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound)
	}
	return row.toTeacher(), nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, filter teacher.QueryFilter) ([]teacher.Teacher, error) {
	var w where
	if filter.Status != "" {
		w.add(`t.status = ?`, filter.Status)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		w.add(`(t.name ILIKE ? OR t.phone ILIKE ? OR t.email ILIKE ? OR u.username ILIKE ?)`, pattern, pattern, pattern, pattern)
	}
	if filter.MokjangID != "" {
		w.add(`EXISTS (SELECT 1 FROM mokjang_teacher mt WHERE mt.teacher_id = t.id AND mt.mokjang_id::text = ?)`, filter.MokjangID)
	}

	q := repo.db.Rebind(selectTeachersQuery + w.String() + ` ORDER BY t.name`)
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]teacher.Teacher, len(rows))
	for i, row := range rows {
		teachers[i] = row.toTeacher()
	}
	return teachers, nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `UPDATE teacher SET name = $2, phone = $3, email = $4, birth = $5, status = $6, memo = $7, updated_at = $8
WHERE id = $1`
		res, err := tx.ExecContext(ctx, q,
			t.ID, t.Name, nullString(t.Phone), nullString(t.Email), nullDate(t.Birth), t.Status, t.Memo, t.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "updating teacher")
		}
		if err = checkAffected(res, teacher.ErrNotFound); err != nil {
			return err
		}

		q = `UPDATE "user" SET name = $2, is_active = $3, updated_at = $4 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, q, t.UserID, t.Name, t.IsActive, t.UpdatedAt); err != nil {
			return errors.Wrap(err, "updating teacher user")
		}
		return replaceLinks(ctx, tx, "mokjang_teacher", "teacher_id", "mokjang_id", t.ID, t.MokjangIDs)
	})
	if err != nil {
		return teacher.Teacher{}, err
	}
	return repo.GetTeacher(ctx, teacher.GetFilter{ID: t.ID})
}

func (repo *teacherRepository) DeleteTeacher(ctx context.Context, id string) error {
	// the teacher row cascades from its user
	q := `DELETE FROM "user" WHERE id = (SELECT user_id FROM teacher WHERE id::text = $1)`
	res, err := repo.db.ExecContext(ctx, q, id)
	if err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return checkAffected(res, teacher.ErrNotFound)
}
