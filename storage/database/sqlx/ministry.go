package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core/ministry"
)

type ministryRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	TeacherIDs  pq.StringArray `db:"teacher_ids"`
	StudentIDs  pq.StringArray `db:"student_ids"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r ministryRow) toMinistry() ministry.Ministry {
	return ministry.Ministry{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		TeacherIDs:  stringSlice(r.TeacherIDs),
		StudentIDs:  stringSlice(r.StudentIDs),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

const selectMinistriesQuery = `SELECT m.id, m.name, m.description, m.created_at, m.updated_at,
COALESCE((SELECT array_agg(mt.teacher_id::text ORDER BY mt.teacher_id) FROM ministry_teacher mt WHERE mt.ministry_id = m.id), '{}') AS teacher_ids,
COALESCE((SELECT array_agg(ms.student_id::text ORDER BY ms.student_id) FROM ministry_student ms WHERE ms.ministry_id = m.id), '{}') AS student_ids
FROM ministry m`

type ministryRepository struct {
	db *sqlx.DB
}

var _ ministry.Repository = (*ministryRepository)(nil)

func NewMinistryRepository(db *sqlx.DB) *ministryRepository {
	return &ministryRepository{db: db}
}

func (repo *ministryRepository) CheckNameUniqueness(ctx context.Context, name, excludedID string) error {
	var found bool
	q := `SELECT EXISTS (SELECT 1 FROM ministry WHERE lower(name) = lower($1) AND id::text <> $2)`
	if err := repo.db.GetContext(ctx, &found, q, name, excludedID); err != nil {
		return errors.Wrap(err, "checking ministry name")
	}
	if found {
		return ministry.ErrNameExists
	}
	return nil
}

func (repo *ministryRepository) CreateMinistry(ctx context.Context, m ministry.Ministry) (ministry.Ministry, error) {
	m.ID = newID()
	q := `INSERT INTO ministry (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, q, m.ID, m.Name, m.Description, m.CreatedAt, m.UpdatedAt); err != nil {
		if ok, _ := isUniqueViolation(err); ok {
			return ministry.Ministry{}, ministry.ErrNameExists
		}
		return ministry.Ministry{}, errors.Wrap(err, "inserting ministry")
	}
	return repo.GetMinistry(ctx, m.ID)
}

func (repo *ministryRepository) GetMinistry(ctx context.Context, id string) (ministry.Ministry, error) {
	var row ministryRow
	if err := repo.db.GetContext(ctx, &row, selectMinistriesQuery+` WHERE m.id::text = $1`, id); err != nil {
		return ministry.Ministry{}, trapNoRowsErr(err, ministry.ErrNotFound)
	}
	return row.toMinistry(), nil
}

func (repo *ministryRepository) QueryMinistries(ctx context.Context) ([]ministry.Ministry, error) {
	var rows []ministryRow
	if err := repo.db.SelectContext(ctx, &rows, selectMinistriesQuery+` ORDER BY m.name`); err != nil {
		return nil, errors.Wrap(err, "querying ministries")
	}
	ministries := make([]ministry.Ministry, len(rows))
	for i, row := range rows {
		ministries[i] = row.toMinistry()
	}
	return ministries, nil
}

func (repo *ministryRepository) UpdateMinistry(ctx context.Context, m ministry.Ministry) (ministry.Ministry, error) {
	q := `UPDATE ministry SET name = $2, description = $3, updated_at = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, m.ID, m.Name, m.Description, m.UpdatedAt)
	if err != nil {
		if ok, _ := isUniqueViolation(err); ok {
			return ministry.Ministry{}, ministry.ErrNameExists
		}
		return ministry.Ministry{}, errors.Wrap(err, "updating ministry")
	}
	if err = checkAffected(res, ministry.ErrNotFound); err != nil {
		return ministry.Ministry{}, err
	}
	return repo.GetMinistry(ctx, m.ID)
}

func (repo *ministryRepository) SetMembers(ctx context.Context, id string, teacherIDs, studentIDs []string) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := replaceLinks(ctx, tx, "ministry_teacher", "ministry_id", "teacher_id", id, teacherIDs); err != nil {
			return err
		}
		return replaceLinks(ctx, tx, "ministry_student", "ministry_id", "student_id", id, studentIDs)
	})
}

func (repo *ministryRepository) DeleteMinistry(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM ministry WHERE id::text = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting ministry")
	}
	return checkAffected(res, ministry.ErrNotFound)
}
