package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/student"
)

type studentRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Birth        null.Time      `db:"birth"`
	Phone        null.String    `db:"phone"`
	ParentPhone  null.String    `db:"parent_phone"`
	School       string         `db:"school"`
	Grade        string         `db:"grade"`
	Gender       string         `db:"gender"`
	IsBaptized   bool           `db:"is_baptized"`
	Status       string         `db:"status"`
	MokjangID    null.String    `db:"mokjang_id"`
	MinistryIDs  pq.StringArray `db:"ministry_ids"`
	Address      string         `db:"address"`
	Memo         string         `db:"memo"`
	RegisteredAt null.Time      `db:"registered_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func newStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:           s.ID,
		Name:         s.Name,
		Birth:        nullDate(s.Birth),
		Phone:        nullString(s.Phone),
		ParentPhone:  nullString(s.ParentPhone),
		School:       s.School,
		Grade:        s.Grade,
		Gender:       s.Gender,
		IsBaptized:   s.IsBaptized,
		Status:       s.Status,
		MokjangID:    nullStringPtr(s.MokjangID),
		Address:      s.Address,
		Memo:         s.Memo,
		RegisteredAt: nullDate(s.RegisteredAt),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:           r.ID,
		Name:         r.Name,
		Birth:        datePtr(r.Birth),
		Phone:        r.Phone.String,
		ParentPhone:  r.ParentPhone.String,
		School:       r.School,
		Grade:        r.Grade,
		Gender:       r.Gender,
		IsBaptized:   r.IsBaptized,
		Status:       r.Status,
		MokjangID:    r.MokjangID.Ptr(),
		MinistryIDs:  stringSlice(r.MinistryIDs),
		Address:      r.Address,
		Memo:         r.Memo,
		RegisteredAt: datePtr(r.RegisteredAt),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const selectStudentsQuery = `SELECT s.id, s.name, s.birth, s.phone, s.parent_phone, s.school, s.grade, s.gender,
s.is_baptized, s.status, s.mokjang_id, s.address, s.memo, s.registered_at, s.created_at, s.updated_at,
COALESCE((SELECT array_agg(ms.ministry_id::text ORDER BY ms.ministry_id) FROM ministry_student ms WHERE ms.student_id = s.id), '{}') AS ministry_ids
FROM student s`

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func mokjangFKErr(err error) error {
	if isForeignKeyViolation(err) {
		return core.NewValidationError(mokjang.ErrNotFound, core.FieldError{Field: "mokjang_id", Error: "unknown mokjang"})
	}
	return err
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	s.ID = newID()
	q := `INSERT INTO student (id, name, birth, phone, parent_phone, school, grade, gender, is_baptized, status,
mokjang_id, address, memo, registered_at, created_at, updated_at)
VALUES (:id, :name, :birth, :phone, :parent_phone, :school, :grade, :gender, :is_baptized, :status,
:mokjang_id, :address, :memo, :registered_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newStudentRow(s)); err != nil {
		return student.Student{}, errors.Wrap(mokjangFKErr(err), "inserting student")
	}
	return repo.GetStudent(ctx, s.ID)
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, selectStudentsQuery+` WHERE s.id::text = $1`, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound)
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error) {
	if (filter.IDs != nil && len(filter.IDs) == 0) || (filter.MokjangIDs != nil && len(filter.MokjangIDs) == 0) {
		return []student.Student{}, nil
	}

	var w where
	if filter.IDs != nil {
		w.add(`s.id::text = ANY(?)`, pq.Array(filter.IDs))
	}
	if filter.MokjangID != "" {
		w.add(`s.mokjang_id::text = ?`, filter.MokjangID)
	}
	if filter.MokjangIDs != nil {
		w.add(`s.mokjang_id::text = ANY(?)`, pq.Array(filter.MokjangIDs))
	}
	if filter.NoMokjang {
		w.add(`s.mokjang_id IS NULL`)
	}
	if filter.Status != "" {
		w.add(`s.status = ?`, filter.Status)
	}
	if filter.Grade != "" {
		w.add(`s.grade = ?`, filter.Grade)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		w.add(`(s.name ILIKE ? OR s.phone ILIKE ? OR s.parent_phone ILIKE ? OR s.school ILIKE ?)`, pattern, pattern, pattern, pattern)
	}

	orderBy := core.OrderBy(ordering, student.SortFields...)
	if orderBy == "" {
		orderBy = "name ASC"
	}
	q := repo.db.Rebind(selectStudentsQuery + w.String() + ` ORDER BY ` + orderBy + `, id`)

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, len(rows))
	for i, row := range rows {
		students[i] = row.toStudent()
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE student SET name = :name, birth = :birth, phone = :phone, parent_phone = :parent_phone,
school = :school, grade = :grade, gender = :gender, is_baptized = :is_baptized, status = :status,
mokjang_id = :mokjang_id, address = :address, memo = :memo, registered_at = :registered_at, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newStudentRow(s))
	if err != nil {
		return student.Student{}, errors.Wrap(mokjangFKErr(err), "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return repo.GetStudent(ctx, s.ID)
}

func (repo *studentRepository) MoveStudents(ctx context.Context, ids []string, mokjangID *string) (int, error) {
	q := `UPDATE student SET mokjang_id = $1, updated_at = $2 WHERE id::text = ANY($3)`
	res, err := repo.db.ExecContext(ctx, q, nullStringPtr(mokjangID), time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(mokjangFKErr(err), "moving students")
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id::text = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound)
}
