package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/memo"
)

type memoRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	Content   string      `db:"content"`
	IsPinned  bool        `db:"is_pinned"`
	AuthorID  null.String `db:"author_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r memoRow) toMemo() memo.Memo {
	return memo.Memo{
		ID:        r.ID,
		StudentID: r.StudentID,
		Content:   r.Content,
		IsPinned:  r.IsPinned,
		AuthorID:  r.AuthorID.Ptr(),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const memoColumns = `id, student_id, content, is_pinned, author_id, created_at, updated_at`

type memoRepository struct {
	db *sqlx.DB
}

var _ memo.Repository = (*memoRepository)(nil)

func NewMemoRepository(db *sqlx.DB) *memoRepository {
	return &memoRepository{db: db}
}

func (repo *memoRepository) CreateMemo(ctx context.Context, m memo.Memo) (memo.Memo, error) {
	m.ID = newID()
	q := `INSERT INTO student_memo (` + memoColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q, m.ID, m.StudentID, m.Content, m.IsPinned, nullStringPtr(m.AuthorID), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return memo.Memo{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: "unknown student"})
		}
		return memo.Memo{}, errors.Wrap(err, "inserting memo")
	}
	return m, nil
}

func (repo *memoRepository) GetMemo(ctx context.Context, id string) (memo.Memo, error) {
	var row memoRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+memoColumns+` FROM student_memo WHERE id::text = $1`, id); err != nil {
		return memo.Memo{}, trapNoRowsErr(err, memo.ErrNotFound)
	}
	return row.toMemo(), nil
}

func (repo *memoRepository) QueryMemos(ctx context.Context, studentID string) ([]memo.Memo, error) {
	q := `SELECT ` + memoColumns + ` FROM student_memo WHERE student_id::text = $1 ORDER BY is_pinned DESC, created_at DESC`
	var rows []memoRow
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying memos")
	}
	memos := make([]memo.Memo, len(rows))
	for i, row := range rows {
		memos[i] = row.toMemo()
	}
	return memos, nil
}

func (repo *memoRepository) UpdateMemo(ctx context.Context, m memo.Memo) (memo.Memo, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE student_memo SET content = $2, is_pinned = $3, updated_at = $4 WHERE id = $1`,
		m.ID, m.Content, m.IsPinned, m.UpdatedAt,
	)
	if err != nil {
		return memo.Memo{}, errors.Wrap(err, "updating memo")
	}
	if err = checkAffected(res, memo.ErrNotFound); err != nil {
		return memo.Memo{}, err
	}
	return m, nil
}

func (repo *memoRepository) DeleteMemo(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student_memo WHERE id::text = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting memo")
	}
	return checkAffected(res, memo.ErrNotFound)
}
