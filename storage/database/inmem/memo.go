package inmemdb

import (
	"context"
	"sort"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/memo"
)

type memoRepository struct {
	db *DB
}

var _ memo.Repository = (*memoRepository)(nil)

func NewMemoRepository(db *DB) *memoRepository {
	return &memoRepository{db: db}
}

func (repo *memoRepository) CreateMemo(_ context.Context, m memo.Memo) (memo.Memo, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[m.StudentID]; !ok {
		return memo.Memo{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "unknown student"})
	}
	m.ID = newID()
	m.AuthorID = copyStr(m.AuthorID)
	stored := m
	repo.db.memos[m.ID] = &stored
	return m, nil
}

func (repo *memoRepository) GetMemo(_ context.Context, id string) (memo.Memo, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.memos[id]; ok {
		return *m, nil
	}
	return memo.Memo{}, memo.ErrNotFound
}

func (repo *memoRepository) QueryMemos(_ context.Context, studentID string) ([]memo.Memo, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	memos := make([]memo.Memo, 0)
	for _, m := range repo.db.memos {
		if m.StudentID == studentID {
			memos = append(memos, *m)
		}
	}
	sort.Slice(memos, func(i, j int) bool {
		if memos[i].IsPinned != memos[j].IsPinned {
			return memos[i].IsPinned
		}
		return memos[i].CreatedAt.After(memos[j].CreatedAt)
	})
	return memos, nil
}

func (repo *memoRepository) UpdateMemo(_ context.Context, m memo.Memo) (memo.Memo, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored, ok := repo.db.memos[m.ID]
	if !ok {
		return memo.Memo{}, memo.ErrNotFound
	}
	stored.Content = m.Content
	stored.IsPinned = m.IsPinned
	stored.UpdatedAt = m.UpdatedAt
	return *stored, nil
}

func (repo *memoRepository) DeleteMemo(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.memos[id]; !ok {
		return memo.ErrNotFound
	}
	delete(repo.db.memos, id)
	return nil
}
