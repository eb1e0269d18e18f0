package memo

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
)

var ErrNotFound = errors.Wrap(core.ErrNotFound, "memo")

type Memo struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Content   string    `json:"content"`
	IsPinned  bool      `json:"is_pinned"`
	AuthorID  *string   `json:"author_id"` // user id
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewMemo struct {
	Content  string `json:"content" validate:"required,notblank"`
	IsPinned bool   `json:"is_pinned"`
}

type UpdateMemo struct {
	Content  *string `json:"content" validate:"omitempty,notblank"`
	IsPinned *bool   `json:"is_pinned"`
}

type (
	Repository interface {
		CreateMemo(ctx context.Context, m Memo) (Memo, error)
		GetMemo(ctx context.Context, id string) (Memo, error)
		// QueryMemos returns the memos of a student, pinned first then newest first.
		QueryMemos(ctx context.Context, studentID string) ([]Memo, error)
		UpdateMemo(ctx context.Context, m Memo) (Memo, error)
		DeleteMemo(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, studentID string, data NewMemo, authorID string) (Memo, error) {
	data.Content = core.CleanString(data.Content)
	if err := svc.validate.Struct(data); err != nil {
		return Memo{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateMemo(ctx, Memo{
		StudentID: studentID,
		Content:   data.Content,
		IsPinned:  data.IsPinned,
		AuthorID:  &authorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) ForStudent(ctx context.Context, studentID string) ([]Memo, error) {
	return svc.repo.QueryMemos(ctx, studentID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Memo, error) {
	return svc.repo.GetMemo(ctx, id)
}

func (svc *Service) Update(ctx context.Context, m Memo, data UpdateMemo) (Memo, error) {
	if data.Content != nil {
		*data.Content = core.CleanString(*data.Content)
	}
	if err := svc.validate.Struct(data); err != nil {
		return Memo{}, err
	}
	if data.Content != nil {
		m.Content = *data.Content
	}
	if data.IsPinned != nil {
		m.IsPinned = *data.IsPinned
	}
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMemo(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteMemo(ctx, id)
}
