package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
)

var ErrNotFound = errors.Wrap(core.ErrNotFound, "student")

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// An empty (non-nil) QueryFilter.IDs or QueryFilter.MokjangIDs matches no student.
		QueryStudents(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		// MoveStudents sets the mokjang of the students and returns how many were moved.
		MoveStudents(ctx context.Context, ids []string, mokjangID *string) (int, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, data NewStudent) (Student, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateStudent(ctx, Student{
		Name:         data.Name,
		Birth:        data.Birth,
		Phone:        data.Phone,
		ParentPhone:  data.ParentPhone,
		School:       data.School,
		Grade:        data.Grade,
		Gender:       data.Gender,
		IsBaptized:   data.IsBaptized,
		Status:       data.Status,
		MokjangID:    data.MokjangID,
		Address:      data.Address,
		Memo:         data.Memo,
		RegisteredAt: data.RegisteredAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QueryStudents(ctx, filter, ordering...)
}

// Active returns the active students, optionally restricted to some mokjangs.
func (svc *Service) Active(ctx context.Context, mokjangIDs []string) ([]Student, error) {
	return svc.Query(ctx, QueryFilter{Status: StatusActive, MokjangIDs: mokjangIDs})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Update(ctx context.Context, s Student, data UpdateStudent) (Student, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return Student{}, err
	}
	data.apply(&s)
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) Move(ctx context.Context, data MoveStudents) (int, error) {
	data.StudentIDs = core.UniqueStrings(data.StudentIDs)
	if data.MokjangID != nil && *data.MokjangID == "" {
		data.MokjangID = nil
	}
	if err := svc.validate.Struct(data); err != nil {
		return 0, err
	}
	return svc.repo.MoveStudents(ctx, data.StudentIDs, data.MokjangID)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}
