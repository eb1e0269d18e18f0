package ministry

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
)

var (
	ErrNotFound   = errors.Wrap(core.ErrNotFound, "ministry")
	ErrNameExists = errors.New("a ministry with this name already exists")
)

// Ministry is a serving team (praise, media, ...) made of teachers and students.
type Ministry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TeacherIDs  []string  `json:"teacher_ids"`
	StudentIDs  []string  `json:"student_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewMinistry struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
}

type UpdateMinistry struct {
	Name        *string `json:"name" validate:"omitempty,notblank"`
	Description *string `json:"description"`
}

type SetMembers struct {
	TeacherIDs []string `json:"teacher_ids" validate:"omitempty,dive,uuid"`
	StudentIDs []string `json:"student_ids" validate:"omitempty,dive,uuid"`
}

type (
	Repository interface {
		// CheckNameUniqueness returns ErrNameExists when another ministry (not excludedID) has this name.
		CheckNameUniqueness(ctx context.Context, name, excludedID string) error
		CreateMinistry(ctx context.Context, m Ministry) (Ministry, error)
		GetMinistry(ctx context.Context, id string) (Ministry, error)
		QueryMinistries(ctx context.Context) ([]Ministry, error)
		UpdateMinistry(ctx context.Context, m Ministry) (Ministry, error)
		// SetMembers replaces the teachers and students of the ministry.
		SetMembers(ctx context.Context, id string, teacherIDs, studentIDs []string) error
		DeleteMinistry(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) checkName(ctx context.Context, name, excludedID string) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, excludedID); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return errors.Wrap(err, "checking name uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, data NewMinistry) (Ministry, error) {
	data.Name = core.CleanString(data.Name)
	data.Description = core.CleanString(data.Description)
	if err := svc.validate.Struct(data); err != nil {
		return Ministry{}, err
	}
	if err := svc.checkName(ctx, data.Name, ""); err != nil {
		return Ministry{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateMinistry(ctx, Ministry{
		Name:        data.Name,
		Description: data.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context) ([]Ministry, error) {
	return svc.repo.QueryMinistries(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Ministry, error) {
	return svc.repo.GetMinistry(ctx, id)
}

func (svc *Service) Update(ctx context.Context, m Ministry, data UpdateMinistry) (Ministry, error) {
	if data.Name != nil {
		*data.Name = core.CleanString(*data.Name)
	}
	if err := svc.validate.Struct(data); err != nil {
		return Ministry{}, err
	}
	if data.Name != nil && *data.Name != m.Name {
		if err := svc.checkName(ctx, *data.Name, m.ID); err != nil {
			return Ministry{}, err
		}
		m.Name = *data.Name
	}
	if data.Description != nil {
		m.Description = core.CleanString(*data.Description)
	}
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMinistry(ctx, m)
}

func (svc *Service) SetMembers(ctx context.Context, m Ministry, data SetMembers) (Ministry, error) {
	data.TeacherIDs = core.UniqueStrings(data.TeacherIDs)
	data.StudentIDs = core.UniqueStrings(data.StudentIDs)
	if err := svc.validate.Struct(data); err != nil {
		return Ministry{}, err
	}
	if err := svc.repo.SetMembers(ctx, m.ID, data.TeacherIDs, data.StudentIDs); err != nil {
		return Ministry{}, err
	}
	return svc.repo.GetMinistry(ctx, m.ID)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteMinistry(ctx, id)
}
