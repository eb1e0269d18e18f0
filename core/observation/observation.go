package observation

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
)

var ErrNotFound = errors.Wrap(core.ErrNotFound, "observation")

// Observation is a free-text note about a student on a date.
type Observation struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Date      core.Date `json:"date"`
	Content   string    `json:"content"`
	TeacherID *string   `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewObservation struct {
	StudentID string    `json:"student_id" validate:"required,uuid"`
	Date      core.Date `json:"date" validate:"required"`
	Content   string    `json:"content" validate:"required,notblank"`
}

type UpdateObservation struct {
	Date    *core.Date `json:"date"`
	Content *string    `json:"content" validate:"omitempty,notblank"`
}

type QueryFilter struct {
	StudentID string
	TeacherID string
	From      core.Date
	To        core.Date
}

type (
	Repository interface {
		CreateObservation(ctx context.Context, o Observation) (Observation, error)
		GetObservation(ctx context.Context, id string) (Observation, error)
		// QueryObservations returns the matching observations, newest date first.
		QueryObservations(ctx context.Context, filter QueryFilter) ([]Observation, error)
		UpdateObservation(ctx context.Context, o Observation) (Observation, error)
		DeleteObservation(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, data NewObservation, teacherID *string) (Observation, error) {
	data.StudentID = core.CleanString(data.StudentID)
	data.Content = core.CleanString(data.Content)
	if err := svc.validate.Struct(data); err != nil {
		return Observation{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateObservation(ctx, Observation{
		StudentID: data.StudentID,
		Date:      data.Date,
		Content:   data.Content,
		TeacherID: teacherID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Observation, error) {
	return svc.repo.QueryObservations(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Observation, error) {
	return svc.repo.GetObservation(ctx, id)
}

func (svc *Service) Update(ctx context.Context, o Observation, data UpdateObservation) (Observation, error) {
	if data.Content != nil {
		*data.Content = core.CleanString(*data.Content)
	}
	if err := svc.validate.Struct(data); err != nil {
		return Observation{}, err
	}
	if data.Date != nil && !data.Date.IsZero() {
		o.Date = *data.Date
	}
	if data.Content != nil {
		o.Content = *data.Content
	}
	o.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateObservation(ctx, o)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteObservation(ctx, id)
}
