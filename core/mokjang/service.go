package mokjang

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
)

var (
	ErrNotFound   = errors.Wrap(core.ErrNotFound, "mokjang")
	ErrNameExists = errors.New("a mokjang with this name already exists")
)

type (
	Repository interface {
		// CheckNameUniqueness returns ErrNameExists when another mokjang (not excludedID) has this name.
		CheckNameUniqueness(ctx context.Context, name, excludedID string) error
		CreateMokjang(ctx context.Context, m Mokjang) (Mokjang, error)
		GetMokjang(ctx context.Context, id string) (Mokjang, error)
		QueryMokjangs(ctx context.Context, filter QueryFilter) ([]Mokjang, error)
		UpdateMokjang(ctx context.Context, m Mokjang) (Mokjang, error)
		SetTeachers(ctx context.Context, id string, teacherIDs []string) error
		// DeleteMokjang deletes the mokjang; its students are left without one.
		DeleteMokjang(ctx context.Context, id string) error
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

func (svc *Service) Create(ctx context.Context, data NewMokjang) (Mokjang, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return Mokjang{}, err
	}
	if err := svc.checkName(ctx, data.Name, ""); err != nil {
		return Mokjang{}, err
	}

	isActive := true
	if data.IsActive != nil {
		isActive = *data.IsActive
	}
	now := time.Now().UTC()
	return svc.repo.CreateMokjang(ctx, Mokjang{
		Name:        data.Name,
		TargetGrade: data.TargetGrade,
		IsActive:    isActive,
		TeacherIDs:  data.TeacherIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Mokjang, error) {
	return svc.repo.QueryMokjangs(ctx, filter)
}

// ForTeacher returns the mokjangs led by the teacher.
func (svc *Service) ForTeacher(ctx context.Context, teacherID string) ([]Mokjang, error) {
	return svc.repo.QueryMokjangs(ctx, QueryFilter{TeacherID: teacherID})
}

// IDsForTeacher returns the IDs of the mokjangs led by the teacher.
func (svc *Service) IDsForTeacher(ctx context.Context, teacherID string) ([]string, error) {
	mokjangs, err := svc.ForTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(mokjangs))
	for i, m := range mokjangs {
		ids[i] = m.ID
	}
	return ids, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Mokjang, error) {
	return svc.repo.GetMokjang(ctx, id)
}

func (svc *Service) Update(ctx context.Context, m Mokjang, data UpdateMokjang) (Mokjang, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return Mokjang{}, err
	}
	if data.Name != nil && *data.Name != m.Name {
		if err := svc.checkName(ctx, *data.Name, m.ID); err != nil {
			return Mokjang{}, err
		}
	}
	data.apply(&m)
	m.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMokjang(ctx, m)
}

func (svc *Service) SetTeachers(ctx context.Context, m Mokjang, data SetTeachers) (Mokjang, error) {
	data.TeacherIDs = core.UniqueStrings(data.TeacherIDs)
	if err := svc.validate.Struct(data); err != nil {
		return Mokjang{}, err
	}
	if err := svc.repo.SetTeachers(ctx, m.ID, data.TeacherIDs); err != nil {
		return Mokjang{}, err
	}
	return svc.repo.GetMokjang(ctx, m.ID)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteMokjang(ctx, id)
}
