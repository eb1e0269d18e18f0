package teacher

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/user"
)

var ErrNotFound = errors.Wrap(core.ErrNotFound, "teacher")

type (
	Repository interface {
		// CreateTeacher saves the login user and the teacher profile in a single transaction.
		CreateTeacher(ctx context.Context, usr user.User, t Teacher) (Teacher, error)
		GetTeacher(ctx context.Context, filter GetFilter) (Teacher, error)
		QueryTeachers(ctx context.Context, filter QueryFilter) ([]Teacher, error)
		// UpdateTeacher saves the profile, the linked user's active flag and the mokjang assignments.
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		// DeleteTeacher deletes the teacher and its login user.
		DeleteTeacher(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		users    *user.Service
		validate *validator.Validate
	}
)

func NewService(repo Repository, users *user.Service, validate *validator.Validate) *Service {
	return &Service{repo: repo, users: users, validate: validate}
}

func (svc *Service) validateNew(ctx context.Context, data *NewTeacher) error {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return err
	}
	return svc.users.CheckUniqueness(ctx, data.Username, data.Email)
}

func (svc *Service) create(ctx context.Context, data NewTeacher, isActive bool) (Teacher, error) {
	usr, err := user.NewUserFrom(user.NewUser{
		Name:     data.Name,
		Username: data.Username,
		Email:    data.Email,
		Password: data.Password,
		Role:     data.Role,
		IsActive: &isActive,
	})
	if err != nil {
		return Teacher{}, err
	}

	now := time.Now().UTC()
	t := Teacher{
		Username:   usr.Username,
		IsActive:   isActive,
		Name:       data.Name,
		Phone:      data.Phone,
		Email:      data.Email,
		Birth:      data.Birth,
		Status:     data.Status,
		Memo:       data.Memo,
		MokjangIDs: data.MokjangIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateTeacher(ctx, usr, t)
}

// Create is used by admins: the login user is active right away.
func (svc *Service) Create(ctx context.Context, data NewTeacher) (Teacher, error) {
	if err := svc.validateNew(ctx, &data); err != nil {
		return Teacher{}, err
	}
	return svc.create(ctx, data, true)
}

// Register is the public sign-up: the user stays inactive and the teacher on rest until an admin activates them.
func (svc *Service) Register(ctx context.Context, data NewTeacher) (Teacher, error) {
	data.Role = user.RoleTeacher
	data.Status = StatusRest
	data.MokjangIDs = nil
	if err := svc.validateNew(ctx, &data); err != nil {
		return Teacher{}, err
	}
	return svc.create(ctx, data, false)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Teacher, error) {
	filter.Clean()
	return svc.repo.QueryTeachers(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{UserID: userID})
}

func (svc *Service) Update(ctx context.Context, t Teacher, data UpdateTeacher) (Teacher, error) {
	data.Clean()
	if err := svc.validate.Struct(data); err != nil {
		return Teacher{}, err
	}
	data.apply(&t)
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteTeacher(ctx, id)
}
