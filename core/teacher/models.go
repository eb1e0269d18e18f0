package teacher

import (
	"time"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/user"
)

// Statuses
const (
	StatusActive   = "active"
	StatusRest     = "rest"
	StatusResigned = "resigned"
)

var AllStatuses = []string{StatusActive, StatusRest, StatusResigned}

type Teacher struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	IsActive    bool       `json:"is_active"` // of the linked user
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	Birth       *core.Date `json:"birth"`
	Status      string     `json:"status"`
	Memo        string     `json:"memo"`
	MokjangIDs  []string   `json:"mokjang_ids"`
	MinistryIDs []string   `json:"ministry_ids"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTeacher contains information needed to create a Teacher and its login User.
type NewTeacher struct {
	Name            string     `json:"name" validate:"required,notblank"`
	Username        string     `json:"username" validate:"required,min=4,alphanum_"`
	Email           string     `json:"email" validate:"omitempty,email"`
	Phone           string     `json:"phone" validate:"omitempty,phone"`
	Birth           *core.Date `json:"birth"`
	Status          string     `json:"status" validate:"omitempty,oneof=active rest resigned"`
	Memo            string     `json:"memo"`
	Password        string     `json:"password" validate:"required"`
	PasswordConfirm string     `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string     `json:"role" validate:"omitempty,role"`
	MokjangIDs      []string   `json:"mokjang_ids" validate:"omitempty,dive,uuid"`
}

func (nt *NewTeacher) Clean() {
	nt.Name = core.CleanString(nt.Name)
	nt.Username = core.CleanString(nt.Username, true /* lower */)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Phone = core.CleanString(nt.Phone)
	nt.Memo = core.CleanString(nt.Memo)
	if nt.Status == "" {
		nt.Status = StatusActive
	}
	if nt.Role == "" {
		nt.Role = user.RoleTeacher
	}
	nt.MokjangIDs = core.UniqueStrings(nt.MokjangIDs)
}

// UpdateTeacher holds the updatable fields; nil fields are left untouched.
type UpdateTeacher struct {
	Name       *string    `json:"name" validate:"omitempty,notblank"`
	Email      *string    `json:"email" validate:"omitempty,email"`
	Phone      *string    `json:"phone" validate:"omitempty,phone"`
	Birth      *core.Date `json:"birth"`
	Status     *string    `json:"status" validate:"omitempty,oneof=active rest resigned"`
	Memo       *string    `json:"memo"`
	IsActive   *bool      `json:"is_active"`
	MokjangIDs []string   `json:"mokjang_ids" validate:"omitempty,dive,uuid"`
}

func (ut *UpdateTeacher) Clean() {
	if ut.Name != nil {
		*ut.Name = core.CleanString(*ut.Name)
	}
	if ut.Email != nil {
		*ut.Email = core.CleanString(*ut.Email, true /* lower */)
	}
	if ut.Phone != nil {
		*ut.Phone = core.CleanString(*ut.Phone)
	}
	if ut.Memo != nil {
		*ut.Memo = core.CleanString(*ut.Memo)
	}
	if ut.MokjangIDs != nil {
		ut.MokjangIDs = core.UniqueStrings(ut.MokjangIDs)
	}
}

func (ut UpdateTeacher) apply(t *Teacher) {
	if ut.Name != nil {
		t.Name = *ut.Name
	}
	if ut.Email != nil {
		t.Email = *ut.Email
	}
	if ut.Phone != nil {
		t.Phone = *ut.Phone
	}
	if ut.Birth != nil {
		t.Birth = ut.Birth
		if ut.Birth.IsZero() {
			t.Birth = nil
		}
	}
	if ut.Status != nil {
		t.Status = *ut.Status
	}
	if ut.Memo != nil {
		t.Memo = *ut.Memo
	}
	if ut.IsActive != nil {
		t.IsActive = *ut.IsActive
	}
	if ut.MokjangIDs != nil {
		t.MokjangIDs = ut.MokjangIDs
	}
}

type GetFilter struct {
	ID     string
	UserID string
}

type QueryFilter struct {
	Status    string
	Search    string // name, phone or email
	MokjangID string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
