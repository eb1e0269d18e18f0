package student

import (
	"time"

	"github.com/sarang-youth/mokjang/core"
)

// Statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusGraduated = "graduated"
	StatusMoved     = "moved"
)

// Genders
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// SortFields lists the fields students can be ordered by.
var SortFields = []string{"name", "grade", "birth", "registered_at", "created_at"}

type Student struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Birth        *core.Date `json:"birth"`
	Phone        string     `json:"phone"`
	ParentPhone  string     `json:"parent_phone"`
	School       string     `json:"school"`
	Grade        string     `json:"grade"`
	Gender       string     `json:"gender"`
	IsBaptized   bool       `json:"is_baptized"`
	Status       string     `json:"status"`
	MokjangID    *string    `json:"mokjang_id"`
	MinistryIDs  []string   `json:"ministry_ids"`
	Address      string     `json:"address"`
	Memo         string     `json:"memo"`
	RegisteredAt *core.Date `json:"registered_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// InMokjangs reports whether the student belongs to one of `mokjangIDs`.
func (s Student) InMokjangs(mokjangIDs []string) bool {
	return s.MokjangID != nil && core.ContainsString(mokjangIDs, *s.MokjangID)
}

type NewStudent struct {
	Name         string     `json:"name" validate:"required,notblank"`
	Birth        *core.Date `json:"birth"`
	Phone        string     `json:"phone" validate:"omitempty,phone"`
	ParentPhone  string     `json:"parent_phone" validate:"omitempty,phone"`
	School       string     `json:"school"`
	Grade        string     `json:"grade"`
	Gender       string     `json:"gender" validate:"omitempty,oneof=M F"`
	IsBaptized   bool       `json:"is_baptized"`
	Status       string     `json:"status" validate:"omitempty,oneof=active inactive graduated moved"`
	MokjangID    *string    `json:"mokjang_id" validate:"omitempty,uuid"`
	Address      string     `json:"address"`
	Memo         string     `json:"memo"`
	RegisteredAt *core.Date `json:"registered_at"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Phone = core.CleanString(ns.Phone)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	ns.School = core.CleanString(ns.School)
	ns.Grade = core.CleanString(ns.Grade)
	ns.Gender = core.CleanString(ns.Gender)
	ns.Address = core.CleanString(ns.Address)
	ns.Memo = core.CleanString(ns.Memo)
	if ns.Status == "" {
		ns.Status = StatusActive
	}
	if ns.MokjangID != nil && *ns.MokjangID == "" {
		ns.MokjangID = nil
	}
}

// UpdateStudent holds the updatable fields; nil fields are left untouched.
// An empty MokjangID removes the student from its mokjang.
type UpdateStudent struct {
	Name        *string    `json:"name" validate:"omitempty,notblank"`
	Birth       *core.Date `json:"birth"`
	Phone       *string    `json:"phone" validate:"omitempty,phone"`
	ParentPhone *string    `json:"parent_phone" validate:"omitempty,phone"`
	School      *string    `json:"school"`
	Grade       *string    `json:"grade"`
	Gender      *string    `json:"gender" validate:"omitempty,oneof=M F"`
	IsBaptized  *bool      `json:"is_baptized"`
	Status      *string    `json:"status" validate:"omitempty,oneof=active inactive graduated moved"`
	MokjangID   *string    `json:"mokjang_id" validate:"omitempty,uuid"`
	Address     *string    `json:"address"`
	Memo        *string    `json:"memo"`
}

func (us *UpdateStudent) Clean() {
	for _, s := range []*string{us.Name, us.Phone, us.ParentPhone, us.School, us.Grade, us.Gender, us.Address, us.Memo} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
}

// ChangesMokjang reports whether the update moves the student to another mokjang.
func (us UpdateStudent) ChangesMokjang(s Student) bool {
	if us.MokjangID == nil {
		return false
	}
	if s.MokjangID == nil {
		return *us.MokjangID != ""
	}
	return *us.MokjangID != *s.MokjangID
}

func (us UpdateStudent) apply(s *Student) {
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.Birth != nil {
		s.Birth = us.Birth
		if us.Birth.IsZero() {
			s.Birth = nil
		}
	}
	if us.Phone != nil {
		s.Phone = *us.Phone
	}
	if us.ParentPhone != nil {
		s.ParentPhone = *us.ParentPhone
	}
	if us.School != nil {
		s.School = *us.School
	}
	if us.Grade != nil {
		s.Grade = *us.Grade
	}
	if us.Gender != nil {
		s.Gender = *us.Gender
	}
	if us.IsBaptized != nil {
		s.IsBaptized = *us.IsBaptized
	}
	if us.Status != nil {
		s.Status = *us.Status
	}
	if us.MokjangID != nil {
		s.MokjangID = us.MokjangID
		if *us.MokjangID == "" {
			s.MokjangID = nil
		}
	}
	if us.Address != nil {
		s.Address = *us.Address
	}
	if us.Memo != nil {
		s.Memo = *us.Memo
	}
}

// MoveStudents moves students to a mokjang; a nil MokjangID leaves them without one.
type MoveStudents struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,uuid"`
	MokjangID  *string  `json:"mokjang_id" validate:"omitempty,uuid"`
}

type QueryFilter struct {
	IDs        []string
	MokjangID  string
	MokjangIDs []string
	NoMokjang  bool
	Status     string
	Grade      string
	Search     string // name, phone or school
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Grade = core.CleanString(qf.Grade)
}
