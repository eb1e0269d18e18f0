package mokjang

import (
	"time"

	"github.com/sarang-youth/mokjang/core"
)

// Mokjang is a small group of students led by one or more teachers.
type Mokjang struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	TargetGrade  string    `json:"target_grade"`
	IsActive     bool      `json:"is_active"`
	TeacherIDs   []string  `json:"teacher_ids"`
	StudentCount int       `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasTeacher reports whether the teacher leads this mokjang.
func (m Mokjang) HasTeacher(teacherID string) bool {
	return core.ContainsString(m.TeacherIDs, teacherID)
}

type NewMokjang struct {
	Name        string   `json:"name" validate:"required,notblank"`
	TargetGrade string   `json:"target_grade"`
	IsActive    *bool    `json:"is_active"`
	TeacherIDs  []string `json:"teacher_ids" validate:"omitempty,dive,uuid"`
}

func (nm *NewMokjang) Clean() {
	nm.Name = core.CleanString(nm.Name)
	nm.TargetGrade = core.CleanString(nm.TargetGrade)
	nm.TeacherIDs = core.UniqueStrings(nm.TeacherIDs)
}

type UpdateMokjang struct {
	Name        *string `json:"name" validate:"omitempty,notblank"`
	TargetGrade *string `json:"target_grade"`
	IsActive    *bool   `json:"is_active"`
}

func (um *UpdateMokjang) Clean() {
	if um.Name != nil {
		*um.Name = core.CleanString(*um.Name)
	}
	if um.TargetGrade != nil {
		*um.TargetGrade = core.CleanString(*um.TargetGrade)
	}
}

func (um UpdateMokjang) apply(m *Mokjang) {
	if um.Name != nil {
		m.Name = *um.Name
	}
	if um.TargetGrade != nil {
		m.TargetGrade = *um.TargetGrade
	}
	if um.IsActive != nil {
		m.IsActive = *um.IsActive
	}
}

type SetTeachers struct {
	TeacherIDs []string `json:"teacher_ids" validate:"omitempty,dive,uuid"`
}

type QueryFilter struct {
	IsActive  *bool
	TeacherID string
}
