package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/student"
)

type mokjangRepository struct {
	db *DB
}

var _ mokjang.Repository = (*mokjangRepository)(nil)

func NewMokjangRepository(db *DB) *mokjangRepository {
	return &mokjangRepository{db: db}
}

func (db *DB) mokjang(m *mokjang.Mokjang) mokjang.Mokjang {
	out := *m
	out.TeacherIDs = sortedCopy(db.mokjangTeachers[m.ID])
	out.StudentCount = 0
	for _, s := range db.students {
		if s.MokjangID != nil && *s.MokjangID == m.ID && s.Status == student.StatusActive {
			out.StudentCount++
		}
	}
	return out
}

func (db *DB) mokjangNameTaken(name, excludedID string) bool {
	for _, m := range db.mokjangs {
		if m.ID != excludedID && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

func (db *DB) checkTeachers(ids []string) error {
	for _, id := range ids {
		if _, ok := db.teachers[id]; !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "teacher_ids", Error: "unknown teacher"})
		}
	}
	return nil
}

func (repo *mokjangRepository) CheckNameUniqueness(_ context.Context, name, excludedID string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if repo.db.mokjangNameTaken(name, excludedID) {
		return mokjang.ErrNameExists
	}
	return nil
}

func (repo *mokjangRepository) CreateMokjang(_ context.Context, m mokjang.Mokjang) (mokjang.Mokjang, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.mokjangNameTaken(m.Name, "") {
		return mokjang.Mokjang{}, mokjang.ErrNameExists
	}
	if err := repo.db.checkTeachers(m.TeacherIDs); err != nil {
		return mokjang.Mokjang{}, err
	}
	m.ID = newID()
	repo.db.mokjangTeachers[m.ID] = append([]string(nil), m.TeacherIDs...)
	stored := m
	repo.db.mokjangs[m.ID] = &stored
	return repo.db.mokjang(&stored), nil
}

func (repo *mokjangRepository) GetMokjang(_ context.Context, id string) (mokjang.Mokjang, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.mokjangs[id]; ok {
		return repo.db.mokjang(m), nil
	}
	return mokjang.Mokjang{}, mokjang.ErrNotFound
}

func (repo *mokjangRepository) QueryMokjangs(_ context.Context, filter mokjang.QueryFilter) ([]mokjang.Mokjang, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	mokjangs := make([]mokjang.Mokjang, 0)
	for _, stored := range repo.db.mokjangs {
		m := repo.db.mokjang(stored)
		if filter.IsActive != nil && m.IsActive != *filter.IsActive {
			continue
		}
		if filter.TeacherID != "" && !m.HasTeacher(filter.TeacherID) {
			continue
		}
		mokjangs = append(mokjangs, m)
	}
	sort.Slice(mokjangs, func(i, j int) bool { return mokjangs[i].Name < mokjangs[j].Name })
	return mokjangs, nil
}

func (repo *mokjangRepository) UpdateMokjang(_ context.Context, m mokjang.Mokjang) (mokjang.Mokjang, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored, ok := repo.db.mokjangs[m.ID]
	if !ok {
		return mokjang.Mokjang{}, mokjang.ErrNotFound
	}
	if repo.db.mokjangNameTaken(m.Name, m.ID) {
		return mokjang.Mokjang{}, mokjang.ErrNameExists
	}
	stored.Name = m.Name
	stored.TargetGrade = m.TargetGrade
	stored.IsActive = m.IsActive
	stored.UpdatedAt = m.UpdatedAt
	return repo.db.mokjang(stored), nil
}

func (repo *mokjangRepository) SetTeachers(_ context.Context, id string, teacherIDs []string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.mokjangs[id]; !ok {
		return mokjang.ErrNotFound
	}
	if err := repo.db.checkTeachers(teacherIDs); err != nil {
		return err
	}
	repo.db.mokjangTeachers[id] = append([]string(nil), teacherIDs...)
	return nil
}

func (repo *mokjangRepository) DeleteMokjang(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.mokjangs[id]; !ok {
		return mokjang.ErrNotFound
	}
	delete(repo.db.mokjangs, id)
	delete(repo.db.mokjangTeachers, id)
	for _, s := range repo.db.students {
		if s.MokjangID != nil && *s.MokjangID == id {
			s.MokjangID = nil
		}
	}
	for rid, r := range repo.db.reports {
		if r.MokjangID == id {
			delete(repo.db.reports, rid)
		}
	}
	return nil
}
