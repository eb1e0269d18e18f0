package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/ministry"
)

type ministryRepository struct {
	db *DB
}

var _ ministry.Repository = (*ministryRepository)(nil)

func NewMinistryRepository(db *DB) *ministryRepository {
	return &ministryRepository{db: db}
}

func (db *DB) ministry(m *ministry.Ministry) ministry.Ministry {
	out := *m
	out.TeacherIDs = sortedCopy(db.ministryTeachers[m.ID])
	out.StudentIDs = sortedCopy(db.ministryStudents[m.ID])
	return out
}

func (db *DB) ministryNameTaken(name, excludedID string) bool {
	for _, m := range db.ministries {
		if m.ID != excludedID && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

func (repo *ministryRepository) CheckNameUniqueness(_ context.Context, name, excludedID string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if repo.db.ministryNameTaken(name, excludedID) {
		return ministry.ErrNameExists
	}
	return nil
}

func (repo *ministryRepository) CreateMinistry(_ context.Context, m ministry.Ministry) (ministry.Ministry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.ministryNameTaken(m.Name, "") {
		return ministry.Ministry{}, ministry.ErrNameExists
	}
	m.ID = newID()
	stored := m
	stored.TeacherIDs, stored.StudentIDs = nil, nil
	repo.db.ministries[m.ID] = &stored
	return repo.db.ministry(&stored), nil
}

func (repo *ministryRepository) GetMinistry(_ context.Context, id string) (ministry.Ministry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.ministries[id]; ok {
		return repo.db.ministry(m), nil
	}
	return ministry.Ministry{}, ministry.ErrNotFound
}

func (repo *ministryRepository) QueryMinistries(context.Context) ([]ministry.Ministry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ministries := make([]ministry.Ministry, 0, len(repo.db.ministries))
	for _, m := range repo.db.ministries {
		ministries = append(ministries, repo.db.ministry(m))
	}
	sort.Slice(ministries, func(i, j int) bool { return ministries[i].Name < ministries[j].Name })
	return ministries, nil
}

func (repo *ministryRepository) UpdateMinistry(_ context.Context, m ministry.Ministry) (ministry.Ministry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored, ok := repo.db.ministries[m.ID]
	if !ok {
		return ministry.Ministry{}, ministry.ErrNotFound
	}
	if repo.db.ministryNameTaken(m.Name, m.ID) {
		return ministry.Ministry{}, ministry.ErrNameExists
	}
	stored.Name = m.Name
	stored.Description = m.Description
	stored.UpdatedAt = m.UpdatedAt
	return repo.db.ministry(stored), nil
}

func (repo *ministryRepository) SetMembers(_ context.Context, id string, teacherIDs, studentIDs []string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.ministries[id]; !ok {
		return ministry.ErrNotFound
	}
	if err := repo.db.checkTeachers(teacherIDs); err != nil {
		return err
	}
	for _, sid := range studentIDs {
		if _, ok := repo.db.students[sid]; !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "student_ids", Error: "unknown student"})
		}
	}
	repo.db.ministryTeachers[id] = append([]string(nil), teacherIDs...)
	repo.db.ministryStudents[id] = append([]string(nil), studentIDs...)
	return nil
}

func (repo *ministryRepository) DeleteMinistry(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.ministries[id]; !ok {
		return ministry.ErrNotFound
	}
	delete(repo.db.ministries, id)
	delete(repo.db.ministryTeachers, id)
	delete(repo.db.ministryStudents, id)
	return nil
}
