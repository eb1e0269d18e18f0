package inmemdb

import (
	"context"
	"sort"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/teacher"
	"github.com/sarang-youth/mokjang/core/user"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *DB) *teacherRepository {
	return &teacherRepository{db: db}
}

// teacher fills the joined fields of a stored teacher.
func (db *DB) teacher(t *teacher.Teacher) teacher.Teacher {
	out := *t
	if usr, ok := db.users[t.UserID]; ok {
		out.Username = usr.Username
		out.IsActive = usr.IsActive
	}
	out.MokjangIDs = owners(db.mokjangTeachers, t.ID)
	out.MinistryIDs = owners(db.ministryTeachers, t.ID)
	return out
}

func (db *DB) setTeacherMokjangs(teacherID string, mokjangIDs []string) error {
	for _, id := range mokjangIDs {
		if _, ok := db.mokjangs[id]; !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "mokjang_ids", Error: "unknown mokjang"})
		}
	}
	unlink(db.mokjangTeachers, teacherID)
	for _, id := range mokjangIDs {
		db.mokjangTeachers[id] = append(db.mokjangTeachers[id], teacherID)
	}
	return nil
}

func (repo *teacherRepository) CreateTeacher(_ context.Context, usr user.User, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range t.MokjangIDs {
		if _, ok := repo.db.mokjangs[id]; !ok {
			return teacher.Teacher{}, core.NewValidationError(nil, core.FieldError{Field: "mokjang_ids", Error: "unknown mokjang"})
		}
	}
	if err := repo.db.insertUser(&usr); err != nil {
		return teacher.Teacher{}, err
	}

	t.ID = newID()
	t.UserID = usr.ID
	stored := t
	stored.MokjangIDs, stored.MinistryIDs = nil, nil
	repo.db.teachers[t.ID] = &stored
	_ = repo.db.setTeacherMokjangs(t.ID, t.MokjangIDs)
	return repo.db.teacher(&stored), nil
}

func (repo *teacherRepository) GetTeacher(_ context.Context, filter teacher.GetFilter) (teacher.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, t := range repo.db.teachers {
		if (filter.ID != "" && t.ID == filter.ID) || (filter.UserID != "" && t.UserID == filter.UserID) {
			return repo.db.teacher(t), nil
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) QueryTeachers(_ context.Context, filter teacher.QueryFilter) ([]teacher.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	teachers := make([]teacher.Teacher, 0)
	for _, stored := range repo.db.teachers {
		t := repo.db.teacher(stored)
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.MokjangID != "" && !core.ContainsString(t.MokjangIDs, filter.MokjangID) {
			continue
		}
		if filter.Search != "" && !(containsFold(t.Name, filter.Search) ||
			containsFold(t.Phone, filter.Search) || containsFold(t.Email, filter.Search)) {
			continue
		}
		teachers = append(teachers, t)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Name < teachers[j].Name })
	return teachers, nil
}

func (repo *teacherRepository) UpdateTeacher(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored, ok := repo.db.teachers[t.ID]
	if !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	if err := repo.db.setTeacherMokjangs(t.ID, t.MokjangIDs); err != nil {
		return teacher.Teacher{}, err
	}
	if usr, ok := repo.db.users[stored.UserID]; ok {
		usr.Name = t.Name
		usr.IsActive = t.IsActive
		usr.UpdatedAt = t.UpdatedAt
	}

	stored.Name = t.Name
	stored.Phone = t.Phone
	stored.Email = t.Email
	stored.Birth = t.Birth
	stored.Status = t.Status
	stored.Memo = t.Memo
	stored.UpdatedAt = t.UpdatedAt
	return repo.db.teacher(stored), nil
}

func (repo *teacherRepository) DeleteTeacher(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	t, ok := repo.db.teachers[id]
	if !ok {
		return teacher.ErrNotFound
	}
	repo.db.deleteUser(t.UserID)
	return nil
}

// deleteTeacher removes the profile and its links; authored rows keep a nil author.
func (db *DB) deleteTeacher(id string) {
	delete(db.teachers, id)
	unlink(db.mokjangTeachers, id)
	unlink(db.ministryTeachers, id)
	for _, l := range db.attendance {
		if l.CheckedBy != nil && *l.CheckedBy == id {
			l.CheckedBy = nil
		}
	}
	for _, r := range db.reports {
		if r.AuthorID != nil && *r.AuthorID == id {
			r.AuthorID = nil
		}
	}
	for _, o := range db.observations {
		if o.TeacherID != nil && *o.TeacherID == id {
			o.TeacherID = nil
		}
	}
}
