package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/sarang-youth/mokjang/core"
	"github.com/sarang-youth/mokjang/core/mokjang"
	"github.com/sarang-youth/mokjang/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (db *DB) student(s *student.Student) student.Student {
	out := *s
	out.MokjangID = copyStr(s.MokjangID)
	out.MinistryIDs = owners(db.ministryStudents, s.ID)
	return out
}

func (db *DB) checkMokjang(id *string) error {
	if id == nil {
		return nil
	}
	if _, ok := db.mokjangs[*id]; !ok {
		return core.NewValidationError(mokjang.ErrNotFound, core.FieldError{Field: "mokjang_id", Error: "unknown mokjang"})
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.db.checkMokjang(s.MokjangID); err != nil {
		return student.Student{}, err
	}
	s.ID = newID()
	stored := s
	stored.MokjangID = copyStr(s.MokjangID)
	stored.MinistryIDs = nil
	repo.db.students[s.ID] = &stored
	return repo.db.student(&stored), nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return repo.db.student(s), nil
	}
	return student.Student{}, student.ErrNotFound
}

func matchStudent(s student.Student, filter student.QueryFilter) bool {
	if filter.IDs != nil && !core.ContainsString(filter.IDs, s.ID) {
		return false
	}
	if filter.MokjangID != "" && (s.MokjangID == nil || *s.MokjangID != filter.MokjangID) {
		return false
	}
	if filter.MokjangIDs != nil && !s.InMokjangs(filter.MokjangIDs) {
		return false
	}
	if filter.NoMokjang && s.MokjangID != nil {
		return false
	}
	if filter.Status != "" && s.Status != filter.Status {
		return false
	}
	if filter.Grade != "" && s.Grade != filter.Grade {
		return false
	}
	if filter.Search != "" && !(containsFold(s.Name, filter.Search) || containsFold(s.Phone, filter.Search) ||
		containsFold(s.ParentPhone, filter.Search) || containsFold(s.School, filter.Search)) {
		return false
	}
	return true
}

// studentLess compares on one sort field; ok is false when the values are equal.
func studentLess(a, b student.Student, field string) (less, ok bool) {
	dateOf := func(d *core.Date) time.Time {
		if d == nil {
			return time.Time{}
		}
		return d.Time
	}
	switch field {
	case "name":
		return a.Name < b.Name, a.Name != b.Name
	case "grade":
		return a.Grade < b.Grade, a.Grade != b.Grade
	case "birth":
		ta, tb := dateOf(a.Birth), dateOf(b.Birth)
		return ta.Before(tb), !ta.Equal(tb)
	case "registered_at":
		ta, tb := dateOf(a.RegisteredAt), dateOf(b.RegisteredAt)
		return ta.Before(tb), !ta.Equal(tb)
	case "created_at":
		return a.CreatedAt.Before(b.CreatedAt), !a.CreatedAt.Equal(b.CreatedAt)
	}
	return false, false
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0)
	for _, stored := range repo.db.students {
		if s := repo.db.student(stored); matchStudent(s, filter) {
			students = append(students, s)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.Slice(students, func(i, j int) bool {
		for _, ord := range ordering {
			if less, ok := studentLess(students[i], students[j], ord.Field); ok {
				return less == ord.Ascending
			}
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[s.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if err := repo.db.checkMokjang(s.MokjangID); err != nil {
		return student.Student{}, err
	}
	stored := s
	stored.MokjangID = copyStr(s.MokjangID)
	stored.MinistryIDs = nil
	repo.db.students[s.ID] = &stored
	return repo.db.student(&stored), nil
}

func (repo *studentRepository) MoveStudents(_ context.Context, ids []string, mokjangID *string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.db.checkMokjang(mokjangID); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	var moved int
	for _, id := range ids {
		if s, ok := repo.db.students[id]; ok {
			s.MokjangID = copyStr(mokjangID)
			s.UpdatedAt = now
			moved++
		}
	}
	return moved, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.students, id)
	unlink(repo.db.ministryStudents, id)
	for key := range repo.db.attendance {
		if key.studentID == id {
			delete(repo.db.attendance, key)
		}
	}
	for oid, o := range repo.db.observations {
		if o.StudentID == id {
			delete(repo.db.observations, oid)
		}
	}
	for mid, m := range repo.db.memos {
		if m.StudentID == id {
			delete(repo.db.memos, mid)
		}
	}
	return nil
}
