package inmemdb

import (
	"context"
	"sort"

	"github.com/sarang-youth/mokjang/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email, excludedID string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.checkUserUniqueness(username, email, excludedID)
}

func (db *DB) checkUserUniqueness(username, email, excludedID string) error {
	for _, usr := range db.users {
		if usr.ID == excludedID {
			continue
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (db *DB) insertUser(usr *user.User) error {
	if err := db.checkUserUniqueness(usr.Username, usr.Email, ""); err != nil {
		return err
	}
	usr.ID = newID()
	u := *usr
	db.users[u.ID] = &u
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.db.insertUser(&usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		switch {
		case filter.ID != "" && usr.ID == filter.ID,
			filter.Username != "" && usr.Username == filter.Username,
			filter.UsernameOrEmail != "" && (usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail):
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !(containsFold(usr.Name, filter.Search) ||
			containsFold(usr.Username, filter.Search) || containsFold(usr.Email, filter.Search)) {
			continue
		}
		users = append(users, *usr)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.db.checkUserUniqueness(usr.Username, usr.Email, usr.ID); err != nil {
		return user.User{}, err
	}
	u := usr
	repo.db.users[usr.ID] = &u
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	repo.db.deleteUser(id)
	return nil
}

// deleteUser cascades to the teacher profile and clears authored memos.
func (db *DB) deleteUser(id string) {
	delete(db.users, id)
	for tid, t := range db.teachers {
		if t.UserID == id {
			db.deleteTeacher(tid)
		}
	}
	for _, m := range db.memos {
		if m.AuthorID != nil && *m.AuthorID == id {
			m.AuthorID = nil
		}
	}
}
