package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sarang-youth/mokjang/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Username     string      `db:"username"`
	Email        null.String `db:"email"`
	Name         string      `db:"name"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        nullString(usr.Email),
		Name:         usr.Name,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    null.TimeFromPtr(usr.LastLogin),
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email.String,
		Name:         r.Name,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Ptr(),
	}
}

const userColumns = `id, username, email, name, role, is_active, password_hash, created_at, updated_at, last_login`

const insertUserQuery = `INSERT INTO "user" (` + userColumns + `)
VALUES (:id, :username, :email, :name, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email, excludedID string) error {
	q := `SELECT username, email FROM "user"
WHERE (username = $1 OR ($2 <> '' AND email = $2)) AND id::text <> $3
LIMIT 1`
	var row struct {
		Username string      `db:"username"`
		Email    null.String `db:"email"`
	}
	err := repo.db.GetContext(ctx, &row, q, username, email, excludedID)
	if err != nil {
		if trapNoRowsErr(err, nil) == nil {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if row.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

// uniqueUserErr maps the unique constraints of "user" to the domain errors.
func uniqueUserErr(err error) error {
	if ok, constraint := isUniqueViolation(err); ok {
		switch constraint {
		case "user_username_key":
			return user.ErrUsernameExists
		case "user_email_key":
			return user.ErrEmailExists
		}
	}
	return err
}

func insertUser(ctx context.Context, ext sqlx.ExtContext, usr *user.User) error {
	usr.ID = newID()
	if _, err := sqlx.NamedExecContext(ctx, ext, insertUserQuery, newUserRow(*usr)); err != nil {
		return errors.Wrap(uniqueUserErr(err), "inserting user")
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := insertUser(ctx, repo.db, &usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := `SELECT ` + userColumns + ` FROM "user" WHERE `
	var arg string
	switch {
	case filter.ID != "":
		q += `id::text = $1`
		arg = filter.ID
	case filter.Username != "":
		q += `username = $1`
		arg = filter.Username
	case filter.UsernameOrEmail != "":
		q += `(username = $1 OR email = $1)`
		arg = filter.UsernameOrEmail
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound)
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	filter.Clean()
	var w where
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		w.add(`(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)`, pattern, pattern, pattern)
	}
	if filter.Role != "" {
		w.add(`role = ?`, filter.Role)
	}
	if filter.IsActive != nil {
		w.add(`is_active = ?`, *filter.IsActive)
	}

	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user"` + w.String() + ` ORDER BY name, username`)
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, len(rows))
	for i, row := range rows {
		users[i] = row.toUser()
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET
username = :username, email = :email, name = :name, role = :role, is_active = :is_active,
password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(uniqueUserErr(err), "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id::text = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return checkAffected(res, user.ErrNotFound)
}
