// Package sqlxrepos implements the core repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sarang-youth/mokjang/core"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func newID() string {
	return uuid.New().String()
}

func trapNoRowsErr(err, notFound error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return err
}

func pqErrCode(err error) (string, string) {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

func isUniqueViolation(err error) (bool, string) {
	code, constraint := pqErrCode(err)
	return code == pqUniqueViolation, constraint
}

func isForeignKeyViolation(err error) bool {
	code, _ := pqErrCode(err)
	return code == pqForeignKeyViolation
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// nullString stores empty strings as NULL.
func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nullStringPtr(s *string) null.String {
	if s == nil || *s == "" {
		return null.String{}
	}
	return null.StringFrom(*s)
}

func nullDate(d *core.Date) null.Time {
	if d == nil || d.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(d.Time)
}

func datePtr(t null.Time) *core.Date {
	if !t.Valid {
		return nil
	}
	d := core.NewDate(t.Time)
	return &d
}

// where accumulates AND-ed conditions using "?" bind vars; rebind before executing.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// inTx runs fn in a transaction, committed when fn returns no error.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// replaceLinks replaces the rows of a many-to-many table owned by `ownerID`.
func replaceLinks(ctx context.Context, tx *sqlx.Tx, table, ownerCol, otherCol, ownerID string, otherIDs []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+ownerCol+" = $1", ownerID); err != nil {
		return errors.Wrap(err, "clearing "+table)
	}
	if len(otherIDs) == 0 {
		return nil
	}
	q := "INSERT INTO " + table + " (" + ownerCol + ", " + otherCol + ") " +
		"SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING"
	if _, err := tx.ExecContext(ctx, q, ownerID, pq.Array(otherIDs)); err != nil {
		if isForeignKeyViolation(err) {
			return core.NewValidationError(err, core.FieldError{Field: otherCol + "s", Error: "unknown id"})
		}
		return errors.Wrap(err, "linking "+table)
	}
	return nil
}

func stringSlice(a pq.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
}
