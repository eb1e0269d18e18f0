package core

import (
	"context"
	"strings"
)

// Pinger is used by the health check to probe the database.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy renders orderings restricted to the `allowed` fields, e.g. "name ASC, grade DESC".
// Unknown fields are dropped so that callers can pass user input safely.
func OrderBy(orderings []DBOrdering, allowed ...string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if ContainsString(allowed, ord.Field) {
			parts = append(parts, ord.String())
		}
	}
	return strings.Join(parts, ", ")
}

// Page describes a slice of a listing.
type Page struct {
	Page     int
	PageSize int
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Clean sets sane defaults: page starts at 1, page size in [1, 500].
func (p *Page) Clean() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
}

func (p Page) Limit() int  { return p.PageSize }
func (p Page) Offset() int { return (p.Page - 1) * p.PageSize }
