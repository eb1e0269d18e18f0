package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sarang-youth/mokjang/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-grade`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

func invalidParam(name, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: name, Error: msg})
}

// queryDate parses an optional YYYY-MM-DD query param; absent gives the zero Date.
func queryDate(ctx echo.Context, name string) (core.Date, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(val)
	if err != nil {
		return core.Date{}, invalidParam(name, "enter a valid date (YYYY-MM-DD)")
	}
	return d, nil
}

// queryInt parses an optional integer query param; absent gives `def`.
func queryInt(ctx echo.Context, name string, def int) (int, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, invalidParam(name, "enter a valid positive number")
	}
	return n, nil
}

// queryBool parses an optional boolean query param; absent gives nil.
func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, invalidParam(name, "enter true or false")
	}
	return &b, nil
}

type SuccessResponse struct {
	Success string `json:"success"`
}
