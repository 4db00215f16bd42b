// Package paging reads limit/offset query parameters for list endpoints.
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows returned by list endpoints.
const PageSize = 50

// MaxPageSize caps the limit a client may ask for.
const MaxPageSize = 200

// Page is a requested window of rows.
type Page struct {
	Limit  int64
	Offset int64
}

// Parse reads ?limit= and ?offset=. Missing or invalid values fall back to
// PageSize and 0; limit is capped at MaxPageSize.
func Parse(r *http.Request) Page {
	p := Page{Limit: PageSize}
	if n, err := strconv.ParseInt(query.Get(r, "limit"), 10, 64); err == nil && n > 0 {
		p.Limit = min(n, MaxPageSize)
	}
	if n, err := strconv.ParseInt(query.Get(r, "offset"), 10, 64); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// FetchLimit is Limit+1, fetched to learn whether another page exists.
func (p Page) FetchLimit() int64 { return p.Limit + 1 }

// Result describes a trimmed page.
type Result struct {
	Limit   int64 `json:"limit"`
	Offset  int64 `json:"offset"`
	HasNext bool  `json:"hasNext"`
}

// Trim cuts rows fetched with FetchLimit down to the page.
func Trim[T any](rows []T, p Page) ([]T, Result) {
	res := Result{Limit: p.Limit, Offset: p.Offset}
	if int64(len(rows)) > p.Limit {
		rows = rows[:p.Limit]
		res.HasNext = true
	}
	return rows, res
}
