package httpx

import (
	"math"
	"net/http"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination lee page/limit con defaults 1 y 10.
func Pagination(r *http.Request) (page, limit int, err error) {
	page, err = QueryInt(r, "page", DefaultPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err = QueryInt(r, "limit", DefaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit, nil
}

// Pages = ceil(total/limit).
func Pages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Offset = (page-1)*limit, saturado en math.MaxInt para páginas enormes.
func Offset(page, limit int) int {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}
