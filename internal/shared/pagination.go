package shared

import (
	"math"
	"net/url"
	"strconv"
)

// MaxPerPage caps list page sizes.
const MaxPerPage = 200

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	page, perPage = normalizePage(page, perPage)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageRequest is a requested page window. A zero PerPage means "everything".
type PageRequest struct {
	Page    int
	PerPage int
}

// PageFromQuery reads page and limit query parameters.
func PageFromQuery(q url.Values) PageRequest {
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		return PageRequest{}
	}
	page, limit = normalizePage(page, limit)
	return PageRequest{Page: page, PerPage: limit}
}

// Offset returns the row offset of the window.
func (p PageRequest) Offset() uint64 {
	if p.Page <= 1 || p.PerPage <= 0 {
		return 0
	}
	return uint64((p.Page - 1) * p.PerPage)
}

func normalizePage(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return page, perPage
}
