package helpers

import (
	"net/http"

	"conduit/internal/domain"
)

// ParsePagination reads page and page_size from the query string. Malformed
// values are treated as absent, and domain.NewPaginationParams fills the defaults.
func ParsePagination(r *http.Request) domain.PaginationParams {
	page, _ := QueryInt(r, "page", 0)
	size, _ := QueryInt(r, "page_size", 0)
	return domain.NewPaginationParams(page, size)
}

// PaginationMeta accompanies paginated list responses.
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPaginationMeta(p domain.PaginationParams, total int) PaginationMeta {
	return PaginationMeta{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: p.TotalPages(total),
	}
}
