package domain

// Page size bounds for list queries.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams holds offset-based pagination parameters for list queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// NewPaginationParams applies the paging rules: pages start at 1, a missing or
// non-positive size means DefaultPageSize and sizes are capped at MaxPageSize.
func NewPaginationParams(page, pageSize int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return PaginationParams{Page: page, PageSize: min(pageSize, MaxPageSize)}
}

// Offset returns the row offset for the current page (0-based).
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Limit returns the page size as a SQL LIMIT value.
func (p PaginationParams) Limit() int {
	return p.PageSize
}

// TotalPages is the number of pages needed for total rows. Zero when PageSize is unset.
func (p PaginationParams) TotalPages(total int) int {
	if p.PageSize <= 0 {
		return 0
	}
	return (total + p.PageSize - 1) / p.PageSize
}
