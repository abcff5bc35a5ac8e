package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationParams(t *testing.T) {
	tests := []struct {
		name           string
		page, pageSize int
		want           PaginationParams
	}{
		{name: "defaults", want: PaginationParams{Page: 1, PageSize: DefaultPageSize}},
		{name: "kept", page: 3, pageSize: 10, want: PaginationParams{Page: 3, PageSize: 10}},
		{name: "negative", page: -2, pageSize: -4, want: PaginationParams{Page: 1, PageSize: DefaultPageSize}},
		{name: "capped", page: 1, pageSize: 1000, want: PaginationParams{Page: 1, PageSize: MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPaginationParams(tt.page, tt.pageSize))
		})
	}
}

func TestPaginationParams_Window(t *testing.T) {
	p := PaginationParams{Page: 3, PageSize: 20}
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 20, p.Limit())
	assert.Equal(t, 3, p.TotalPages(41))
	assert.Equal(t, 0, PaginationParams{}.TotalPages(10))
}
