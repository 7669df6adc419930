package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Pagination
		want Pagination
	}{
		{"defaults", Pagination{}, Pagination{Page: 1, Limit: 10}},
		{"limit clamped to max", Pagination{Page: 2, Limit: 500}, Pagination{Page: 2, Limit: 100}},
		{"negative page", Pagination{Page: -3, Limit: 5}, Pagination{Page: 1, Limit: 5}},
		{"exact max", Pagination{Page: 1, Limit: 100}, Pagination{Page: 1, Limit: 100}},
		{"huge page clamped", Pagination{Page: math.MaxInt, Limit: 100}, Pagination{Page: MaxPage, Limit: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	first := paginate(items, Pagination{Page: 1, Limit: 2})
	assert.Equal(t, []int{1, 2}, first.Items)
	assert.Equal(t, 5, first.Total)
	assert.Equal(t, 3, first.TotalPages())
	assert.True(t, first.HasNext())
	assert.False(t, first.HasPrev())

	last := paginate(items, Pagination{Page: 3, Limit: 2})
	assert.Equal(t, []int{5}, last.Items)
	assert.False(t, last.HasNext())
	assert.True(t, last.HasPrev())

	beyond := paginate(items, Pagination{Page: 9, Limit: 2})
	assert.Empty(t, beyond.Items)
	assert.NotNil(t, beyond.Items)
	assert.False(t, beyond.HasNext())
	assert.Equal(t, 5, beyond.Total)
}

func TestPage_Empty(t *testing.T) {
	p := paginate([]int{}, Pagination{Page: 1, Limit: 10})
	assert.Equal(t, 0, p.TotalPages())
	assert.False(t, p.HasNext())
}

func TestPagination_OffsetSaturates(t *testing.T) {
	assert.Equal(t, 0, Pagination{Page: 0, Limit: 10}.Offset())
	assert.Equal(t, 20, Pagination{Page: 3, Limit: 10}.Offset())
	assert.Equal(t, math.MaxInt, Pagination{Page: math.MaxInt, Limit: 2}.Offset())

	p := Pagination{Page: math.MaxInt, Limit: MaxLimit}
	p.Normalize()
	assert.Positive(t, p.Offset())
}

func TestPaginate_HugePage(t *testing.T) {
	page := paginate([]int{1, 2, 3}, Pagination{Page: math.MaxInt, Limit: 2})
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 3, page.Total)
	assert.False(t, page.HasNext())
}
