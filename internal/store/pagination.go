package store

import "math"

// Pagination bounds shared by every list operation. MaxPage keeps the
// offset of the last page representable.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = math.MaxInt32 / MaxLimit
)

// Pagination holds a page request. Values outside the allowed range are
// clamped, never rejected.
type Pagination struct {
	Page  int
	Limit int
}

// Normalize clamps the page to [1, MaxPage] and the limit to [1, MaxLimit].
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset returns the number of items to skip. It saturates instead of
// overflowing for pages that were never normalized.
func (p Pagination) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Page is one page of results plus the total count across all pages.
type Page[T any] struct {
	Items []T
	Total int
	Pagination
}

// TotalPages returns the number of pages needed for Total items.
func (p Page[T]) TotalPages() int {
	if p.Limit <= 0 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// HasNext reports whether a page follows this one.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}

// HasPrev reports whether a page precedes this one.
func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

// paginate slices items according to p.
func paginate[T any](items []T, p Pagination) Page[T] {
	page := Page[T]{Total: len(items), Pagination: p, Items: []T{}}
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return page
	}
	end := start + min(p.Limit, len(items)-start)
	page.Items = items[start:end]
	return page
}
