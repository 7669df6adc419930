package store

import (
	"cmp"
	"strings"

	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/normalize"
	"github.com/livraria/livraria-api/internal/validation"
)

// Sortable book fields, by wire name.
const (
	FieldTitle     = "titulo"
	FieldAuthor    = "autor"
	FieldPublisher = "editora"
	FieldPrice     = "preco"
	FieldPages     = "paginas"
	FieldYear      = "anoPublicacao"
	FieldCreatedAt = "criadoEm"
	FieldUpdatedAt = "atualizadoEm"
)

var sortableBookFields = map[string]bool{
	FieldTitle:     true,
	FieldAuthor:    true,
	FieldPublisher: true,
	FieldPrice:     true,
	FieldPages:     true,
	FieldYear:      true,
	FieldCreatedAt: true,
	FieldUpdatedAt: true,
}

// SortField is one key of a multi-field sort.
type SortField struct {
	Field string
	Desc  bool
}

// DefaultBookSort lists newest books first.
var DefaultBookSort = []SortField{{Field: FieldCreatedAt, Desc: true}}

// ParseSort parses "-preco,titulo" into sort keys. A leading "-" means
// descending. An empty string yields DefaultBookSort.
func ParseSort(raw string) ([]SortField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBookSort, nil
	}

	var fields []SortField
	seen := make(map[string]bool)
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sf := SortField{Field: part}
		if name, ok := strings.CutPrefix(part, "-"); ok {
			sf = SortField{Field: name, Desc: true}
		} else if name, ok := strings.CutPrefix(part, "+"); ok {
			sf.Field = name
		}
		if !sortableBookFields[sf.Field] {
			return nil, invalidQuery("sort", "Campo de ordenação inválido: "+sf.Field)
		}
		if seen[sf.Field] {
			continue
		}
		seen[sf.Field] = true
		fields = append(fields, sf)
	}
	if len(fields) == 0 {
		return DefaultBookSort, nil
	}
	return fields, nil
}

// BookQuery filters, sorts and pages the book list.
type BookQuery struct {
	Pagination
	Title     string
	Author    string
	Publisher string
	YearMin   *int
	YearMax   *int
	PriceMin  *float64
	PriceMax  *float64
	Sort      []SortField
}

// Validate rejects inverted or negative ranges and normalizes pagination.
func (q *BookQuery) Validate() error {
	q.Pagination.Normalize()
	if len(q.Sort) == 0 {
		q.Sort = DefaultBookSort
	}
	if q.YearMin != nil && q.YearMax != nil && *q.YearMin > *q.YearMax {
		return invalidQuery("yearMin", "yearMin não pode ser maior que yearMax")
	}
	if q.PriceMin != nil && *q.PriceMin < 0 {
		return invalidQuery("priceMin", "priceMin não pode ser negativo")
	}
	if q.PriceMax != nil && *q.PriceMax < 0 {
		return invalidQuery("priceMax", "priceMax não pode ser negativo")
	}
	if q.PriceMin != nil && q.PriceMax != nil && *q.PriceMin > *q.PriceMax {
		return invalidQuery("priceMin", "priceMin não pode ser maior que priceMax")
	}
	return nil
}

// Match reports whether b passes every filter of q. Text filters are
// case- and accent-insensitive substrings.
func (q BookQuery) Match(b *domain.Book) bool {
	if q.Title != "" && !normalize.Contains(b.Title, q.Title) {
		return false
	}
	if q.Author != "" && !normalize.Contains(b.Author, q.Author) {
		return false
	}
	if q.Publisher != "" && !normalize.Contains(b.Publisher, q.Publisher) {
		return false
	}
	if q.YearMin != nil && (b.Year == 0 || b.Year < *q.YearMin) {
		return false
	}
	if q.YearMax != nil && (b.Year == 0 || b.Year > *q.YearMax) {
		return false
	}
	if q.PriceMin != nil && b.Price < *q.PriceMin {
		return false
	}
	if q.PriceMax != nil && b.Price > *q.PriceMax {
		return false
	}
	return true
}

// Compare orders a and b by the query's sort keys, falling back to the id
// so pages are stable.
func (q BookQuery) Compare(a, b *domain.Book) int {
	sortKeys := q.Sort
	if len(sortKeys) == 0 {
		sortKeys = DefaultBookSort
	}
	for _, sf := range sortKeys {
		c := compareBookField(a, b, sf.Field)
		if c == 0 {
			continue
		}
		if sf.Desc {
			return -c
		}
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareBookField(a, b *domain.Book, field string) int {
	switch field {
	case FieldTitle:
		return cmp.Compare(normalize.Fold(a.Title), normalize.Fold(b.Title))
	case FieldAuthor:
		return cmp.Compare(normalize.Fold(a.Author), normalize.Fold(b.Author))
	case FieldPublisher:
		return cmp.Compare(normalize.Fold(a.Publisher), normalize.Fold(b.Publisher))
	case FieldPrice:
		return cmp.Compare(a.Price, b.Price)
	case FieldPages:
		return cmp.Compare(a.Pages, b.Pages)
	case FieldYear:
		return cmp.Compare(a.Year, b.Year)
	case FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case FieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}

// MatchesTerm reports whether the search term occurs in the title, author,
// publisher or ISBN of b.
func MatchesTerm(b *domain.Book, term string) bool {
	return normalize.Contains(b.Title, term) ||
		normalize.Contains(b.Author, term) ||
		normalize.Contains(b.Publisher, term) ||
		normalize.Contains(b.ISBN, term)
}

// UserQuery filters and pages the admin user list.
type UserQuery struct {
	Pagination
	Role   domain.Role
	Active *bool
	Search string
}

// Match reports whether u passes the filters of q. Search is a substring of
// the name or email.
func (q UserQuery) Match(u *domain.User) bool {
	if q.Role != "" && u.Role != q.Role {
		return false
	}
	if q.Active != nil && u.Active != *q.Active {
		return false
	}
	if q.Search != "" && !normalize.Contains(u.Name, q.Search) && !normalize.Contains(u.Email, q.Search) {
		return false
	}
	return true
}

func invalidQuery(field, msg string) error {
	return domainerrors.ValidationWithDetails("Parâmetros de consulta inválidos", []validation.FieldError{
		{Field: field, Message: msg},
	})
}
