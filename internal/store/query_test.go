package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
)

func TestParseSort(t *testing.T) {
	tests := []struct {
		raw     string
		want    []SortField
		wantErr bool
	}{
		{"", DefaultBookSort, false},
		{"titulo", []SortField{{Field: "titulo"}}, false},
		{"-preco,titulo", []SortField{{Field: "preco", Desc: true}, {Field: "titulo"}}, false},
		{" +autor , -anoPublicacao ", []SortField{{Field: "autor"}, {Field: "anoPublicacao", Desc: true}}, false},
		{"preco,-preco", []SortField{{Field: "preco"}}, false},
		{",", DefaultBookSort, false},
		{"senha", nil, true},
		{"-preco,$where", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSort(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domainerrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBookQuery_Validate(t *testing.T) {
	intp := func(v int) *int { return &v }
	floatp := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		q       BookQuery
		wantErr bool
	}{
		{"empty", BookQuery{}, false},
		{"equal years", BookQuery{YearMin: intp(1990), YearMax: intp(1990)}, false},
		{"inverted years", BookQuery{YearMin: intp(2000), YearMax: intp(1990)}, true},
		{"negative price", BookQuery{PriceMin: floatp(-1)}, true},
		{"inverted prices", BookQuery{PriceMin: floatp(50), PriceMax: floatp(10)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.q
			err := q.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultLimit, q.Limit)
			assert.Equal(t, DefaultBookSort, q.Sort)
		})
	}
}

func TestBookQuery_MatchYearFilterExcludesUnknownYear(t *testing.T) {
	minYear := 1900
	q := BookQuery{YearMin: &minYear}

	assert.False(t, q.Match(&domain.Book{Title: "Sem ano"}))
	assert.True(t, q.Match(&domain.Book{Title: "Com ano", Year: 1950}))
}

func TestBookQuery_CompareTieBreaksByID(t *testing.T) {
	a := &domain.Book{Title: "Mesmo", Document: domain.Document{ID: "a"}}
	b := &domain.Book{Title: "mesmo", Document: domain.Document{ID: "b"}}
	q := BookQuery{Sort: []SortField{{Field: FieldTitle, Desc: true}}}

	assert.Negative(t, q.Compare(a, b))
	assert.Positive(t, q.Compare(b, a))
}

func TestMatchesTerm(t *testing.T) {
	b := &domain.Book{Title: "Ensaio sobre a Cegueira", Author: "José Saramago", Publisher: "Caminho", ISBN: "972-21-1050-2"}

	assert.True(t, MatchesTerm(b, "cegueira"))
	assert.True(t, MatchesTerm(b, "JOSE"))
	assert.True(t, MatchesTerm(b, "caminho"))
	assert.True(t, MatchesTerm(b, "1050"))
	assert.False(t, MatchesTerm(b, "lisboa"))
}
