package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livraria/livraria-api/internal/domain"
	"github.com/livraria/livraria-api/internal/id"
)

func setupTestStore(t *testing.T) (*Badger, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "livraria-test-*")
	require.NoError(t, err)

	s, err := NewBadger(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return s, cleanup
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newBook(title, author, publisher string, price float64, year int, offset time.Duration) *domain.Book {
	b := &domain.Book{
		Title:     title,
		Author:    author,
		Publisher: publisher,
		Price:     price,
		Pages:     100,
		Year:      year,
	}
	b.ID = id.NewObjectID()
	b.InitTimestamps(baseTime.Add(offset))
	return b
}

func seedBooks(t *testing.T, s *Badger) []*domain.Book {
	t.Helper()
	books := []*domain.Book{
		newBook("Dom Casmurro", "Machado de Assis", "Garnier", 29.9, 1899, 0),
		newBook("Memórias Póstumas de Brás Cubas", "Machado de Assis", "Tipografia Nacional", 35, 1881, time.Minute),
		newBook("O Cortiço", "Aluísio Azevedo", "Garnier", 19.5, 1890, 2*time.Minute),
		newBook("Grande Sertão: Veredas", "João Guimarães Rosa", "José Olympio", 79.9, 1956, 3*time.Minute),
		newBook("A Hora da Estrela", "Clarice Lispector", "José Olympio", 24, 1977, 4*time.Minute),
	}
	for _, b := range books {
		require.NoError(t, s.CreateBook(context.Background(), b))
	}
	return books
}

func titles(books []*domain.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestNewBadger_InMemory(t *testing.T) {
	s, err := NewBadger("", nil)
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.Ping(context.Background()))
}

func TestPing_AfterClose(t *testing.T) {
	s, err := NewBadger("", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBook_CRUD(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	book := newBook("Vidas Secas", "Graciliano Ramos", "José Olympio", 42, 1938, 0)
	require.NoError(t, s.CreateBook(ctx, book))

	got, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vidas Secas", got.Title)
	assert.True(t, book.CreatedAt.Equal(got.CreatedAt))

	got.Price = 45
	require.NoError(t, s.UpdateBook(ctx, got))

	updated, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 45.0, updated.Price)

	require.NoError(t, s.DeleteBook(ctx, book.ID))
	_, err = s.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBook_MissingReturnsNotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	missing := newBook("Fantasma", "", "", 0, 0, 0)

	_, err := s.GetBook(ctx, missing.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateBook(ctx, missing), ErrBookNotFound)
	assert.ErrorIs(t, s.DeleteBook(ctx, missing.ID), ErrBookNotFound)
}

func TestCreateBook_DuplicateID(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	book := newBook("Iracema", "José de Alencar", "", 10, 1865, 0)
	require.NoError(t, s.CreateBook(ctx, book))
	assert.ErrorIs(t, s.CreateBook(ctx, book), ErrAlreadyExists)
}

func TestListBooks_DefaultSortNewestFirst(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	seedBooks(t, s)

	page, err := s.ListBooks(context.Background(), BookQuery{})
	require.NoError(t, err)

	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, "A Hora da Estrela", page.Items[0].Title)
	assert.Equal(t, "Dom Casmurro", page.Items[4].Title)
}

func TestListBooks_Filters(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	seedBooks(t, s)
	ctx := context.Background()

	t.Run("author substring ignores case and accents", func(t *testing.T) {
		page, err := s.ListBooks(ctx, BookQuery{Author: "MACHADO", Sort: []SortField{{Field: FieldTitle}}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Dom Casmurro", "Memórias Póstumas de Brás Cubas"}, titles(page.Items))

		page, err = s.ListBooks(ctx, BookQuery{Author: "aluisio"})
		require.NoError(t, err)
		assert.Equal(t, []string{"O Cortiço"}, titles(page.Items))
	})

	t.Run("publisher", func(t *testing.T) {
		page, err := s.ListBooks(ctx, BookQuery{Publisher: "olympio"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("year range", func(t *testing.T) {
		minYear, maxYear := 1880, 1900
		page, err := s.ListBooks(ctx, BookQuery{YearMin: &minYear, YearMax: &maxYear})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
	})

	t.Run("price range", func(t *testing.T) {
		minPrice, maxPrice := 20.0, 30.0
		page, err := s.ListBooks(ctx, BookQuery{PriceMin: &minPrice, PriceMax: &maxPrice, Sort: []SortField{{Field: FieldPrice}}})
		require.NoError(t, err)
		assert.Equal(t, []string{"A Hora da Estrela", "Dom Casmurro"}, titles(page.Items))
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		minYear, maxYear := 2000, 1900
		_, err := s.ListBooks(ctx, BookQuery{YearMin: &minYear, YearMax: &maxYear})
		assert.Error(t, err)
	})
}

func TestListBooks_MultiFieldSort(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	seedBooks(t, s)

	sortKeys, err := ParseSort("editora,-preco")
	require.NoError(t, err)

	page, err := s.ListBooks(context.Background(), BookQuery{Sort: sortKeys})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Dom Casmurro",
		"O Cortiço",
		"Grande Sertão: Veredas",
		"A Hora da Estrela",
		"Memórias Póstumas de Brás Cubas",
	}, titles(page.Items))
}

func TestListBooks_Pagination(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	seedBooks(t, s)
	ctx := context.Background()

	page, err := s.ListBooks(ctx, BookQuery{Pagination: Pagination{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.TotalPages())
	assert.True(t, page.HasNext())
	assert.True(t, page.HasPrev())

	beyond, err := s.ListBooks(ctx, BookQuery{Pagination: Pagination{Page: 10, Limit: 2}})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.False(t, beyond.HasNext())
	assert.Equal(t, 5, beyond.Total)

	clamped, err := s.ListBooks(ctx, BookQuery{Pagination: Pagination{Limit: 1000}})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, clamped.Limit)
}

func TestSearchBooks(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	books := seedBooks(t, s)
	ctx := context.Background()

	books[0].ISBN = "978-85-359-0277-8"
	require.NoError(t, s.UpdateBook(ctx, books[0]))

	results, err := s.SearchBooks(ctx, "olympio", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"A Hora da Estrela", "Grande Sertão: Veredas"}, titles(results))

	results, err = s.SearchBooks(ctx, "sertao", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"Grande Sertão: Veredas"}, titles(results))

	results, err = s.SearchBooks(ctx, "0277", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dom Casmurro"}, titles(results))

	results, err = s.SearchBooks(ctx, "machado", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = s.SearchBooks(ctx, "inexistente", 20)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestGetBooksByIDs_KeepsOrderSkipsMissing(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	books := seedBooks(t, s)

	got, err := s.GetBooksByIDs(context.Background(), []string{books[3].ID, id.NewObjectID(), books[0].ID})
	require.NoError(t, err)
	assert.Equal(t, []string{books[3].Title, books[0].Title}, titles(got))
}

func TestBookStats(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	empty, err := s.BookStats(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalBooks)
	assert.Empty(t, empty.TopAuthors)

	seedBooks(t, s)
	stats, err := s.BookStats(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalBooks)
	assert.Equal(t, int64(500), stats.TotalPages)
	assert.Equal(t, 19.5, stats.MinPrice)
	assert.Equal(t, 79.9, stats.MaxPrice)
	assert.Equal(t, 1881, stats.OldestYear)
	assert.Equal(t, 1977, stats.NewestYear)
	assert.Equal(t, domain.NameCount{Name: "Machado de Assis", Total: 2}, stats.TopAuthors[0])
	assert.Equal(t, []domain.NameCount{{Name: "Garnier", Total: 2}, {Name: "José Olympio", Total: 2}, {Name: "Tipografia Nacional", Total: 1}}, stats.TopPublishers)
}

func TestEachBook(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	seedBooks(t, s)

	count := 0
	err := s.EachBook(context.Background(), func(*domain.Book) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	stop := assert.AnError
	err = s.EachBook(context.Background(), func(*domain.Book) error { return stop })
	assert.ErrorIs(t, err, stop)
}
