package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/livraria/livraria-api/internal/domain"
)

// CreateBook stores a new book. The caller assigns the id.
func (s *Badger) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := s.books.Create(ctx, book.ID, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// GetBook retrieves a book by id.
func (s *Badger) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.books.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// UpdateBook replaces an existing book.
func (s *Badger) UpdateBook(ctx context.Context, book *domain.Book) error {
	err := s.books.Update(ctx, book.ID, book)
	if errors.Is(err, ErrNotFound) {
		return ErrBookNotFound
	}
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// DeleteBook removes a book permanently.
func (s *Badger) DeleteBook(ctx context.Context, id string) error {
	err := s.books.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return ErrBookNotFound
	}
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

// ListBooks filters, sorts and pages the catalogue in memory.
func (s *Badger) ListBooks(ctx context.Context, q BookQuery) (Page[*domain.Book], error) {
	if err := q.Validate(); err != nil {
		return Page[*domain.Book]{}, err
	}

	books, err := s.books.Collect(ctx, q.Match)
	if err != nil {
		return Page[*domain.Book]{}, fmt.Errorf("list books: %w", err)
	}

	slices.SortFunc(books, q.Compare)
	return paginate(books, q.Pagination), nil
}

// SearchBooks scans the catalogue for term.
func (s *Badger) SearchBooks(ctx context.Context, term string, limit int) ([]*domain.Book, error) {
	books, err := s.books.Collect(ctx, func(b *domain.Book) bool {
		return MatchesTerm(b, term)
	})
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	byTitle := BookQuery{Sort: []SortField{{Field: FieldTitle}}}
	slices.SortFunc(books, byTitle.Compare)
	if limit > 0 && len(books) > limit {
		books = books[:limit]
	}
	if books == nil {
		books = []*domain.Book{}
	}
	return books, nil
}

// GetBooksByIDs loads books in the order of ids, skipping missing ones.
func (s *Badger) GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	books := make([]*domain.Book, 0, len(ids))
	for _, id := range ids {
		book, err := s.books.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get book %s: %w", id, err)
		}
		books = append(books, book)
	}
	return books, nil
}

// BookStats aggregates the catalogue in memory.
func (s *Badger) BookStats(ctx context.Context, topN int) (domain.BookStats, error) {
	books, err := s.books.Collect(ctx, nil)
	if err != nil {
		return domain.BookStats{}, fmt.Errorf("book stats: %w", err)
	}
	return domain.ComputeBookStats(books, topN), nil
}

// EachBook streams every book to fn.
func (s *Badger) EachBook(ctx context.Context, fn func(*domain.Book) error) error {
	for book, err := range s.books.List(ctx) {
		if err != nil {
			return fmt.Errorf("iterate books: %w", err)
		}
		if err := fn(book); err != nil {
			return err
		}
	}
	return nil
}
