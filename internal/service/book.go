package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/id"
	"github.com/livraria/livraria-api/internal/store"
	"github.com/livraria/livraria-api/internal/validation"
)

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MinSearchTermLen   = 2
	statsTopN          = 5
)

const msgBookNotFound = "Livro não encontrado"

// BookIndex is the full-text index kept in sync with the catalogue.
// search.BookIndex implements it.
type BookIndex interface {
	Index(book *domain.Book) error
	Delete(id string) error
	Search(ctx context.Context, term string, limit int) ([]string, error)
}

// BookService implements the catalogue operations.
type BookService struct {
	books     store.BookStore
	index     BookIndex // nil when full-text search is disabled
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewBookService creates a new book service. index may be nil.
func NewBookService(books store.BookStore, index BookIndex, validator *validation.Validator, logger *slog.Logger) *BookService {
	return &BookService{
		books:     books,
		index:     index,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns one page of books matching q.
func (s *BookService) List(ctx context.Context, q store.BookQuery) (store.Page[*domain.Book], error) {
	if err := q.Validate(); err != nil {
		return store.Page[*domain.Book]{}, err
	}
	return s.books.ListBooks(ctx, q)
}

// Get returns one book. Malformed ids are rejected before the store is hit.
func (s *BookService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	if !id.IsObjectID(bookID) {
		return nil, domainerrors.InvalidID("ID de livro inválido")
	}
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound(msgBookNotFound)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// Create stores a new book on behalf of actor.
func (s *BookService) Create(ctx context.Context, actor *domain.User, draft *domain.Book) (*domain.Book, error) {
	book := *draft
	book.Normalize()
	book.ApplyDefaults()
	if err := s.validator.Validate(&book); err != nil {
		return nil, err
	}

	book.ID = id.NewObjectID()
	book.InitTimestamps(s.now())
	book.CreatedBy = actor.ID
	book.UpdatedBy = ""

	if err := s.books.CreateBook(ctx, &book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Info("book created", "book_id", book.ID, "title", book.Title, "by", actor.ID)
	s.indexBook(&book)
	return &book, nil
}

// Update merges patch into the stored book and validates the result as a whole.
func (s *BookService) Update(ctx context.Context, actor *domain.User, bookID string, patch domain.BookPatch) (*domain.Book, error) {
	if patch.IsEmpty() {
		return nil, domainerrors.Validation("Nenhum campo para atualizar")
	}
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	patch.Apply(book)
	book.Normalize()
	if err := s.validator.Validate(book); err != nil {
		return nil, err
	}

	book.Touch(s.now())
	book.UpdatedBy = actor.ID
	if err := s.books.UpdateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound(msgBookNotFound)
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.logger.Info("book updated", "book_id", book.ID, "by", actor.ID)
	s.indexBook(book)
	return book, nil
}

// Delete removes a book permanently and returns what was removed.
func (s *BookService) Delete(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err := s.books.DeleteBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, domainerrors.NotFound(msgBookNotFound)
		}
		return nil, fmt.Errorf("delete book: %w", err)
	}

	s.logger.Info("book deleted", "book_id", book.ID, "title", book.Title)
	if s.index != nil {
		if err := s.index.Delete(book.ID); err != nil {
			s.logger.Warn("failed to remove book from search index", "book_id", book.ID, "error", err)
		}
	}
	return book, nil
}

// Search finds books whose title, author, publisher or ISBN contains term.
// It returns the trimmed term alongside the results.
func (s *BookService) Search(ctx context.Context, term string, limit int) (string, []*domain.Book, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinSearchTermLen {
		return term, nil, domainerrors.ValidationWithDetails("Termo de busca inválido", []validation.FieldError{
			{Field: "termo", Message: fmt.Sprintf("deve ter pelo menos %d caracteres", MinSearchTermLen)},
		})
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	if s.index != nil {
		ids, err := s.index.Search(ctx, term, limit)
		if err == nil {
			books, err := s.books.GetBooksByIDs(ctx, ids)
			if err == nil {
				return term, books, nil
			}
			s.logger.Warn("failed to load search hits", "error", err)
		} else {
			s.logger.Warn("search index query failed, falling back to store", "error", err)
		}
	}

	books, err := s.books.SearchBooks(ctx, term, limit)
	if err != nil {
		return term, nil, fmt.Errorf("search books: %w", err)
	}
	return term, books, nil
}

// Stats aggregates the catalogue.
func (s *BookService) Stats(ctx context.Context) (domain.BookStats, error) {
	stats, err := s.books.BookStats(ctx, statsTopN)
	if err != nil {
		return domain.BookStats{}, fmt.Errorf("book stats: %w", err)
	}
	return stats, nil
}

func (s *BookService) indexBook(book *domain.Book) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}
