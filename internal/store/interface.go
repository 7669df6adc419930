package store

import (
	"context"

	"github.com/livraria/livraria-api/internal/domain"
)

// BookStore persists the book catalogue.
type BookStore interface {
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	UpdateBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id string) error
	ListBooks(ctx context.Context, q BookQuery) (Page[*domain.Book], error)
	// SearchBooks returns up to limit books whose title, author, publisher
	// or ISBN contains term, ordered by title.
	SearchBooks(ctx context.Context, term string, limit int) ([]*domain.Book, error)
	// GetBooksByIDs returns the books that exist, in the order of ids.
	GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error)
	BookStats(ctx context.Context, topN int) (domain.BookStats, error)
	// EachBook calls fn for every stored book until fn returns an error.
	EachBook(ctx context.Context, fn func(*domain.Book) error) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByResetTokenHash(ctx context.Context, hash string) (*domain.User, error)
	GetUserByVerifyTokenHash(ctx context.Context, hash string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context, q UserQuery) (Page[*domain.User], error)
	// CountAdmins counts active administrators.
	CountAdmins(ctx context.Context) (int, error)
}

// Store is the document database used by the API.
// Implementations: Badger (embedded) and mongostore.Store (MongoDB).
type Store interface {
	BookStore
	UserStore

	// Ping checks that the database answers.
	Ping(ctx context.Context) error
	Close() error
}
