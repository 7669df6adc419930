package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/livraria/livraria-api/internal/domain"
	"github.com/livraria/livraria-api/internal/normalize"
)

// Key prefixes.
const (
	bookPrefix = "livro:"
	userPrefix = "usuario:"
)

// Index names.
const (
	indexEmail       = "email"
	indexResetToken  = "reset"
	indexVerifyToken = "verify"
)

// Badger is the embedded Store implementation.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger

	books *Entity[domain.Book]
	users *Entity[domain.User]
}

var _ Store = (*Badger)(nil)

// NewBadger opens (or creates) a Badger database at path.
// An empty path keeps everything in memory.
func NewBadger(path string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true       // survive crashes
		opts.CompactL0OnClose = true // faster startup
	}
	opts.Logger = nil // badger's own logging is too chatty

	db, err := badger.Open(opts)
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("open badger db: %w", err))
	}

	s := &Badger{
		db:     db,
		logger: logger,
	}
	s.books = NewEntity[domain.Book](db, bookPrefix)
	s.users = NewEntity[domain.User](db, userPrefix).
		WithIndexTransform(indexEmail, func(u *domain.User) []string {
			return []string{normalize.Email(u.Email)}
		}, normalize.Email).
		WithIndex(indexResetToken, func(u *domain.User) []string {
			return []string{u.ResetTokenHash}
		}).
		WithIndex(indexVerifyToken, func(u *domain.User) []string {
			return []string{u.VerifyTokenHash}
		})

	if logger != nil {
		if path == "" {
			logger.Info("badger database opened", "mode", "memory")
		} else {
			logger.Info("badger database opened", "path", path)
		}
	}
	return s, nil
}

// Ping reports whether the database is open.
func (s *Badger) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return ErrUnavailable.WithCause(errors.New("badger db closed"))
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// Close gracefully closes the database.
func (s *Badger) Close() error {
	if s.logger != nil {
		s.logger.Info("closing badger database")
	}
	return s.db.Close()
}
