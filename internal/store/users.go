package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/livraria/livraria-api/internal/domain"
)

// CreateUser stores a new account. Returns ErrEmailExists when the email is
// taken (case-insensitive).
func (s *Badger) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.users.Create(ctx, user.ID, user)
	if errors.Is(err, ErrAlreadyExists) {
		return ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *Badger) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.userResult(s.users.Get(ctx, id))
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (s *Badger) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userResult(s.users.GetByIndex(ctx, indexEmail, email))
}

// GetUserByResetTokenHash retrieves the user holding a reset token hash.
func (s *Badger) GetUserByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return s.userResult(s.users.GetByIndex(ctx, indexResetToken, hash))
}

// GetUserByVerifyTokenHash retrieves the user holding a verification token hash.
func (s *Badger) GetUserByVerifyTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return s.userResult(s.users.GetByIndex(ctx, indexVerifyToken, hash))
}

func (s *Badger) userResult(user *domain.User, err error) (*domain.User, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateUser replaces an existing account.
func (s *Badger) UpdateUser(ctx context.Context, user *domain.User) error {
	err := s.users.Update(ctx, user.ID, user)
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, ErrAlreadyExists):
		return ErrEmailExists
	case err != nil:
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ListUsers filters and pages accounts, newest first.
func (s *Badger) ListUsers(ctx context.Context, q UserQuery) (Page[*domain.User], error) {
	q.Pagination.Normalize()

	users, err := s.users.Collect(ctx, q.Match)
	if err != nil {
		return Page[*domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	slices.SortFunc(users, func(a, b *domain.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(users, q.Pagination), nil
}

// CountAdmins counts active administrators.
func (s *Badger) CountAdmins(ctx context.Context) (int, error) {
	admins, err := s.users.Collect(ctx, func(u *domain.User) bool {
		return u.IsAdmin() && u.IsActive()
	})
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return len(admins), nil
}
