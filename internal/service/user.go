package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/id"
	"github.com/livraria/livraria-api/internal/normalize"
	"github.com/livraria/livraria-api/internal/store"
	"github.com/livraria/livraria-api/internal/validation"
)

// UserService manages profiles and, for admins, other accounts.
type UserService struct {
	users     store.UserStore
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(users store.UserStore, validator *validation.Validator, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Get returns a user. Non-admins may only read their own account.
func (s *UserService) Get(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if !id.IsObjectID(userID) {
		return nil, domainerrors.InvalidID("ID de usuário inválido")
	}
	if actor.ID != userID && !actor.IsAdmin() {
		return nil, domainerrors.Forbidden("Acesso negado")
	}
	return s.load(ctx, userID)
}

// UpdateProfile applies self-service changes to the actor's own account.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, patch domain.ProfilePatch) (*domain.User, error) {
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	patch.Apply(user)
	user.Normalize()
	if err := s.validator.Validate(user); err != nil {
		return nil, err
	}

	user.Touch(s.now())
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.Info("profile updated", "user_id", user.ID)
	return user, nil
}

// Update changes another account. Email, role and status fields require an
// admin; an admin may not demote or deactivate themself.
func (s *UserService) Update(ctx context.Context, actor *domain.User, userID string, patch domain.AdminPatch) (*domain.User, error) {
	if !id.IsObjectID(userID) {
		return nil, domainerrors.InvalidID("ID de usuário inválido")
	}
	adminOnly := patch.Email != nil || patch.Role != nil || patch.Active != nil || patch.EmailVerified != nil
	if !actor.IsAdmin() {
		if adminOnly {
			return nil, domainerrors.AdminRequired("Apenas administradores podem alterar estes campos")
		}
		if actor.ID != userID {
			return nil, domainerrors.Forbidden("Acesso negado")
		}
	}
	if actor.ID == userID {
		if patch.Role != nil && *patch.Role != domain.RoleAdmin && actor.IsAdmin() {
			return nil, domainerrors.Validation("Você não pode remover seu próprio acesso de administrador")
		}
		if patch.Active != nil && !*patch.Active {
			return nil, domainerrors.Validation("Você não pode desativar sua própria conta")
		}
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	patch.Apply(user)
	user.Normalize()
	if err := s.validator.Validate(user); err != nil {
		return nil, err
	}

	user.Touch(s.now())
	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.EmailExists(msgEmailExists)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("user updated", "user_id", user.ID, "by", actor.ID)
	return user, nil
}

// List pages through accounts for the admin console.
func (s *UserService) List(ctx context.Context, q store.UserQuery) (store.Page[*domain.User], error) {
	q.Normalize()
	q.Search = normalize.Text(q.Search)
	if q.Role != "" && !q.Role.Valid() {
		return store.Page[*domain.User]{}, domainerrors.ValidationWithDetails("Parâmetros de consulta inválidos", []validation.FieldError{
			{Field: "role", Message: "deve ser um dos valores: usuario, admin"},
		})
	}
	return s.users.ListUsers(ctx, q)
}

// Deactivate soft-deletes an account. The record is kept; the user can no
// longer log in and existing tokens stop working.
func (s *UserService) Deactivate(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if !id.IsObjectID(userID) {
		return nil, domainerrors.InvalidID("ID de usuário inválido")
	}
	if actor.ID == userID {
		return nil, domainerrors.Validation("Você não pode desativar sua própria conta")
	}
	return s.setActive(ctx, actor, userID, false)
}

// Reactivate restores a deactivated account.
func (s *UserService) Reactivate(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if !id.IsObjectID(userID) {
		return nil, domainerrors.InvalidID("ID de usuário inválido")
	}
	return s.setActive(ctx, actor, userID, true)
}

func (s *UserService) setActive(ctx context.Context, actor *domain.User, userID string, active bool) (*domain.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Active == active {
		return user, nil
	}

	user.Active = active
	if !active {
		user.ClearResetToken()
	}
	user.Touch(s.now())
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("user status changed", "user_id", user.ID, "active", active, "by", actor.ID)
	return user, nil
}

func (s *UserService) load(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("Usuário não encontrado")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
