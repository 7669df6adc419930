package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/store"
	"github.com/livraria/livraria-api/internal/validation"
)

func (s *Server) registerUserRoutes() {
	register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/usuarios",
		Summary:     "List users",
		Description: "Admin only",
		Tags:        []string{"Usuários"},
		Security:    bearerAuth,
	}, s.handleListUsers)

	register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/usuarios/{id}",
		Summary:     "Get user",
		Description: "Users can read their own account; admins can read any",
		Tags:        []string{"Usuários"},
		Security:    bearerAuth,
	}, s.handleGetUser)

	register(s.api, huma.Operation{
		OperationID: "updateUser",
		Method:      http.MethodPut,
		Path:        "/api/usuarios/{id}",
		Summary:     "Update user",
		Description: "Email, role, status and verification flag are admin only",
		Tags:        []string{"Usuários"},
		Security:    bearerAuth,
	}, s.handleUpdateUser)

	register(s.api, huma.Operation{
		OperationID: "deactivateUser",
		Method:      http.MethodDelete,
		Path:        "/api/usuarios/{id}",
		Summary:     "Deactivate user",
		Description: "Soft delete: the account is kept with ativo=false. Admin only.",
		Tags:        []string{"Usuários"},
		Security:    bearerAuth,
	}, s.handleDeactivateUser)

	register(s.api, huma.Operation{
		OperationID: "reactivateUser",
		Method:      http.MethodPost,
		Path:        "/api/usuarios/{id}/reativar",
		Summary:     "Reactivate user",
		Tags:        []string{"Usuários"},
		Security:    bearerAuth,
	}, s.handleReactivateUser)
}

// === DTOs ===

// ListUsersInput contains the admin list filters.
type ListUsersInput struct {
	Page   int    `query:"page" default:"1" doc:"Page number, starting at 1"`
	Limit  int    `query:"limit" default:"10" doc:"Items per page, clamped to 1..100"`
	Role   string `query:"role" doc:"usuario or admin"`
	Active string `query:"active" doc:"true or false"`
	Search string `query:"search" doc:"Substring of name or email"`
}

// UserIDInput identifies one user.
type UserIDInput struct {
	ID string `path:"id" doc:"User ID"`
}

// UserUpdateBody extends the profile fields with the admin-only ones.
type UserUpdateBody struct {
	ProfileBody
	Email         *string      `json:"email,omitempty" doc:"Email address, admin only"`
	Role          *domain.Role `json:"role,omitempty" doc:"usuario or admin, admin only"`
	Active        *bool        `json:"ativo,omitempty" doc:"Account status, admin only"`
	EmailVerified *bool        `json:"emailVerificado,omitempty" doc:"Verification flag, admin only"`
}

// UpdateUserInput wraps the user update for Huma.
type UpdateUserInput struct {
	ID   string `path:"id" doc:"User ID"`
	Body UserUpdateBody
}

// UserStatus is returned when an account is deactivated or reactivated.
type UserStatus struct {
	ID     string `json:"id" doc:"User ID"`
	Name   string `json:"nome" doc:"User name"`
	Active bool   `json:"ativo" doc:"Account status"`
}

// UserListOutput wraps a page of users.
type UserListOutput struct {
	Body Envelope[[]domain.UserView]
}

// UserStatusOutput wraps an account status change.
type UserStatusOutput struct {
	Body Envelope[UserStatus]
}

// === Handlers ===

func (s *Server) handleListUsers(ctx context.Context, input *ListUsersInput) (*UserListOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	q := store.UserQuery{
		Pagination: store.Pagination{Page: input.Page, Limit: input.Limit},
		Role:       domain.Role(strings.TrimSpace(input.Role)),
		Search:     strings.TrimSpace(input.Search),
	}
	if raw := strings.TrimSpace(input.Active); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, invalidParam("active", "active deve ser true ou false")
		}
		q.Active = &active
	}

	page, err := s.services.Users.List(ctx, q)
	if err != nil {
		return nil, err
	}

	return &UserListOutput{Body: replyPage(ctx, page, (*domain.User).View)}, nil
}

func (s *Server) handleGetUser(ctx context.Context, input *UserIDInput) (*UserOutput, error) {
	actor, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Users.Get(ctx, actor, input.ID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: reply(ctx, user.View())}, nil
}

func (s *Server) handleUpdateUser(ctx context.Context, input *UpdateUserInput) (*UserOutput, error) {
	actor, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	// Loading first applies the read permission and gives the current
	// preferences to merge into.
	target, err := s.services.Users.Get(ctx, actor, input.ID)
	if err != nil {
		return nil, err
	}

	profile, err := input.Body.ProfileBody.patch(target)
	if err != nil {
		return nil, err
	}

	updated, err := s.services.Users.Update(ctx, actor, target.ID, domain.AdminPatch{
		ProfilePatch:  profile,
		Email:         input.Body.Email,
		Role:          input.Body.Role,
		Active:        input.Body.Active,
		EmailVerified: input.Body.EmailVerified,
	})
	if err != nil {
		return nil, err
	}

	env := reply(ctx, updated.View())
	env.Message = "Usuário atualizado com sucesso"
	return &UserOutput{Body: env}, nil
}

func (s *Server) handleDeactivateUser(ctx context.Context, input *UserIDInput) (*UserStatusOutput, error) {
	actor, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Users.Deactivate(ctx, actor, input.ID)
	if err != nil {
		return nil, err
	}

	env := reply(ctx, UserStatus{ID: user.ID, Name: user.Name, Active: user.Active})
	env.Message = "Usuário desativado com sucesso"
	return &UserStatusOutput{Body: env}, nil
}

func (s *Server) handleReactivateUser(ctx context.Context, input *UserIDInput) (*UserStatusOutput, error) {
	actor, err := RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Users.Reactivate(ctx, actor, input.ID)
	if err != nil {
		return nil, err
	}

	env := reply(ctx, UserStatus{ID: user.ID, Name: user.Name, Active: user.Active})
	env.Message = "Usuário reativado com sucesso"
	return &UserStatusOutput{Body: env}, nil
}

// patch converts the body into a domain patch. Preferences are merged into
// those of current so a client can change one setting at a time.
func (b ProfileBody) patch(current *domain.User) (domain.ProfilePatch, error) {
	patch := domain.ProfilePatch{
		Name:    b.Name,
		Phone:   b.Phone,
		Address: b.Address,
		Gender:  b.Gender,
		Avatar:  b.Avatar,
	}

	if b.BirthDate != nil {
		birth, err := parseDate(*b.BirthDate)
		if err != nil {
			return patch, invalidParam("dataNascimento", "dataNascimento deve estar no formato AAAA-MM-DD")
		}
		patch.BirthDate = &birth
	}

	if b.Preferences != nil {
		prefs := current.Preferences
		if b.Preferences.Notifications != nil {
			prefs.Notifications = *b.Preferences.Notifications
		}
		if b.Preferences.Theme != nil {
			prefs.Theme = *b.Preferences.Theme
		}
		patch.Preferences = &prefs
	}
	return patch, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func invalidParam(field, msg string) error {
	return domainerrors.ValidationWithDetails(msgInvalidInput, []validation.FieldError{
		{Field: field, Message: msg},
	})
}
