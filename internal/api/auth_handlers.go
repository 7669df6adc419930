package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livraria/livraria-api/internal/domain"
	"github.com/livraria/livraria-api/internal/service"
)

func (s *Server) registerAuthRoutes() {
	limited := s.rateLimit(s.deps.AuthLimiter, s.cfg.AuthRetryAfter)

	register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/auth/registro",
		Summary:       "Register new user",
		Description:   "Creates an ordinary account, sends the verification mail and returns an access token",
		Tags:          []string{"Autenticação"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   limited,
	}, s.handleRegister)

	register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/auth/login",
		Summary:     "User login",
		Tags:        []string{"Autenticação"},
		Middlewares: limited,
	}, s.handleLogin)

	register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/auth/perfil",
		Summary:     "Current user",
		Tags:        []string{"Autenticação"},
		Security:    bearerAuth,
	}, s.handleGetProfile)

	register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPut,
		Path:        "/api/auth/perfil",
		Summary:     "Update current user",
		Description: "Only self-service fields are accepted; email, role, status and password are rejected",
		Tags:        []string{"Autenticação"},
		Security:    bearerAuth,
	}, s.handleUpdateProfile)

	register(s.api, huma.Operation{
		OperationID: "changePassword",
		Method:      http.MethodPut,
		Path:        "/api/auth/alterar-senha",
		Summary:     "Change password",
		Tags:        []string{"Autenticação"},
		Security:    bearerAuth,
	}, s.handleChangePassword)

	register(s.api, huma.Operation{
		OperationID: "forgotPassword",
		Method:      http.MethodPost,
		Path:        "/api/auth/esqueci-senha",
		Summary:     "Request password reset",
		Description: "Always answers with the same message, whether or not the email is registered",
		Tags:        []string{"Autenticação"},
		Middlewares: limited,
	}, s.handleForgotPassword)

	register(s.api, huma.Operation{
		OperationID: "resetPassword",
		Method:      http.MethodPost,
		Path:        "/api/auth/redefinir-senha",
		Summary:     "Reset password",
		Tags:        []string{"Autenticação"},
		Middlewares: limited,
	}, s.handleResetPassword)

	register(s.api, huma.Operation{
		OperationID: "verifyEmail",
		Method:      http.MethodGet,
		Path:        "/api/auth/verificar-email/{token}",
		Summary:     "Verify email address",
		Tags:        []string{"Autenticação"},
	}, s.handleVerifyEmail)

	register(s.api, huma.Operation{
		OperationID: "resendVerification",
		Method:      http.MethodPost,
		Path:        "/api/auth/reenviar-verificacao",
		Summary:     "Resend verification mail",
		Tags:        []string{"Autenticação"},
		Security:    bearerAuth,
	}, s.handleResendVerification)

	register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/auth/logout",
		Summary:     "Logout",
		Description: "Acknowledges the logout; tokens are stateless and expire on their own",
		Tags:        []string{"Autenticação"},
		Security:    bearerAuth,
	}, s.handleLogout)
}

// === DTOs ===

// RegisterInput wraps the register request for Huma.
type RegisterInput struct {
	Body service.RegisterRequest
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body service.LoginRequest
}

// ChangePasswordInput wraps the change password request for Huma.
type ChangePasswordInput struct {
	Body service.ChangePasswordRequest
}

// ForgotPasswordInput wraps the forgot password request for Huma.
type ForgotPasswordInput struct {
	Body service.ForgotPasswordRequest
}

// ResetPasswordInput wraps the reset password request for Huma.
type ResetPasswordInput struct {
	Body service.ResetPasswordRequest
}

// VerifyEmailInput carries the token from the verification link.
type VerifyEmailInput struct {
	Token string `path:"token" doc:"Token received by email"`
}

// PreferencesBody updates user interface settings. Omitted fields keep
// their current value.
type PreferencesBody struct {
	Notifications *bool   `json:"notificacoes,omitempty" doc:"Receive notifications"`
	Theme         *string `json:"tema,omitempty" doc:"claro, escuro or sistema"`
}

// ProfileBody holds the self-service profile fields.
type ProfileBody struct {
	Name        *string          `json:"nome,omitempty" doc:"Full name"`
	Phone       *string          `json:"telefone,omitempty" doc:"Phone number"`
	Address     *domain.Address  `json:"endereco,omitempty" doc:"Postal address, replaced as a whole"`
	BirthDate   *string          `json:"dataNascimento,omitempty" doc:"Birth date, YYYY-MM-DD"`
	Gender      *domain.Gender   `json:"genero,omitempty" doc:"masculino, feminino, outro or nao-informado"`
	Avatar      *string          `json:"avatar,omitempty" doc:"Avatar image URL"`
	Preferences *PreferencesBody `json:"preferencias,omitempty" doc:"Interface settings"`
}

// UpdateProfileInput wraps the profile update for Huma.
type UpdateProfileInput struct {
	Body ProfileBody
}

// AuthData is returned by every operation that issues a token.
type AuthData struct {
	Token string          `json:"token" doc:"JWT access token"`
	User  domain.UserView `json:"usuario" doc:"Authenticated user"`
}

// AuthOutput wraps an issued token.
type AuthOutput struct {
	Body Envelope[AuthData]
}

// UserOutput wraps one user.
type UserOutput struct {
	Body Envelope[domain.UserView]
}

// MessageOutput wraps a message-only response.
type MessageOutput struct {
	Body MessageEnvelope
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	result, err := s.services.Auth.Register(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: s.authReply(ctx, result, "Usuário registrado com sucesso")}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	result, err := s.services.Auth.Login(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: s.authReply(ctx, result, "Login realizado com sucesso")}, nil
}

func (s *Server) handleGetProfile(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: reply(ctx, user.View())}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*UserOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	patch, err := input.Body.patch(user)
	if err != nil {
		return nil, err
	}

	updated, err := s.services.Users.UpdateProfile(ctx, user, patch)
	if err != nil {
		return nil, err
	}

	env := reply(ctx, updated.View())
	env.Message = "Perfil atualizado com sucesso"
	return &UserOutput{Body: env}, nil
}

func (s *Server) handleChangePassword(ctx context.Context, input *ChangePasswordInput) (*AuthOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Auth.ChangePassword(ctx, user.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: s.authReply(ctx, result, "Senha alterada com sucesso")}, nil
}

func (s *Server) handleForgotPassword(ctx context.Context, input *ForgotPasswordInput) (*MessageOutput, error) {
	if err := s.services.Auth.ForgotPassword(ctx, input.Body); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: replyMessage(ctx, service.ForgotPasswordMessage)}, nil
}

func (s *Server) handleResetPassword(ctx context.Context, input *ResetPasswordInput) (*AuthOutput, error) {
	result, err := s.services.Auth.ResetPassword(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: s.authReply(ctx, result, "Senha redefinida com sucesso")}, nil
}

func (s *Server) handleVerifyEmail(ctx context.Context, input *VerifyEmailInput) (*UserOutput, error) {
	user, err := s.services.Auth.VerifyEmail(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	env := reply(ctx, user.View())
	env.Message = "Email verificado com sucesso"
	return &UserOutput{Body: env}, nil
}

func (s *Server) handleResendVerification(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Auth.ResendVerification(ctx, user.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: replyMessage(ctx, "Email de verificação reenviado")}, nil
}

func (s *Server) handleLogout(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged out", "user_id", user.ID)
	return &MessageOutput{Body: replyMessage(ctx, "Logout realizado com sucesso")}, nil
}

// authReply builds the token envelope shared by register, login and the
// password flows.
func (s *Server) authReply(ctx context.Context, result *service.AuthResult, message string) Envelope[AuthData] {
	env := reply(ctx, AuthData{Token: result.Token, User: result.User.View()})
	env.Message = message
	env.Meta.TokenMeta = &TokenMeta{
		TokenType: "Bearer",
		ExpiresIn: int64(s.services.Auth.TokenDuration() / time.Second),
		ExpiresAt: result.ExpiresAt.UTC(),
	}
	return env
}
