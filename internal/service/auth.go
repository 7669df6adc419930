package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/livraria/livraria-api/internal/auth"
	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/id"
	"github.com/livraria/livraria-api/internal/mail"
	"github.com/livraria/livraria-api/internal/normalize"
	"github.com/livraria/livraria-api/internal/store"
	"github.com/livraria/livraria-api/internal/validation"
)

// Messages shown to clients.
const (
	msgInvalidCredentials = "Credenciais inválidas"
	msgAccountDisabled    = "Conta desativada. Entre em contato com o suporte."
	msgPasswordsMismatch  = "As senhas não conferem"
	msgEmailExists        = "Email já cadastrado"
	msgInvalidResetToken  = "Token inválido ou expirado"
	// ForgotPasswordMessage is returned whether or not the email exists.
	ForgotPasswordMessage = "Se o email estiver cadastrado, você receberá as instruções para redefinir a senha."
)

// AuthConfig holds the account token settings.
type AuthConfig struct {
	AppURL         string        // base URL of the web client, used in mail links
	ResetTokenTTL  time.Duration // lifetime of password reset tokens
	VerifyTokenTTL time.Duration // lifetime of email verification tokens
}

// AuthService handles registration, login, token verification and the
// password and email-verification flows.
type AuthService struct {
	users     store.UserStore
	tokens    *auth.TokenService
	validator *validation.Validator
	mailer    mail.Mailer
	cfg       AuthConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users store.UserStore,
	tokens *auth.TokenService,
	validator *validation.Validator,
	mailer mail.Mailer,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 10 * time.Minute
	}
	if cfg.VerifyTokenTTL <= 0 {
		cfg.VerifyTokenTTL = 24 * time.Hour
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &AuthService{
		users:     users,
		tokens:    tokens,
		validator: validator,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRequest contains the data for open registration.
type RegisterRequest struct {
	Name            string `json:"nome,omitempty" validate:"required,min=2,max=100" doc:"Full name"`
	Email           string `json:"email,omitempty" validate:"required,email,max=254" doc:"Email address"`
	Password        string `json:"senha,omitempty" validate:"required,min=6,max=128" doc:"Password"`
	ConfirmPassword string `json:"confirmarSenha,omitempty" validate:"required" doc:"Password confirmation"`
	Phone           string `json:"telefone,omitempty" validate:"max=20" doc:"Phone number"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email,omitempty" validate:"required,email" doc:"Email address"`
	Password string `json:"senha,omitempty" validate:"required" doc:"Password"`
}

// ChangePasswordRequest replaces the password of an authenticated user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"senhaAtual,omitempty" validate:"required" doc:"Current password"`
	NewPassword     string `json:"novaSenha,omitempty" validate:"required,min=6,max=128" doc:"New password"`
	ConfirmPassword string `json:"confirmarSenha,omitempty" validate:"required" doc:"New password confirmation"`
}

// ForgotPasswordRequest starts the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email,omitempty" validate:"required,email" doc:"Account email"`
}

// ResetPasswordRequest completes the password reset flow.
type ResetPasswordRequest struct {
	Token           string `json:"token,omitempty" validate:"required" doc:"Token received by email"`
	NewPassword     string `json:"novaSenha,omitempty" validate:"required,min=6,max=128" doc:"New password"`
	ConfirmPassword string `json:"confirmarSenha,omitempty" validate:"required" doc:"New password confirmation"`
}

// AuthResult is a freshly issued access token and its user.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// TokenDuration returns the lifetime of issued tokens.
func (s *AuthService) TokenDuration() time.Duration {
	return s.tokens.Duration()
}

// Register creates an ordinary account and signs the user in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, domainerrors.PasswordsMismatch(msgPasswordsMismatch)
	}

	email := normalize.Email(req.Email)
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, domainerrors.EmailExists(msgEmailExists)
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: passwordHash,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         domain.RoleUser,
		Active:       true,
		Preferences:  domain.DefaultPreferences(),
		LastLoginAt:  &now,
	}
	user.ID = id.NewObjectID()
	user.Normalize()
	user.InitTimestamps(now)
	if err := s.validator.Validate(user); err != nil {
		return nil, err
	}

	verifyToken, err := s.prepareVerification(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.EmailExists(msgEmailExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	s.sendVerification(ctx, user, verifyToken)

	return s.issue(user)
}

// Login authenticates by email and password.
// Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.InvalidCredentials(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.logger.Warn("login failed", "user_id", user.ID)
		return nil, domainerrors.InvalidCredentials(msgInvalidCredentials)
	}

	if !user.IsActive() {
		return nil, domainerrors.AccountDisabled(msgAccountDisabled).WithStatus(http.StatusForbidden)
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if upgraded, err := auth.HashPassword(req.Password); err == nil {
			user.PasswordHash = upgraded
		}
	}

	now := s.now()
	user.LastLoginAt = &now
	user.Touch(now)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		// Log but don't fail login
		s.logger.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return s.issue(user)
}

// Authenticate resolves a bearer token to an active user.
// Used by the authentication middleware.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, domainerrors.TokenExpired("Token expirado")
		}
		return nil, domainerrors.TokenInvalid("Token inválido").WithCause(err)
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.UserNotFound("Usuário não encontrado")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive() {
		return nil, domainerrors.AccountDisabled("Conta desativada")
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one and
// returns a fresh token.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.NewPassword != req.ConfirmPassword {
		return nil, domainerrors.PasswordsMismatch(msgPasswordsMismatch)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		return nil, domainerrors.InvalidCredentials("Senha atual incorreta")
	}
	if req.NewPassword == req.CurrentPassword {
		return nil, domainerrors.ValidationWithDetails("A nova senha deve ser diferente da atual", []validation.FieldError{
			{Field: "novaSenha", Message: "deve ser diferente da senha atual"},
		})
	}

	if err := s.setPassword(ctx, user, req.NewPassword); err != nil {
		return nil, err
	}

	s.logger.Info("password changed", "user_id", user.ID)
	return s.issue(user)
}

// ForgotPassword emails a reset link when the account exists and is active.
// The outcome is never revealed to the caller.
func (s *AuthService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive() {
		s.logger.Debug("password reset requested for disabled account", "user_id", user.ID)
		return nil
	}

	token, hash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	now := s.now()
	user.SetResetToken(hash, now.Add(s.cfg.ResetTokenTTL))
	user.Touch(now)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	msg, err := mail.PasswordReset(user.Email, user.Name, s.cfg.AppURL+"/redefinir-senha/"+token, s.cfg.ResetTokenTTL)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Error("failed to send password reset mail", "user_id", user.ID, "error", err)
		return nil
	}

	s.logger.Info("password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
// The token is single-use.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.NewPassword != req.ConfirmPassword {
		return nil, domainerrors.PasswordsMismatch(msgPasswordsMismatch)
	}

	hash := auth.HashOpaqueToken(strings.TrimSpace(req.Token))
	user, err := s.users.GetUserByResetTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, invalidToken(msgInvalidResetToken)
		}
		return nil, fmt.Errorf("lookup reset token: %w", err)
	}

	if !user.ResetTokenValid(hash, s.now()) {
		user.ClearResetToken()
		if err := s.users.UpdateUser(ctx, user); err != nil {
			s.logger.Warn("failed to clear expired reset token", "user_id", user.ID, "error", err)
		}
		return nil, invalidToken(msgInvalidResetToken)
	}
	if !user.IsActive() {
		return nil, domainerrors.AccountDisabled(msgAccountDisabled).WithStatus(http.StatusForbidden)
	}

	if err := s.setPassword(ctx, user, req.NewPassword); err != nil {
		return nil, err
	}

	s.logger.Info("password reset", "user_id", user.ID)
	return s.issue(user)
}

// VerifyEmail consumes an email verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	hash := auth.HashOpaqueToken(strings.TrimSpace(token))
	user, err := s.users.GetUserByVerifyTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, invalidToken("Token de verificação inválido ou expirado")
		}
		return nil, fmt.Errorf("lookup verification token: %w", err)
	}
	if !user.VerifyTokenValid(hash, s.now()) {
		return nil, invalidToken("Token de verificação inválido ou expirado")
	}

	now := s.now()
	user.EmailVerified = true
	user.ClearVerifyToken()
	user.Touch(now)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("email verified", "user_id", user.ID)
	return user, nil
}

// ResendVerification issues a new verification token for the user.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return domainerrors.Validation("Email já verificado")
	}

	token, err := s.prepareVerification(user)
	if err != nil {
		return err
	}
	user.Touch(s.now())
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	s.sendVerification(ctx, user, token)
	return nil
}

// EnsureAdmin creates the first administrator when no active admin exists.
// An existing account with the same email is promoted instead.
// Returns true when an account was created or promoted.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	count, err := s.users.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	now := s.now()
	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Role = domain.RoleAdmin
		existing.Active = true
		existing.Touch(now)
		if err := s.users.UpdateUser(ctx, existing); err != nil {
			return false, fmt.Errorf("promote admin: %w", err)
		}
		s.logger.Info("existing user promoted to admin", "user_id", existing.ID)
		return true, nil
	case !errors.Is(err, store.ErrUserNotFound):
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	if name == "" {
		name = "Administrador"
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := &domain.User{
		Name:          name,
		Email:         email,
		PasswordHash:  passwordHash,
		Role:          domain.RoleAdmin,
		Active:        true,
		EmailVerified: true,
		Preferences:   domain.DefaultPreferences(),
	}
	admin.ID = id.NewObjectID()
	admin.Normalize()
	admin.InitTimestamps(now)
	if err := s.validator.Validate(admin); err != nil {
		return false, err
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("admin account created", "user_id", admin.ID, "email", admin.Email)
	return true, nil
}

func (s *AuthService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("Usuário não encontrado")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// setPassword hashes and stores a new password, invalidating any pending reset.
func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = passwordHash
	user.ClearResetToken()
	user.Touch(s.now())
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// prepareVerification stores a fresh verification token hash on user and
// returns the token to mail.
func (s *AuthService) prepareVerification(user *domain.User) (string, error) {
	token, hash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	user.SetVerifyToken(hash, s.now().Add(s.cfg.VerifyTokenTTL))
	return token, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *domain.User, token string) {
	msg, err := mail.EmailVerification(user.Email, user.Name, s.cfg.AppURL+"/verificar-email/"+token)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Error("failed to send verification mail", "user_id", user.ID, "error", err)
	}
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func invalidToken(msg string) error {
	return domainerrors.TokenInvalid(msg).WithStatus(http.StatusBadRequest)
}
