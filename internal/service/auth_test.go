package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/livraria/livraria-api/internal/auth"
	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/validation"
)

var (
	resetLinkPattern  = regexp.MustCompile(`/redefinir-senha/([0-9a-f]+)`)
	verifyLinkPattern = regexp.MustCompile(`/verificar-email/([0-9a-f]+)`)
)

func tokenFromMail(t *testing.T, env *testEnv, to string, pattern *regexp.Regexp) string {
	t.Helper()
	msg, ok := env.mailer.Last(to)
	require.True(t, ok, "no mail sent to %s", to)
	m := pattern.FindStringSubmatch(msg.Text)
	require.Len(t, m, 2, "no token link in %q", msg.Text)
	return m[1]
}

func TestAuthService_Register_Success(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	res, err := env.auth.Register(context.Background(), RegisterRequest{
		Name:            "  Maria Silva ",
		Email:           "Maria@Example.COM",
		Password:        "segredo123",
		ConfirmPassword: "segredo123",
		Phone:           "11 99999-0000",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.True(t, res.ExpiresAt.After(time.Now()))
	assert.Equal(t, "Maria Silva", res.User.Name)
	assert.Equal(t, "maria@example.com", res.User.Email)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.True(t, res.User.Active)
	assert.False(t, res.User.EmailVerified)
	assert.NotNil(t, res.User.LastLoginAt)
	assert.NotEqual(t, "segredo123", res.User.PasswordHash)

	claims, err := env.tokens.VerifyAccessToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	// A verification mail goes out with the new account
	msg, ok := env.mailer.Last("maria@example.com")
	require.True(t, ok)
	assert.Contains(t, msg.Text, "http://localhost:5173/verificar-email/")
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	env.register(t, "Maria", "maria@example.com")

	_, err := env.auth.Register(context.Background(), RegisterRequest{
		Name:            "Outra Maria",
		Email:           "MARIA@example.com",
		Password:        "segredo123",
		ConfirmPassword: "segredo123",
	})
	assert.ErrorIs(t, err, domainerrors.ErrEmailExists)
}

func TestAuthService_Register_PasswordsMismatch(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	_, err := env.auth.Register(context.Background(), RegisterRequest{
		Name:            "Maria",
		Email:           "maria@example.com",
		Password:        "segredo123",
		ConfirmPassword: "segredo124",
	})

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodePasswordsMismatch, domainErr.Code)
}

func TestAuthService_Register_InvalidFields(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	_, err := env.auth.Register(context.Background(), RegisterRequest{
		Name:            "M",
		Email:           "not-an-email",
		Password:        "123",
		ConfirmPassword: "123",
	})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	fields, ok := domainErr.Details.([]validation.FieldError)
	require.True(t, ok)
	var names []string
	for _, f := range fields {
		names = append(names, f.Field)
	}
	assert.ElementsMatch(t, []string{"nome", "email", "senha"}, names)
}

func TestAuthService_Login(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	user := env.register(t, "Maria", "maria@example.com")
	ctx := context.Background()

	t.Run("success with any email case", func(t *testing.T) {
		res, err := env.auth.Login(ctx, LoginRequest{Email: "MARIA@example.com", Password: "segredo123"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, res.User.ID)
		assert.NotEmpty(t, res.Token)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, errWrong := env.auth.Login(ctx, LoginRequest{Email: "maria@example.com", Password: "errada123"})
		_, errUnknown := env.auth.Login(ctx, LoginRequest{Email: "ninguem@example.com", Password: "segredo123"})

		require.ErrorIs(t, errWrong, domainerrors.ErrInvalidCredentials)
		require.ErrorIs(t, errUnknown, domainerrors.ErrInvalidCredentials)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})

	t.Run("disabled account", func(t *testing.T) {
		stored, err := env.store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		stored.Active = false
		require.NoError(t, env.store.UpdateUser(ctx, stored))

		_, err = env.auth.Login(ctx, LoginRequest{Email: "maria@example.com", Password: "segredo123"})
		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domainerrors.CodeAccountDisabled, domainErr.Code)
		assert.Equal(t, 403, domainErr.HTTPStatus())
	})
}

func TestAuthService_Login_UpgradesLegacyHash(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()
	user := env.register(t, "Legado", "legado@example.com")

	legacy, err := bcrypt.GenerateFromPassword([]byte("antiga123"), bcrypt.MinCost)
	require.NoError(t, err)
	stored, err := env.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	stored.PasswordHash = string(legacy)
	require.NoError(t, env.store.UpdateUser(ctx, stored))

	_, err = env.auth.Login(ctx, LoginRequest{Email: "legado@example.com", Password: "antiga123"})
	require.NoError(t, err)

	upgraded, err := env.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, auth.NeedsRehash(upgraded.PasswordHash))
	assert.True(t, auth.VerifyPassword(upgraded.PasswordHash, "antiga123"))
}

func TestAuthService_Authenticate(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	res, err := env.auth.Register(ctx, RegisterRequest{
		Name: "Maria", Email: "maria@example.com", Password: "segredo123", ConfirmPassword: "segredo123",
	})
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		u, err := env.auth.Authenticate(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, u.ID)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := env.auth.Authenticate(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, domainerrors.ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		short, err := auth.NewTokenService([]byte("test-secret-key-123-test-secret-key"), "livraria-test", time.Nanosecond)
		require.NoError(t, err)
		token, _, err := short.GenerateAccessToken(res.User)
		require.NoError(t, err)
		time.Sleep(1100 * time.Millisecond)

		_, err = env.auth.Authenticate(ctx, token)
		assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
	})

	t.Run("deactivated user", func(t *testing.T) {
		stored, err := env.store.GetUser(ctx, res.User.ID)
		require.NoError(t, err)
		stored.Active = false
		require.NoError(t, env.store.UpdateUser(ctx, stored))

		_, err = env.auth.Authenticate(ctx, res.Token)
		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domainerrors.CodeAccountDisabled, domainErr.Code)
		assert.Equal(t, 401, domainErr.HTTPStatus())
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()
	user := env.register(t, "Maria", "maria@example.com")

	_, err := env.auth.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "errada123", NewPassword: "nova12345", ConfirmPassword: "nova12345",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = env.auth.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "segredo123", NewPassword: "nova12345", ConfirmPassword: "outra1234",
	})
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodePasswordsMismatch, domainErr.Code)

	_, err = env.auth.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "segredo123", NewPassword: "segredo123", ConfirmPassword: "segredo123",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	res, err := env.auth.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "segredo123", NewPassword: "nova12345", ConfirmPassword: "nova12345",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "maria@example.com", Password: "nova12345"})
	assert.NoError(t, err)
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()
	user := env.register(t, "Maria", "maria@example.com")

	require.NoError(t, env.auth.ForgotPassword(ctx, ForgotPasswordRequest{Email: "maria@example.com"}))
	token := tokenFromMail(t, env, "maria@example.com", resetLinkPattern)

	// Only the hash is persisted
	stored, err := env.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.HashOpaqueToken(token), stored.ResetTokenHash)
	require.NotNil(t, stored.ResetTokenExpiresAt)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *stored.ResetTokenExpiresAt, 5*time.Second)

	res, err := env.auth.ResetPassword(ctx, ResetPasswordRequest{
		Token: token, NewPassword: "nova12345", ConfirmPassword: "nova12345",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "maria@example.com", Password: "nova12345"})
	require.NoError(t, err)

	// Single use
	_, err = env.auth.ResetPassword(ctx, ResetPasswordRequest{
		Token: token, NewPassword: "outra1234", ConfirmPassword: "outra1234",
	})
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeTokenInvalid, domainErr.Code)
	assert.Equal(t, 400, domainErr.HTTPStatus())
}

func TestAuthService_ResetPassword_Expired(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()
	env.register(t, "Maria", "maria@example.com")

	require.NoError(t, env.auth.ForgotPassword(ctx, ForgotPasswordRequest{Email: "maria@example.com"}))
	token := tokenFromMail(t, env, "maria@example.com", resetLinkPattern)

	env.auth.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	_, err := env.auth.ResetPassword(ctx, ResetPasswordRequest{
		Token: token, NewPassword: "nova12345", ConfirmPassword: "nova12345",
	})
	assert.ErrorIs(t, err, domainerrors.ErrTokenInvalid)
}

func TestAuthService_ForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()

	err := env.auth.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "ninguem@example.com"})
	require.NoError(t, err)
	assert.Empty(t, env.mailer.Sent())
}

func TestAuthService_VerifyEmail(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()
	user := env.register(t, "Maria", "maria@example.com")
	token := tokenFromMail(t, env, "maria@example.com", verifyLinkPattern)

	verified, err := env.auth.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.Empty(t, verified.VerifyTokenHash)

	_, err = env.auth.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, domainerrors.ErrTokenInvalid)

	err = env.auth.ResendVerification(ctx, user.ID)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAuthService_ResendVerification(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()
	user := env.register(t, "Maria", "maria@example.com")
	first := tokenFromMail(t, env, "maria@example.com", verifyLinkPattern)

	require.NoError(t, env.auth.ResendVerification(ctx, user.ID))
	second := tokenFromMail(t, env, "maria@example.com", verifyLinkPattern)
	assert.NotEqual(t, first, second)

	// The old token no longer works
	_, err := env.auth.VerifyEmail(ctx, first)
	assert.ErrorIs(t, err, domainerrors.ErrTokenInvalid)
	_, err = env.auth.VerifyEmail(ctx, second)
	assert.NoError(t, err)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	created, err := env.auth.EnsureAdmin(ctx, "Chefe@Livraria.com", "admin12345", "")
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := env.store.GetUserByEmail(ctx, "chefe@livraria.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, "Administrador", admin.Name)

	// Idempotent
	created, err = env.auth.EnsureAdmin(ctx, "outro@livraria.com", "admin12345", "Outro")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAuthService_EnsureAdmin_PromotesExisting(t *testing.T) {
	env, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()
	user := env.register(t, "Maria", "maria@example.com")

	created, err := env.auth.EnsureAdmin(ctx, "maria@example.com", "ignorada123", "Maria")
	require.NoError(t, err)
	assert.True(t, created)

	promoted, err := env.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())
	assert.True(t, auth.VerifyPassword(promoted.PasswordHash, "segredo123"))
}
