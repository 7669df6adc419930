package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livraria/livraria-api/internal/auth"
	"github.com/livraria/livraria-api/internal/domain"
	"github.com/livraria/livraria-api/internal/id"
	"github.com/livraria/livraria-api/internal/mail"
	"github.com/livraria/livraria-api/internal/search"
	"github.com/livraria/livraria-api/internal/store"
	"github.com/livraria/livraria-api/internal/validation"
)

type testEnv struct {
	store  *store.Badger
	tokens *auth.TokenService
	mailer *mail.LogMailer
	index  *search.BookIndex
	auth   *AuthService
	users  *UserService
	books  *BookService
}

// setupServices creates every service over a temporary Badger store and an
// in-memory search index.
func setupServices(t *testing.T) (*testEnv, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "livraria-service-test-*")
	require.NoError(t, err)

	s, err := store.NewBadger(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)

	index, err := search.Open(search.MemoryPath, nil)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService([]byte("test-secret-key-123-test-secret-key"), "livraria-test", time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	v := validation.New()
	mailer := mail.NewLogMailer(logger)

	env := &testEnv{
		store:  s,
		tokens: tokens,
		mailer: mailer,
		index:  index,
		auth: NewAuthService(s, tokens, v, mailer, AuthConfig{
			AppURL:         "http://localhost:5173/",
			ResetTokenTTL:  10 * time.Minute,
			VerifyTokenTTL: 24 * time.Hour,
		}, logger),
		users: NewUserService(s, v, logger),
		books: NewBookService(s, index, v, logger),
	}

	cleanup := func() {
		_ = index.Close()
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return env, cleanup
}

// register creates an ordinary account and returns it.
func (e *testEnv) register(t *testing.T, name, email string) *domain.User {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterRequest{
		Name:            name,
		Email:           email,
		Password:        "segredo123",
		ConfirmPassword: "segredo123",
	})
	require.NoError(t, err)
	return res.User
}

// admin creates an administrator account directly in the store.
func (e *testEnv) admin(t *testing.T) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("admin12345")
	require.NoError(t, err)

	u := &domain.User{
		Name:         "Administradora",
		Email:        "admin@livraria.com",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Active:       true,
		Preferences:  domain.DefaultPreferences(),
	}
	u.ID = id.NewObjectID()
	u.InitTimestamps(time.Now())
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}
