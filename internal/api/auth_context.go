package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/livraria/livraria-api/internal/domain"
	domainerrors "github.com/livraria/livraria-api/internal/errors"
	"github.com/livraria/livraria-api/internal/logger"
)

// Authenticator resolves a bearer token to an active user.
// service.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// authKey is the context key for the resolved identity.
type authKey struct{}

// authState is the outcome of resolving the Authorization header: either
// the user or the reason there is none.
type authState struct {
	user *domain.User
	err  error
}

// authMiddleware resolves the bearer token of every request and stores the
// outcome in the context. It never rejects a request on its own: public
// routes ignore the outcome and protected handlers call RequireUser.
func authMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := resolveAuth(r, auth)
			ctx := context.WithValue(r.Context(), authKey{}, state)
			if state.user != nil {
				ctx = logger.WithUserID(ctx, state.user.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveAuth(r *http.Request, auth Authenticator) authState {
	header := r.Header.Get("Authorization")
	if header == "" {
		return authState{err: domainerrors.TokenMissing("Token de acesso não fornecido")}
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return authState{err: domainerrors.TokenInvalid("Formato do token inválido. Use: Bearer <token>")}
	}

	user, err := auth.Authenticate(r.Context(), token)
	if err != nil {
		return authState{err: err}
	}
	return authState{user: user}
}

// RequireUser returns the authenticated user, or the 401 error explaining
// why the request carries no usable identity.
func RequireUser(ctx context.Context) (*domain.User, error) {
	state, ok := ctx.Value(authKey{}).(authState)
	if !ok {
		return nil, domainerrors.TokenMissing("Token de acesso não fornecido")
	}
	if state.err != nil {
		return nil, state.err
	}
	return state.user, nil
}

// RequireAdmin returns the authenticated user when they are an administrator.
func RequireAdmin(ctx context.Context) (*domain.User, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, domainerrors.AdminRequired("Acesso restrito a administradores")
	}
	return user, nil
}
