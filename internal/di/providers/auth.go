package providers

import (
	"github.com/samber/do/v2"

	"github.com/livraria/livraria-api/internal/auth"
	"github.com/livraria/livraria-api/internal/config"
	"github.com/livraria/livraria-api/internal/logger"
)

// ProvideTokenService provides the JWT token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenDuration)
	if err != nil {
		return nil, err
	}

	log.Info("Token service ready",
		"issuer", cfg.Auth.JWTIssuer,
		"token_duration", config.HumanDuration(cfg.Auth.TokenDuration),
	)
	return tokens, nil
}
