// Package di provides dependency injection configuration for the livraria API.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/livraria/livraria-api/internal/auth"
	"github.com/livraria/livraria-api/internal/config"
	"github.com/livraria/livraria-api/internal/di/providers"
	"github.com/livraria/livraria-api/internal/lifecycle"
	"github.com/livraria/livraria-api/internal/logger"
	"github.com/livraria/livraria-api/internal/mail"
	"github.com/livraria/livraria-api/internal/metrics"
	"github.com/livraria/livraria-api/internal/ratelimit"
	"github.com/livraria/livraria-api/internal/service"
	"github.com/livraria/livraria-api/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
// ctx is cancelled by the shutdown signal.
func NewContainer(ctx context.Context, version string) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, providers.RunContext{Context: ctx})
	do.ProvideValue(injector, providers.BuildInfo{Version: version})

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideLifecycle)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideMailer)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideBookService)

	// Workers
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideReporter)
	do.Provide(injector, providers.ProvideAuthLimiter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes every service in dependency order: configuration,
// database (with retries), search index, services, workers and finally the
// HTTP server, which is returned unstarted.
func Bootstrap(injector *do.RootScope) (*providers.HTTPServerHandle, error) {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*lifecycle.Manager](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[mail.Mailer](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.BookService](injector)

	// Workers
	_ = do.MustInvoke[*metrics.Collector](injector)
	_ = do.MustInvoke[*providers.ReporterHandle](injector)
	_ = do.MustInvoke[*ratelimit.KeyedRateLimiter](injector)

	if err := providers.SeedAdmin(injector); err != nil {
		return nil, fmt.Errorf("seed administrator: %w", err)
	}
	providers.RebuildSearchIndex(injector)

	server, err := do.Invoke[*providers.HTTPServerHandle](injector)
	if err != nil {
		return nil, fmt.Errorf("build http server: %w", err)
	}
	return server, nil
}
