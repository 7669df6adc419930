// Package providers contains dependency injection providers for the livraria API.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/livraria/livraria-api/internal/config"
	"github.com/livraria/livraria-api/internal/lifecycle"
	"github.com/livraria/livraria-api/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting livraria API",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"port", cfg.Server.Port,
		"search_index", cfg.Search.IndexPath,
	)

	return log, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}

// ProvideLifecycle provides the process state machine.
func ProvideLifecycle(i do.Injector) (*lifecycle.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return lifecycle.New(lifecycle.Config{
		ConnectRetries:  cfg.Database.ConnectRetries,
		RetryDelay:      cfg.Database.RetryDelay,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, log.Logger), nil
}
