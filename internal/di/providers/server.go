package providers

import (
	"log/slog"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/livraria/livraria-api/internal/api"
	"github.com/livraria/livraria-api/internal/config"
	"github.com/livraria/livraria-api/internal/lifecycle"
	"github.com/livraria/livraria-api/internal/logger"
	"github.com/livraria/livraria-api/internal/metrics"
	"github.com/livraria/livraria-api/internal/ratelimit"
	"github.com/livraria/livraria-api/internal/service"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
}

// HTTPServerHandle wraps the configured, not yet listening, http.Server.
type HTTPServerHandle struct {
	*http.Server
}

// ProvideHTTPServer provides the HTTP server. Listening is left to the
// lifecycle manager so that it only starts once the database is ready.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	build := do.MustInvoke[BuildInfo](i)
	log := do.MustInvoke[*logger.Logger](i)
	manager := do.MustInvoke[*lifecycle.Manager](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	collector := do.MustInvoke[*metrics.Collector](i)
	limiter := do.MustInvoke[*ratelimit.KeyedRateLimiter](i)

	services := &api.Services{
		Auth:  do.MustInvoke[*service.AuthService](i),
		Users: do.MustInvoke[*service.UserService](i),
		Books: do.MustInvoke[*service.BookService](i),
	}

	deps := api.Deps{
		Database:    storeHandle,
		Lifecycle:   manager,
		Metrics:     collector,
		AuthLimiter: limiter,
	}
	if indexHandle.Enabled() {
		deps.Search = indexHandle.BookIndex
	}

	handler := api.NewServer(api.Config{
		Name:              cfg.App.Name,
		Version:           build.Version,
		Environment:       cfg.App.Environment,
		CORSOrigins:       cfg.App.CORSOrigins,
		ExposeErrorDetail: !cfg.App.IsProduction(),
		AuthRetryAfter:    authRetryAfter(cfg.RateLimit),
		TrustProxy:        cfg.Server.TrustProxy,
	}, services, deps, log.Logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	return &HTTPServerHandle{Server: srv}, nil
}
