// Package api provides the HTTP API server and handlers for the livraria API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/livraria/livraria-api/internal/metrics"
	"github.com/livraria/livraria-api/internal/ratelimit"
	"github.com/livraria/livraria-api/internal/service"
)

// Services groups the domain services used by handlers.
type Services struct {
	Auth  *service.AuthService
	Users *service.UserService
	Books *service.BookService
}

// Config holds the HTTP surface settings.
type Config struct {
	Name              string
	Version           string
	Environment       string
	CORSOrigins       []string      // empty or "*" allows any origin
	ExposeErrorDetail bool          // include error causes in bodies, never in production
	AuthRetryAfter    time.Duration // Retry-After sent by rate limited credential routes
	TrustProxy        bool          // key clients on X-Forwarded-For / X-Real-IP
}

// Pinger checks that the database answers. store.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocCounter reports the size of the search index. search.BookIndex implements it.
type DocCounter interface {
	DocCount() (uint64, error)
}

// Deps holds the infrastructure the server reports on. Nil fields disable
// the matching feature.
type Deps struct {
	Database    Pinger
	Search      DocCounter
	Lifecycle   Lifecycle
	Metrics     *metrics.Collector
	AuthLimiter *ratelimit.KeyedRateLimiter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg      Config
	services *Services
	deps     Deps
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// bearerAuth marks operations that need an access token.
var bearerAuth = []map[string][]string{{"bearer": {}}}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg Config, services *Services, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		cfg:      cfg,
		services: services,
		deps:     deps,
		router:   router,
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig(cfg.Name, cfg.Version)
	humaConfig.Info.Description = "Catálogo de livros com contas de usuário e autenticação JWT."
	// Bodies are the envelope only, without $schema links.
	humaConfig.CreateHooks = nil
	humaConfig.Transformers = []huma.Transformer{EnvelopeTransformer}
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler(logger, cfg.ExposeErrorDetail)

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures the middleware stack. Order matters: the
// request id and start time must exist before anything logs or replies.
func (s *Server) setupMiddleware() {
	s.router.Use(requestID)
	s.router.Use(timing)
	s.router.Use(requestLogger(s.logger, s.cfg.TrustProxy))
	s.router.Use(recoverer(s.logger))
	if s.deps.Lifecycle != nil {
		s.router.Use(drainGuard(s.deps.Lifecycle))
	}
	if s.deps.Metrics != nil {
		s.router.Use(s.deps.Metrics.Middleware)
	}
	s.router.Use(cors.Handler(corsOptions(s.cfg.CORSOrigins)))
	s.router.Use(authMiddleware(s.services.Auth))

	s.router.NotFound(notFound)
	s.router.MethodNotAllowed(methodNotAllowed)
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, ResponseTimeHeader, "Retry-After"},
		MaxAge:         300,
	}
}

// setupRoutes registers every route group.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()

	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}
}

// register adds an operation whose handler errors are converted to the
// error envelope with their own status before huma sees them.
func register[I, O any](api huma.API, op huma.Operation, handler func(context.Context, *I) (*O, error)) {
	huma.Register(api, op, func(ctx context.Context, input *I) (*O, error) {
		out, err := handler(ctx, input)
		if err != nil {
			return nil, asStatusError(err)
		}
		return out, nil
	})
}

func asStatusError(err error) error {
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	return huma.NewError(http.StatusInternalServerError, msgInternal, err)
}
