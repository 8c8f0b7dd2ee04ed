// Package api provides the HTTP API server and handlers for the Bookcase application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookcaseapp/bookcase-server/internal/auth"
	"github.com/bookcaseapp/bookcase-server/internal/metrics"
	"github.com/bookcaseapp/bookcase-server/internal/ratelimit"
	"github.com/bookcaseapp/bookcase-server/internal/sse"
	"github.com/bookcaseapp/bookcase-server/internal/store"
	"github.com/bookcaseapp/bookcase-server/internal/validation"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Options configures the HTTP layer.
type Options struct {
	Name        string
	CORSOrigins []string
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int
	RateBurst int
	// StoreBackend names the document store in health output.
	StoreBackend string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services   *Services
	docs       store.DocumentStore
	tokens     *auth.TokenService
	sseManager *sse.Manager
	metrics    *metrics.Metrics
	limiter    *ratelimit.KeyedRateLimiter
	validator  *validation.Validator
	opts       Options
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// m may be nil, in which case /metrics is not served.
func NewServer(services *Services, docs store.DocumentStore, tokens *auth.TokenService, sseManager *sse.Manager, m *metrics.Metrics, opts Options, logger *slog.Logger) *Server {
	if opts.Name == "" {
		opts.Name = "Bookcase API"
	}

	s := &Server{
		services:   services,
		docs:       docs,
		tokens:     tokens,
		sseManager: sseManager,
		metrics:    m,
		validator:  validation.New(),
		opts:       opts,
		router:     chi.NewRouter(),
		logger:     logger,
	}
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.New(float64(opts.RateLimit)/60, opts.RateBurst)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig(opts.Name, Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	if s.limiter != nil {
		s.router.Use(rateLimitMiddleware(s.limiter, s.logger))
	}
	s.router.Use(authMiddleware(s.tokens))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Event streams are plain handlers; huma does not model SSE responses here.
	stream := sse.NewHandler(s.sseManager, s.services.BookCases, userFromRequest, s.logger)
	s.router.With(requireUser).Get("/api/v1/bookcases/stream", stream.ServeHTTP)

	s.registerHealthRoutes()
	s.registerBookCaseRoutes()
	s.registerBookRoutes()
	s.registerReadingRoutes()
	s.registerNoteRoutes()
	s.registerGoalRoutes()
	s.registerProfileRoutes()
	if s.services.Search != nil {
		s.registerSearchRoutes()
	}
}
