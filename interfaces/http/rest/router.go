package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"eden-backend/interfaces/http/rest/handlers"
	"eden-backend/interfaces/http/rest/middleware"
	"eden-backend/pkg/auth"
	"eden-backend/pkg/errors"
	"eden-backend/pkg/observability"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Import      *handlers.ImportHandler
	Capture     *handlers.CaptureHandler
	Bookmarklet *handlers.BookmarkletHandler
	Token       *handlers.TokenHandler
	Items       *handlers.ItemHandler
	Chat        *handlers.ChatHandler
}

// Options configures the cross-cutting middleware.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	EnableMetrics  bool
	// Validator is nil in development, which switches auth to the X-User-ID header.
	Validator *auth.JWTValidator
	Limiter   *auth.KeyedRateLimiter
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

// Router creates and configures the HTTP router
type Router struct {
	handlers     Handlers
	options      Options
	metrics      *observability.Collector
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// NewRouter creates a new router instance
func NewRouter(
	h Handlers,
	opts Options,
	metrics *observability.Collector,
	logger *zap.Logger,
	errorHandler *errors.ErrorHandler,
) *Router {
	return &Router{handlers: h, options: opts, metrics: metrics, logger: logger, errorHandler: errorHandler}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(chimiddleware.Recoverer)
	if rt.options.EnableMetrics && rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}
	if rt.options.Limiter != nil {
		router.Use(middleware.RateLimit(rt.options.Limiter, rt.errorHandler))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.options.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.options.EnableMetrics && rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		// Public: the bookmarklet authenticates with its own API token.
		r.Get("/bookmarklet/save", rt.handlers.Bookmarklet.Save)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.options.Validator, rt.errorHandler, rt.logger))

			// Streaming endpoints run as long as the batch does.
			r.Post("/import/stream", rt.handlers.Import.Stream)
			r.Post("/import/upload", rt.handlers.Import.Upload)

			r.Group(func(r chi.Router) {
				if rt.options.RequestTimeout > 0 {
					r.Use(chimiddleware.Timeout(rt.options.RequestTimeout))
				}

				r.Post("/capture", rt.handlers.Capture.Capture)
				r.Post("/bookmarklet/token", rt.handlers.Token.Issue)

				r.Route("/items", func(r chi.Router) {
					r.Get("/", rt.handlers.Items.List)
					r.Get("/{id}", rt.handlers.Items.Get)
					r.Patch("/{id}", rt.handlers.Items.Update)
					r.Delete("/{id}", rt.handlers.Items.Delete)
				})
				r.Get("/search", rt.handlers.Items.Search)
				r.Get("/graph", rt.handlers.Items.Graph)
				r.Get("/collections", rt.handlers.Items.Collections)
				r.Get("/concepts", rt.handlers.Items.Concepts)
				r.Post("/chat", rt.handlers.Chat.Chat)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	errors.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports whether the store is reachable
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.options.Ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.options.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			errors.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	errors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
