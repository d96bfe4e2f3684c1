package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/auth"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

const defaultMaxUploadBytes = 5 << 20

// Services are the application services behind the API.
type Services struct {
	Catalog      *services.CatalogService
	Transactions *services.TransactionService
	Summary      *services.SummaryService
	Imports      *services.ImportService
}

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	AuthHeader         string
	RateLimitPerMinute int
	MaxUploadBytes     int64
	Logger             *applog.Logger
	// Ready reports whether dependencies (database, broker) are usable.
	Ready func(ctx context.Context) error
	// Gauges are exported on /metrics as "<name> <value>".
	Gauges map[string]func() int64
}

type Server struct {
	http.Server
	svc     Services
	opts    Options
	logger  *applog.Logger
	started time.Time

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	detector := security.NewDetector()
	s := &Server{
		svc:      svc,
		opts:     opts,
		logger:   opts.Logger,
		started:  time.Now(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		detector: detector,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "Not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	authn := auth.NewMiddleware(s.opts.AuthHeader, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusUnauthorized, "Unauthorized").Write(w)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authn.Middleware)
		r.Use(s.limiter.Middleware(func(r *http.Request) string { return userID(r) }, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded").Write(w)
		}))

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Post("/bulk-delete", s.handleBulkDeleteAccounts)
			r.Get("/{id}", s.handleGetAccount)
			r.Patch("/{id}", s.handleUpdateAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Post("/bulk-delete", s.handleBulkDeleteCategories)
			r.Get("/{id}", s.handleGetCategory)
			r.Patch("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Post("/bulk-create", s.handleBulkCreateTransactions)
			r.Post("/bulk-delete", s.handleBulkDeleteTransactions)
			r.Get("/{id}", s.handleGetTransaction)
			r.Patch("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Get("/summary", s.handleSummary)

		r.Route("/imports", func(r chi.Router) {
			r.Get("/", s.handleListImports)
			r.Post("/", s.handleStartImport)
			r.Get("/{id}", s.handleGetImport)
			r.Post("/{id}/selection", s.handleRequestSelection)
			r.Post("/{id}/selection/resolve", s.handleResolveSelection)
			r.Post("/{id}/selection/decline", s.handleDeclineSelection)
			r.Post("/{id}/commit", s.handleCommitImport)
			r.Post("/{id}/cancel", s.handleCancelImport)
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
