// Package web provides the HTTP server, pages and JSON API for Data Sweeper.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/datasweeper/internal/config"
	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/metrics"
	mw "github.com/JonMunkholm/datasweeper/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// defaultCSP allows only same-origin resources; the chart is inline SVG.
const defaultCSP = "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'"

// Server is the HTTP server for the application.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	metrics  *metrics.Collector
	validate *validator.Validate
	limiter  *mw.RateLimiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server. collector may be nil to disable /metrics.
func NewServer(cfg *config.Config, service *core.Service, collector *metrics.Collector) *Server {
	s := &Server{
		cfg:      cfg,
		service:  service,
		metrics:  collector,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.AuditClient)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.limiter = mw.NewRateLimiter(s.cfg.Rate.RequestsPerSecond, s.cfg.Rate.Burst)
		s.limiter.Rejected = func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
		}
		s.router.Use(s.limiter.Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Pages
	s.router.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleIndex)
		r.Post("/upload", s.handleUpload)

		r.Route("/file", func(r chi.Router) {
			r.Post("/clean", s.handleSetClean)
			r.Post("/dedup", s.handleDeduplicate)
			r.Post("/fill", s.handleFillMissing)
			r.Post("/columns", s.handleSelectColumns)
			r.Post("/chart", s.handleSetShowChart)
			r.Post("/format", s.handleSetFormat)
			r.Post("/remove", s.handleRemoveFile)
			r.Post("/convert", s.handleConvert)
		})
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins(),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "Authorization"},
			ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(mw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))
		r.Use(s.sessionMiddleware)

		r.Get("/files", s.handleAPIListFiles)
		r.Get("/files/chart", s.handleAPIChart)
		r.Post("/files/convert", s.handleAPIConvert)
		r.Get("/limiter", s.handleAPILimiter)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errNotFound, http.StatusNotFound)
	})
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.Security.AllowedOrigins) == 0 {
		return []string{"http://localhost:*"}
	}
	return s.cfg.Security.AllowedOrigins
}

// Start begins listening for HTTP requests. It returns nil after a
// graceful Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	if s.limiter != nil {
		go s.limiter.Run(ctx, time.Minute)
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", defaultCSP)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
