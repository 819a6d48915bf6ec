// Package web provides the HTTP server and handlers for the Data Sweeper UI
// and its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// errRateLimited is reported to clients over their per-IP request budget.
var errRateLimited = errors.New("rate limit exceeded")

// Server is the HTTP server for the Data Sweeper application.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	registry *prometheus.Registry
	validate *validator.Validate
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server. reg receives the HTTP collectors and backs
// the metrics endpoint; nil disables both.
func NewServer(cfg *config.Config, service *core.Service, reg *prometheus.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		service:  service,
		registry: reg,
		validate: newValidator(),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(requestMetadata)
	s.router.Use(middleware.Logger)
	if s.registry != nil {
		s.router.Use(middleware.NewHTTPMetrics(s.registry).Handler)
	}
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.RateLimit(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst,
			func(w http.ResponseWriter, r *http.Request) {
				s.respondError(w, r, errRateLimited)
			}))
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
	if s.cfg.Metrics.Enabled && s.registry != nil {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	// Pages and form posts
	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession(false))

		r.Get("/", s.handleDashboard)
		r.Post("/upload", s.handleUploadForm)
		r.Route("/files/{fileID}", func(r chi.Router) {
			r.Post("/cleaning", s.handleCleaningForm)
			r.Post("/dedupe", s.handleDedupeForm)
			r.Post("/fill", s.handleFillForm)
			r.Post("/columns", s.handleColumnsForm)
			r.Post("/chart", s.handleChartForm)
			r.Post("/convert", s.handleConvertForm)
			r.Post("/delete", s.handleDeleteForm)
		})
	})

	// JSON API
	s.router.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))
		r.Use(s.withSession(true))

		r.Get("/session", s.handleAPISession)
		r.Post("/files", s.handleAPIUpload)
		r.Get("/files", s.handleAPIListFiles)
		r.Route("/files/{fileID}", func(r chi.Router) {
			r.Get("/", s.handleAPIGetFile)
			r.Delete("/", s.handleAPIDeleteFile)
			r.Get("/preview", s.handleAPIPreview)
			r.Put("/cleaning", s.handleAPICleaning)
			r.Post("/dedupe", s.handleAPIDedupe)
			r.Post("/fill", s.handleAPIFill)
			r.Put("/columns", s.handleAPIColumns)
			r.Put("/chart", s.handleAPISetChart)
			r.Get("/chart", s.handleAPIChart)
			r.Post("/convert", s.handleAPIConvert)
		})
	})
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status   string             `json:"status"`
	Sessions int                `json:"sessions"`
	Uploads  core.LimiterStatus `json:"uploads"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:   "ok",
		Sessions: s.service.Sessions().Len(),
		Uploads:  s.service.Limiter().Status(),
	})
}
