package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/handler"
	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/openapi"
	"github.com/sajuwooju/sajuwooju/internal/server/middleware"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host               string
	Port               int
	ShutdownTimeout    time.Duration
	CORSOrigins        []string
	Production         bool
	CookieName         string
	CookiePath         string
	LoginRatePerMinute int
	BaseURL            string
}

// DefaultConfig returns a Config with development defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ShutdownTimeout:    30 * time.Second,
		CORSOrigins:        []string{"*"},
		CookieName:         "admin_token",
		CookiePath:         "/api/admin",
		LoginRatePerMinute: 10,
	}
}

// ConfigFromYAML maps the file configuration onto a server Config.
func ConfigFromYAML(y *config.YAMLConfig) Config {
	cfg := DefaultConfig()
	cfg.Host = y.Server.Host
	cfg.Port = y.Server.Port
	cfg.CORSOrigins = y.Server.CORSOrigins
	cfg.Production = y.Server.IsProduction()
	cfg.CookieName = y.Auth.CookieName
	cfg.CookiePath = y.Auth.CookiePath
	cfg.LoginRatePerMinute = y.Auth.LoginRatePerMinute
	return cfg
}

// Server is the admin API HTTP server. It owns the chi router, the admin
// store and the authentication service.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *config.Store
	authSvc    *service.AuthService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired.
func New(cfg Config, store *config.Store, authSvc *service.AuthService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		authSvc: authSvc,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(s.cfg.Production))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks, metrics and API description (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.json", s.handleOpenAPI)

	authHandler := handler.NewAuthHandler(s.authSvc, handler.CookieConfig{
		Name:   s.cfg.CookieName,
		Path:   s.cfg.CookiePath,
		Secure: s.cfg.Production,
	}, s.logger)
	adminHandler := handler.NewAdminHandler(s.store, s.logger)
	noticeHandler := handler.NewNoticeHandler(s.store, s.logger)
	settingsHandler := handler.NewSettingsHandler(s.store, s.logger)

	require := func(p model.Permission) func(http.Handler) http.Handler {
		return middleware.RequirePermission(s.authSvc, p, s.logger)
	}

	r.Route("/api/admin", func(r chi.Router) {
		// Session endpoints are public; logout only needs the cookie.
		r.With(middleware.LoginRateLimit(s.cfg.LoginRatePerMinute)).Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authSvc, s.cfg.CookieName, s.logger))

			r.Get("/auth/me", authHandler.Me)

			r.With(require(model.PermRead)).Get("/roles", adminHandler.ListRoles)

			r.Route("/admins", func(r chi.Router) {
				r.With(require(model.PermRead)).Get("/", adminHandler.ListAdmins)
				r.Group(func(r chi.Router) {
					r.Use(require(model.PermManageUsers))
					r.Post("/", adminHandler.CreateAdmin)
					r.Patch("/{id}/status", adminHandler.SetStatus)
					r.Patch("/{id}/role", adminHandler.SetRole)
				})
			})

			r.Route("/notices", func(r chi.Router) {
				r.With(require(model.PermRead)).Get("/", noticeHandler.ListNotices)
				r.With(require(model.PermWrite)).Post("/", noticeHandler.CreateNotice)
				r.With(require(model.PermWrite)).Put("/{id}", noticeHandler.UpdateNotice)
				r.With(require(model.PermDelete)).Delete("/{id}", noticeHandler.DeleteNotice)
			})

			r.Route("/settings", func(r chi.Router) {
				r.With(require(model.PermRead)).Get("/", settingsHandler.ListSettings)
				r.With(require(model.PermManageSettings)).Put("/{key}", settingsHandler.PutSetting)
			})
		})
	})

	s.router = r
}

// handleHealthz is the liveness check. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is the readiness check. Returns 200 when the admin directory
// answers a ping, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, httpStatus := "ok", http.StatusOK
	check := "ok"
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		status, httpStatus = "degraded", http.StatusServiceUnavailable
		check = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": map[string]string{"directory": check},
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openapi.Generate(s.cfg.BaseURL))
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then drains in-flight requests and returns.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "production", s.cfg.Production)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
