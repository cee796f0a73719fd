// Package server sets up the HTTP server, router, and all route definitions.
//
// It is the composition root: New opens the store, builds the services and
// handlers on top of it, and mounts them with their middleware. Nothing
// below this package constructs its own dependencies.
//
//	config.Config → Store → AuthService / TaskService → AuthHandler / TaskHandler → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/task-manager/internal/auth"
	"github.com/sakif/task-manager/internal/config"
	"github.com/sakif/task-manager/internal/handler"
	"github.com/sakif/task-manager/internal/middleware"
	"github.com/sakif/task-manager/internal/notify"
	"github.com/sakif/task-manager/internal/service"
	"github.com/sakif/task-manager/web"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and everything it owns. The store and
// any in-flight welcome mails are released in Close.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	store       *Store
	authService *service.AuthService
}

// New opens the configured store and wires every route. The mailer is
// chosen from cfg (SendGrid or log-only).
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	s, err := newServer(cfg, logger, store, NewMailer(cfg, logger))
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

func newServer(cfg *config.Config, logger *slog.Logger, store *Store, mailer notify.Mailer) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(mailer); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET       /                      → task list                  (session required)
//	GET/POST  /create_task           → new task form              (session required)
//	GET/POST  /edit_task/{id}        → edit form                  (session + owner)
//	POST      /delete_task/{id}      → delete                     (session + owner)
//	GET/POST  /register, /login      → account forms
//	GET       /logout                → end session
//	GET       /auth/github/*         → OAuth login                (only if configured)
//	GET       /api/me, /api/tasks    → JSON                       (401 instead of redirect)
//	GET       /healthz               → store ping
//	GET       /static/*              → embedded CSS
//
// Middleware order: request id, real IP and panic recovery first, then the
// session is resolved so the request logger can record the user id.
func (s *Server) setupRoutes(mailer notify.Mailer) error {
	tokens, err := auth.NewTokenService(s.config.SessionSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	s.authService = service.NewAuthService(s.store.Users, tokens, auth.NewPasswordService(), mailer, s.logger)
	taskService := service.NewTaskService(s.store.Tasks, s.logger)

	pages, err := handler.NewRenderer(web.FS, s.logger)
	if err != nil {
		return err
	}

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	authHandler := handler.NewAuthHandler(s.authService, github, pages, s.config.SecureCookies, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, pages, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.LoadSession(s.authService))
	s.router.Use(middleware.Logger(s.logger))

	// === Static Files ===
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("opening embedded static files: %w", err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	s.router.Get("/healthz", healthHandler.HandleHealth)

	// === Account Routes ===
	s.router.Get("/register", authHandler.HandleShowRegister)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Get("/login", authHandler.HandleShowLogin)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Get("/logout", authHandler.HandleLogout)

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	// === Task Pages ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/", taskHandler.HandleIndex)
		r.Get("/create_task", taskHandler.HandleShowCreate)
		r.Post("/create_task", taskHandler.HandleCreate)
		r.Get("/edit_task/{id}", taskHandler.HandleShowEdit)
		r.Post("/edit_task/{id}", taskHandler.HandleEdit)
		r.Post("/delete_task/{id}", taskHandler.HandleDelete)
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuthAPI)

		r.Get("/me", authHandler.HandleMe)
		r.Get("/tasks", taskHandler.HandleAPIList)
	})

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close waits for queued welcome mails and closes the store.
func (s *Server) Close() error {
	s.authService.Wait()
	return s.store.Close()
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Flush background mail and close the database
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing server resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DBDriver),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
