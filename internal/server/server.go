// Package server is the composition root: it builds the datastore, blob
// store, services and handlers from a Config and mounts them on a chi router.
//
// Dependency flow:
//
//	sqlite.DB ─┬─ UserDB ──────► AuthService ─────► AuthHandler
//	           ├─ ResourceDB ─┐
//	blob.Store ───────────────┴► ResourceCatalog ─► ResourceHandler
//	           │                        └─────────► reconcile.Sweeper
//	           ├─ EventDB ─────► EventStore ──────► EventHandler
//	           └─ RatingDB ────► RatingStore ─────► RatingHandler
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/resource-hub/internal/auth"
	"github.com/sakif/resource-hub/internal/blob"
	"github.com/sakif/resource-hub/internal/blob/fs"
	"github.com/sakif/resource-hub/internal/blob/memory"
	"github.com/sakif/resource-hub/internal/blob/s3"
	"github.com/sakif/resource-hub/internal/config"
	"github.com/sakif/resource-hub/internal/handler"
	"github.com/sakif/resource-hub/internal/middleware"
	"github.com/sakif/resource-hub/internal/reconcile"
	sqliteRepo "github.com/sakif/resource-hub/internal/repository/sqlite"
	"github.com/sakif/resource-hub/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and every long-lived dependency. The database and
// the sweeper are released by Close.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	sweeper *reconcile.Sweeper
}

// New wires the application. The returned Server has not started its
// sweeper or listener yet; see Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	authService := service.NewAuthService(db.Users(), tokens, auth.NewPasswordService(), logger).
		WithMasterPassphrase(cfg.MasterPass)
	catalog := service.NewResourceCatalog(db.Resources(), blobs, logger)
	events := service.NewEventStore(db.Events(), logger)
	ratings := service.NewRatingStore(db.Ratings(), logger)

	var github handler.OAuthProvider
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		sweeper: reconcile.NewSweeper(catalog, reconcile.Config{
			Interval: cfg.SweepInterval,
			Grace:    cfg.SweepGrace,
			Timeout:  reconcile.DefaultConfig().Timeout,
		}, logger),
	}

	s.setupRoutes(routes{
		tokens:    tokens,
		auth:      handler.NewAuthHandler(authService, github, tokens.TTL(), cfg.FrontendURL, logger),
		resources: handler.NewResourceHandler(catalog, cfg.MaxUploadBytes, logger),
		events:    handler.NewEventHandler(events, logger),
		ratings:   handler.NewRatingHandler(ratings, logger),
	})

	return s, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case config.BackendFS:
		return fs.New(cfg.UploadDir)
	case config.BackendS3:
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	case config.BackendMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}

type routes struct {
	tokens    *auth.TokenService
	auth      *handler.AuthHandler
	resources *handler.ResourceHandler
	events    *handler.EventHandler
	ratings   *handler.RatingHandler
}

// setupRoutes mounts middleware and handlers.
//
//	POST   /api/signup                signup
//	POST   /api/token                 password login
//	GET    /api/profile               caller's profile (auth required)
//	GET    /api/resources             list with filters
//	POST   /api/resources             create metadata (optional auth → owner)
//	POST   /api/upload                store a file
//	PUT    /api/resources/{id}        partial update (owner only, if owned)
//	DELETE /api/resources/{id}        delete record and file (owner only, if owned)
//	GET    /api/download/{filename}   stream a file (optional auth)
//	GET    /api/events, POST          list / create events
//	GET    /api/exams                 exam schedule
//	GET    /api/teachers              teacher roster
//	GET    /api/ratings, POST         list / add ratings (optional auth)
//	GET    /auth/github/{login,callback}, POST /auth/logout
//	GET    /healthz
//
// Middleware order: RequestID, RealIP, Logger, Recoverer. Recoverer sits
// inside Logger so a recovered panic is still logged with its 500.
func (s *Server) setupRoutes(h routes) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", handler.HandleHealth(s.db, s.logger))

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/signup", h.auth.HandleSignup)
		r.Post("/token", h.auth.HandleToken)
		r.With(auth.RequireAuth(h.tokens)).Get("/profile", h.auth.HandleProfile)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(h.tokens))

			r.Get("/resources", h.resources.HandleList)
			r.Post("/resources", h.resources.HandleCreate)
			r.Put("/resources/{id}", h.resources.HandleUpdate)
			r.Delete("/resources/{id}", h.resources.HandleDelete)
			r.Post("/upload", h.resources.HandleUpload)
			r.Get("/download/{filename}", h.resources.HandleDownload)

			r.Get("/ratings", h.ratings.HandleList)
			r.Post("/ratings", h.ratings.HandleAdd)
		})

		r.Get("/teachers", h.ratings.HandleTeachers)
		r.Get("/events", h.events.HandleList)
		r.Post("/events", h.events.HandleCreate)
		r.Get("/exams", h.events.HandleExams)
	})

	s.router.Route("/auth", func(r chi.Router) {
		if h.auth.GitHubEnabled() {
			r.Get("/github/login", h.auth.HandleGitHubLogin)
			r.Get("/github/callback", h.auth.HandleGitHubCallback)
		}
		r.Post("/logout", h.auth.HandleLogout)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the sweeper and closes the database.
func (s *Server) Close() error {
	s.sweeper.Stop()
	return s.db.Close()
}

// Start runs the sweeper and the HTTP listener until SIGINT or SIGTERM, then
// shuts down gracefully: stop accepting connections, let in-flight requests
// finish within shutdownTimeout, stop the sweeper, close the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No Read/WriteTimeout: uploads and downloads may legitimately run long.
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	s.sweeper.Start()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.config.Addr),
			slog.String("database", s.config.DBPath),
			slog.String("blobBackend", s.config.BlobBackend),
			slog.Bool("githubLogin", s.config.GitHub.Enabled()),
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
