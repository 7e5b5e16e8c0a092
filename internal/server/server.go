// Package server wires configuration, storage, services and handlers into
// an HTTP server. New is the composition root: every dependency is built
// there and handed down, nothing below it reaches for globals.
//
//	config.Config ─▶ sqlite.DB ─▶ services ─▶ handlers ─▶ chi router
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ohmbajaj/Neurotune-Backend/internal/auth"
	"github.com/ohmbajaj/Neurotune-Backend/internal/cache"
	"github.com/ohmbajaj/Neurotune-Backend/internal/config"
	"github.com/ohmbajaj/Neurotune-Backend/internal/generation"
	"github.com/ohmbajaj/Neurotune-Backend/internal/handler"
	"github.com/ohmbajaj/Neurotune-Backend/internal/middleware"
	sqliteRepo "github.com/ohmbajaj/Neurotune-Backend/internal/repository/sqlite"
	"github.com/ohmbajaj/Neurotune-Backend/internal/service"
	"github.com/ohmbajaj/Neurotune-Backend/internal/spotify"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server is the HTTP server and the resources it owns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and builds the router. The caller must eventually
// call Start or Close to release the database.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes registers:
//
//	POST   /api/auth/register              public
//	POST   /api/auth/login                 public
//	GET    /api/auth/spotify/callback      public, user named by state
//	GET    /api/auth/logout|me|spotify     session
//	GET    /api/generate/genres[/{genre}]  public, cached
//	POST   /api/generate/artist|mood       session
//	GET    /api/playlists[/{id}]           session
//	POST   /api/playlists/save             session
//	DELETE /api/playlists/{id}             session
//	PUT    /api/user/preferences           session
//	DELETE /api/user                       session
//	GET    /api/healthcheck                public
func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpire)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	authorizer := auth.NewSpotifyProvider(auth.SpotifyConfig{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURL:  cfg.SpotifyRedirectURI,
		AuthURL:      cfg.SpotifyAuthURL,
		TokenURL:     cfg.SpotifyTokenURL,
	})
	spotifyClient := spotify.NewClient(
		spotify.WithBaseURL(cfg.SpotifyAPIURL),
		spotify.WithRateLimit(cfg.SpotifyRateLimit),
	)
	completer := generation.NewClient(generation.Config{
		Endpoint: cfg.AIAPIURL,
		APIKey:   cfg.AIAPIKey,
		Model:    cfg.AIModel,
	}, nil, s.logger)
	if !completer.Enabled() {
		s.logger.Warn("AI_API_KEY not set, playlists are seeded from the requested artists only")
	}

	users := s.db.Users()
	playlists := s.db.Playlists()
	genreCache := cache.NewMemory(cache.WithMaxSize(cfg.CacheMaxEntries))

	// === Services ===
	music := service.NewMusicSession(users, authorizer, spotifyClient, s.logger)
	authService := service.NewAuthService(users, tokens, passwords, authorizer, spotifyClient, s.logger)
	generator := service.NewGeneratorService(users, playlists, music, completer, nil, s.logger)
	genres := service.NewGenreService(genreCache, nil, s.logger)
	playlistService := service.NewPlaylistService(users, playlists, music, s.logger)
	userService := service.NewUserService(users, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, cfg.FrontendURL, cfg.CookieSecure, s.logger)
	generateHandler := handler.NewGenerateHandler(generator, genres, s.logger)
	playlistHandler := handler.NewPlaylistHandler(playlistService, s.logger)
	userHandler := handler.NewUserHandler(userService, cfg.CookieSecure, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, genreCache, s.logger)

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(chimiddleware.Timeout(requestTimeout))

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/healthcheck", healthHandler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Get("/spotify/callback", authHandler.HandleSpotifyCallback)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/logout", authHandler.HandleLogout)
				r.Get("/me", authHandler.HandleMe)
				r.Get("/spotify", authHandler.HandleSpotifyAuth)
			})
		})

		r.Route("/generate", func(r chi.Router) {
			r.Get("/genres", generateHandler.HandleGenres)
			r.Get("/genres/{genre}", generateHandler.HandleGenre)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/artist", generateHandler.HandleArtist)
				r.Post("/mood", generateHandler.HandleMood)
			})
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", playlistHandler.HandleList)
			r.Post("/save", playlistHandler.HandleSave)
			r.Get("/{id}", playlistHandler.HandleGet)
			r.Delete("/{id}", playlistHandler.HandleDelete)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(requireAuth)
			r.Put("/preferences", userHandler.HandleUpdatePreferences)
			r.Delete("/", userHandler.HandleDeleteAccount)
		})
	})

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)
	return nil
}

// Start serves until ctx is cancelled, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
