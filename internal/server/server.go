// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It decides:
//   - which URL patterns map to which handler
//   - what middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go opens the database, the object store and the prober, and passes
// them in Deps. New builds the services from the repositories, the handlers
// from the services, and the routes from the handlers. This is the
// "composition root": nothing below this package constructs its own
// dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/vidtube/internal/auth"
	"github.com/sakif/vidtube/internal/handler"
	"github.com/sakif/vidtube/internal/middleware"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/probe"
	"github.com/sakif/vidtube/internal/repository/sqldb"
	"github.com/sakif/vidtube/internal/service"
	"github.com/sakif/vidtube/internal/storage"
	"github.com/sakif/vidtube/internal/upload"
)

// Config holds server configuration.
type Config struct {
	Port         int
	CORSOrigins  []string
	Cookies      handler.CookieConfig
	HistoryLimit int
}

// Deps are the long-lived resources the server runs on. The server owns DB
// and closes it on shutdown; the caller closes everything else.
type Deps struct {
	DB        *sqldb.DB
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	Media     service.Media
	Stager    *upload.Stager
	Prober    probe.Prober

	// MediaHandler serves stored objects under storage.MediaPrefix. Nil
	// when objects live on a CDN.
	MediaHandler http.Handler
	// GitHub is nil when GitHub login is not configured.
	GitHub *auth.GitHubProvider
}

func (d Deps) validate() error {
	switch {
	case d.DB == nil:
		return errors.New("server: DB is required")
	case d.Tokens == nil:
		return errors.New("server: Tokens is required")
	case d.Passwords == nil:
		return errors.New("server: Passwords is required")
	case d.Media == nil:
		return errors.New("server: Media is required")
	case d.Stager == nil:
		return errors.New("server: Stager is required")
	}
	return nil
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router  *chi.Mux
	handler http.Handler
	config  Config
	deps    Deps
	logger  *slog.Logger
}

// New wires services, handlers and routes.
//
// Each layer only receives what it needs:
//   - services get repository interfaces (the sqldb stores)
//   - handlers get services
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Prober == nil {
		deps.Prober = probe.Disabled{}
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = 100
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()

	// otelhttp sits outside chi so every request, including 404s and CORS
	// preflights, gets a span and the http.server.* metrics.
	s.handler = otelhttp.NewHandler(s.router, "vidtube",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s, nil
}

// Handler returns the fully wrapped router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns a unique id to each request (logged by Logger)
//  2. RealIP: extracts the client IP from proxy headers
//  3. Recoverer: turns panics into 500s
//  4. Logger: one structured line per request
//  5. CORS: answers preflights before auth runs
func (s *Server) setupRoutes() {
	db := s.deps.DB

	// === SERVICES ===
	users := service.NewUserService(db.Users(), s.deps.Tokens, s.deps.Passwords, s.deps.Media, s.logger)
	videos := service.NewVideoService(db.Videos(), db.Users(), s.deps.Media, s.deps.Prober, s.config.HistoryLimit, s.logger)
	comments := service.NewCommentService(db.Comments(), db.Videos(), db.Tweets(), s.logger)
	tweets := service.NewTweetService(db.Tweets(), db.Users(), s.logger)
	likes := service.NewLikeService(db.Likes(), db.Videos(), db.Comments(), s.logger)
	subscriptions := service.NewSubscriptionService(db.Subscriptions(), db.Users(), s.logger)
	playlists := service.NewPlaylistService(db.Playlists(), db.Videos(), db.Users(), s.logger)
	dashboard := service.NewDashboardService(db.Dashboard())

	// === HANDLERS ===
	userHandler := handler.NewUserHandler(users, s.deps.GitHub, s.config.Cookies, s.logger)
	videoHandler := handler.NewVideoHandler(videos, s.logger)
	commentHandler := handler.NewCommentHandler(comments, s.logger)
	tweetHandler := handler.NewTweetHandler(tweets, s.logger)
	likeHandler := handler.NewLikeHandler(likes, s.logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptions, s.logger)
	playlistHandler := handler.NewPlaylistHandler(playlists, s.logger)
	dashboardHandler := handler.NewDashboardHandler(dashboard)
	healthHandler := handler.NewHealthHandler(db, s.logger)

	requireAuth := auth.RequireAuth(s.deps.Tokens, db.Users(), s.logger)
	stage := s.deps.Stager.Stage

	// === GLOBAL MIDDLEWARE ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === LOCAL MEDIA ===
	if s.deps.MediaHandler != nil {
		s.router.Handle(storage.MediaPrefix+"*", s.deps.MediaHandler)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", healthHandler.HandleHealthcheck)

		r.Route("/users", func(r chi.Router) {
			r.With(stage(upload.SlotAvatar, upload.SlotCoverImage)).Post("/register", userHandler.HandleRegister)
			r.Post("/login", userHandler.HandleLogin)
			r.Post("/refresh-token", userHandler.HandleRefresh)

			if s.deps.GitHub != nil {
				r.Get("/auth/github/login", userHandler.HandleGitHubLogin)
				r.Get("/auth/github/callback", userHandler.HandleGitHubCallback)
			}

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", userHandler.HandleLogout)
				r.Post("/change-password", userHandler.HandleChangePassword)
				r.Get("/get-user", userHandler.HandleCurrentUser)
				r.Patch("/change-account-details", userHandler.HandleUpdateAccount)
				r.With(stage(upload.SlotAvatar)).Patch("/change-avatar", userHandler.HandleChangeAvatar)
				r.With(stage(upload.SlotCoverImage)).Patch("/change-coverImage", userHandler.HandleChangeCoverImage)
				r.Get("/channel/{username}", userHandler.HandleChannel)
				r.Get("/history", userHandler.HandleHistory)
			})
		})

		// Everything below requires a logged-in user.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/videos", func(r chi.Router) {
				r.Get("/", videoHandler.HandleList)
				r.With(stage(upload.SlotVideoFile, upload.SlotThumbnail)).Post("/", videoHandler.HandlePublish)
				r.Get("/{videoId}", videoHandler.HandleGet)
				r.With(stage(upload.SlotThumbnail)).Patch("/{videoId}", videoHandler.HandleUpdate)
				r.Delete("/{videoId}", videoHandler.HandleDelete)
				r.Patch("/toggle/publish/{videoId}", videoHandler.HandleTogglePublish)
				r.Post("/{videoId}/views", videoHandler.HandleView)
			})

			r.Route("/comments", func(r chi.Router) {
				r.Get("/{videoId}", commentHandler.HandleList(model.TargetVideo, "videoId"))
				r.Post("/{videoId}", commentHandler.HandleCreate(model.TargetVideo, "videoId"))
				r.Get("/t/{tweetId}", commentHandler.HandleList(model.TargetTweet, "tweetId"))
				r.Post("/t/{tweetId}", commentHandler.HandleCreate(model.TargetTweet, "tweetId"))
				r.Patch("/c/{commentId}", commentHandler.HandleUpdate)
				r.Delete("/c/{commentId}", commentHandler.HandleDelete)
				r.Get("/c/{commentId}/replies", commentHandler.HandleReplies)
				r.Post("/c/{commentId}/replies", commentHandler.HandleReply)
			})

			r.Route("/likes", func(r chi.Router) {
				r.Post("/toggle/v/{videoId}", likeHandler.HandleToggle(model.TargetVideo, "videoId"))
				r.Post("/toggle/c/{commentId}", likeHandler.HandleToggle(model.TargetComment, "commentId"))
				r.Post("/toggle/t/{tweetId}", likeHandler.HandleToggle(model.TargetTweet, "tweetId"))
				r.Get("/videos", likeHandler.HandleLikedVideos)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/c/{channelId}", subscriptionHandler.HandleToggle)
				r.Get("/c/{channelId}", subscriptionHandler.HandleSubscribers)
				r.Get("/u/{subscriberId}", subscriptionHandler.HandleChannels)
			})

			r.Route("/playlists", func(r chi.Router) {
				r.Post("/", playlistHandler.HandleCreate)
				r.Get("/user/{userId}", playlistHandler.HandleListByUser)
				r.Get("/{playlistId}", playlistHandler.HandleGet)
				r.Patch("/{playlistId}", playlistHandler.HandleUpdate)
				r.Delete("/{playlistId}", playlistHandler.HandleDelete)
				r.Patch("/add/{videoId}/{playlistId}", playlistHandler.HandleAddVideo)
				r.Patch("/remove/{videoId}/{playlistId}", playlistHandler.HandleRemoveVideo)
			})

			r.Route("/tweets", func(r chi.Router) {
				r.Get("/", tweetHandler.HandleList)
				r.Post("/", tweetHandler.HandleCreate)
				r.Get("/user/{userId}", tweetHandler.HandleListByUser)
				r.Patch("/{tweetId}", tweetHandler.HandleUpdate)
				r.Delete("/{tweetId}", tweetHandler.HandleDelete)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", dashboardHandler.HandleStats)
				r.Get("/videos", dashboardHandler.HandleVideos)
			})
		})
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database
func (s *Server) Start() error {
	defer s.deps.DB.Close()

	// Uploads of several hundred MB need far more than the usual 15s to
	// arrive, and Publish forwards them to the store before answering.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api/v1", s.config.Port)),
			slog.String("database", s.deps.DB.Dialect()),
			slog.Bool("githubLogin", s.deps.GitHub != nil),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
