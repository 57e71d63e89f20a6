// Package main is the entry point for the VidTube API server.
//
// The main package stays minimal. Its job is to:
//  1. Read configuration
//  2. Create the long-lived dependencies (logger, database, object store)
//  3. Start the server
//
// All actual logic lives in internal/.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/sakif/vidtube/internal/auth"
	"github.com/sakif/vidtube/internal/config"
	"github.com/sakif/vidtube/internal/handler"
	"github.com/sakif/vidtube/internal/logging"
	"github.com/sakif/vidtube/internal/probe"
	"github.com/sakif/vidtube/internal/probe/docker"
	"github.com/sakif/vidtube/internal/repository/sqldb"
	"github.com/sakif/vidtube/internal/server"
	"github.com/sakif/vidtube/internal/storage"
	"github.com/sakif/vidtube/internal/upload"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code. Deferred closers (log file, probe
// containers) have run by the time it returns.
func run() int {
	// === 1. READ CONFIGURATION ===
	// Real environment variables win; .env only fills the gaps.
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return 1
	}

	// === 2. SET UP LOGGING ===
	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		slog.Error("failed to set up logging", slog.String("error", err.Error()))
		return 1
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	// === 3. OPEN THE DATABASE ===
	// SQLite needs its directory to exist; Postgres DSNs are URLs.
	if cfg.DBDriver == sqldb.DriverSQLite && cfg.DBDSN != ":memory:" {
		dbDir := filepath.Dir(cfg.DBDSN)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			return 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := sqldb.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	cancel()
	if err != nil {
		logger.Error("failed to open database",
			slog.String("driver", cfg.DBDriver),
			slog.String("error", err.Error()),
		)
		return 1
	}

	// === 4. OBJECT STORAGE ===
	// Local storage is also served by this process under /media/.
	var (
		store storage.Store
		local *storage.Local
	)
	switch cfg.StorageDriver {
	case "cloudinary":
		store, err = storage.NewCloudinary(cfg.CloudinaryURL, logger)
	default:
		local, err = storage.NewLocal(cfg.MediaDir, cfg.PublicBaseURL)
		store = local
	}
	if err != nil {
		logger.Error("failed to set up object storage",
			slog.String("driver", cfg.StorageDriver),
			slog.String("error", err.Error()),
		)
		return 1
	}

	stager, err := upload.NewStager(cfg.StagingDir, cfg.MaxUploadBytes, logger)
	if err != nil {
		logger.Error("failed to set up upload staging", slog.String("error", err.Error()))
		return 1
	}
	media := upload.NewBridge(store, "vidtube", logger)

	// === 5. VIDEO PROBE ===
	// Optional: without Docker every video is stored with duration 0.
	var prober probe.Prober = probe.Disabled{}
	if cfg.ProbeEnabled {
		probeCfg := docker.DefaultConfig()
		probeCfg.Image = cfg.ProbeImage
		probeCfg.PoolSize = cfg.ProbePoolSize
		probeCfg.MediaDir = stager.Dir()

		dp, err := docker.New(probeCfg, logger)
		if err != nil {
			logger.Warn("docker probe unavailable, video durations will be 0",
				slog.String("error", err.Error()),
			)
		} else {
			defer dp.Close()
			prober = dp
		}
	}

	// === 6. AUTH ===
	tokens, err := auth.NewTokenService(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	if err != nil {
		logger.Error("invalid token configuration", slog.String("error", err.Error()))
		return 1
	}

	var github *auth.GitHubProvider
	if cfg.GitHubEnabled() {
		callbackURL := cfg.GitHubCallbackURL
		if callbackURL == "" {
			callbackURL = fmt.Sprintf("http://localhost:%d/api/v1/users/auth/github/callback", cfg.Port)
		}
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, callbackURL)
	} else {
		logger.Info("GITHUB_CLIENT_ID not set, GitHub login is disabled")
	}

	// === 7. CREATE AND START THE SERVER ===
	deps := server.Deps{
		DB:        db,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(),
		Media:     media,
		Stager:    stager,
		Prober:    prober,
		GitHub:    github,
	}
	if local != nil {
		deps.MediaHandler = local.Handler()
	}

	srv, err := server.New(server.Config{
		Port:        cfg.Port,
		CORSOrigins: cfg.CORSOrigins,
		Cookies: handler.CookieConfig{
			Secure:     cfg.CookieSecure,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		},
		HistoryLimit: cfg.HistoryLimit,
	}, deps, logger)
	if err != nil {
		db.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return 1
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
