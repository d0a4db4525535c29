package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/mkraev/yanote/internal/auth"
	"github.com/mkraev/yanote/internal/config"
	"github.com/mkraev/yanote/internal/db"
	"github.com/mkraev/yanote/internal/logutil"
	"github.com/mkraev/yanote/internal/notes"
	"github.com/mkraev/yanote/internal/ratelimit"
	"github.com/mkraev/yanote/internal/web"
)

const sessionCleanupInterval = time.Hour

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	addr := config.ParseFlags()
	cfg, err := config.Load(addr)
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	logutil.Setup(cfg.LogLevel, cfg.LogJSON)
	auth.SetSecureCookies(cfg.RequireSecureCookies())

	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		logrus.WithError(err).WithField("path", cfg.DatabasePath).Fatal("failed to open database")
	}
	defer store.Close()

	renderer, err := web.NewRenderer()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load templates")
	}

	notesService := notes.NewService(store)
	userService := auth.NewUserService(store)
	sessionService := auth.NewSessionService(store, cfg.SessionDuration)

	limiter := ratelimit.New(cfg.RateLimitConfig)
	defer limiter.Stop()

	mux := http.NewServeMux()
	handler := web.NewHandler(renderer, notesService, userService, sessionService, cfg.SessionDuration)
	handler.RegisterRoutes(mux, auth.NewMiddleware(sessionService), ratelimit.Middleware(limiter))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupSessions(ctx, sessionService)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           logutil.RequestLogger(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logrus.WithFields(logrus.Fields{
		"addr":     cfg.ListenAddr,
		"base_url": cfg.BaseURL,
		"database": cfg.DatabasePath,
	}).Info("server starting")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("server failed")
	}
	logrus.Info("server stopped")
}

// cleanupSessions periodically deletes expired sessions so the table
// does not grow without bound.
func cleanupSessions(ctx context.Context, sessions *auth.SessionService) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.Cleanup(ctx); err != nil {
				logrus.WithError(err).Warn("session cleanup failed")
			}
		}
	}
}
