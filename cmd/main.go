package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/Dosada05/tabletop-tools/brackets"
	"github.com/Dosada05/tabletop-tools/config"
	"github.com/Dosada05/tabletop-tools/handlers"
	api "github.com/Dosada05/tabletop-tools/routes"
	"github.com/Dosada05/tabletop-tools/services"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("bracket_policy", string(cfg.BracketPolicy)),
		slog.Duration("session_ttl", cfg.SessionTTL))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wsHub := brackets.NewHub(logger)

	sessionService, err := services.NewSessionService(services.SessionConfig{
		TTL:    cfg.SessionTTL,
		Policy: cfg.BracketPolicy,
	}, wsHub, logger)
	if err != nil {
		logger.Error("failed to create session service", slog.Any("error", err))
		os.Exit(1)
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Session:    handlers.NewSessionHandler(sessionService, cfg.SessionSecretKey, cfg.SessionTokenTTL),
		Bracket:    handlers.NewBracketHandler(sessionService),
		Life:       handlers.NewLifeCounterHandler(sessionService),
		Dungeon:    handlers.NewDungeonHandler(sessionService),
		Randomizer: handlers.NewRandomizerHandler(sessionService),
		WebSocket:  handlers.NewWebSocketHandler(sessionService, wsHub, originChecker(cfg.CORSAllowedOrigins), logger),
	}, api.Options{
		JWTSecret:      []byte(cfg.SessionSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wsHub.Run(gctx)
	})
	g.Go(func() error {
		return sessionService.RunSweeper(gctx, cfg.SessionSweepInterval)
	})
	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

// originChecker accepts websocket upgrades from the configured CORS origins.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, u.Scheme+"://"+u.Host)
	}
}
