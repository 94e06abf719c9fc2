package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/clipherd/clipherd/internal/devkit"
	"github.com/clipherd/clipherd/internal/phash"
	"github.com/clipherd/clipherd/pkg/clipherd"
	"github.com/clipherd/clipherd/pkg/clipherd/api"
	"github.com/clipherd/clipherd/pkg/clipherd/config"
)

// AppConfig holds process-level settings read through cleanenv. Engine
// settings come from config.WithEnv with the CLIPHERD_ prefix.
type AppConfig struct {
	LogLevel        string        `env:"LOG_LEVEL" env-default:"info"`
	LogFormat       string        `env:"LOG_FORMAT" env-default:"text"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

func main() {
	var appCfg AppConfig
	if err := cleanenv.ReadEnv(&appCfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	logger := newLogger(appCfg)
	slog.SetDefault(logger)

	cfg, err := config.Load(config.WithEnv("CLIPHERD_"))
	if err != nil {
		logger.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	if cfg.DatabaseType == "postgres" {
		if err := config.PingPostgres(cfg.DatabaseURL); err != nil {
			logger.Error("Database check failed", "err", err)
			os.Exit(1)
		}
	}

	// The dev collaborators stand in for real platform integrations; swap
	// them out when embedding the engine behind actual scraper and poster
	// implementations.
	svc, err := cfg.BuildService(config.Collaborators{
		Scraper: devkit.StubScraper{},
		Poster:  devkit.LogPoster{Logger: logger},
		Frames:  devkit.ByteFrameExtractor{},
		Hasher:  phash.New(),
		Sink:    clipherd.NewSlogEventSink(logger),
		Logger:  logger,
	})
	if err != nil {
		logger.Error("Failed to create service", "err", err)
		os.Exit(1)
	}

	if err := svc.Start(context.Background()); err != nil {
		logger.Error("Failed to start service", "err", err)
		os.Exit(1)
	}

	accountHandler := api.NewAccountHandler(svc)
	itemHandler := api.NewItemHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/accounts", accountHandler.Routes())
	r.Mount("/items", itemHandler.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "err", err)
	}

	// Stop supervisors after the HTTP surface so no command arrives for an
	// engine that is already gone.
	svc.Stop()

	logger.Info("Server exiting")
}

func newLogger(cfg AppConfig) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
