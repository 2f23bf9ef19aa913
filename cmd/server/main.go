package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/fieldverify/internal/config"
	"github.com/JonMunkholm/fieldverify/internal/core"
	"github.com/JonMunkholm/fieldverify/internal/logging"
	"github.com/JonMunkholm/fieldverify/internal/repository"
	"github.com/JonMunkholm/fieldverify/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"phone_region", cfg.Locale.PhoneRegion,
	)

	ctx := context.Background()
	repo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	service := core.NewService(repo, cfg)
	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running imports finish writing before the listener closes.
		if status := service.ImportLimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// openRepository connects to the configured storage backend.
func openRepository(ctx context.Context, sc config.StorageConfig) (repository.Repository, error) {
	switch strings.ToLower(sc.Backend) {
	case config.BackendMemory:
		slog.Warn("using in-memory storage; leads are lost on restart")
		return repository.NewMemory(), nil
	case config.BackendPostgres:
		repo, err := repository.OpenPostgres(ctx, repository.PostgresOptions{
			URL:             sc.DatabaseURL,
			MaxConns:        sc.MaxConns,
			MinConns:        sc.MinConns,
			MaxConnLifetime: sc.MaxConnLifetime,
			MaxConnIdleTime: sc.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database")
		return repo, nil
	case config.BackendRedis:
		repo, err := repository.OpenRedis(ctx, sc.RedisURL, sc.RedisPrefix)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to redis", "prefix", sc.RedisPrefix)
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}
