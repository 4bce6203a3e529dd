package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/contactcard/internal/config"
	"github.com/JonMunkholm/contactcard/internal/core"
	"github.com/JonMunkholm/contactcard/internal/logging"
	"github.com/JonMunkholm/contactcard/internal/metrics"
	"github.com/JonMunkholm/contactcard/internal/photo"
	"github.com/JonMunkholm/contactcard/internal/web"
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

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	slog.Debug("configuration loaded", "config", cfg.String())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var photos core.PhotoFetcher = photo.Disabled{}
	if cfg.Photo.Enabled {
		photos = photo.NewFetcher(
			photo.WithTimeout(cfg.Photo.Timeout),
			photo.WithMaxBytes(cfg.Photo.MaxBytes),
			photo.WithObserver(m.ObservePhoto),
		)
	}

	service := core.NewService(cfg, photos, m)
	server := web.NewServer(cfg, service, reg)

	slog.Info("server configured",
		"addr", cfg.Server.Addr(),
		"photos", cfg.Photo.Enabled,
		"convert_max_concurrent", cfg.Convert.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"require_api_key", cfg.Security.RequireAPIKey,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for running conversions before closing connections.
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for conversions to complete", "active", status.Active)
			if err := service.WaitForConversions(shutdownCtx); err != nil {
				slog.Warn("conversions did not complete in time", "error", err)
			} else {
				slog.Info("all conversions completed")
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
