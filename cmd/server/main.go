package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/web"
)

func main() {
	// Load .env file if it exists; real environment variables win.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("stopped server")
}

// run serves until ctx is cancelled, then drains in-flight work.
func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service := core.NewService(core.Options{
		SessionTTL:         cfg.Session.TTL,
		MaxFileSize:        cfg.Upload.MaxFileSize,
		MaxFilesPerSession: cfg.Session.MaxFiles,
		MaxConcurrent:      cfg.Upload.MaxConcurrent,
		MaxWait:            cfg.Upload.MaxWaitTime,
		Display: core.DisplayOptions{
			PreviewRows: cfg.Display.PreviewRows,
			ChartSeries: cfg.Display.ChartSeries,
			ChartBars:   cfg.Display.ChartBars,
		},
		Registerer: reg,
	})
	server := web.NewServer(cfg, service, reg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		service.StartSessionSweeper(gctx, cfg.Session.SweepInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		status := service.Limiter().Status()
		if status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}
