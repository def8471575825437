package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/crack-api/internal/config"
	"github.com/Brownie44l1/crack-api/internal/container"
	"github.com/Brownie44l1/crack-api/internal/handlers"
	"github.com/Brownie44l1/crack-api/internal/history"
	"github.com/Brownie44l1/crack-api/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := container.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	var store *history.Store
	if cfg.HistoryDB != "" {
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			logger.Error("failed to open history store", "path", cfg.HistoryDB, "err", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	// Load eagerly so the first request does not pay for it. A missing
	// model is logged by the registry and reported per request.
	if _, err := app.Registry.Acquire(); err != nil {
		logger.Warn("serving without a model", "path", cfg.ModelPath, "err", app.Registry.Err())
	}

	handler := handlers.NewHandler(app.Analyzer, handlers.Options{
		UploadDir:   cfg.UploadDir,
		MaxUploadMB: cfg.MaxUploadMB,
		Status:      app.Registry,
		History:     store,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "port", cfg.Port, "model", cfg.ModelPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	logger.Info("server stopped")
}
