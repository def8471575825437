package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Brownie44l1/crack-api/internal/config"
	"github.com/Brownie44l1/crack-api/internal/container"
	"github.com/Brownie44l1/crack-api/internal/logging"
	"github.com/Brownie44l1/crack-api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	if cfg.TelegramToken == "" {
		logger.Error("TELEGRAM_TOKEN is required")
		os.Exit(1)
	}

	app, err := container.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Error("failed to create upload dir", "path", cfg.UploadDir, "err", err)
		os.Exit(1)
	}

	bot, err := telegram.NewBot(cfg.TelegramToken, app.Analyzer, cfg.UploadDir, logger)
	if err != nil {
		logger.Error("failed to create bot", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("bot is running")
	if err := bot.Run(ctx); err != nil {
		logger.Error("bot stopped", "err", err)
	}
}
