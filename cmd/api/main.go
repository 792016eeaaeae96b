package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/app"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/config"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/validator"
)

func main() {
	// Load .env before config reads the environment. Logging setup needs the
	// config, so a missing file is only reported afterwards.
	envMissing := godotenv.Load() != nil

	cfg := config.New()
	logger.Init(cfg.LogLevel, cfg.Environment)
	validator.Init()

	logger.Info("Starting Digital Microscope API", nil)
	if envMissing {
		logger.Info("No .env file found, using environment variables", nil)
	}

	application, err := app.New(cfg)
	if err != nil {
		logger.Error(err, "Failed to initialize application", nil)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := application.Run(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...", nil)
	case err := <-serverErr:
		logger.Error(err, "Server error occurred, initiating shutdown", nil)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Server forced to shutdown", nil)
		os.Exit(1)
	}

	logger.Info("Server exited gracefully", nil)
}
