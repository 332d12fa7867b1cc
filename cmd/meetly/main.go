package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/meetly/docs"
	"github.com/kirinyoku/meetly/internal/app"
	"github.com/kirinyoku/meetly/internal/config"
)

// @title Meetly API
// @version 1.0
// @description Session-scoped access to events, meetups, favorites and bookings.
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.Level}))
	slog.SetDefault(logger)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
