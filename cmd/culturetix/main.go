package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/culturetix/docs"
	"github.com/kirinyoku/culturetix/internal/app"
	"github.com/kirinyoku/culturetix/internal/config"
	"github.com/kirinyoku/culturetix/internal/logger"
)

// @title culturetix API
// @version 1.0
// @description Ticket reservations for cultural venues with capacity-safe booking.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Development(), cfg.App.LogLevel)
	slog.SetDefault(log)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
