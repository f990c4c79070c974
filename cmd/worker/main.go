package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"hooklens/internal/engine/ratelimit"
	"hooklens/internal/pkg/logger"
	"hooklens/internal/platform/config"
	"hooklens/internal/platform/database"
	"hooklens/internal/platform/repositories"
	"hooklens/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	interval := flag.Duration("prune-interval", 10*time.Minute, "How often expired rate limit windows are deleted")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)
	log.Info().Msg("Starting hooklens background workers")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	window := ratelimit.NewWindow(repositories.NewRateLimitRepository(db), cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow)
	workers.Every(ctx, "rate_limit_prune", *interval, workers.PruneRateLimitWindows(window))
}
