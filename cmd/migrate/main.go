package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"hooklens/internal/pkg/logger"
	"hooklens/internal/platform/config"
	"hooklens/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	databaseURL := flag.String("database", "", "Database URL, overrides database.url")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *databaseURL != "" {
		cfg.Database.URL = *databaseURL
	}

	logger.Init(cfg.Logging)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	log.Info().Str("driver", db.Driver).Msg("Migration completed successfully")
}
