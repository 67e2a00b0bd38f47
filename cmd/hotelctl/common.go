package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/di"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/config"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/database"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/logger"
	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadWithPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       "warn",
		ServiceName: "hotelctl",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func connectDB(ctx context.Context, cfg *config.Config) (*database.PostgresDB, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Database:       cfg.Database.DBName,
		SSLMode:        cfg.Database.SSLMode,
		MaxConns:       4,
		MinConns:       1,
		ConnectTimeout: 5 * time.Second,
		MaxRetries:     1,
		RetryInterval:  time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// buildContainer wires the engine on PostgreSQL without Redis or Kafka
func buildContainer(cfg *config.Config, db *database.PostgresDB) *di.Container {
	return di.NewContainer(&di.ContainerConfig{
		DB:       db,
		Verifier: di.NewVerifier(cfg),
		Engine:   di.EngineConfigFrom(cfg),
		Sweeper:  di.SweeperConfigFrom(cfg),
	})
}
