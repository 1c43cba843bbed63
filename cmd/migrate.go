package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/orderlog/sqlite"
	"storefront/internal/repository"
	"storefront/internal/telemetry"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create Mongo indexes and the status history schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		logger := telemetry.InitLogger(os.Stderr, cfg.LogLevel)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if cfg.Storage == config.StorageMongo {
			client, err := repository.Connect(ctx, cfg.MongoURI)
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()
			if err := repository.NewMongoOrders(client.Database(cfg.MongoDatabase)).EnsureIndexes(ctx); err != nil {
				return err
			}
			logger.Info("mongo indexes ready", "database", cfg.MongoDatabase)
		}

		if cfg.HistoryPath != "" {
			// Open применяет схему
			h, err := sqlite.Open(cfg.HistoryPath)
			if err != nil {
				return err
			}
			_ = h.Close()
			logger.Info("history schema ready", "path", cfg.HistoryPath)
		}
		return nil
	},
}
