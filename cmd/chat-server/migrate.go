package main

import (
	"fmt"

	"chat-backend/config"
	"chat-backend/internal/infrastructure/persistence/db"
	"chat-backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	gdb, err := db.Open(cfg.Database, log, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()

	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("schema migrated", zap.String("driver", cfg.Database.Driver))
	return nil
}
