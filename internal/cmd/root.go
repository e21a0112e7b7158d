package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/brahma/api-tracker/internal/config"
	"github.com/brahma/api-tracker/internal/logger"
	"github.com/brahma/api-tracker/internal/repository"
	"github.com/brahma/api-tracker/internal/service"
	"github.com/brahma/api-tracker/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "API hit tracker",
	Long: `tracker records metadata about requests hitting /track and serves
the recorded history as JSON on /api/hits.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml or ./configs/config.yaml)")
}

// Loads config and builds the logger shared by every subcommand
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return cfg, log, nil
}

// Opens the relational store and migrates it. Commands that manage the
// schema or users cannot run against the in-memory driver.
func openDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.Database, error) {
	if cfg.Database.Driver == config.DriverMemory {
		return nil, fmt.Errorf("database driver %q has no schema to manage", cfg.Database.Driver)
	}

	db, err := storage.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Picks the hit store for the configured driver. db is nil for the memory driver.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.HitStore, *storage.Database, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using in-memory hit log, hits are lost on restart")
		return repository.NewMemoryHitRepository(), nil, nil
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	return repository.NewHitRepository(db), db, nil
}
