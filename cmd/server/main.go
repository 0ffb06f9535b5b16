package main

import (
	"fmt"
	"os"

	"github.com/gdg-garage/reputation-tracker/internal/config"
	"github.com/gdg-garage/reputation-tracker/internal/database"
	"github.com/gdg-garage/reputation-tracker/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "reputation",
	Short:         "Reputation tracker: imports game reputation exports and serves aggregated progress",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd, userCmd)
}

// openDatabase opens the configured store, applying pending migrations.
func openDatabase() (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
