package main

import (
	"fmt"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// app carries what every subcommand needs once flags are parsed
type app struct {
	logLevel string
	cfg      *config.Config
	log      *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "backofficectl",
		Short:         "Operational tasks for the back-office engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCmd(a),
		newSchemaCmd(a),
		newReconcileCmd(a),
		newTokenCmd(a),
	)
	return root
}

func (a *app) init() error {
	log, err := logger.New(&logger.Config{
		Level:  a.logLevel,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.log = log

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// openDatabase connects through the same gorm setup as the server
func (a *app) openDatabase() (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(a.log, logger.MapGormLogLevel(a.logLevel), a.cfg.Database.SlowQueryThresh)
	db, err := persistence.NewDatabase(&a.cfg.Database, gormLog)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.log.Debug("Database connected", persistence.LogField(&a.cfg.Database))
	return db, nil
}
