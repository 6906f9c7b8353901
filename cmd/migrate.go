package main

import (
	"context"
	"database/sql"
	"fmt"
	root "sitecheck"
	"sitecheck/internal/config"
	"sitecheck/pkg/logger"

	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCommand constructs the 'migrate' subcommand that brings the checks
// table and the river job tables to their latest versions.
func migrateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Migrates database to the latest version",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			db, ok := strg.DB.(*sql.DB)
			if !ok {
				return fmt.Errorf("unexpected storage handle %T", strg.DB)
			}

			if err := migrateSchema(db); err != nil {
				return err
			}

			return migrateRiver(ctx, db)
		},
	}

	return cmd
}

// migrateSchema applies the embedded goose migrations.
func migrateSchema(db *sql.DB) error {
	goose.SetBaseFS(root.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("could not set goose dialect to postgres: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("could not migrate schema: %w", err)
	}

	return nil
}

// migrateRiver applies the river queue migrations that are not applied yet.
func migrateRiver(ctx context.Context, db *sql.DB) error {
	migrator, err := rivermigrate.New(riverdatabasesql.New(db), nil)
	if err != nil {
		return fmt.Errorf("could not create river queue migrator: %w", err)
	}

	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("could not migrate river queue: %w", err)
	}
	for _, v := range res.Versions {
		logger.Info(ctx, "applied river migration", zap.Int("version", v.Version), zap.String("name", v.Name))
	}

	return nil
}
