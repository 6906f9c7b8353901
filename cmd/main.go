// Package main provides the CLI entrypoint of the site check service.
// It wires subcommands (serve, check, migrate, jwt), loads configuration and
// initializes logging.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"sitecheck/internal/config"
	"sitecheck/pkg/logger"
	"sitecheck/pkg/storage/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// getPostgres creates a PostgreSQL client using configuration values and returns it
// along with a cleanup function to close the connection pool.
func getPostgres(ctx context.Context, cfg *config.Config) (*postgres.PgSQL, func()) {
	pgsql, err := postgres.New(ctx, postgres.Options{
		Username:           cfg.Database.Username,
		Password:           cfg.Database.Password,
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		Database:           cfg.Database.DatabaseName,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.Database.ConnMaxIdleTime,
		MaxOpenConnections: cfg.Database.MaxOpenConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		SslMode:            cfg.Database.SslMode,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create postgres storage", zap.Error(err))
	}

	return pgsql, func() {
		logger.Info(ctx, "closing postgres client...")
		if err = pgsql.Close(); err != nil {
			logger.Warn(ctx, "could not close postgres connection", zap.Error(err))
		}
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "sitecheck",
		Short:         "Detects low quality websites behind redirects",
		SilenceErrors: true,
	}

	// cobra parses flags only on execution; the config path is needed before
	// that, so it is read with the standard flag package and declared on the
	// root command to keep cobra from rejecting it.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(nopWriter{})
	configPath := flagSet.String("c", "config.yml", "The config file path")
	_ = flagSet.Parse(configArgs(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file: ", err)
	}

	logger.Setup(cfg.Environment, cfg.LogLevel)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		serveCommand(cfg),
		checkCommand(cfg),
		migrateCommand(cfg),
		JWTCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		logger.Error(ctx, "command failed", zap.Error(err))
		os.Exit(1) //nolint: gocritic
	}
}

// configArgs extracts the -c/--config flag from args, since the subcommand
// name stops the standard flag package from parsing any further.
func configArgs(args []string) []string {
	for i, a := range args {
		switch {
		case a == "-c" || a == "--config" || a == "-config":
			if i+1 < len(args) {
				return []string{"-c", args[i+1]}
			}
		case len(a) > 3 && a[:3] == "-c=":
			return []string{a}
		case len(a) > 9 && a[:9] == "--config=":
			return []string{"-c", a[9:]}
		}
	}

	return nil
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
