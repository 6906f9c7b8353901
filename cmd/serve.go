package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sitecheck/internal/api"
	"sitecheck/internal/api/handler/v1handler"
	"sitecheck/internal/api/handler/webhandler"
	"sitecheck/internal/checker"
	"sitecheck/internal/config"
	"sitecheck/internal/worker"
	"sitecheck/pkg/logger"
	"sitecheck/pkg/metrics"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, deps api.Deps, opts api.Options) func(ctx context.Context) {
	server, err := api.NewServer(deps, opts)
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", opts.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the web UI, the API server and background workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if _, err := metrics.Setup(nil); err != nil {
				logger.Fatal(ctx, "could not setup metrics", zap.Error(err))
			}

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			list := getAllowlist(ctx, cfg)
			siteAnalyzer := getAnalyzer(cfg, list)
			siteChecker := checker.New(strg, siteAnalyzer, checker.NewOptions(cfg))

			// workers outlive the signal context; they are stopped explicitly below
			riverClient, err := worker.Start(context.WithoutCancel(ctx), strg.Pool, siteChecker, worker.NewOptions(cfg))
			if err != nil {
				logger.Fatal(ctx, "could not start workers", zap.Error(err))
			}

			stopWebserver := setupServer(ctx, api.Deps{
				V1:   v1handler.Deps{Checker: siteChecker, Allowlist: list},
				Web:  webhandler.Deps{Analyzer: siteAnalyzer, Allowlist: list},
				Ping: strg.Ping,
			}, api.NewOptions(cfg))

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)

			logger.Info(ctx, "stopping workers...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(ctx, "could not stop workers", zap.Error(err))
			}
		},
	}

	return cmd
}
