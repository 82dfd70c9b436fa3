package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coinvault/coinvault/internal/config"
	"github.com/coinvault/coinvault/internal/infra"
	"github.com/coinvault/coinvault/internal/logging"
	"github.com/coinvault/coinvault/internal/routes"
	"github.com/coinvault/coinvault/internal/server"
)

func main() {
	root := &cobra.Command{
		Use:               "coinvault",
		Short:             "Custodial multi-asset wallet API",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve()
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply PostgreSQL schema migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate()
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	conns, err := infra.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open connections", "error", err)
		return err
	}
	defer conns.Close(context.Background(), logger)

	srv, err := server.New(routes.Deps{
		Cfg:    cfg,
		DB:     conns.DB,
		Mongo:  conns.Mongo,
		Cache:  conns.Cache,
		NATS:   conns.NATS,
		Logger: logger,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		return err
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("server listening", "addr", cfg.Address(), "env", cfg.AppEnv)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server exited cleanly")
	return nil
}

func migrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		return err
	}
	defer pool.Close()

	if err := infra.Migrate(pool); err != nil {
		logger.Error("migrate", "error", err)
		return err
	}
	logger.Info("migrations applied")
	return nil
}
