package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/docflow/server/internal/config"
	apperrors "codeberg.org/docflow/server/internal/errors"
	"codeberg.org/docflow/server/internal/logger"
)

// @title Docflow API
// @version 1.0
// @description Real-time collaboration and presence for the docflow document editor

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authenticated requests. Format: Bearer {token}

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "docflow-server",
		Short:         "Docflow real-time collaboration server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.FatalErr(err, "server exited")
	}
}

func setupFlags(cmd *cobra.Command) {
	config.LoadDotEnv()
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.String("environment", defaults.GetString("environment"), "Runtime environment (development, production)")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("database-driver", defaults.GetString("database.driver"), "Document store driver (postgres, sqlite)")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("history-throttle", defaults.GetString("history.throttle"), "Edit history throttle (memory, redis, store)")

	bindFlag(cmd, "environment", "environment")
	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "history.throttle", "history-throttle")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile == "" {
		return nil
	}

	viper.SetConfigFile(cfgFile)

	return viper.ReadInConfig()
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger.Configure(cfg.Environment, cfg.LogLevel)
	apperrors.SetEnvironment(cfg.Environment)

	logger.Info("starting docflow server",
		"environment", cfg.Environment,
		"database_driver", cfg.Database.Driver,
	)

	srv, err := NewServer(ctx, cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.HTTPAddress)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
	case err := <-errCh:
		if err != nil {
			srv.Close()
			return err
		}
	}

	logger.Info("shutting down server")

	srv.drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorErr(err, "server forced to shutdown")
	}

	closeAll(srv.storage, srv.redis)

	logger.Info("server stopped")

	return nil
}
