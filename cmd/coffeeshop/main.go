package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"coffeeshop/internal/config"
	"coffeeshop/internal/infra/db"
	httpinfra "coffeeshop/internal/infra/http"
	"coffeeshop/internal/observability/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
		cfg        config.Config
	)

	root := &cobra.Command{
		Use:           "coffeeshop",
		Short:         "Drinks menu API with JWT permission checks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			logger.Init(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel, ServiceName: "coffeeshop"})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file; environment variables override it")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(&cfg), newMigrateCmd(&cfg))
	return root
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := db.NewStore(*cfg)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer store.Close()
			if store.Enabled() {
				if err := store.Migrate(ctx, cfg.DBResetOnStart); err != nil {
					return err
				}
			}

			srv := httpinfra.NewServer(*cfg, store)
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			logger.L().Info("server stopped")
			return nil
		},
	}
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the drinks table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.PostgresDSN == "" {
				return errors.New("POSTGRES_DSN is required to migrate")
			}
			store, err := db.NewStore(*cfg)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer store.Close()
			if err := store.Migrate(cmd.Context(), reset); err != nil {
				return err
			}
			logger.L().Info("migration complete", zap.Bool("reset", reset))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop the drinks table and seed it with a single drink")
	return cmd
}

// loadEnvFile tolerates a missing default .env but not an explicitly requested one.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
