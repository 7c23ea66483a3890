package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/config"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/logging"
)

// app carries what every command needs once the root pre-run has loaded it.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var envFile string

	root := &cobra.Command{
		Use:   "server",
		Short: "SFG price intelligence service",
		Long: `Predicts quote prices for glazing products from the pricing catalogue,
market data and customer behaviour, and serves them over HTTP.

Running without a subcommand starts the HTTP server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			for _, warning := range cfg.Warnings() {
				logger.Warn(warning)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")

	root.AddCommand(serveCmd(a))
	root.AddCommand(migrateCmd(a))
	root.AddCommand(seedCmd(a))
	root.AddCommand(predictCmd(a))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
