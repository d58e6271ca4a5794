// Package cmd defines and implements the CLI commands for the tvgrab executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gkertesz/tvgrab/internal/config"
	"github.com/gkertesz/tvgrab/internal/logging"
	"github.com/gkertesz/tvgrab/internal/metrics"
)

var cfgFile string

// appKeyType is the key for storing the application in the context.
type appKeyType string

const appKey appKeyType = "app"

// application bundles the services every subcommand needs.
type application struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApplication is a variable so tests can inject a canned application.
var newApplication = func(cmd *cobra.Command) (*application, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if quiet, err := cmd.Root().PersistentFlags().GetBool("quiet"); err == nil && quiet {
		cfg.Logging.Quiet = true
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Quiet)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	metrics.Init()
	return &application{cfg: cfg, logger: logger}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tvgrab",
		Short: "An XMLTV grabber for Hungarian television listings.",
		Long: `tvgrab discovers the channel catalog of the source site, crawls the
per-day schedule pages of the configured channels, resolves every
programme's detail page and writes the result as an XMLTV document.`,
		SilenceUsage: true,

		// Runs after flags are parsed but before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(cmd)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app, ok := cmd.Context().Value(appKey).(*application); ok && app != nil {
				_ = app.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults plus TVGRAB_* environment apply without one)")
	cmd.PersistentFlags().Bool("quiet", false, "suppress info-level log output")

	cmd.AddCommand(newGrabCmd())
	cmd.AddCommand(newChannelsCmd())
	cmd.AddCommand(newCapabilitiesCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*application, error) {
	app, ok := ctx.Value(appKey).(*application)
	if !ok || app == nil {
		return nil, errors.New("application services not initialized")
	}
	return app, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
