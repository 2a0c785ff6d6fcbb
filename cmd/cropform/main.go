package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/cropform/internal/config"
	"github.com/jask/cropform/internal/logging"
)

// app carries what every subcommand needs once the root has loaded it.
type app struct {
	verbose    bool
	backendURL string

	// loaded is the configuration from defaults, file and env; cfg adds the
	// command-line overrides on top and is what commands run with.
	loaded config.Config
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "cropform",
		Short: "Dependent selection forms for crop and location lookups",
		Long: `cropform runs forms whose fields depend on one another: choosing a
state loads its districts, choosing a district loads its taluks, and so on.

It also serves the lookup API those forms talk to, backed by sqlite.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.loaded = cfg
			if a.backendURL != "" {
				cfg.Backend.BaseURL = a.backendURL
			}
			if a.verbose {
				cfg.Log.Level = "debug"
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.backendURL, "backend", "", "Lookup service base URL (overrides backend.base_url)")

	root.AddCommand(
		a.serveCmd(),
		a.importCmd(),
		a.formsCmd(),
		a.selectCmd(),
		a.formCmd(),
		a.resetCmd(),
		a.configCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
