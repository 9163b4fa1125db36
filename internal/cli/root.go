package cli

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"condor-trader/internal/broker"
	"condor-trader/internal/config"
	"condor-trader/internal/logging"
	"condor-trader/internal/regime"
	"condor-trader/internal/store"
)

// Version information
const Version = "0.1.0"

// Exit codes for scheduler/alerting integration.
const (
	ExitOK           = 0 // no issue
	ExitActionNeeded = 1 // blocked trade, cancellations, or discrepancies
	ExitInternalErr  = 2 // internal error
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Broker broker.Broker
	Store  store.AuditStore
	Regime *regime.Cache

	// exitCode is set by commands; Execute returns it to main.
	exitCode int
}

// Exit marks the process exit code, keeping the highest severity seen.
func (a *App) Exit(code int) {
	if code > a.exitCode {
		a.exitCode = code
	}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) (*cobra.Command, *App) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.IsPaperMode() && cfg.Credentials.Alpaca.APIKey == "" {
		app.Broker = broker.NewPaperBroker()
		logger.Debug().Msg("Paper broker initialized")
	} else {
		app.Broker = broker.NewAlpacaBroker(broker.AlpacaConfig{
			APIKey:    cfg.Credentials.Alpaca.APIKey,
			APISecret: cfg.Credentials.Alpaca.APISecret,
			BaseURL:   cfg.Credentials.Alpaca.BaseURL,
			Timeout:   cfg.Monitor.BrokerTimeout,
		})
		logger.Debug().Msg("Alpaca broker initialized")
	}

	dbPath := filepath.Join(config.DefaultConfigDir(), "condor.db")
	auditStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize audit store, history will be unavailable")
	} else {
		app.Store = auditStore
	}

	app.Regime = regime.NewCache(cfg.Regime, logger)

	rootCmd := &cobra.Command{
		Use:   "condor",
		Short: "Defined-risk options trading decision and risk-control core",
		Long: `condor decides whether and how to sell a defined-risk options structure,
validates proposed trades against hard risk rules, and keeps internal
state consistent with the broker's ground truth.

Each subcommand is a short-lived job meant to be run on its own cadence
by an external scheduler. Exit codes: 0 = clean, 1 = action needed,
2 = internal error.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/condor-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addRegimeCommands(rootCmd, app)
	addEvaluateCommands(rootCmd, app)
	addSweepCommands(rootCmd, app)
	addReconcileCommands(rootCmd, app)

	return rootCmd, app
}

// ConfigDirFromArgs extracts the --config flag value ahead of cobra's
// parse: configuration must be loaded before the command tree is built,
// so the flag cannot wait for flag binding.
func ConfigDirFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

// Execute runs the CLI and returns the process exit code.
func Execute(cfg *config.Config, logger zerolog.Logger) int {
	rootCmd, app := NewRootCmd(cfg, logger)

	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		app.Exit(ExitInternalErr)
	}
	if app.Store != nil {
		_ = app.Store.Close()
	}
	return app.exitCode
}
