// =============================================================================
// Depot View - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (depotview)
//   ├── aggregateCmd (depotview aggregate, alias: process)
//   ├── showCmd      (depotview show FILE)
//   ├── validateCmd  (depotview validate [FILE])
//   ├── schemaCmd    (depotview schema)
//   └── versionCmd   (depotview version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the main configuration (file, then DEPOTVIEW_* environment)
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// mainConfig is loaded before any subcommand runs.
var mainConfig *config.MainConfig

// defaultConfigFile is read when present and --config is not given.
const defaultConfigFile = "config.yaml"

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "depotview",
	Short: "Depot View - Aggregate waste collection jobs by supplier and depot",
	Long: `Depot View turns flat waste collection job exports into a report grouped
by supplier, disposal depot, waste type and EWC code.

Each group carries the number of EWC code groups underneath it, and every EWC
code group carries the first and last service date of its jobs.

Key Features:
  - CSV and XLSX job exports, one YAML configuration per export source
  - Per-column transformation rules and row validation
  - XML and XLSX reports, terminal preview
  - Concurrent processing and automatic file archival

Example Usage:
  depotview aggregate                         # Aggregate every file in the input directory
  depotview aggregate --sort-by deliveryDate  # Override the sort order
  depotview show input/portal_may.csv         # Preview one file in the terminal
  depotview validate                          # Validate configuration without processing`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		defaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initConfig loads the main configuration and installs the logger.
//
// A missing config.yaml is not an error unless it was named with --config:
// defaults and environment variables then configure the run.
func initConfig(cmd *cobra.Command) error {
	path := cfgFile
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.LoadMainConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := logging.Setup(level, cfg.LogFormat, cmd.ErrOrStderr())
	if path != "" {
		logger.Debug("loaded configuration", "path", path)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, logger))

	mainConfig = cfg
	return nil
}
