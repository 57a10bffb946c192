// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for sheetlink.
// It implements the relay server, SQL and Genie queries with write-back into an
// .xlsx workbook, an interactive Genie chat and configuration commands using the
// Cobra CLI framework.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sheetlink/cli/internal/config"
	"sheetlink/cli/internal/logging"
)

var (
	showVersion bool
	verbose     bool
	configDir   string

	// store is opened once per invocation before any command runs.
	store *config.Store
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sheetlink",
	Short: "Query Databricks and Genie and write the results into a workbook",
	Long: `sheetlink runs SQL on a Databricks SQL warehouse or asks a Genie space a question,
shows the result in the terminal and writes it into an .xlsx workbook.

Requests go through the sheetlink relay ('sheetlink serve'), which attaches the access
token and reshapes Databricks results into rows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Enable verbose mode for all modules if --verbose is set
		if verbose {
			os.Setenv("SHEETLINK_VERBOSE", "1")
		}
		s, err := config.Open(configDir)
		if err != nil {
			return err
		}
		store = s
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			printVersion(cmd.Context())
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// Interrupts cancel the command context so polls and servers stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, logging.Mask(err.Error()))
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version and relay status")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding config.yaml (default $XDG_CONFIG_HOME/sheetlink)")
}

// loadConfig binds the command's flags and decodes the effective configuration.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (config.Config, error) {
	v := store.Viper()
	for key, flag := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, err
			}
		}
	}
	return store.Config()
}

func debugf(format string, args ...any) {
	if logging.Verbose() {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}
