// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sheetlink/cli/internal/backend"
)

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version and relay status",
	RunE: func(cmd *cobra.Command, args []string) error {
		printVersion(cmd.Context())
		return nil
	},
}

func printVersion(ctx context.Context) {
	fmt.Printf("sheetlink %s\n", Version)

	cfg, err := store.Config()
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	status := "reachable"
	if err := backend.New(cfg.Relay.URL, backend.Connection{}, 0).Health(ctx); err != nil {
		status = "unreachable"
	}
	fmt.Printf("relay %s (%s)\n", cfg.Relay.URL, status)
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
