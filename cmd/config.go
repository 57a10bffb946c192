// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sheetlink/cli/internal/config"
	"sheetlink/cli/internal/logging"
)

// configCmd groups the settings commands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Settings are read from config.yaml in the config directory, then from SHEETLINK_*
environment variables (for example SHEETLINK_DATABRICKS_TOKEN), then from command flags.

Keys:
  ` + strings.Join(config.Keys(), "\n  "),
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Save a setting to the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := store.Set(key, value); err != nil {
			pterm.Error.Println(err.Error())
			return errReported
		}
		pterm.Success.Printf("%s = %s\n", key, displayValue(key, value))
		debugf("saved to %s", store.Path())
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print the effective value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !known(key) {
			pterm.Error.Printf("unknown config key %q\n", key)
			return errReported
		}
		fmt.Println(displayValue(key, store.Get(key)))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show every effective setting",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := pterm.TableData{{"Key", "Value"}}
		for _, key := range config.Keys() {
			data = append(data, []string{key, displayValue(key, store.Get(key))})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
		pterm.Println()
		pterm.Info.Printf("Config file: %s\n", store.Path())
		return nil
	},
}

// displayValue masks credentials. Unset values show as "(not set)".
func displayValue(key, value string) string {
	if value == "" || value == "<nil>" {
		return pterm.FgGray.Sprint("(not set)")
	}
	if !config.Secret(key) {
		return value
	}
	if strings.Contains(value, "://") {
		return logging.Mask(value)
	}
	return logging.MaskToken(value)
}

func known(key string) bool {
	for _, k := range config.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func init() {
	configCmd.AddCommand(configSetCmd, configGetCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
