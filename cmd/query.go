// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	serrors "sheetlink/cli/internal/errors"
	"sheetlink/cli/internal/sqlref"
	"sheetlink/cli/internal/workbook"
)

var (
	queryOut  outputFlags
	queryFile string
)

// queryCmd runs one SQL statement through the relay.
var queryCmd = &cobra.Command{
	Use:   "query [SQL]",
	Short: "Run SQL on a Databricks SQL warehouse",
	Long: `The query command sends a SQL statement to the configured SQL warehouse through the
relay, shows the rows and writes them into the workbook.

Cell references such as ${A1}, ${Sheet 1!B2} or ${A1:A5} are replaced with SQL
literals read from the workbook before the statement is sent:

  sheetlink query "SELECT * FROM sales WHERE region = \${B1} AND year IN \${C1:C3}"`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, outputBindings)
		if err != nil {
			return err
		}

		sql := strings.TrimSpace(strings.Join(args, " "))
		if queryFile != "" {
			b, err := os.ReadFile(queryFile)
			if err != nil {
				return err
			}
			sql = strings.TrimSpace(string(b))
		}
		if sql == "" {
			pterm.Warning.Println("Please enter a SQL query")
			return nil
		}

		dest, err := queryOut.destination()
		if err != nil {
			return report(cfg, "Invalid target", err)
		}
		if err := cfg.RequireWarehouse(); err != nil {
			return report(cfg, "Configuration", err)
		}

		if len(sqlref.Refs(sql)) > 0 {
			if !workbook.Exists(cfg.Workbook.Path) {
				return report(cfg, "Cell references", serrors.New(serrors.Host,
					"the query references cells but "+cfg.Workbook.Path+" does not exist"))
			}
			wb, err := workbook.Open(cfg.Workbook.Path)
			if err != nil {
				return report(cfg, "Cell references", err)
			}
			expanded, err := sqlref.Expand(sql, wb)
			_ = wb.Close()
			if err != nil {
				return report(cfg, "Cell references", err)
			}
			debugf("expanded SQL: %s", expanded)
			sql = expanded
		}

		client := newClient(cfg)
		spin := startPhaseSpinner("Running query...")
		res, err := client.QueryDatabricks(cmd.Context(), sql)
		spin.Stop()
		if err != nil {
			return report(cfg, "Query failed", err)
		}

		if err := showResult(res, cfg.Display.RowsPerPage, queryOut.page); err != nil {
			return err
		}
		if queryOut.noWrite {
			return nil
		}
		if err := writeResult(cmd.Context(), cfg.Workbook.Path, res, dest); err != nil {
			return report(cfg, "Write-back failed", err)
		}
		return nil
	},
}

func init() {
	queryOut.register(queryCmd)
	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "Read the SQL statement from a file")
	rootCmd.AddCommand(queryCmd)
}
