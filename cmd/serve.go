// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sheetlink/cli/internal/databricks"
	"sheetlink/cli/internal/logging"
	"sheetlink/cli/internal/relay"
	"sheetlink/cli/internal/sqlexec"
)

// serveCmd runs the relay server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Long: `The serve command starts the HTTP relay that forwards SQL statements and Genie calls
to Databricks with the caller's access token attached.

With --postgres-dsn, SQL statements run against a local PostgreSQL database instead
of a Databricks SQL warehouse; Genie calls still go to Databricks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, map[string]string{
			"relay.addr":             "addr",
			"relay.cors_origin":      "cors-origin",
			"relay.rate_per_minute":  "rate",
			"relay.grpc_health_addr": "grpc-health-addr",
			"relay.postgres_dsn":     "postgres-dsn",
			"log.level":              "log-level",
			"log.json":               "log-json",
		})
		if err != nil {
			return err
		}

		gin.SetMode(gin.ReleaseMode)
		log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.JSON)

		upstream := databricks.New(databricks.DefaultTimeout)
		var warehouse relay.Warehouse = upstream
		if cfg.Relay.PostgresDSN != "" {
			dsn, err := sqlexec.NormalizeDSN(cfg.Relay.PostgresDSN)
			if err != nil {
				return err
			}
			exec, err := sqlexec.Open(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer exec.Close()
			exec.MaxRows = maxLocalRows
			warehouse = exec
			log.Info("local warehouse", log.Args("database", sqlexec.DatabaseName(dsn), "dsn", logging.Mask(dsn)))
		}

		srv := relay.New(warehouse, upstream, relay.Options{
			Addr:           cfg.Relay.Addr,
			CORSOrigin:     cfg.Relay.CORSOrigin,
			RatePerMinute:  cfg.Relay.RatePerMinute,
			GRPCHealthAddr: cfg.Relay.GRPCHealthAddr,
			Logger:         log,
		})

		if !cfg.Log.JSON {
			pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Relay:   ") + pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(cfg.Relay.Addr))
			if cfg.Relay.GRPCHealthAddr != "" {
				pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Health:  ") + pterm.NewStyle(pterm.FgLightBlue).Sprint(cfg.Relay.GRPCHealthAddr))
			}
			pterm.Println()
		}
		return srv.Run(cmd.Context())
	},
}

// maxLocalRows caps local warehouse results the way Databricks caps inline results.
const maxLocalRows = 10000

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :3001)")
	serveCmd.Flags().String("cors-origin", "", "Allowed CORS origin (default *)")
	serveCmd.Flags().Int("rate", 0, "Requests per minute allowed per client IP")
	serveCmd.Flags().String("grpc-health-addr", "", "Also serve the gRPC health service on this address")
	serveCmd.Flags().String("postgres-dsn", "", "Run SQL against this PostgreSQL database instead of Databricks")
	serveCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	serveCmd.Flags().Bool("log-json", false, "Write logs as JSON")
	rootCmd.AddCommand(serveCmd)
}
