// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sheetlink/cli/internal/config"
	serrors "sheetlink/cli/internal/errors"
	"sheetlink/cli/internal/genie"
	"sheetlink/cli/internal/render"
	"sheetlink/cli/internal/writeback"
)

var (
	askOut   outputFlags
	askClear bool
)

// askCmd asks a Genie space one question.
var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Ask a Genie space a question in natural language",
	Long: `The ask command starts a new Genie conversation with QUESTION, waits for Genie to
answer and shows the reply. When Genie answers with a query, the generated SQL is
shown and its result is written into the workbook.

Use 'sheetlink chat' to ask follow-up questions in the same conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, withBindings(outputBindings, map[string]string{
			"databricks.space_id": "space",
		}))
		if err != nil {
			return err
		}
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			pterm.Warning.Println("Please enter a question")
			return nil
		}

		dest, err := askOut.destination()
		if err != nil {
			return report(cfg, "Invalid target", err)
		}
		if err := cfg.RequireGenie(); err != nil {
			return report(cfg, "Configuration", err)
		}
		if askClear && !askOut.noWrite {
			if err := clearActiveSheet(cfg.Workbook.Path); err != nil {
				return report(cfg, "Clear failed", err)
			}
		}

		conv := genie.NewConversation(newClient(cfg), genie.NewSession(cfg.Databricks.SpaceID), pollOptions(cfg))
		pterm.Println(render.UserLine(question))
		ans, err := converse(cmd.Context(), conv, question, false)
		if err != nil {
			return reportGenie(cfg, err)
		}
		return presentAnswer(cmd.Context(), cfg, ans, &askOut, dest)
	},
}

// converse runs one question with a spinner that follows Genie's phases.
func converse(ctx context.Context, conv *genie.Conversation, question string, followUp bool) (genie.Answer, error) {
	spin := startPhaseSpinner("Genie is thinking...")
	defer spin.Stop()
	conv.OnProgress = spin.Update
	defer func() { conv.OnProgress = nil }()

	if followUp {
		return conv.FollowUp(ctx, question)
	}
	return conv.Ask(ctx, question)
}

// presentAnswer prints the reply, its SQL and result table, then writes the table.
func presentAnswer(ctx context.Context, cfg config.Config, ans genie.Answer, out *outputFlags, dest writeback.Destination) error {
	pterm.Println(render.GenieLine(ans.Text))
	if ans.Kind != genie.QueryAnswer {
		return nil
	}
	if ans.SQL != "" {
		pterm.Println(render.SQLBlock(ans.Description, ans.SQL))
	}
	if !ans.HasTable() {
		return nil
	}
	pterm.Println()
	if err := showResult(*ans.Table, cfg.Display.RowsPerPage, out.page); err != nil {
		return err
	}
	if out.noWrite {
		return nil
	}
	if err := writeResult(ctx, cfg.Workbook.Path, *ans.Table, dest); err != nil {
		return report(cfg, "Write-back failed", err)
	}
	return nil
}

// reportGenie shows failures Genie itself reported as a transcript line and leaves
// everything else to report.
func reportGenie(cfg config.Config, err error) error {
	switch serrors.KindOf(err) {
	case serrors.Remote, serrors.Timeout:
		pterm.Println(render.ErrorLine(serrors.MessageOf(err)))
		return errReported
	}
	return report(cfg, "Genie request failed", err)
}

func withBindings(base map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func init() {
	askOut.register(askCmd)
	askCmd.Flags().BoolVar(&askClear, "clear", false, "Clear the active sheet before asking")
	askCmd.Flags().String("space", "", "Genie space id (default from config)")
	rootCmd.AddCommand(askCmd)
}
