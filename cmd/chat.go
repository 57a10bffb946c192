// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"atomicgo.dev/cursor"
	"github.com/peterh/liner"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sheetlink/cli/internal/genie"
	"sheetlink/cli/internal/render"
	"sheetlink/cli/internal/terminal"
	"sheetlink/cli/internal/xdg"
)

var chatOut outputFlags

// chatCmd holds an interactive Genie conversation.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Hold a conversation with a Genie space",
	Long: `The chat command opens an interactive Genie conversation. The first question starts
a conversation; every later one is a follow-up in the same conversation.

Commands:
  /new    start a fresh conversation
  /quit   leave (Ctrl-D works too)

Ctrl-C while Genie is working abandons the current question.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, withBindings(outputBindings, map[string]string{
			"databricks.space_id": "space",
		}))
		if err != nil {
			return err
		}
		dest, err := chatOut.destination()
		if err != nil {
			return report(cfg, "Invalid target", err)
		}
		if err := cfg.RequireGenie(); err != nil {
			return report(cfg, "Configuration", err)
		}

		session := genie.NewSession(cfg.Databricks.SpaceID)
		conv := genie.NewConversation(newClient(cfg), session, pollOptions(cfg))

		line := liner.NewLiner()
		defer line.Close()
		line.SetCtrlCAborts(true)
		history := historyPath()
		if history != "" {
			if f, err := os.Open(history); err == nil {
				_, _ = line.ReadHistory(f)
				f.Close()
			}
		}

		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Genie")).
			WithPadding(1).
			Println("Ask a question about your data. /new starts over, /quit leaves.")

		for {
			prompt := "? "
			if session.Active() {
				prompt = "> "
			}
			input, err := line.Prompt(prompt)
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				break
			}
			if err != nil {
				return err
			}
			question := strings.TrimSpace(input)
			switch question {
			case "":
				continue
			case "/quit", "/exit":
				saveHistory(line, history)
				return nil
			case "/new":
				session.Reset()
				pterm.Info.Println("Started a new conversation")
				continue
			}
			line.AppendHistory(question)

			if terminal.Interactive() {
				// Replace the echoed prompt with the transcript line.
				cursor.Up(1)
				terminal.ClearPreviousLines(len(prompt) + len([]rune(input)))
			}
			pterm.Println(render.UserLine(question))

			ans, err := askInterruptible(cmd, conv, question)
			if err != nil {
				_ = reportGenie(cfg, err)
				continue
			}
			_ = presentAnswer(context.WithoutCancel(cmd.Context()), cfg, ans, &chatOut, dest)
			pterm.Println()
		}
		saveHistory(line, history)
		return nil
	},
}

// askInterruptible sends a follow-up (or the first question) and abandons it on
// Ctrl-C without leaving the chat.
func askInterruptible(cmd *cobra.Command, conv *genie.Conversation, question string) (genie.Answer, error) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	done := make(chan struct{})
	defer func() {
		signal.Stop(sig)
		close(done)
	}()
	go func() {
		select {
		case <-sig:
			conv.Cancel()
		case <-done:
		}
	}()
	// The root context ends on the first Ctrl-C; a chat outlives it.
	return converse(context.WithoutCancel(cmd.Context()), conv, question, true)
}

func historyPath() string {
	dir, err := xdg.StateDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chat_history")
}

func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

func init() {
	chatOut.register(chatCmd)
	chatCmd.Flags().String("space", "", "Genie space id (default from config)")
	rootCmd.AddCommand(chatCmd)
}
