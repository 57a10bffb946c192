package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sheetlink/cli/internal/backend"
	"sheetlink/cli/internal/config"
	serrors "sheetlink/cli/internal/errors"
	"sheetlink/cli/internal/httperrors"
	"sheetlink/cli/internal/logging"
	"sheetlink/cli/internal/poller"
	"sheetlink/cli/internal/render"
	"sheetlink/cli/internal/tabular"
	"sheetlink/cli/internal/terminal"
	"sheetlink/cli/internal/workbook"
	"sheetlink/cli/internal/writeback"
)

// outputFlags are shared by every command that writes results into the workbook.
type outputFlags struct {
	target   string
	append   bool
	newSheet bool
	noWrite  bool
	page     int
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.target, "target", "t", "", "Destination cell, e.g. B2 or 'Sheet 1!B2' (default A1 of the active sheet)")
	cmd.Flags().BoolVar(&o.append, "append", false, "Append below existing data instead of overwriting")
	cmd.Flags().BoolVar(&o.newSheet, "new-sheet", false, "Write into a new timestamped sheet")
	cmd.Flags().BoolVar(&o.noWrite, "no-write", false, "Only show the result, do not touch the workbook")
	cmd.Flags().IntVar(&o.page, "page", 1, "Result page to show first")
	cmd.Flags().String("workbook", "", "Workbook file (default from config)")
	cmd.Flags().Int("rows-per-page", 0, "Rows per result page")
}

var outputBindings = map[string]string{
	"workbook.path":         "workbook",
	"display.rows_per_page": "rows-per-page",
}

// destination parses the flags before anything remote happens so a bad address fails
// without side effects.
func (o *outputFlags) destination() (writeback.Destination, error) {
	return writeback.ResolveDestination(o.target, o.append, o.newSheet)
}

func newClient(cfg config.Config) *backend.HTTP {
	return backend.New(cfg.Relay.URL, backend.Connection{
		Host:        cfg.Databricks.Host,
		Token:       cfg.Databricks.Token,
		WarehouseID: cfg.Databricks.WarehouseID,
	}, 0)
}

func pollOptions(cfg config.Config) poller.Options {
	return poller.Options{Interval: cfg.Poll.Interval, MaxAttempts: cfg.Poll.MaxAttempts}
}

// showResult prints a result one page at a time. On an interactive terminal the user
// can page through it.
func showResult(res tabular.Result, perPage, page int) error {
	if res.Empty() {
		pterm.Info.Println("Query completed with no results")
		return nil
	}
	p := render.NewPager(res, perPage)
	p.SetPage(page)
	for {
		out, err := p.Render(terminal.Width())
		if err != nil {
			return err
		}
		pterm.Println(out)
		if p.Pages() == 1 || !terminal.Interactive() {
			return nil
		}
		if !askPage(p) {
			return nil
		}
	}
}

func askPage(p *render.Pager) bool {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	for {
		in, err := line.Prompt("[n]ext [p]rev [q]uit > ")
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(in)) {
		case "n", "":
			if p.Next() {
				return true
			}
		case "p":
			if p.Prev() {
				return true
			}
		case "q":
			return false
		}
	}
}

// writeResult writes res into the configured workbook. It reports what it did and
// leaves the file untouched on failure.
func writeResult(ctx context.Context, path string, res tabular.Result, dest writeback.Destination) error {
	if res.Empty() {
		return nil
	}
	wb, err := workbook.Open(path)
	if err != nil {
		return serrors.Wrap(serrors.Host, "could not open workbook", err)
	}
	defer wb.Close()

	plan, err := writeback.Write(ctx, wb, res, dest, time.Now())
	if err != nil {
		return err
	}
	for _, step := range plan.Steps {
		debugf("write-back: %s", step)
	}
	sheet := plan.Sheet
	if sheet == "" {
		sheet = wb.ActiveSheet()
	}
	pterm.Success.Printf("Wrote %d rows to %s (%s, %s)\n", res.Len(), wb.Path(), sheet, dest.Mode)
	return nil
}

// clearActiveSheet empties the active sheet's used range and saves the workbook.
func clearActiveSheet(path string) error {
	if !workbook.Exists(path) {
		return nil
	}
	wb, err := workbook.Open(path)
	if err != nil {
		return serrors.Wrap(serrors.Host, "could not open workbook", err)
	}
	defer wb.Close()
	if err := wb.ClearSheet(wb.ActiveSheet()); err != nil {
		_ = wb.Rollback()
		return serrors.Wrap(serrors.Host, "could not clear sheet", err)
	}
	return wb.Commit()
}

// errReported marks a failure already shown to the user; the process still exits
// non-zero.
var errReported = errors.New("failed")

// report shows err in the terminal and returns errReported. ErrCanceled is silent.
func report(cfg config.Config, title string, err error) error {
	if err == nil || errors.Is(err, poller.ErrCanceled) || errors.Is(err, context.Canceled) {
		return nil
	}
	switch serrors.KindOf(err) {
	case serrors.Transport:
		cause := err
		if u := errors.Unwrap(err); u != nil {
			cause = u
		}
		_ = httperrors.FormatNetworkError(cause, strings.ToLower(title), cfg.Relay.URL)
	case serrors.Remote, serrors.Timeout:
		logging.PresentRemoteError(title, serrors.MessageOf(err))
	case serrors.Malformed, serrors.Config:
		pterm.Error.Println(serrors.MessageOf(err))
	default:
		pterm.Error.Println(logging.PresentError(title, err))
	}
	return errReported
}
