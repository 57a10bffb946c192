package render

import (
	"strings"

	"github.com/pterm/pterm"
)

var (
	userStyle  = pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	genieStyle = pterm.NewStyle(pterm.FgMagenta, pterm.Bold)
	sqlStyle   = pterm.NewStyle(pterm.FgGray)
)

// UserLine is the transcript entry for a question.
func UserLine(question string) string {
	return userStyle.Sprint("You: ") + question
}

// GenieLine is the transcript entry for a reply.
func GenieLine(text string) string {
	return genieStyle.Sprint("Genie: ") + text
}

// ErrorLine is the transcript entry for a failed reply.
func ErrorLine(msg string) string {
	return pterm.NewStyle(pterm.FgRed).Sprint("Genie Error: ") + msg
}

// SQLBlock shows generated SQL with an optional description above it.
func SQLBlock(description, sql string) string {
	var b strings.Builder
	if description != "" {
		b.WriteString(pterm.Italic.Sprint(description))
		b.WriteString("\n")
	}
	b.WriteString(sqlStyle.Sprint("Generated SQL:"))
	b.WriteString("\n")
	for _, line := range strings.Split(strings.TrimSpace(sql), "\n") {
		b.WriteString("  ")
		b.WriteString(sqlStyle.Sprint(line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
