package cmd

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/rlegacy/launcher/internal/logging"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#14A819"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#D49C1C"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C71414")).Bold(true)
)

func decorateLine(level logging.Level, line string) string {
	switch level {
	case logging.LevelSuccess:
		return successStyle.Render(line)
	case logging.LevelWarn:
		return warnStyle.Render(line)
	case logging.LevelError:
		return errorStyle.Render(line)
	default:
		return line
	}
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// setupColor styles outcome lines when stdout is an interactive terminal.
func setupColor(disabled bool) {
	if disabled || os.Getenv("NO_COLOR") != "" || !stdoutIsTerminal() {
		logging.SetDecorator(nil)
		return
	}
	logging.SetDecorator(decorateLine)
}
