// Package ui provides the styled terminal output used by the quarry CLI.
// Colors are disabled automatically when stdout is not a terminal.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // Green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // Red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // Yellow
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // Blue
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // Gray
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

func init() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		DisableColor()
	}
}

// DisableColor strips all styling, for pipes and dumb terminals.
func DisableColor() {
	plain := lipgloss.NewStyle()
	successStyle = plain
	errorStyle = plain
	warningStyle = plain
	infoStyle = plain
	dimStyle = plain
	boldStyle = plain
}

// Status markers.
func Success(text string) string { return successStyle.Render("✓ " + text) }
func Error(text string) string   { return errorStyle.Render("✗ " + text) }
func Warning(text string) string { return warningStyle.Render("⚠ " + text) }
func Info(text string) string    { return infoStyle.Render("ℹ " + text) }

// Plain color helpers.
func Green(text string) string  { return successStyle.Render(text) }
func Red(text string) string    { return errorStyle.Render(text) }
func Yellow(text string) string { return warningStyle.Render(text) }
func Dim(text string) string    { return dimStyle.Render(text) }
func Bold(text string) string   { return boldStyle.Render(text) }
