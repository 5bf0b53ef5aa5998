// Package ui renders terminal output: styled messages, the dataset and
// status tables, and live scrape progress.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Banner is printed at the top of interactive commands
const Banner = `================================================================
         EPSTEIN FILES DOWNLOADER %s
  Archive DOJ documents before they disappear
================================================================`

var (
	cyan    = lipgloss.Color("#00D7FF")
	yellow  = lipgloss.Color("#FFD700")
	red     = lipgloss.Color("#FF5F5F")
	green   = lipgloss.Color("#5FFF87")
	magenta = lipgloss.Color("#FF87FF")
	grey    = lipgloss.Color("#8A8A8A")

	bannerStyle    = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(cyan)
	valueStyle     = lipgloss.NewStyle().Foreground(yellow)
	errorStyle     = lipgloss.NewStyle().Foreground(red).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(green)
	warningStyle   = lipgloss.NewStyle().Foreground(yellow)
	highlightStyle = lipgloss.NewStyle().Foreground(magenta).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(grey)
)

var (
	out   io.Writer = os.Stdout
	quiet bool
)

// SetOutput redirects all printing, mainly for tests
func SetOutput(w io.Writer) {
	out = w
}

// SetQuiet suppresses everything except errors
func SetQuiet(q bool) {
	quiet = q
}

// Quiet reports whether quiet mode is on
func Quiet() bool {
	return quiet
}

func printLine(s string) {
	if !quiet {
		fmt.Fprintln(out, s)
	}
}

// PrintBanner prints the application banner
func PrintBanner(version string) {
	printLine(bannerStyle.Render(fmt.Sprintf(Banner, version)))
}

// PrintError prints an error message in red. Errors are shown in quiet mode.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(out, errorStyle.Render(msg))
}

func PrintSuccess(msg string) {
	printLine(successStyle.Render(msg))
}

// PrintInfo prints a label and its value
func PrintInfo(label string, value string) {
	printLine(labelStyle.Render(label+":") + " " + valueStyle.Render(value))
}

func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	printLine(warningStyle.Render(msg))
}

// PrintHighlight prints a section heading
func PrintHighlight(msg string) {
	printLine(highlightStyle.Render(msg))
}

func PrintDim(msg string) {
	printLine(dimStyle.Render(msg))
}

// Print writes pre-rendered text such as a table
func Print(s string) {
	printLine(s)
}
