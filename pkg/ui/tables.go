package ui

import (
	"fmt"
	"strconv"

	"epsteindl/pkg/datasets"
	"epsteindl/pkg/status"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(cyan).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	rightStyle  = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(grey)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

func yesNo(ok bool) string {
	if ok {
		return successStyle.Render("YES")
	}
	return errorStyle.Render("NO")
}

// DatasetTable lists the catalogue with ZIP and torrent availability
func DatasetTable(all []datasets.Dataset) string {
	t := newTable("Dataset", "ZIP", "Torrent", "Notes")
	for _, d := range all {
		torrent := dimStyle.Render("-")
		if d.Magnet != "" {
			torrent = yesNo(true)
		}
		notes := ""
		if !d.ZipAvailable {
			notes = "ZIP removed"
		}
		t.Row(strconv.Itoa(d.Number), yesNo(d.ZipAvailable), torrent, notes)
	}
	return t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 3 {
			return cellStyle.Foreground(grey)
		}
		return cellStyle.Align(lipgloss.Center)
	}).String()
}

// LocationTable shows file counts and sizes per download directory
func LocationTable(locations []status.Location) string {
	t := newTable("Location", "Files", "Size")
	for _, l := range locations {
		t.Row(l.Name, strconv.Itoa(l.Files), fmt.Sprintf("%.2f GB", l.GB()))
	}
	return t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col == 0:
			return cellStyle.Foreground(cyan)
		default:
			return rightStyle
		}
	}).String()
}

// ProgressLines renders one line of scrape progress per dataset
func ProgressLines(indexes []status.IndexStatus) []string {
	lines := make([]string, 0, len(indexes))
	for _, s := range indexes {
		var state string
		switch {
		case !s.Started:
			lines = append(lines, fmt.Sprintf("  Dataset %d: %s", s.Dataset, dimStyle.Render(s.Progress())))
			continue
		case s.Complete:
			state = successStyle.Render(s.Progress())
		default:
			state = s.Progress()
		}
		lines = append(lines, fmt.Sprintf("  Dataset %d: %d files indexed (%s)", s.Dataset, s.Files, state))
	}
	return lines
}
