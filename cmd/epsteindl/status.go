package main

import (
	"fmt"
	"path/filepath"

	"epsteindl/pkg/config"
	"epsteindl/pkg/index"
	"epsteindl/pkg/status"
	"epsteindl/pkg/ui"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what has been downloaded and scrape progress",
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	flags := map[string]interface{}{}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fail("Failed to load configuration", err)
	}

	root := cfg.Output.BaseDirectory
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	report, err := status.Scan(root, cfg.Site.DocumentExtension, index.NewStore(root, nil))
	if err != nil {
		fail("Failed to read output directory", err)
	}

	ui.PrintHighlight("Download Status: " + report.Root)
	ui.Print(ui.LocationTable(report.Locations))

	files, bytes := report.Totals()
	ui.PrintInfo("Total", fmt.Sprintf("%d files, %.2f GB", files, float64(bytes)/(1<<30)))

	ui.PrintHighlight("\nScrape Progress:")
	for _, line := range ui.ProgressLines(report.Indexes) {
		ui.Print(line)
	}
}
