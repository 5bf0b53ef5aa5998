package main

import (
	"epsteindl/pkg/config"
	"epsteindl/pkg/datasets"
	"epsteindl/pkg/ui"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the datasets and what is available for each",
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fail("Failed to load configuration", err)
	}

	ui.PrintHighlight("Available Datasets")
	ui.Print(ui.DatasetTable(datasets.All(cfg.Torrents)))
	ui.PrintDim("\nDatasets 9, 10, 11 ZIPs were removed from DOJ website.")
	ui.PrintDim("Use torrents or PDF scraping to download these.")
}
