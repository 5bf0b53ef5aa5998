package main

import (
	"fmt"
	"os"

	"epsteindl/pkg/index"
	"epsteindl/pkg/reconcile"
	"epsteindl/pkg/ui"
	"epsteindl/pkg/worklist"

	"github.com/spf13/cobra"
)

var (
	resumeConcurrent int
	resumeDispatcher string
	resumeCookie     string
)

var resumeCmd = &cobra.Command{
	Use:   "resume <dataset>",
	Short: "Download indexed files that are missing on disk",
	Long: `Compare a dataset's index with its PDF directory and download every
indexed file that is not present. No listing pages are fetched.`,
	Example: `  epsteindl resume 9
  epsteindl resume 9 --dispatcher native`,
	Args: cobra.ExactArgs(1),
	Run:  runResume,
}

func init() {
	resumeCmd.Flags().IntVarP(&resumeConcurrent, "concurrent", "c", 0, "concurrent downloads")
	resumeCmd.Flags().StringVar(&resumeDispatcher, "dispatcher", "", "downloader: auto, aria2c or native")
	resumeCmd.Flags().StringVar(&resumeCookie, "cookie", "", "identity cookie sent with every request")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) {
	dataset := parseDataset(args[0])

	flags := map[string]interface{}{}
	if cmd.Flags().Changed("concurrent") {
		flags["concurrent"] = resumeConcurrent
	}
	if cmd.Flags().Changed("dispatcher") {
		flags["dispatcher"] = resumeDispatcher
	}
	if cmd.Flags().Changed("cookie") {
		flags["cookie"] = resumeCookie
	}
	a := loadApp(cmd, flags)

	root := a.cfg.Output.BaseDirectory
	report, err := reconcile.New(index.NewStore(root, a.log), root, a.cfg.Site.DocumentExtension).Reconcile(dataset)
	if err != nil {
		fail("Failed to reconcile", err)
	}

	if len(report.Missing) == 0 {
		ui.PrintSuccess(fmt.Sprintf("No missing files for Dataset %d!", dataset))
		return
	}

	ui.PrintWarning(fmt.Sprintf("Found %d missing files for Dataset %d", len(report.Missing), dataset))
	entries, skipped := worklist.Build(report.Missing, report.Dir)
	if len(skipped) > 0 {
		ui.PrintWarning(fmt.Sprintf("Skipping %d URLs with unsafe filenames", len(skipped)))
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.dispatch(ctx, entries); err != nil {
		if ctx.Err() != nil {
			ui.PrintWarning("Interrupted")
			os.Exit(130)
		}
		fail("Download failed", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Dataset %d is up to date", dataset))
}
