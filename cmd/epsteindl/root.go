package main

import (
	"fmt"
	"os"
	"runtime"

	"epsteindl/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	outputDir  string
	profile    string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "epsteindl",
	Short: "Archive the DOJ Epstein document releases",
	Long: `epsteindl downloads the DOJ Epstein document datasets before they disappear.

It can fetch the bulk ZIP archives and torrents, and it can walk the paginated
file listings to index and download every individual PDF. The index is kept on
disk, so repeated runs only fetch what is new and interrupted runs resume.

Downloads go through aria2c when it is installed, with a built-in downloader
as the fallback.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetQuiet(quiet)

		if showBanner(cmd) {
			ui.PrintBanner("v" + version)
		}
	},
}

// showBanner is false for help and for the config and auth subtrees
func showBanner(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "config", "auth":
			return false
		}
	}
	return true
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./epsteindl.yaml or ~/.config/epsteindl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "default", "stored token to use (see 'epsteindl auth')")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`epsteindl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
