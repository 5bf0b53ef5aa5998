package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"epsteindl/pkg/datasets"
	"epsteindl/pkg/scraper"
	"epsteindl/pkg/ui"

	"github.com/spf13/cobra"
)

// scrapeFlags are shared by scrape and download
type scrapeFlags struct {
	startPage        int
	maxPages         int
	delay            time.Duration
	maxFetchAttempts int
	cookie           string
	concurrent       int
	dispatcher       string
}

var scrapeOpts scrapeFlags

var scrapeCmd = &cobra.Command{
	Use:   "scrape <dataset>",
	Short: "Index a dataset's PDF listing without downloading",
	Long: `Walk the paginated listing of a dataset and record every PDF link in the
dataset index. Only links not already indexed are added, and a work list of
the new URLs is written next to the index for any downloader to consume.

By default the scrape resumes after the last page recorded in the index.`,
	Example: `  epsteindl scrape 9
  epsteindl scrape 9 --start-page 0 --max-pages 50
  epsteindl scrape 10 --max-fetch-attempts 5`,
	Args: cobra.ExactArgs(1),
	Run:  runScrape,
}

func init() {
	addScrapeFlags(scrapeCmd, &scrapeOpts)
	rootCmd.AddCommand(scrapeCmd)
}

func addScrapeFlags(cmd *cobra.Command, f *scrapeFlags) {
	cmd.Flags().IntVar(&f.startPage, "start-page", scraper.AutoStart, "page to start from (default: resume after the last indexed page)")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "maximum pages to scrape (0 for no limit)")
	cmd.Flags().DurationVar(&f.delay, "delay", 0, "delay between listing requests")
	cmd.Flags().IntVar(&f.maxFetchAttempts, "max-fetch-attempts", 0, "attempts per listing page before giving up (0 retries forever)")
	cmd.Flags().StringVar(&f.cookie, "cookie", "", "identity cookie sent with every request")
}

// flagMap collects the changed scrape flags for config.Load
func (f *scrapeFlags) flagMap(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{}
	if cmd.Flags().Changed("cookie") {
		flags["cookie"] = f.cookie
	}
	if cmd.Flags().Changed("delay") {
		flags["delay"] = f.delay
	}
	if cmd.Flags().Changed("max-fetch-attempts") {
		flags["max-fetch-attempts"] = f.maxFetchAttempts
	}
	if cmd.Flags().Changed("concurrent") {
		flags["concurrent"] = f.concurrent
	}
	if cmd.Flags().Changed("dispatcher") {
		flags["dispatcher"] = f.dispatcher
	}
	return flags
}

func runScrape(cmd *cobra.Command, args []string) {
	dataset := parseDataset(args[0])
	a := loadApp(cmd, scrapeOpts.flagMap(cmd))

	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.scrape(ctx, dataset, scrapeOpts)
	if err != nil {
		fail("Scrape failed", err)
	}
	if result.Reason == scraper.StopCancelled {
		os.Exit(130)
	}
}

// scrape runs the engine for one dataset and prints the outcome
func (a *app) scrape(ctx context.Context, dataset int, f scrapeFlags) (*scraper.Result, error) {
	engine := scraper.New(a.cfg, a.log)
	if !ui.Quiet() {
		engine.SetReporter(ui.NewScrapeProgress(os.Stdout))
	}

	ui.PrintWarning(fmt.Sprintf("Scraping PDF links from Dataset %d...", dataset))
	result, err := engine.Run(ctx, scraper.Options{
		Dataset:   dataset,
		StartPage: f.startPage,
		MaxPages:  f.maxPages,
	})
	if result != nil {
		printScrapeResult(result)
		a.printWorkList(result)
	}
	return result, err
}

func printScrapeResult(r *scraper.Result) {
	ui.PrintInfo("Stopped", string(r.Reason))
	ui.PrintInfo("Pages", fmt.Sprintf("%d (%d to %d)", r.PagesVisited, r.StartPage, r.LastPage))
	ui.PrintInfo("New PDFs", strconv.Itoa(len(r.NewURLs)))
	ui.PrintInfo("Indexed total", strconv.Itoa(r.TotalFiles))
	if r.Skipped > 0 {
		ui.PrintWarning(fmt.Sprintf("Skipped %d links with unsafe filenames", r.Skipped))
	}
	if r.Complete {
		ui.PrintSuccess("Listing fully indexed")
	}
}

// printWorkList points at the URL list written for new links
func (a *app) printWorkList(r *scraper.Result) {
	if len(r.WorkList) == 0 {
		return
	}
	layout := datasets.Layout{Root: a.cfg.Output.BaseDirectory}
	ui.PrintInfo("Work list", layout.URLListFile(r.Dataset))
}
