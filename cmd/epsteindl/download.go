package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"epsteindl/internal/downloader"
	"epsteindl/pkg/datasets"
	"epsteindl/pkg/scraper"
	"epsteindl/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	downloadAll      bool
	downloadTorrents bool
	downloadZips     bool
	downloadPDFs     []int
	downloadOpts     scrapeFlags
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download torrents, ZIP archives and scraped PDFs",
	Long: `Download the datasets.

Torrents and ZIP archives are fetched with aria2c. PDF datasets are scraped
first, then only the newly indexed files are downloaded, through aria2c when
available or the built-in downloader otherwise.`,
	Example: `  epsteindl download --all
  epsteindl download --torrents
  epsteindl download --zips -o /data/epstein
  epsteindl download --dataset 9 --dataset 10 --concurrent 10`,
	Args: cobra.NoArgs,
	Run:  runDownload,
}

func init() {
	downloadCmd.Flags().BoolVar(&downloadAll, "all", false, "download everything")
	downloadCmd.Flags().BoolVar(&downloadTorrents, "torrents", false, "download available torrents")
	downloadCmd.Flags().BoolVar(&downloadZips, "zips", false, "download available ZIPs")
	downloadCmd.Flags().IntSliceVar(&downloadPDFs, "dataset", nil, "scrape and download the PDFs of a dataset (repeatable)")
	addScrapeFlags(downloadCmd, &downloadOpts)
	downloadCmd.Flags().IntVarP(&downloadOpts.concurrent, "concurrent", "c", 0, "concurrent PDF downloads")
	downloadCmd.Flags().StringVar(&downloadOpts.dispatcher, "dispatcher", "", "PDF downloader: auto, aria2c or native")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) {
	if !downloadAll && !downloadTorrents && !downloadZips && len(downloadPDFs) == 0 {
		ui.PrintWarning("No download option specified. Use --help to see options.")
		ui.Print("\nQuick start:")
		ui.Print("  epsteindl download --all          # Download everything")
		ui.Print("  epsteindl download --torrents     # Just torrents (fastest)")
		ui.Print("  epsteindl download --zips         # Just ZIP files")
		ui.Print("  epsteindl download --dataset 9    # Scrape and download one dataset")
		return
	}

	for _, n := range downloadPDFs {
		if err := datasets.Validate(n); err != nil {
			fail("Invalid dataset", err)
		}
	}

	a := loadApp(cmd, downloadOpts.flagMap(cmd))
	ui.PrintInfo("Output directory", a.cfg.Output.BaseDirectory)

	ctx, cancel := signalContext()
	defer cancel()

	var failures []error

	if downloadAll || downloadTorrents || downloadZips {
		if !downloader.Aria2Available(a.cfg) {
			ui.PrintError("aria2c is required for torrents and ZIPs but was not found")
			ui.Print(downloader.InstallInstructions())
			if !downloadAll && len(downloadPDFs) == 0 {
				os.Exit(1)
			}
			failures = append(failures, downloader.ErrAria2cNotFound)
		} else {
			aria := downloader.NewAria2(a.cfg, a.log)
			if downloadAll || downloadTorrents {
				failures = append(failures, a.downloadTorrents(ctx, aria)...)
			}
			if downloadAll || downloadZips {
				failures = append(failures, a.downloadZips(ctx, aria)...)
			}
		}
	}

	pdfSets := downloadPDFs
	if downloadAll {
		pdfSets = datasets.Numbers()
	}
	for _, n := range pdfSets {
		if ctx.Err() != nil {
			break
		}
		if err := a.scrapeAndDispatch(ctx, n); err != nil {
			ui.PrintError(fmt.Sprintf("Dataset %d", n), err)
			failures = append(failures, err)
		}
	}

	if ctx.Err() != nil {
		ui.PrintWarning("Interrupted")
		os.Exit(130)
	}
	if len(failures) > 0 {
		ui.PrintError(fmt.Sprintf("%d download step(s) failed", len(failures)))
		os.Exit(1)
	}
	ui.PrintSuccess("Done")
}

func (a *app) downloadTorrents(ctx context.Context, aria *downloader.Aria2) []error {
	ui.PrintHighlight("\n=== TORRENTS ===")

	var failures []error
	torrents := datasets.WithMagnets(datasets.All(a.cfg.Torrents))
	if len(torrents) == 0 {
		ui.PrintDim("No torrents configured. Add magnet links under 'torrents' in the config file.")
		return nil
	}
	for _, d := range torrents {
		ui.PrintHighlight(fmt.Sprintf("\nDataset %d (Torrent)", d.Number))
		if err := aria.DownloadTorrent(ctx, d); err != nil {
			ui.PrintError(fmt.Sprintf("Torrent for dataset %d failed", d.Number), err)
			failures = append(failures, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		ui.PrintSuccess(fmt.Sprintf("Dataset %d torrent complete", d.Number))
	}
	return failures
}

func (a *app) downloadZips(ctx context.Context, aria *downloader.Aria2) []error {
	ui.PrintHighlight("\n=== ZIP FILES ===")

	var failures []error
	for _, d := range datasets.All(a.cfg.Torrents) {
		if !d.ZipAvailable {
			continue
		}
		ui.PrintHighlight(fmt.Sprintf("\nDataset %d", d.Number))
		skipped, err := aria.DownloadZip(ctx, a.cfg.Site.BaseURL, d)
		switch {
		case err != nil:
			ui.PrintError(fmt.Sprintf("ZIP for dataset %d failed", d.Number), err)
			failures = append(failures, err)
			if ctx.Err() != nil {
				return failures
			}
		case skipped:
			ui.PrintDim(fmt.Sprintf("%s already exists, skipping", datasets.ZipName(d.Number)))
		default:
			ui.PrintSuccess(fmt.Sprintf("Downloaded %s", datasets.ZipName(d.Number)))
		}
	}
	return failures
}

// scrapeAndDispatch indexes a dataset and downloads only the new links
func (a *app) scrapeAndDispatch(ctx context.Context, n int) error {
	ui.PrintHighlight(fmt.Sprintf("\n=== DATASET %d PDF SCRAPING ===", n))

	result, err := a.scrape(ctx, n, downloadOpts)
	if result == nil || result.Reason == scraper.StopCancelled {
		return err
	}

	// a failed scrape still hands back whatever it indexed before failing
	if len(result.WorkList) == 0 {
		if err == nil {
			ui.PrintDim("No new PDFs")
		}
		return err
	}

	if dispatchErr := a.dispatch(ctx, result.WorkList); dispatchErr != nil {
		return errors.Join(err, dispatchErr)
	}
	return err
}
