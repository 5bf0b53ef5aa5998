package ui

import (
	"fmt"
	"io"
	"time"

	"epsteindl/pkg/scraper"

	"github.com/charmbracelet/bubbles/progress"
)

// ScrapeProgress prints scrape events as they happen. When the run has a
// page cap it also draws a bar across the page window.
type ScrapeProgress struct {
	w         io.Writer
	bar       progress.Model
	startPage int
	maxPages  int
	processed int
	newFiles  int
}

// NewScrapeProgress creates a reporter writing to w
func NewScrapeProgress(w io.Writer) *ScrapeProgress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))
	return &ScrapeProgress{w: w, bar: bar}
}

func (p *ScrapeProgress) RunStarted(info scraper.RunInfo) {
	p.startPage = info.StartPage
	p.maxPages = info.MaxPages
	p.processed = 0
	p.newFiles = 0

	fmt.Fprintln(p.w, highlightStyle.Render(fmt.Sprintf("=== DATASET %d PDF SCRAPING ===", info.Dataset)))
	window := "until the listing ends"
	if info.MaxPages > 0 {
		window = fmt.Sprintf("pages %d-%d", info.StartPage, info.StartPage+info.MaxPages-1)
	}
	fmt.Fprintf(p.w, "%s %d, %s (%d files already indexed)\n",
		labelStyle.Render("Starting at page"), info.StartPage, window, info.Indexed)
}

func (p *ScrapeProgress) PageScraped(page, found, added, total int) {
	p.processed++
	p.newFiles += added

	if p.maxPages > 0 {
		done := float64(page-p.startPage+1) / float64(p.maxPages)
		fmt.Fprintf(p.w, "\r%s page %d, %d new, %d total", p.bar.ViewAs(done), page, p.newFiles, total)
		return
	}
	fmt.Fprintf(p.w, "Page %d: %d links, %s new (total %d)\n",
		page, found, valueStyle.Render(fmt.Sprint(added)), total)
}

func (p *ScrapeProgress) PageEmpty(page, consecutive int) {
	p.lineBreak()
	fmt.Fprintln(p.w, dimStyle.Render(fmt.Sprintf("Page %d: empty (%d in a row)", page, consecutive)))
}

func (p *ScrapeProgress) FetchRetry(page, attempt int, err error, delay time.Duration) {
	p.lineBreak()
	fmt.Fprintln(p.w, warningStyle.Render(fmt.Sprintf("Page %d: attempt %d failed (%v), retrying in %s", page, attempt, err, delay)))
}

func (p *ScrapeProgress) RunStopped(result *scraper.Result) {
	p.lineBreak()

	var reason string
	switch result.Reason {
	case scraper.StopWrap:
		reason = successStyle.Render("listing wrapped, dataset complete")
	case scraper.StopEmpty:
		reason = "reached the end of the listing"
	case scraper.StopMaxPages:
		reason = "page limit reached"
	case scraper.StopCancelled:
		reason = warningStyle.Render("interrupted")
	default:
		reason = errorStyle.Render(string(result.Reason))
	}

	fmt.Fprintf(p.w, "Stopped at page %d: %s\n", result.LastPage, reason)
	fmt.Fprintf(p.w, "%s %d new, %d total indexed, %s\n",
		labelStyle.Render("Files:"), len(result.NewURLs), result.TotalFiles, result.Duration.Round(time.Second))
}

// lineBreak ends an in-place bar line before printing a full line
func (p *ScrapeProgress) lineBreak() {
	if p.maxPages > 0 && p.processed > 0 {
		fmt.Fprintln(p.w)
	}
}

var _ scraper.Reporter = (*ScrapeProgress)(nil)
