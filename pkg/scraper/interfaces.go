package scraper

import (
	"context"
	"time"

	"epsteindl/pkg/index"
	"epsteindl/pkg/worklist"
)

// PageFetcher retrieves the raw body of one listing page
type PageFetcher interface {
	Fetch(ctx context.Context, dataset, page int) (string, error)
}

// LinkExtractor returns the ordered document URLs on a page
type LinkExtractor interface {
	Extract(body string, dataset int) []string
}

// IndexStore loads and saves whole dataset indexes
type IndexStore interface {
	Load(dataset int) (*index.DatasetIndex, error)
	Save(dataset int, idx *index.DatasetIndex) error
}

// WorkListStore persists the transfers discovered by a run
type WorkListStore interface {
	Write(dataset int, urls []string) ([]worklist.Entry, error)
}

// Reporter observes a run. Calls happen on the engine goroutine.
type Reporter interface {
	RunStarted(info RunInfo)
	PageScraped(page, found, added, total int)
	PageEmpty(page, consecutive int)
	FetchRetry(page, attempt int, err error, delay time.Duration)
	RunStopped(result *Result)
}

// NopReporter ignores every event
type NopReporter struct{}

func (NopReporter) RunStarted(RunInfo)                          {}
func (NopReporter) PageScraped(int, int, int, int)              {}
func (NopReporter) PageEmpty(int, int)                          {}
func (NopReporter) FetchRetry(int, int, error, time.Duration)   {}
func (NopReporter) RunStopped(*Result)                          {}
