package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"epsteindl/pkg/config"
	errs "epsteindl/pkg/errors"
	"epsteindl/pkg/index"
	"epsteindl/pkg/listing"
	"epsteindl/pkg/logger"
	"epsteindl/pkg/retry"
	"epsteindl/pkg/worklist"

	"github.com/google/uuid"
)

// AutoStart asks the engine to pick the start page from the stored index
const AutoStart = -1

// StopReason is the terminal state a run ended in
type StopReason string

const (
	StopEmpty       StopReason = "empty"
	StopWrap        StopReason = "wrap"
	StopMaxPages    StopReason = "max_pages"
	StopFetchFailed StopReason = "fetch_failed"
	StopCancelled   StopReason = "cancelled"
	StopError       StopReason = "error"
)

// Settings tune pagination
type Settings struct {
	RequestDelay time.Duration
	RetryDelay   time.Duration
	// MaxFetchAttempts bounds retries of one page, 0 retries forever
	MaxFetchAttempts int
	SaveInterval     int
	EmptyPageLimit   int
}

// SettingsFromConfig maps the scrape section of the config
func SettingsFromConfig(c config.ScrapeConfig) Settings {
	return Settings{
		RequestDelay:     c.RequestDelay,
		RetryDelay:       c.RetryDelay,
		MaxFetchAttempts: c.MaxFetchAttempts,
		SaveInterval:     c.SaveInterval,
		EmptyPageLimit:   c.EmptyPageLimit,
	}
}

// Options select the dataset and page window of a run
type Options struct {
	Dataset int
	// StartPage below zero resumes after the stored last page
	StartPage int
	// MaxPages of 0 means no cap
	MaxPages int
}

// RunInfo is reported when a run begins
type RunInfo struct {
	RunID     string
	Dataset   int
	StartPage int
	MaxPages  int
	Indexed   int
}

// Result describes a finished run
type Result struct {
	RunID          string
	Dataset        int
	StartPage      int
	LastPage       int
	PagesVisited   int
	PagesProcessed int
	NewURLs        []string
	WorkList       []worklist.Entry
	Skipped        int
	TotalFiles     int
	Reason         StopReason
	Complete       bool
	Duration       time.Duration
}

// Engine walks a dataset listing page by page and grows its index
type Engine struct {
	fetcher   PageFetcher
	extractor LinkExtractor
	indexes   IndexStore
	worklists WorkListStore
	reporter  Reporter
	settings  Settings
	logger    logger.Logger
}

// NewEngine assembles an engine from its collaborators
func NewEngine(fetcher PageFetcher, extractor LinkExtractor, indexes IndexStore, worklists WorkListStore, settings Settings, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if settings.SaveInterval <= 0 {
		settings.SaveInterval = 100
	}
	if settings.EmptyPageLimit <= 0 {
		settings.EmptyPageLimit = 3
	}
	return &Engine{
		fetcher:   fetcher,
		extractor: extractor,
		indexes:   indexes,
		worklists: worklists,
		reporter:  NopReporter{},
		settings:  settings,
		logger:    log,
	}
}

// New wires an engine against the live listing site and the output root
func New(cfg *config.Config, log logger.Logger) *Engine {
	root := cfg.Output.BaseDirectory
	return NewEngine(
		listing.NewFetcher(cfg.Site, log),
		listing.NewExtractor(cfg.Site),
		index.NewStore(root, log),
		worklist.NewStore(root),
		SettingsFromConfig(cfg.Scrape),
		log,
	)
}

// SetReporter installs a progress observer
func (e *Engine) SetReporter(r Reporter) {
	if r == nil {
		r = NopReporter{}
	}
	e.reporter = r
}

// run is the state of one invocation
type run struct {
	id                string
	dataset           int
	startPage         int
	maxPages          int
	existing          map[string]struct{}
	newURLs           []string
	consecutiveEmpty  int
	lastFirstFilename string
	seenFirst         map[string]struct{}
	pagesVisited      int
	pagesProcessed    int
	skipped           int
	log               logger.Logger
}

// Run scrapes one dataset. The index is saved and the work list written on
// every exit path. A cancelled context ends the run with StopCancelled and
// no error.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()

	idx, err := e.indexes.Load(opts.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	r := &run{
		id:        uuid.NewString(),
		dataset:   opts.Dataset,
		startPage: resolveStartPage(opts.StartPage, idx),
		maxPages:  opts.MaxPages,
		existing:  idx.Filenames(),
		seenFirst: make(map[string]struct{}),
	}
	r.log = e.logger.WithFields(map[string]interface{}{
		"run_id":  r.id,
		"dataset": r.dataset,
	})

	r.log.InfoWithFields("Scrape started", map[string]interface{}{
		"start_page": r.startPage,
		"max_pages":  r.maxPages,
		"indexed":    idx.Len(),
	})
	e.reporter.RunStarted(RunInfo{
		RunID:     r.id,
		Dataset:   r.dataset,
		StartPage: r.startPage,
		MaxPages:  r.maxPages,
		Indexed:   idx.Len(),
	})

	reason, runErr := e.paginate(ctx, r, idx)

	var saveErr error
	if err := e.indexes.Save(r.dataset, idx); err != nil {
		saveErr = fmt.Errorf("failed to save index: %w", err)
	}

	entries, err := e.worklists.Write(r.dataset, r.newURLs)
	var listErr error
	if err != nil {
		listErr = fmt.Errorf("failed to write work list: %w", err)
	}

	if runErr == nil && (saveErr != nil || listErr != nil) {
		reason = StopError
	}

	result := &Result{
		RunID:          r.id,
		Dataset:        r.dataset,
		StartPage:      r.startPage,
		LastPage:       idx.LastPage,
		PagesVisited:   r.pagesVisited,
		PagesProcessed: r.pagesProcessed,
		NewURLs:        r.newURLs,
		WorkList:       entries,
		Skipped:        r.skipped,
		TotalFiles:     idx.Len(),
		Reason:         reason,
		Complete:       idx.Complete,
		Duration:       time.Since(started),
	}

	r.log.InfoWithFields("Scrape stopped", map[string]interface{}{
		"reason":      string(reason),
		"last_page":   result.LastPage,
		"new_files":   len(result.NewURLs),
		"total_files": result.TotalFiles,
		"complete":    result.Complete,
		"duration":    result.Duration,
	})
	e.reporter.RunStopped(result)

	return result, errors.Join(runErr, saveErr, listErr)
}

// resolveStartPage turns AutoStart into a concrete page: just past the last
// processed page for an unfinished index, page 0 otherwise
func resolveStartPage(requested int, idx *index.DatasetIndex) int {
	if requested >= 0 {
		return requested
	}
	if idx.Complete || (idx.LastPage == 0 && idx.Len() == 0) {
		return 0
	}
	return idx.LastPage + 1
}

func (e *Engine) paginate(ctx context.Context, r *run, idx *index.DatasetIndex) (StopReason, error) {
	page := r.startPage

	for {
		if r.maxPages > 0 && page >= r.startPage+r.maxPages {
			return StopMaxPages, nil
		}
		if ctx.Err() != nil {
			return StopCancelled, nil
		}

		body, err := e.fetchPage(ctx, r, page)
		if err != nil {
			if ctx.Err() != nil {
				return StopCancelled, nil
			}
			r.log.WithError(err).ErrorWithFields("Giving up on page", map[string]interface{}{"page": page})
			return StopFetchFailed, err
		}
		r.pagesVisited++

		links := e.extractor.Extract(body, r.dataset)
		if len(links) == 0 {
			r.consecutiveEmpty++
			e.reporter.PageEmpty(page, r.consecutiveEmpty)
			r.log.DebugWithFields("Empty page", map[string]interface{}{
				"page":        page,
				"consecutive": r.consecutiveEmpty,
			})
			if r.consecutiveEmpty >= e.settings.EmptyPageLimit {
				return StopEmpty, nil
			}
			page++
			continue
		}
		r.consecutiveEmpty = 0

		first := lastSegment(links[0])
		if _, seen := r.seenFirst[first]; seen && page > r.startPage {
			r.log.InfoWithFields("Pagination wrapped", map[string]interface{}{
				"page":           page,
				"first_filename": first,
				"previous_first": r.lastFirstFilename,
			})
			idx.Complete = true
			return StopWrap, nil
		}
		r.seenFirst[first] = struct{}{}
		r.lastFirstFilename = first

		added := e.collect(r, idx, page, links)
		idx.LastPage = page
		r.pagesProcessed++
		e.reporter.PageScraped(page, len(links), added, idx.Len())

		if page%e.settings.SaveInterval == 0 {
			if err := e.indexes.Save(r.dataset, idx); err != nil {
				return StopError, fmt.Errorf("failed to save index at page %d: %w", page, err)
			}
		}

		if err := retry.Wait(ctx, e.settings.RequestDelay); err != nil {
			return StopCancelled, nil
		}
		page++
	}
}

// collect adds the page's unseen documents to the index and returns how
// many were new
func (e *Engine) collect(r *run, idx *index.DatasetIndex, page int, links []string) int {
	added := 0
	for _, link := range links {
		name, err := worklist.FilenameFromURL(link)
		if err != nil {
			r.skipped++
			r.log.WithError(err).WarnWithFields("Skipping link", map[string]interface{}{
				"page": page,
				"url":  link,
			})
			continue
		}
		if _, ok := r.existing[name]; ok {
			continue
		}
		idx.Add(name, link)
		r.existing[name] = struct{}{}
		r.newURLs = append(r.newURLs, link)
		added++
	}
	return added
}

// fetchPage retries FetchErrors on the same page under the configured policy
func (e *Engine) fetchPage(ctx context.Context, r *run, page int) (string, error) {
	return retry.DoWithResult(func() (string, error) {
		return e.fetcher.Fetch(ctx, r.dataset, page)
	}, &retry.Config{
		MaxAttempts: e.settings.MaxFetchAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: e.settings.RetryDelay},
		RetryIf: func(err error) bool {
			var fe *errs.FetchError
			return errors.As(err, &fe) && ctx.Err() == nil
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			e.reporter.FetchRetry(page, attempt, err, delay)
		},
		Context: ctx,
		Logger:  r.log.WithField("page", page),
	})
}

func lastSegment(u string) string {
	return u[strings.LastIndex(u, "/")+1:]
}
