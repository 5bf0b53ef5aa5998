package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"epsteindl/pkg/config"
	errs "epsteindl/pkg/errors"
	"epsteindl/pkg/index"
	"epsteindl/pkg/listing"
	"epsteindl/pkg/logger"
	"epsteindl/pkg/retry"
	"epsteindl/pkg/worklist"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataset = 9

type harness struct {
	site     *fakeSite
	indexes  *memIndexStore
	lists    *memWorkLists
	reporter *recordingReporter
	engine   *Engine
}

func testSettings() Settings {
	return Settings{SaveInterval: 100, EmptyPageLimit: 3}
}

func newHarness(settings Settings) *harness {
	h := &harness{
		site:     newFakeSite(),
		indexes:  newMemIndexStore(),
		lists:    &memWorkLists{},
		reporter: &recordingReporter{},
	}
	h.engine = NewEngine(h.site, listing.NewExtractor(config.DefaultConfig().Site), h.indexes, h.lists, settings, logger.NewNopLogger())
	h.engine.SetReporter(h.reporter)
	return h
}

func (h *harness) run(t *testing.T, opts Options) *Result {
	t.Helper()
	if opts.Dataset == 0 {
		opts.Dataset = dataset
	}
	res, err := h.engine.Run(context.Background(), opts)
	require.NoError(t, err)
	return res
}

func TestEmptyRunTermination(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(0, 4, 3)

	res := h.run(t, Options{StartPage: 0})

	assert.Equal(t, StopEmpty, res.Reason)
	assert.Equal(t, 4, res.LastPage)
	assert.False(t, res.Complete)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, h.site.fetched())
	assert.Equal(t, []int{5, 6, 7}, h.reporter.empty)
	assert.Equal(t, 15, res.TotalFiles)
	assert.Len(t, res.NewURLs, 15)
	assert.Equal(t, 5, res.PagesProcessed)
	assert.Equal(t, 8, res.PagesVisited)
}

func TestEmptyCounterResetsOnContent(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(0, 0, 2)
	// pages 1 and 2 empty, 3 has content, then the listing ends
	h.site.fill(3, 3, 2)

	res := h.run(t, Options{StartPage: 0})

	assert.Equal(t, StopEmpty, res.Reason)
	assert.Equal(t, 3, res.LastPage)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, h.site.fetched())
}

func TestWrapDetection(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(0, 3, 4)
	h.site.pages[4] = h.site.pages[0]
	h.site.pages[5] = h.site.pages[1]

	res := h.run(t, Options{StartPage: 0})

	assert.Equal(t, StopWrap, res.Reason)
	assert.True(t, res.Complete)
	assert.Equal(t, 3, res.LastPage)
	assert.Equal(t, 16, res.TotalFiles)
	assert.Len(t, res.NewURLs, 16)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, h.site.fetched())

	saved := h.indexes.get(dataset)
	require.NotNil(t, saved)
	assert.True(t, saved.Complete)
}

func TestWrapOnConsecutiveRepeat(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(5, 5, 2)
	h.site.pages[6] = h.site.pages[5]

	res := h.run(t, Options{StartPage: 5})

	assert.Equal(t, StopWrap, res.Reason)
	assert.Equal(t, 5, res.LastPage)
	assert.Equal(t, 2, res.TotalFiles)
}

func TestStartPageIsNeverAWrap(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(2, 3, 2)

	// a previous run indexed the same documents, which must not count as a wrap
	prior := index.New()
	for _, name := range h.site.pages[2] {
		prior.Add(name, "https://www.justice.gov/epstein/files/DataSet 9/"+name)
	}
	prior.LastPage = 2
	require.NoError(t, h.indexes.Save(dataset, prior))

	res := h.run(t, Options{StartPage: 2})
	assert.Equal(t, StopEmpty, res.Reason)
	assert.False(t, res.Complete)
}

func TestMaxPagesCap(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(0, 50, 2)

	res := h.run(t, Options{StartPage: 10, MaxPages: 5})

	assert.Equal(t, StopMaxPages, res.Reason)
	assert.False(t, res.Complete)
	assert.Equal(t, []int{10, 11, 12, 13, 14}, h.site.fetched())
	assert.Equal(t, 14, res.LastPage)
	assert.Equal(t, 10, res.TotalFiles)
}

func TestIdempotentRescrape(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(0, 6, 5)

	first := h.run(t, Options{StartPage: 0})
	require.Len(t, first.NewURLs, 35)
	before := h.indexes.get(dataset).Files

	second := h.run(t, Options{StartPage: 0})
	assert.Empty(t, second.NewURLs)
	assert.Empty(t, second.WorkList)
	assert.Equal(t, before, h.indexes.get(dataset).Files)
	assert.Empty(t, h.lists.writes[dataset])
}

func TestDedupAcrossPages(t *testing.T) {
	h := newHarness(testSettings())
	h.site.pages[0] = []string{"a.pdf", "shared.pdf", "a.pdf"}
	h.site.pages[1] = []string{"b.pdf", "shared.pdf"}
	h.site.pages[2] = []string{"c.pdf", "shared.pdf", "b.pdf"}

	res := h.run(t, Options{StartPage: 0})

	assert.Equal(t, 4, res.TotalFiles)
	assert.Len(t, res.NewURLs, 4)

	count := 0
	for _, u := range res.NewURLs {
		if filepath.Base(u) == "shared.pdf" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExistingEntriesNeverOverwritten(t *testing.T) {
	h := newHarness(testSettings())
	h.site.pages[0] = []string{"a.pdf"}

	prior := index.New()
	prior.Add("a.pdf", "https://mirror.example/a.pdf")
	require.NoError(t, h.indexes.Save(dataset, prior))

	res := h.run(t, Options{StartPage: 0})
	assert.Empty(t, res.NewURLs)
	assert.Equal(t, "https://mirror.example/a.pdf", h.indexes.get(dataset).Files["a.pdf"])
}

func TestResumability(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(42, 43, 3)

	prior := index.New()
	for _, name := range h.site.pages[42] {
		prior.Add(name, "https://www.justice.gov/epstein/files/DataSet 9/"+name)
	}
	prior.LastPage = 42
	require.NoError(t, h.indexes.Save(dataset, prior))

	res := h.run(t, Options{StartPage: 42})

	assert.Len(t, res.NewURLs, 3)
	for _, u := range res.NewURLs {
		assert.Contains(t, u, "EFTA00043_")
	}
	assert.Equal(t, 6, res.TotalFiles)
	assert.Equal(t, 43, res.LastPage)
}

func TestAutoResume(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(0, 9, 1)

	prior := index.New()
	prior.Add("x.pdf", "https://www.justice.gov/epstein/files/DataSet 9/x.pdf")
	prior.LastPage = 7
	require.NoError(t, h.indexes.Save(dataset, prior))

	res := h.run(t, Options{StartPage: AutoStart})

	assert.Equal(t, 8, res.StartPage)
	assert.Equal(t, 8, h.site.fetched()[0])
	require.Len(t, h.reporter.started, 1)
	assert.Equal(t, 8, h.reporter.started[0].StartPage)
}

func TestResolveStartPage(t *testing.T) {
	withFile := func(last int, complete bool) *index.DatasetIndex {
		idx := index.New()
		idx.Add("a.pdf", "https://x/a.pdf")
		idx.LastPage = last
		idx.Complete = complete
		return idx
	}

	tests := []struct {
		name      string
		requested int
		idx       *index.DatasetIndex
		want      int
	}{
		{"explicit wins", 3, withFile(10, false), 3},
		{"explicit zero", 0, withFile(10, false), 0},
		{"fresh index", AutoStart, index.New(), 0},
		{"page zero done", AutoStart, withFile(0, false), 1},
		{"partial", AutoStart, withFile(42, false), 43},
		{"complete restarts", AutoStart, withFile(42, true), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveStartPage(tt.requested, tt.idx))
		})
	}
}

func TestFetchRetriesSamePage(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(0, 2, 2)
	h.site.failures[1] = 2

	res := h.run(t, Options{StartPage: 0})

	assert.Equal(t, StopEmpty, res.Reason)
	assert.Equal(t, []int{0, 1, 1, 1, 2, 3, 4, 5}, h.site.fetched())
	assert.Equal(t, []int{1, 2}, h.reporter.retries)
	assert.Equal(t, 6, res.TotalFiles)
}

func TestBoundedRetryGivesUp(t *testing.T) {
	settings := testSettings()
	settings.MaxFetchAttempts = 3
	h := newHarness(settings)
	h.site.fill(0, 5, 2)
	h.site.permanent[2] = true

	res, err := h.engine.Run(context.Background(), Options{Dataset: dataset, StartPage: 0})
	require.Error(t, err)
	require.NotNil(t, res)

	assert.ErrorIs(t, err, retry.ErrMaxAttempts)
	var fe *errs.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Page)

	assert.Equal(t, StopFetchFailed, res.Reason)
	assert.Equal(t, []int{0, 1, 2, 2, 2}, h.site.fetched())

	// progress before the dead page is persisted and handed off
	saved := h.indexes.get(dataset)
	require.NotNil(t, saved)
	assert.Equal(t, 1, saved.LastPage)
	assert.Len(t, saved.Files, 4)
	assert.Len(t, h.lists.writes[dataset], 4)
}

func TestUnlimitedRetryStopsOnCancel(t *testing.T) {
	h := newHarness(testSettings())
	h.site.permanent[0] = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.reporter.onRetry = func(attempt int) {
		if attempt == 5 {
			cancel()
		}
	}

	res, err := h.engine.Run(ctx, Options{Dataset: dataset, StartPage: 0})
	require.NoError(t, err)
	assert.Equal(t, StopCancelled, res.Reason)
	assert.Len(t, h.site.fetched(), 5)
	assert.NotNil(t, h.indexes.get(dataset), "final save still happens")
}

func TestCancelMidRun(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(0, 20, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.reporter.onScrape = func(page int) {
		if page == 2 {
			cancel()
		}
	}

	res, err := h.engine.Run(ctx, Options{Dataset: dataset, StartPage: 0})
	require.NoError(t, err)

	assert.Equal(t, StopCancelled, res.Reason)
	assert.Equal(t, 2, res.LastPage)
	assert.Len(t, res.NewURLs, 3)
	assert.Equal(t, 2, h.indexes.get(dataset).LastPage)
	assert.Len(t, h.lists.writes[dataset], 3)
}

func TestPeriodicSaveCadence(t *testing.T) {
	settings := testSettings()
	settings.SaveInterval = 2
	h := newHarness(settings)
	h.site.fill(0, 4, 1)

	h.run(t, Options{StartPage: 0})

	// pages 0, 2 and 4, then the final save
	assert.Equal(t, []int{0, 2, 4, 4}, h.indexes.saves)
}

func TestNoPeriodicSaveOnEmptyPages(t *testing.T) {
	settings := testSettings()
	settings.SaveInterval = 2
	h := newHarness(settings)
	h.site.fill(1, 1, 1)

	h.run(t, Options{StartPage: 1})

	// pages 2, 3 and 4 are empty, so only the final save happens
	assert.Equal(t, []int{1}, h.indexes.saves)
}

func TestSaveFailureIsFatal(t *testing.T) {
	settings := testSettings()
	settings.SaveInterval = 1
	h := newHarness(settings)
	h.site.fill(0, 10, 1)
	h.indexes.saveErr = errors.New("disk full")

	res, err := h.engine.Run(context.Background(), Options{Dataset: dataset, StartPage: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "failed to save index at page 0")
	assert.Equal(t, StopError, res.Reason)
	assert.Equal(t, []int{0}, h.site.fetched())
	assert.Len(t, h.lists.writes[dataset], 1, "discovered URLs are still handed off")
}

func TestFinalSaveFailureReported(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(1, 1, 1)
	h.indexes.saveErr = errors.New("read-only")

	res, err := h.engine.Run(context.Background(), Options{Dataset: dataset, StartPage: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save index")
	assert.Equal(t, StopError, res.Reason)
}

func TestLoadFailureAborts(t *testing.T) {
	h := newHarness(testSettings())
	h.indexes.loadErr = errors.New("permission denied")

	res, err := h.engine.Run(context.Background(), Options{Dataset: dataset, StartPage: 0})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Empty(t, h.site.fetched())
}

func TestInvalidFilenamesSkipped(t *testing.T) {
	h := newHarness(testSettings())
	h.site.pages[0] = []string{"good.pdf", `..%5Cevil.pdf`}

	res := h.run(t, Options{StartPage: 0})

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.TotalFiles)
	require.Len(t, res.NewURLs, 1)
	assert.Contains(t, res.NewURLs[0], "good.pdf")
}

func TestReporterSeesLifecycle(t *testing.T) {
	h := newHarness(testSettings())
	h.site.fill(0, 1, 1)

	res := h.run(t, Options{StartPage: 0})

	require.Len(t, h.reporter.started, 1)
	assert.NotEmpty(t, h.reporter.started[0].RunID)
	assert.Equal(t, []int{0, 1}, h.reporter.scraped)
	require.Len(t, h.reporter.stopped, 1)
	assert.Same(t, res, h.reporter.stopped[0])
	assert.Equal(t, h.reporter.started[0].RunID, res.RunID)
}

func TestRunWithFileStores(t *testing.T) {
	root := t.TempDir()
	site := newFakeSite()
	site.fill(0, 1, 2)

	engine := NewEngine(
		site,
		listing.NewExtractor(config.DefaultConfig().Site),
		index.NewStore(root, nil),
		worklist.NewStore(root),
		testSettings(),
		nil,
	)

	res, err := engine.Run(context.Background(), Options{Dataset: 3, StartPage: 0})
	require.NoError(t, err)
	require.Len(t, res.WorkList, 4)

	entries, err := worklist.ReadFile(filepath.Join(root, "dataset3-urls.txt"))
	require.NoError(t, err)
	assert.Equal(t, res.WorkList, entries)
	assert.Equal(t, filepath.Join(root, "dataset3-pdfs"), entries[0].Dir)

	_, err = os.Stat(filepath.Join(root, "dataset3-pdfs"))
	assert.NoError(t, err)

	idx, err := index.NewStore(root, nil).Load(3)
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, 1, idx.LastPage)
	for name, u := range idx.Files {
		assert.Equal(t, name, filepath.Base(u))
	}
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.DefaultConfig().Scrape)
	assert.Equal(t, 100, s.SaveInterval)
	assert.Equal(t, 3, s.EmptyPageLimit)
	assert.Equal(t, 0, s.MaxFetchAttempts)

	e := NewEngine(nil, nil, nil, nil, Settings{}, nil)
	assert.Equal(t, 100, e.settings.SaveInterval)
	assert.Equal(t, 3, e.settings.EmptyPageLimit)
}
