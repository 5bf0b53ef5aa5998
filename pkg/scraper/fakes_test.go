package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	errs "epsteindl/pkg/errors"
	"epsteindl/pkg/index"
	"epsteindl/pkg/worklist"
)

// fakeSite serves generated listing pages. Pages absent from the map are
// empty.
type fakeSite struct {
	mu        sync.Mutex
	pages     map[int][]string
	failures  map[int]int
	permanent map[int]bool
	calls     []int
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		pages:     make(map[int][]string),
		failures:  make(map[int]int),
		permanent: make(map[int]bool),
	}
}

// fill gives pages [from, to] n distinct files each
func (f *fakeSite) fill(from, to, n int) {
	for p := from; p <= to; p++ {
		var names []string
		for i := 0; i < n; i++ {
			names = append(names, fmt.Sprintf("EFTA%05d_%02d.pdf", p, i))
		}
		f.pages[p] = names
	}
}

func (f *fakeSite) Fetch(ctx context.Context, dataset, page int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, page)

	if err := ctx.Err(); err != nil {
		return "", &errs.FetchError{Page: page, Type: errs.ErrorTypeNetwork, Err: err}
	}
	if f.permanent[page] {
		return "", &errs.FetchError{Page: page, StatusCode: 503, Type: errs.ErrorTypeServerError}
	}
	if f.failures[page] > 0 {
		f.failures[page]--
		return "", &errs.FetchError{Page: page, Type: errs.ErrorTypeNetwork, Err: errors.New("connection reset")}
	}

	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, name := range f.pages[page] {
		fmt.Fprintf(&b, `<li><a href="/epstein/files/DataSet%%20%d/%s">%s</a></li>`, dataset, name, name)
	}
	b.WriteString("</ul></body></html>")
	return b.String(), nil
}

func (f *fakeSite) fetched() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

// memIndexStore keeps indexes in memory and copies on every load and save
type memIndexStore struct {
	mu      sync.Mutex
	records map[int]*index.DatasetIndex
	saves   []int
	saveErr error
	loadErr error
}

func newMemIndexStore() *memIndexStore {
	return &memIndexStore{records: make(map[int]*index.DatasetIndex)}
}

func cloneIndex(idx *index.DatasetIndex) *index.DatasetIndex {
	out := index.New()
	for k, v := range idx.Files {
		out.Files[k] = v
	}
	out.LastPage = idx.LastPage
	out.Complete = idx.Complete
	return out
}

func (m *memIndexStore) Load(dataset int) (*index.DatasetIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if rec, ok := m.records[dataset]; ok {
		return cloneIndex(rec), nil
	}
	return index.New(), nil
}

func (m *memIndexStore) Save(dataset int, idx *index.DatasetIndex) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[dataset] = cloneIndex(idx)
	m.saves = append(m.saves, idx.LastPage)
	return nil
}

func (m *memIndexStore) get(dataset int) *index.DatasetIndex {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[dataset]
}

type memWorkLists struct {
	writes map[int][]string
}

func (m *memWorkLists) Write(dataset int, urls []string) ([]worklist.Entry, error) {
	if m.writes == nil {
		m.writes = make(map[int][]string)
	}
	m.writes[dataset] = append([]string(nil), urls...)
	entries, _ := worklist.Build(urls, fmt.Sprintf("/out/dataset%d-pdfs", dataset))
	return entries, nil
}

type recordingReporter struct {
	started  []RunInfo
	scraped  []int
	empty    []int
	retries  []int
	stopped  []*Result
	onScrape func(page int)
	onRetry  func(attempt int)
}

func (r *recordingReporter) RunStarted(info RunInfo) { r.started = append(r.started, info) }

func (r *recordingReporter) PageScraped(page, found, added, total int) {
	r.scraped = append(r.scraped, page)
	if r.onScrape != nil {
		r.onScrape(page)
	}
}

func (r *recordingReporter) PageEmpty(page, consecutive int) { r.empty = append(r.empty, page) }

func (r *recordingReporter) FetchRetry(page, attempt int, err error, delay time.Duration) {
	r.retries = append(r.retries, attempt)
	if r.onRetry != nil {
		r.onRetry(attempt)
	}
}

func (r *recordingReporter) RunStopped(result *Result) { r.stopped = append(r.stopped, result) }
