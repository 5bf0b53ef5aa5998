package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"epsteindl/pkg/config"
	errs "epsteindl/pkg/errors"
	"epsteindl/pkg/logger"
)

// maxPageSize caps how much of a listing response is read
const maxPageSize = 16 << 20

// Fetcher retrieves listing pages. One Fetcher, and its http.Client, is
// shared by every page request of a run.
type Fetcher struct {
	httpClient *http.Client
	template   string
	headers    map[string]string
	logger     logger.Logger
}

// NewFetcher creates a Fetcher that attaches the site's identity token to
// every request
func NewFetcher(site config.SiteConfig, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}

	headers := map[string]string{
		"User-Agent":      site.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	if site.Cookie != "" {
		headers["Cookie"] = site.Cookie
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: site.RequestTimeout},
		template:   site.ListingURLTemplate,
		headers:    headers,
		logger:     log,
	}
}

// SetHeader overrides or adds a request header
func (f *Fetcher) SetHeader(key, value string) {
	f.headers[key] = value
}

// URL builds the listing URL for a dataset page
func (f *Fetcher) URL(dataset, page int) string {
	r := strings.NewReplacer(
		"{dataset}", strconv.Itoa(dataset),
		"{page}", strconv.Itoa(page),
	)
	return r.Replace(f.template)
}

// Fetch returns the body of one listing page. Transport failures and
// non-2xx responses come back as *errors.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, dataset, page int) (string, error) {
	url := f.URL(dataset, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &errs.FetchError{Page: page, URL: url, Type: errs.ErrorTypeNetwork, Err: err}
	}
	defer resp.Body.Close()

	logger.LogRequest(f.logger, req.Method, url, resp.StatusCode, float64(time.Since(start).Microseconds())/1000)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &errs.FetchError{
			Page:       page,
			URL:        url,
			StatusCode: resp.StatusCode,
			Type:       errs.ClassifyStatus(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", &errs.FetchError{Page: page, URL: url, Type: errs.ErrorTypeNetwork, Err: err}
	}

	return string(body), nil
}
