package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"epsteindl/pkg/config"
	errs "epsteindl/pkg/errors"
	"epsteindl/pkg/logger"
	"epsteindl/pkg/ratelimit"
	"epsteindl/pkg/retry"
	"epsteindl/pkg/worklist"
)

// partSuffix marks an incomplete transfer that the next attempt resumes
const partSuffix = ".part"

// Native downloads work lists in-process with a worker pool
type Native struct {
	transfer    *HTTPTransferer
	workers     int
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewNative creates the in-process dispatcher from download settings
func NewNative(cfg *config.Config, log logger.Logger) *Native {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("dispatcher", "native")

	return &Native{
		transfer:    NewHTTPTransferer(cfg, log),
		workers:     cfg.Download.ConcurrentDownloads,
		rateLimiter: ratelimit.NewPerMinute(cfg.Download.RequestsPerMinute, cfg.Download.ConcurrentDownloads),
		logger:      log,
	}
}

func (n *Native) Name() string { return "native" }

// Dispatch transfers every entry and joins the per-file failures
func (n *Native) Dispatch(ctx context.Context, entries []worklist.Entry) error {
	if len(entries) == 0 {
		return errs.ErrNoURLs
	}

	logger.LogComponentStart(n.logger, "native-dispatcher", map[string]interface{}{
		"files":   len(entries),
		"workers": n.workers,
	})

	pool := NewWorkerPool(ctx, n.workers, n.transfer, diskDestination{}, n.rateLimiter, n.logger)
	pool.Start()

	var (
		failures   []error
		done       int
		skipped    int
		collecting = make(chan struct{})
	)
	go func() {
		defer close(collecting)
		for res := range pool.Results() {
			logger.LogTransfer(n.logger, res.Job.Entry.Filename, res.Bytes, res.Skipped, res.Error)
			switch {
			case res.Error != nil:
				failures = append(failures, res.Error)
			case res.Skipped:
				skipped++
			default:
				done++
			}
		}
	}()

	for _, e := range entries {
		if err := pool.Submit(Job{Entry: e}); err != nil {
			break
		}
	}
	pool.Stop()
	<-collecting

	reason := "finished"
	if ctx.Err() != nil {
		reason = "cancelled"
		failures = append(failures, ctx.Err())
	}
	n.logger.InfoWithFields("Dispatch finished", map[string]interface{}{
		"downloaded": done,
		"skipped":    skipped,
		"failed":     len(failures),
	})
	logger.LogComponentStop(n.logger, "native-dispatcher", reason)

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d transfers failed: %w", len(failures), len(entries), errors.Join(failures...))
	}
	return nil
}

type diskDestination struct{}

func (diskDestination) Exists(e worklist.Entry) bool {
	info, err := os.Stat(e.Path())
	return err == nil && !info.IsDir()
}

// HTTPTransferer downloads one file over HTTP with Range resume and retries
type HTTPTransferer struct {
	httpClient *http.Client
	headers    map[string]string
	retries    int
	backoff    retry.BackoffStrategy
	logger     logger.Logger
}

// NewHTTPTransferer builds a transferer carrying the site identity headers
func NewHTTPTransferer(cfg *config.Config, log logger.Logger) *HTTPTransferer {
	headers := map[string]string{"User-Agent": cfg.Site.UserAgent}
	if cfg.Site.Cookie != "" {
		headers["Cookie"] = cfg.Site.Cookie
	}
	return &HTTPTransferer{
		httpClient: &http.Client{Timeout: cfg.Download.Timeout},
		headers:    headers,
		retries:    cfg.Download.RetryAttempts,
		backoff:    retry.DefaultExponentialBackoff(),
		logger:     log,
	}
}

// Transfer downloads entry to entry.Path(), going through a .part file
// that survives failures and is resumed on the next attempt
func (t *HTTPTransferer) Transfer(ctx context.Context, entry worklist.Entry) (int64, error) {
	if _, err := worklist.ValidateFilename(entry.Filename); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(entry.Dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	var total int64
	err := retry.Do(func() error {
		n, err := t.attempt(ctx, entry)
		total += n
		return err
	}, &retry.Config{
		MaxAttempts: t.retries,
		Backoff:     t.backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      t.logger.WithField("file", entry.Filename),
	})
	return total, err
}

func (t *HTTPTransferer) attempt(ctx context.Context, entry worklist.Entry) (int64, error) {
	target := entry.Path()
	part := target + partSuffix

	var offset int64
	if info, err := os.Stat(part); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL(entry.URL), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, &errs.TransferError{Filename: entry.Filename, URL: entry.URL, Type: errs.ErrorTypeNetwork, Err: err}
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusOK:
		flags |= os.O_TRUNC
	case http.StatusPartialContent:
		flags |= os.O_APPEND
	case http.StatusRequestedRangeNotSatisfiable:
		if offset > 0 {
			// the part file already holds the whole body
			return 0, os.Rename(part, target)
		}
		fallthrough
	default:
		return 0, &errs.TransferError{
			Filename:   entry.Filename,
			URL:        entry.URL,
			StatusCode: resp.StatusCode,
			Type:       errs.ClassifyStatus(resp.StatusCode),
		}
	}

	f, err := os.OpenFile(part, flags, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", part, err)
	}

	n, copyErr := io.Copy(f, resp.Body)
	if copyErr == nil {
		copyErr = f.Sync()
	}
	if err := f.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	if copyErr != nil {
		return n, &errs.TransferError{Filename: entry.Filename, URL: entry.URL, Type: errs.ErrorTypeNetwork, Err: copyErr}
	}

	if err := os.Rename(part, target); err != nil {
		return n, fmt.Errorf("failed to finalize %s: %w", filepath.Base(target), err)
	}
	return n, nil
}

// requestURL re-escapes an index URL, whose path is stored decoded
func requestURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	host, path, _ := strings.Cut(rest, "/")
	u := url.URL{Scheme: scheme, Host: host, Path: "/" + path}
	return u.String()
}

// SetBackoff overrides the retry delay policy
func (t *HTTPTransferer) SetBackoff(b retry.BackoffStrategy) {
	t.backoff = b
}

// Transferer exposes the underlying HTTP transferer
func (n *Native) Transferer() *HTTPTransferer {
	return n.transfer
}
