package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"epsteindl/pkg/config"
	"epsteindl/pkg/datasets"
	errs "epsteindl/pkg/errors"
	"epsteindl/pkg/logger"
	"epsteindl/pkg/worklist"
)

// Runner executes an external command to completion
type Runner interface {
	Run(ctx context.Context, name string, args []string) error
}

// ExecRunner runs commands with os/exec, streaming their output
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// Aria2 dispatches transfers to aria2c. aria2c owns concurrency, resume
// and retries; only the overall exit status is observed.
type Aria2 struct {
	path        string
	cookie      string
	concurrency int
	layout      datasets.Layout
	runner      Runner
	logger      logger.Logger
}

// NewAria2 creates an aria2c dispatcher writing under the output root
func NewAria2(cfg *config.Config, log logger.Logger) *Aria2 {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Aria2{
		path:        cfg.Download.Aria2cPath,
		cookie:      cfg.Site.Cookie,
		concurrency: cfg.Download.ConcurrentDownloads,
		layout:      datasets.Layout{Root: cfg.Output.BaseDirectory},
		runner:      ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr},
		logger:      log.WithField("dispatcher", "aria2c"),
	}
}

// SetRunner replaces the command runner
func (a *Aria2) SetRunner(r Runner) {
	a.runner = r
}

func (a *Aria2) Name() string { return "aria2c" }

// Dispatch writes the entries to a scratch input file, runs aria2c over it
// and removes the file afterwards
func (a *Aria2) Dispatch(ctx context.Context, entries []worklist.Entry) error {
	if len(entries) == 0 {
		return errs.ErrNoURLs
	}

	for _, dir := range uniqueDirs(entries) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	input := a.layout.TempInputFile()
	if err := os.MkdirAll(a.layout.Root, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := worklist.WriteFile(input, entries); err != nil {
		return err
	}
	defer os.Remove(input)

	a.logger.InfoWithFields("Dispatching work list", map[string]interface{}{
		"files":       len(entries),
		"concurrency": a.concurrency,
	})
	return a.DispatchFile(ctx, input)
}

// DispatchFile runs aria2c over an existing input file
func (a *Aria2) DispatchFile(ctx context.Context, inputFile string) error {
	if err := a.run(ctx, a.listArgs(inputFile)); err != nil {
		return fmt.Errorf("aria2c failed on %s: %w", inputFile, err)
	}
	return nil
}

// DownloadZip fetches a dataset's bulk archive into zips/. An existing
// archive is left alone and reported as skipped.
func (a *Aria2) DownloadZip(ctx context.Context, baseURL string, d datasets.Dataset) (bool, error) {
	if !d.ZipAvailable {
		return false, fmt.Errorf("dataset %d ZIP not available", d.Number)
	}

	dir := a.layout.ZipDir()
	name := datasets.ZipName(d.Number)
	if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
		a.logger.InfoWithFields("ZIP already exists", map[string]interface{}{"file": name})
		return true, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create zip directory: %w", err)
	}

	if err := a.run(ctx, a.zipArgs(datasets.ZipURL(baseURL, d.Number), dir, name)); err != nil {
		return false, fmt.Errorf("aria2c failed on %s: %w", name, err)
	}
	return false, nil
}

// DownloadTorrent fetches a dataset's torrent into torrents/ without seeding
func (a *Aria2) DownloadTorrent(ctx context.Context, d datasets.Dataset) error {
	if d.Magnet == "" {
		return fmt.Errorf("dataset %d has no torrent configured", d.Number)
	}

	dir := a.layout.TorrentDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create torrent directory: %w", err)
	}

	if err := a.run(ctx, a.torrentArgs(datasets.MagnetWithTrackers(d.Magnet), dir)); err != nil {
		return fmt.Errorf("aria2c failed on dataset %d torrent: %w", d.Number, err)
	}
	return nil
}

func (a *Aria2) run(ctx context.Context, args []string) error {
	a.logger.DebugWithFields("Running aria2c", map[string]interface{}{"args": len(args)})
	return a.runner.Run(ctx, a.path, args)
}

func (a *Aria2) cookieHeader() []string {
	if a.cookie == "" {
		return nil
	}
	return []string{"--header=Cookie: " + a.cookie}
}

func (a *Aria2) torrentArgs(magnet, dir string) []string {
	return []string{
		magnet,
		"--dir=" + dir,
		"--seed-time=0",
		"--max-connection-per-server=16",
		"--split=16",
		"--min-split-size=1M",
		"--bt-stop-timeout=600",
		"--bt-tracker-timeout=60",
		"--continue=true",
		"--auto-file-renaming=false",
		"--console-log-level=notice",
		"--summary-interval=10",
	}
}

func (a *Aria2) zipArgs(url, dir, name string) []string {
	args := []string{url, "--dir=" + dir, "--out=" + name}
	args = append(args, a.cookieHeader()...)
	return append(args,
		"--max-connection-per-server=8",
		"--split=8",
		"--min-split-size=10M",
		"--continue=true",
		"--auto-file-renaming=false",
		"--timeout=120",
		"--max-tries=10",
		"--retry-wait=5",
		"--console-log-level=notice",
		"--summary-interval=10",
	)
}

func (a *Aria2) listArgs(inputFile string) []string {
	args := []string{"--input-file=" + inputFile}
	args = append(args, a.cookieHeader()...)
	return append(args,
		"--max-concurrent-downloads="+strconv.Itoa(a.concurrency),
		"--max-connection-per-server=4",
		"--continue=true",
		"--auto-file-renaming=false",
		"--timeout=60",
		"--max-tries=5",
		"--retry-wait=3",
		"--console-log-level=notice",
		"--summary-interval=30",
	)
}

func uniqueDirs(entries []worklist.Entry) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, e := range entries {
		if !seen[e.Dir] {
			seen[e.Dir] = true
			dirs = append(dirs, e.Dir)
		}
	}
	return dirs
}
