package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"epsteindl/internal/downloader"
	"epsteindl/pkg/auth"
	"epsteindl/pkg/config"
	"epsteindl/pkg/datasets"
	errs "epsteindl/pkg/errors"
	"epsteindl/pkg/logger"
	"epsteindl/pkg/ui"
	"epsteindl/pkg/worklist"

	"github.com/spf13/cobra"
)

// app is the loaded configuration and logger shared by a command
type app struct {
	cfg *config.Config
	log logger.Logger
}

// loadApp merges config sources, resolves the identity token and starts
// logging. extra holds command-specific flag values.
func loadApp(cmd *cobra.Command, extra map[string]interface{}) *app {
	flags := map[string]interface{}{}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fail("Failed to load configuration", err)
	}

	if root, err := filepath.Abs(cfg.Output.BaseDirectory); err == nil {
		cfg.Output.BaseDirectory = root
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fail("Failed to initialize logger", err)
	}
	log := logger.GetLogger().WithField("command", cmd.Name())

	resolveCookie(cmd, cfg, log)

	return &app{cfg: cfg, log: log}
}

// resolveCookie swaps in a stored token unless the cookie came from a flag
// or the environment
func resolveCookie(cmd *cobra.Command, cfg *config.Config, log logger.Logger) {
	if f := cmd.Flags().Lookup("cookie"); f != nil && f.Changed {
		return
	}
	if os.Getenv(auth.EnvCookie) != "" {
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Debug("Token store unavailable")
		return
	}
	token, err := manager.Retrieve(profile)
	if err != nil {
		return
	}

	cfg.Site.Cookie = token.Cookie
	if token.UserAgent != "" {
		cfg.Site.UserAgent = token.UserAgent
	}
	log.WithField("profile", token.Name).Debug("Using stored token")
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseDataset validates a dataset argument
func parseDataset(arg string) int {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err == nil {
		err = datasets.Validate(n)
	}
	if err != nil {
		fail("Invalid dataset", err)
	}
	return n
}

// dispatch sends a work list to the configured dispatcher
func (a *app) dispatch(ctx context.Context, entries []worklist.Entry) error {
	d, err := downloader.New(a.cfg, a.log)
	if err != nil {
		return err
	}

	ui.PrintWarning(fmt.Sprintf("Downloading %d PDFs with %s...", len(entries), d.Name()))
	err = d.Dispatch(ctx, entries)
	if errors.Is(err, errs.ErrNoURLs) {
		ui.PrintDim("No URLs to download")
		return nil
	}
	return err
}

// fail prints an error and exits non-zero
func fail(msg string, err error) {
	ui.PrintError(msg, err)
	os.Exit(1)
}
