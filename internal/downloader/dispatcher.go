// Package downloader hands work lists to a fetch dispatcher. Aria2 shells
// out to aria2c; Native is an in-process worker pool used when aria2c is
// not installed.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"epsteindl/pkg/config"
	"epsteindl/pkg/logger"
	"epsteindl/pkg/worklist"
)

// ErrAria2cNotFound is returned when aria2c is required but missing
var ErrAria2cNotFound = errors.New("aria2c not found")

// Dispatcher transfers every entry of a work list. Transfers are idempotent:
// files already on disk are skipped and partial files are resumed.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, entries []worklist.Entry) error
}

// lookPath is swapped in tests
var lookPath = exec.LookPath

// New picks a dispatcher according to download.dispatcher. In auto mode
// aria2c is preferred and the native pool is the fallback.
func New(cfg *config.Config, log logger.Logger) (Dispatcher, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	switch cfg.Download.Dispatcher {
	case config.DispatcherNative:
		return NewNative(cfg, log), nil
	case config.DispatcherAria2c:
		if _, err := lookPath(cfg.Download.Aria2cPath); err != nil {
			return nil, fmt.Errorf("%w: %s\n\n%s", ErrAria2cNotFound, cfg.Download.Aria2cPath, InstallInstructions())
		}
		return NewAria2(cfg, log), nil
	case config.DispatcherAuto, "":
		if _, err := lookPath(cfg.Download.Aria2cPath); err == nil {
			return NewAria2(cfg, log), nil
		}
		log.WarnWithFields("aria2c not found, using native downloader", map[string]interface{}{
			"aria2c_path": cfg.Download.Aria2cPath,
		})
		return NewNative(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown dispatcher %q", cfg.Download.Dispatcher)
	}
}

// Aria2Available reports whether the configured aria2c binary is on PATH
func Aria2Available(cfg *config.Config) bool {
	_, err := lookPath(cfg.Download.Aria2cPath)
	return err == nil
}

// InstallInstructions tells the user how to get aria2c
func InstallInstructions() string {
	return `aria2c is required but not found. Please install it:

Windows (winget):  winget install aria2.aria2
Windows (scoop):   scoop install aria2
macOS (brew):      brew install aria2
Linux (apt):       sudo apt install aria2
Linux (yum):       sudo yum install aria2`
}
