package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)

	// Site defaults
	assert.Equal(t, "https://www.justice.gov", cfg.Site.BaseURL)
	assert.Contains(t, cfg.Site.ListingURLTemplate, "{dataset}")
	assert.Contains(t, cfg.Site.ListingURLTemplate, "{page}")
	assert.Equal(t, "/epstein/files/DataSet%20{dataset}/", cfg.Site.FilePathTemplate)
	assert.Equal(t, ".pdf", cfg.Site.DocumentExtension)
	assert.Equal(t, DefaultCookie, cfg.Site.Cookie)
	assert.Equal(t, 30*time.Second, cfg.Site.RequestTimeout)

	// Scrape defaults
	assert.Equal(t, 300*time.Millisecond, cfg.Scrape.RequestDelay)
	assert.Equal(t, 5*time.Second, cfg.Scrape.RetryDelay)
	assert.Equal(t, 0, cfg.Scrape.MaxFetchAttempts)
	assert.Equal(t, 100, cfg.Scrape.SaveInterval)
	assert.Equal(t, 3, cfg.Scrape.EmptyPageLimit)

	assert.Equal(t, DispatcherAuto, cfg.Download.Dispatcher)
	assert.Equal(t, 5, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EPSTEINDL_COOKIE", "session=abc")
	t.Setenv("EPSTEINDL_OUTPUT_DIR", "/tmp/archive")
	t.Setenv("EPSTEINDL_CONCURRENT_DOWNLOADS", "8")
	t.Setenv("EPSTEINDL_MAX_FETCH_ATTEMPTS", "4")
	t.Setenv("EPSTEINDL_REQUEST_DELAY", "1s")
	t.Setenv("EPSTEINDL_DISPATCHER", "NATIVE")
	t.Setenv("EPSTEINDL_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "session=abc", cfg.Site.Cookie)
	assert.Equal(t, "/tmp/archive", cfg.Output.BaseDirectory)
	assert.Equal(t, 8, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, 4, cfg.Scrape.MaxFetchAttempts)
	assert.Equal(t, time.Second, cfg.Scrape.RequestDelay)
	assert.Equal(t, DispatcherNative, cfg.Download.Dispatcher)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnv_InvalidDelay(t *testing.T) {
	t.Setenv("EPSTEINDL_REQUEST_DELAY", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EPSTEINDL_REQUEST_DELAY")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
site:
  base_url: https://mirror.example.org
  cookie: token=xyz
scrape:
  max_fetch_attempts: 10
  save_interval: 25
output:
  base_directory: /data/epstein
torrents:
  1: "magnet:?xt=urn:btih:aaaa"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://mirror.example.org", cfg.Site.BaseURL)
	assert.Equal(t, "token=xyz", cfg.Site.Cookie)
	assert.Equal(t, 10, cfg.Scrape.MaxFetchAttempts)
	assert.Equal(t, 25, cfg.Scrape.SaveInterval)
	assert.Equal(t, "/data/epstein", cfg.Output.BaseDirectory)
	assert.Equal(t, "magnet:?xt=urn:btih:aaaa", cfg.Torrents[1])

	// untouched keys keep their defaults
	assert.Equal(t, ".pdf", cfg.Site.DocumentExtension)
	assert.Equal(t, 3, cfg.Scrape.EmptyPageLimit)
}

func TestLoadFromFile_Errors(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site: [unclosed"), 0644))
	err = cfg.LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:    "relative base url",
			modify:  func(c *Config) { c.Site.BaseURL = "justice.gov" },
			wantErr: "absolute URL",
		},
		{
			name:    "listing template without page",
			modify:  func(c *Config) { c.Site.ListingURLTemplate = "https://x/{dataset}" },
			wantErr: "{page}",
		},
		{
			name:    "extension without dot",
			modify:  func(c *Config) { c.Site.DocumentExtension = "pdf" },
			wantErr: "document extension",
		},
		{
			name:    "negative fetch attempts",
			modify:  func(c *Config) { c.Scrape.MaxFetchAttempts = -1 },
			wantErr: "max fetch attempts",
		},
		{
			name:    "zero save interval",
			modify:  func(c *Config) { c.Scrape.SaveInterval = 0 },
			wantErr: "save interval",
		},
		{
			name:    "unknown dispatcher",
			modify:  func(c *Config) { c.Download.Dispatcher = "wget" },
			wantErr: "unknown dispatcher",
		},
		{
			name:    "too many downloads",
			modify:  func(c *Config) { c.Download.ConcurrentDownloads = 64 },
			wantErr: "concurrent downloads",
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scrape.SaveInterval = 0
	cfg.Scrape.EmptyPageLimit = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save interval")
	assert.Contains(t, err.Error(), "empty page limit")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Torrents[12] = "magnet:?xt=urn:btih:bbbb"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, cfg.Site, loaded.Site)
	assert.Equal(t, cfg.Scrape, loaded.Scrape)
	assert.Equal(t, "magnet:?xt=urn:btih:bbbb", loaded.Torrents[12])
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":             "/mnt/out",
		"concurrent":         12,
		"dispatcher":         "Aria2c",
		"max-fetch-attempts": 3,
		"delay":              2 * time.Second,
		"log-level":          "warn",
		"unknown":            true,
	})

	assert.Equal(t, "/mnt/out", cfg.Output.BaseDirectory)
	assert.Equal(t, 12, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, DispatcherAria2c, cfg.Download.Dispatcher)
	assert.Equal(t, 3, cfg.Scrape.MaxFetchAttempts)
	assert.Equal(t, 2*time.Second, cfg.Scrape.RequestDelay)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestMergeCommandLineFlags_IgnoresZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":     "",
		"concurrent": 0,
	})

	assert.Equal(t, ".", cfg.Output.BaseDirectory)
	assert.Equal(t, 5, cfg.Download.ConcurrentDownloads)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  base_directory: /from/file\ndownload:\n  concurrent_downloads: 2\n"), 0644))

	t.Setenv("EPSTEINDL_OUTPUT_DIR", "/from/env")

	cfg, err := Load(path, map[string]interface{}{"concurrent": 9})
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.Output.BaseDirectory)
	assert.Equal(t, 9, cfg.Download.ConcurrentDownloads)
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scrape:\n  save_interval: -5\n"), 0644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "********", MaskSecret("short"))
	assert.Equal(t, "just...true", MaskSecret("justiceGovAgeVerified=true"))
}
