package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the archiver
type Config struct {
	// Listing site and identity token
	Site SiteConfig `yaml:"site" json:"site"`

	// Pagination behaviour
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Output layout
	Output OutputConfig `yaml:"output" json:"output"`

	// Fetch dispatcher settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Magnet links keyed by dataset number
	Torrents map[int]string `yaml:"torrents,omitempty" json:"torrents,omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig describes the listing site
type SiteConfig struct {
	BaseURL            string        `yaml:"base_url" json:"base_url"`
	ListingURLTemplate string        `yaml:"listing_url_template" json:"listing_url_template"`
	FilePathTemplate   string        `yaml:"file_path_template" json:"file_path_template"`
	DocumentExtension  string        `yaml:"document_extension" json:"document_extension"`
	Cookie             string        `yaml:"cookie" json:"cookie"`
	UserAgent          string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout     time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// ScrapeConfig holds the scrape engine knobs
type ScrapeConfig struct {
	RequestDelay     time.Duration `yaml:"request_delay" json:"request_delay"`
	RetryDelay       time.Duration `yaml:"retry_delay" json:"retry_delay"`
	MaxFetchAttempts int           `yaml:"max_fetch_attempts" json:"max_fetch_attempts"`
	SaveInterval     int           `yaml:"save_interval" json:"save_interval"`
	EmptyPageLimit   int           `yaml:"empty_page_limit" json:"empty_page_limit"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// DownloadConfig holds fetch dispatcher configuration
type DownloadConfig struct {
	Dispatcher          string        `yaml:"dispatcher" json:"dispatcher"`
	Aria2cPath          string        `yaml:"aria2c_path" json:"aria2c_path"`
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	RequestsPerMinute   int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// Dispatcher names accepted by download.dispatcher
const (
	DispatcherAuto   = "auto"
	DispatcherAria2c = "aria2c"
	DispatcherNative = "native"
)

// DefaultCookie is the static identity token the listing site expects
const DefaultCookie = "justiceGovAgeVerified=true"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:            "https://www.justice.gov",
			ListingURLTemplate: "https://www.justice.gov/epstein/doj-disclosures/data-set-{dataset}-files?page={page}",
			FilePathTemplate:   "/epstein/files/DataSet%20{dataset}/",
			DocumentExtension:  ".pdf",
			Cookie:             DefaultCookie,
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			RequestTimeout:     30 * time.Second,
		},
		Scrape: ScrapeConfig{
			RequestDelay:     300 * time.Millisecond,
			RetryDelay:       5 * time.Second,
			MaxFetchAttempts: 0,
			SaveInterval:     100,
			EmptyPageLimit:   3,
		},
		Output: OutputConfig{
			BaseDirectory: ".",
		},
		Download: DownloadConfig{
			Dispatcher:          DispatcherAuto,
			Aria2cPath:          "aria2c",
			ConcurrentDownloads: 5,
			RequestsPerMinute:   120,
			RetryAttempts:       5,
			Timeout:             60 * time.Second,
		},
		Torrents: map[int]string{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if cookie := os.Getenv("EPSTEINDL_COOKIE"); cookie != "" {
		c.Site.Cookie = cookie
	}
	if userAgent := os.Getenv("EPSTEINDL_USER_AGENT"); userAgent != "" {
		c.Site.UserAgent = userAgent
	}
	if baseURL := os.Getenv("EPSTEINDL_BASE_URL"); baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if outputDir := os.Getenv("EPSTEINDL_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if concurrent := os.Getenv("EPSTEINDL_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if attempts := os.Getenv("EPSTEINDL_MAX_FETCH_ATTEMPTS"); attempts != "" {
		var val int
		if _, err := fmt.Sscanf(attempts, "%d", &val); err == nil && val >= 0 {
			c.Scrape.MaxFetchAttempts = val
		}
	}
	if delay := os.Getenv("EPSTEINDL_REQUEST_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return fmt.Errorf("invalid EPSTEINDL_REQUEST_DELAY: %w", err)
		}
		c.Scrape.RequestDelay = d
	}
	if dispatcher := os.Getenv("EPSTEINDL_DISPATCHER"); dispatcher != "" {
		c.Download.Dispatcher = strings.ToLower(dispatcher)
	}
	if logLevel := os.Getenv("EPSTEINDL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches the standard locations and returns the first hit
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"epsteindl.yaml",
		".epsteindl.yaml",
		".epsteindl.yml",
		filepath.Join(home, ".config", "epsteindl", "config.yaml"),
		filepath.Join(home, ".epsteindl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	base, err := url.Parse(c.Site.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		errs = append(errs, errors.New("site base URL must be an absolute URL"))
	}
	if !strings.Contains(c.Site.ListingURLTemplate, "{page}") {
		errs = append(errs, errors.New("listing URL template must contain {page}"))
	}
	if !strings.HasPrefix(c.Site.FilePathTemplate, "/") {
		errs = append(errs, errors.New("file path template must start with /"))
	}
	if !strings.HasPrefix(c.Site.DocumentExtension, ".") {
		errs = append(errs, errors.New("document extension must start with a dot"))
	}
	if c.Site.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Scrape.RequestDelay < 0 || c.Scrape.RetryDelay < 0 {
		errs = append(errs, errors.New("scrape delays cannot be negative"))
	}
	if c.Scrape.MaxFetchAttempts < 0 {
		errs = append(errs, errors.New("max fetch attempts cannot be negative"))
	}
	if c.Scrape.SaveInterval <= 0 {
		errs = append(errs, errors.New("save interval must be positive"))
	}
	if c.Scrape.EmptyPageLimit <= 0 {
		errs = append(errs, errors.New("empty page limit must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	switch c.Download.Dispatcher {
	case DispatcherAuto, DispatcherAria2c, DispatcherNative:
	default:
		errs = append(errs, fmt.Errorf("unknown dispatcher %q", c.Download.Dispatcher))
	}
	if c.Download.ConcurrentDownloads < 1 || c.Download.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads must be between 1 and 16"))
	}
	if c.Download.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		errs = append(errs, errors.New("log format must be text or json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["cookie"].(string); ok && v != "" {
		c.Site.Cookie = v
	}
	if v, ok := flags["concurrent"].(int); ok && v > 0 {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["dispatcher"].(string); ok && v != "" {
		c.Download.Dispatcher = strings.ToLower(v)
	}
	if v, ok := flags["max-fetch-attempts"].(int); ok && v >= 0 {
		c.Scrape.MaxFetchAttempts = v
	}
	if v, ok := flags["delay"].(time.Duration); ok && v >= 0 {
		c.Scrape.RequestDelay = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".epsteindl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// MaskSecret keeps the first and last four characters of a secret
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
