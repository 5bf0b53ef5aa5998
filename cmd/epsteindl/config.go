package main

import (
	"fmt"
	"os"

	"epsteindl/pkg/config"
	"epsteindl/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage epsteindl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (EPSTEINDL_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'epsteindl.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

The identity cookie is masked.`,
	Run: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# epsteindl configuration file
#
# Every option can also be set with an environment variable prefixed with
# EPSTEINDL_, for example EPSTEINDL_COOKIE or EPSTEINDL_OUTPUT_DIR.

# Listing site
site:
  base_url: "https://www.justice.gov"

  # {dataset} and {page} are substituted for every listing request
  listing_url_template: "https://www.justice.gov/epstein/doj-disclosures/data-set-{dataset}-files?page={page}"

  # Only links whose path contains this are indexed
  file_path_template: "/epstein/files/DataSet%20{dataset}/"
  document_extension: ".pdf"

  # Identity cookie sent with every request. Can also be kept out of this
  # file with 'epsteindl auth set'.
  cookie: "justiceGovAgeVerified=true"
  user_agent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
  request_timeout: 30s

# Pagination
scrape:
  # Pause between listing pages
  request_delay: 300ms

  # Pause before refetching a page that failed
  retry_delay: 5s

  # Attempts per page before giving up, 0 retries forever
  max_fetch_attempts: 0

  # Save the index every N pages
  save_interval: 100

  # Consecutive empty pages that end the listing
  empty_page_limit: 3

output:
  base_directory: "."

download:
  # auto uses aria2c when installed and the built-in downloader otherwise
  dispatcher: "auto"
  aria2c_path: "aria2c"
  concurrent_downloads: 5

  # Built-in downloader only
  requests_per_minute: 120
  retry_attempts: 5
  timeout: 60s

# Magnet links by dataset number. Public trackers are appended.
torrents: {}
#  9: "magnet:?xt=urn:btih:..."

logging:
  # debug, info, warn, error
  level: "info"

  # text or json
  format: "text"

  # Optional log file, always written as JSON lines
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "epsteindl.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		fail("Failed to create configuration file", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file, adding torrent magnets if you have them")
	fmt.Println("2. Run 'epsteindl config validate' to check the configuration")
	fmt.Println("3. Start with 'epsteindl list' or 'epsteindl download --torrents'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fail("Failed to load configuration", err)
	}

	displayCfg := *cfg
	if displayCfg.Site.Cookie != "" {
		displayCfg.Site.Cookie = config.MaskSecret(displayCfg.Site.Cookie)
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		fail("Failed to format configuration", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (EPSTEINDL_*)")
	fmt.Println("3. .env files")
	if source != "" {
		fmt.Printf("4. Configuration file: %s\n", source)
	} else {
		fmt.Println("4. Configuration file: (none found)")
	}
	fmt.Println("5. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		ui.PrintError("No configuration file found", "Specify a file with --config flag")
		os.Exit(1)
	}

	ui.PrintInfo("Validating configuration", path)

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		fail("Failed to parse configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("Configuration is invalid", err)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Output directory", cfg.Output.BaseDirectory)
	ui.PrintInfo("Dispatcher", cfg.Download.Dispatcher)
	ui.PrintInfo("Torrents configured", fmt.Sprint(len(cfg.Torrents)))
}
