package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"dyscraper/pkg/browser"
	"dyscraper/pkg/config"
	"dyscraper/pkg/logger"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	headless    bool
	chromePath  string
	proxy       string
	userDataDir string
	quiet       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dyscraper",
	Short: "Resolve and harvest Douyin video links through a real browser",
	Long: `dyscraper drives a headless Chromium instance against Douyin, watches the
page's own API traffic, and turns what it sees into clean data:

  - resolve a shared video link into a watermark-free playback URL
  - harvest every video on a user profile, scrolling until the feed ends
  - serve both operations over HTTP for other tools to call

No credentials or cookies are required; everything is read from the
network responses the site already makes to render itself.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.dyscraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "run the browser without a visible window")
	rootCmd.PersistentFlags().StringVar(&chromePath, "chrome", "", "path to the Chrome/Chromium binary")
	rootCmd.PersistentFlags().StringVar(&proxy, "proxy", "", "proxy server for browser traffic")
	rootCmd.PersistentFlags().StringVar(&userDataDir, "user-data-dir", "", "browser profile directory")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`dyscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig builds the effective configuration from file, environment and
// the global flags of this invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := config.Flags{
		ChromePath:  chromePath,
		Proxy:       proxy,
		UserDataDir: userDataDir,
		LogLevel:    logLevel,
	}
	if cmd.Flags().Changed("headless") {
		flags.Headless = &headless
	}
	if quiet {
		flags.LogLevel = "error"
	}
	return config.Load(configFile, flags)
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.New(logger.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	})
}

// newSession opens a browser session with the effective browser settings.
func newSession(cfg *config.Config, log logger.Logger) (browser.Driver, error) {
	return browser.NewSession(cfg.Browser, log)
}
