package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dyscraper/pkg/douyin"
)

// Config holds all configuration for the scraper.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser" json:"browser"`
	Douyin    DouyinConfig    `yaml:"douyin" json:"douyin"`
	Harvest   HarvestConfig   `yaml:"harvest" json:"harvest"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// BrowserConfig controls the Chromium session the driver launches.
type BrowserConfig struct {
	Headless    bool          `yaml:"headless" json:"headless"`
	BinPath     string        `yaml:"bin_path" json:"bin_path"`
	Proxy       string        `yaml:"proxy" json:"proxy"`
	UserDataDir string        `yaml:"user_data_dir" json:"user_data_dir"`
	NavTimeout  time.Duration `yaml:"nav_timeout" json:"nav_timeout"`
}

// DouyinConfig holds the upstream site contract. The endpoint patterns
// are substrings matched against observed request URLs; the site can
// change them without notice, so they stay configurable.
type DouyinConfig struct {
	BaseURL          string `yaml:"base_url" json:"base_url"`
	DetailEndpoint   string `yaml:"detail_endpoint" json:"detail_endpoint"`
	FeedEndpoint     string `yaml:"feed_endpoint" json:"feed_endpoint"`
	EndMarkerText    string `yaml:"end_marker_text" json:"end_marker_text"`
	ScrollAnchorPath string `yaml:"scroll_anchor_xpath" json:"scroll_anchor_xpath"`
}

// HarvestConfig bounds the pagination loop.
type HarvestConfig struct {
	CaptureTimeout  time.Duration `yaml:"capture_timeout" json:"capture_timeout"`
	ResolveTimeout  time.Duration `yaml:"resolve_timeout" json:"resolve_timeout"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout" json:"probe_timeout"`
	MaxResponses    int           `yaml:"max_responses_per_round" json:"max_responses_per_round"`
	MaxRounds       int           `yaml:"max_rounds" json:"max_rounds"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// RateLimitConfig paces inbound scrape requests.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Default returns a Config with working defaults for douyin.com.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:   true,
			NavTimeout: 30 * time.Second,
		},
		Douyin: DouyinConfig{
			BaseURL:          douyin.BaseURL,
			DetailEndpoint:   douyin.DetailEndpoint,
			FeedEndpoint:     douyin.FeedEndpoint,
			EndMarkerText:    "暂时没有更多了",
			ScrollAnchorPath: `//footer[@class="user-page-footer"]/div[1]`,
		},
		Harvest: HarvestConfig{
			CaptureTimeout: 10 * time.Second,
			ResolveTimeout: 15 * time.Second,
			ProbeTimeout:   time.Second,
			MaxResponses:   9999,
			MaxRounds:      100,
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile merges a YAML file into the config. An empty path searches
// the standard locations; a missing file is not an error in that case.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func findConfigFile() string {
	locations := []string{
		".dyscraper.yaml",
		".dyscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "dyscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".dyscraper.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// LoadFromEnv overrides config values from DYSCRAPER_* environment
// variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("DYSCRAPER_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("DYSCRAPER_CHROME_PATH"); v != "" {
		c.Browser.BinPath = v
	}
	if v := os.Getenv("DYSCRAPER_PROXY"); v != "" {
		c.Browser.Proxy = v
	}
	if v := os.Getenv("DYSCRAPER_USER_DATA_DIR"); v != "" {
		c.Browser.UserDataDir = v
	}
	if v := os.Getenv("DYSCRAPER_DETAIL_ENDPOINT"); v != "" {
		c.Douyin.DetailEndpoint = v
	}
	if v := os.Getenv("DYSCRAPER_FEED_ENDPOINT"); v != "" {
		c.Douyin.FeedEndpoint = v
	}
	if v := os.Getenv("DYSCRAPER_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DYSCRAPER_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Harvest.MaxRounds = n
		}
	}
	if v := os.Getenv("DYSCRAPER_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("DYSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Flags carries command-line overrides with the highest precedence.
type Flags struct {
	Headless    *bool
	ChromePath  string
	Proxy       string
	UserDataDir string
	ServerAddr  string
	LogLevel    string
}

// Merge applies the flag overrides.
func (c *Config) Merge(f Flags) {
	if f.Headless != nil {
		c.Browser.Headless = *f.Headless
	}
	if f.ChromePath != "" {
		c.Browser.BinPath = f.ChromePath
	}
	if f.Proxy != "" {
		c.Browser.Proxy = f.Proxy
	}
	if f.UserDataDir != "" {
		c.Browser.UserDataDir = f.UserDataDir
	}
	if f.ServerAddr != "" {
		c.Server.Addr = f.ServerAddr
	}
	if f.LogLevel != "" {
		c.Logging.Level = f.LogLevel
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Douyin.BaseURL == "" {
		errs = append(errs, errors.New("douyin base URL is required"))
	}
	if c.Douyin.DetailEndpoint == "" {
		errs = append(errs, errors.New("detail endpoint pattern is required"))
	}
	if c.Douyin.FeedEndpoint == "" {
		errs = append(errs, errors.New("feed endpoint pattern is required"))
	}
	if c.Douyin.ScrollAnchorPath == "" {
		errs = append(errs, errors.New("scroll anchor xpath is required"))
	}
	if c.Harvest.CaptureTimeout <= 0 {
		errs = append(errs, errors.New("capture timeout must be positive"))
	}
	if c.Harvest.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("resolve timeout must be positive"))
	}
	if c.Harvest.MaxResponses <= 0 {
		errs = append(errs, errors.New("max responses per round must be positive"))
	}
	if c.Harvest.MaxRounds <= 0 {
		errs = append(errs, errors.New("max rounds must be positive"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Load builds the effective configuration with precedence
// flags > env > .env file > config file > defaults.
func Load(configPath string, flags Flags) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".dyscraper.env"))

	cfg := Default()
	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()
	cfg.Merge(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
