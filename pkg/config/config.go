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
)

// Config holds all configuration for the scraping gateway.
type Config struct {
	Paths    PathsConfig    `yaml:"paths" json:"paths"`
	Dispatch DispatchConfig `yaml:"dispatch" json:"dispatch"`
	Health   HealthConfig   `yaml:"health" json:"health"`
	Timeouts TimeoutsConfig `yaml:"timeouts" json:"timeouts"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Admin    AdminConfig    `yaml:"admin" json:"admin"`
	Reload   ReloadConfig   `yaml:"reload" json:"reload"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// PathsConfig holds the flat-file locations the gateway reads its population from.
type PathsConfig struct {
	AccountsTxt string `yaml:"accounts_txt" json:"accounts_txt"`
	ProxiesTxt  string `yaml:"proxies_txt" json:"proxies_txt"`
	CookiesJSON string `yaml:"cookies_json" json:"cookies_json"`
	GeoIPDB     string `yaml:"geoip_db" json:"geoip_db"`
}

// DispatchConfig holds the scheduler's bounds.
type DispatchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
	MaxQueueSize   int `yaml:"max_queue_size" json:"max_queue_size"`
	MaxRetries     int `yaml:"max_retries" json:"max_retries"`
}

// HealthConfig holds account-health tuning knobs.
type HealthConfig struct {
	CooldownWindow       time.Duration `yaml:"cooldown_window" json:"cooldown_window"`
	RateWindow           time.Duration `yaml:"rate_window" json:"rate_window"`
	MaxRequestsPerWindow int           `yaml:"max_requests_per_window" json:"max_requests_per_window"`
	MaxConsecutiveFails  int           `yaml:"max_consecutive_failures" json:"max_consecutive_failures"`
	SweepInterval        time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// TimeoutsConfig holds the per-operation-class deadlines.
type TimeoutsConfig struct {
	Login   time.Duration `yaml:"login" json:"login"`
	Search  time.Duration `yaml:"search" json:"search"`
	Profile time.Duration `yaml:"profile" json:"profile"`
	Tweet   time.Duration `yaml:"tweet" json:"tweet"`
	Default time.Duration `yaml:"default" json:"default"`
	Verify  time.Duration `yaml:"verify" json:"verify"`
}

// HTTPConfig holds the REST surface's listen settings.
type HTTPConfig struct {
	ListenAddr  string   `yaml:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
}

// AdminConfig holds the operator-token requirement for protected routes.
type AdminConfig struct {
	Token string `yaml:"token" json:"token"`
}

// ReloadConfig holds the cron-driven flat-file reload settings.
type ReloadConfig struct {
	Cron    string `yaml:"cron" json:"cron"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with the defaults from the gateway's external-interface contract.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			AccountsTxt: "twitters.txt",
			ProxiesTxt:  "proxies.txt",
			CookiesJSON: "cookies.json",
		},
		Dispatch: DispatchConfig{
			MaxConcurrency: 10,
			MaxQueueSize:   1000,
			MaxRetries:     3,
		},
		Health: HealthConfig{
			CooldownWindow:       2 * time.Minute,
			RateWindow:           15 * time.Minute,
			MaxRequestsPerWindow: 50,
			MaxConsecutiveFails:  10,
			SweepInterval:        2 * time.Minute,
		},
		Timeouts: TimeoutsConfig{
			Login:   45 * time.Second,
			Search:  60 * time.Second,
			Profile: 30 * time.Second,
			Tweet:   35 * time.Second,
			Default: 30 * time.Second,
			Verify:  15 * time.Second,
		},
		HTTP: HTTPConfig{
			ListenAddr: ":8080",
		},
		Reload: ReloadConfig{
			Cron:    "*/5 * * * *",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables, per §6 of the external
// interface contract plus the ambient additions in SPEC_FULL.md.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Dispatch.MaxConcurrency = n
		}
	}
	if v := os.Getenv("MAX_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Dispatch.MaxQueueSize = n
		}
	}
	if v := os.Getenv("TIMEOUT_LOGIN"); v != "" {
		setMillisDuration(&c.Timeouts.Login, v)
	}
	if v := os.Getenv("TIMEOUT_SEARCH"); v != "" {
		setMillisDuration(&c.Timeouts.Search, v)
	}
	if v := os.Getenv("TIMEOUT_PROFILE"); v != "" {
		setMillisDuration(&c.Timeouts.Profile, v)
	}
	if v := os.Getenv("TIMEOUT_TWEET"); v != "" {
		setMillisDuration(&c.Timeouts.Tweet, v)
	}
	if v := os.Getenv("TIMEOUT_DEFAULT"); v != "" {
		setMillisDuration(&c.Timeouts.Default, v)
	}
	if v := os.Getenv("ACCOUNTS_TXT_PATH"); v != "" {
		c.Paths.AccountsTxt = v
	}
	if v := os.Getenv("PROXIES_TXT_PATH"); v != "" {
		c.Paths.ProxiesTxt = v
	}
	if v := os.Getenv("COOKIES_JSON_PATH"); v != "" {
		c.Paths.CookiesJSON = v
	}
	if v := os.Getenv("GEOIP_DB_PATH"); v != "" {
		c.Paths.GeoIPDB = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("RELOAD_CRON"); v != "" {
		c.Reload.Cron = v
	}
	if v := os.Getenv("HTTP_LISTEN_ADDR"); v != "" {
		c.HTTP.ListenAddr = v
	}
	return nil
}

func setMillisDuration(dst *time.Duration, raw string) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return
	}
	*dst = time.Duration(n) * time.Millisecond
}

// LoadFromFile loads configuration from a YAML file. An empty path searches default locations.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
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

func (c *Config) findConfigFile() string {
	locations := []string{
		".scrapegate.yaml",
		".scrapegate.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "scrapegate", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "scrapegate", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Dispatch.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("max concurrency must be positive"))
	}
	if c.Dispatch.MaxQueueSize <= 0 {
		errs = append(errs, errors.New("max queue size must be positive"))
	}
	if c.Dispatch.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Health.MaxRequestsPerWindow <= 0 {
		errs = append(errs, errors.New("max requests per window must be positive"))
	}
	if c.Health.MaxConsecutiveFails <= 0 {
		errs = append(errs, errors.New("max consecutive failures must be positive"))
	}
	if c.Paths.AccountsTxt == "" {
		errs = append(errs, errors.New("accounts file path is required"))
	}
	if c.Paths.ProxiesTxt == "" {
		errs = append(errs, errors.New("proxies file path is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
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
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges CLI flag overrides into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if accounts, ok := flags["accounts"].(string); ok && accounts != "" {
		c.Paths.AccountsTxt = accounts
	}
	if proxies, ok := flags["proxies"].(string); ok && proxies != "" {
		c.Paths.ProxiesTxt = proxies
	}
	if cookies, ok := flags["cookies"].(string); ok && cookies != "" {
		c.Paths.CookiesJSON = cookies
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Dispatch.MaxConcurrency = concurrency
	}
	if addr, ok := flags["listen"].(string); ok && addr != "" {
		c.HTTP.ListenAddr = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with precedence:
// command line flags > environment variables > .env file > YAML config file > defaults.
// configPath, when empty, falls back to the CONFIG_FILE environment variable
// before findConfigFile's default search locations are tried.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))

	cfg := DefaultConfig()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_FILE")
	}

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
