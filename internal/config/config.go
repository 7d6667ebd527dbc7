// Package config loads the tracker configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tracker/internal/logger"
)

// Config represents the application configuration.
type Config struct {
	App        AppConfig      `yaml:"app"`
	Database   DatabaseConfig `yaml:"database"`
	Exchange   ExchangeConfig `yaml:"exchange"`
	Providers  ProviderConfig `yaml:"providers"`
	Logging    logger.Config  `yaml:"logging"`
	Monitoring Monitoring     `yaml:"monitoring"`
}

// AppConfig represents application identity configuration.
type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

// DatabaseConfig represents Postgres connection configuration. Duration
// fields hold their YAML form, e.g. "5s"; the parsed values are filled in
// by Load.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpen         int           `yaml:"max_open"`
	MaxIdle         int           `yaml:"max_idle"`
	TimeoutRaw      string        `yaml:"timeout"`
	ConnMaxLifeRaw  string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleRaw  string        `yaml:"conn_max_idle_time"`
	Timeout         time.Duration `yaml:"-"`
	ConnMaxLifetime time.Duration `yaml:"-"`
	ConnMaxIdleTime time.Duration `yaml:"-"`
}

// ExchangeConfig represents the fetch engine's exchange-facing settings.
type ExchangeConfig struct {
	// PollIntervalRaw is the YAML form, e.g. "30s"; PollInterval is the
	// parsed sleep between successful fetch cycles of one
	// (account, campaign) loop.
	PollIntervalRaw string        `yaml:"poll_interval"`
	PollInterval    time.Duration `yaml:"-"`
	// Limits maps exchange name to the page size requested per call.
	Limits map[string]int `yaml:"limits"`
	// Pagination maps exchange name to a pagination strategy name;
	// exchanges without an entry use the by-timestamp strategy.
	Pagination map[string]string `yaml:"pagination"`
	TestNet    bool              `yaml:"testnet"`
}

// ProviderConfig represents the account and campaign provider settings.
type ProviderConfig struct {
	AccountsFile  string `yaml:"accounts_file"`
	CampaignsFile string `yaml:"campaigns_file"`
	// AccountRefresh and CampaignRefresh are cron specs for the periodic
	// provider reloads.
	AccountRefresh  string `yaml:"account_refresh"`
	CampaignRefresh string `yaml:"campaign_refresh"`
}

// Monitoring represents the status/metrics HTTP server settings.
type Monitoring struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads a YAML config file, applies defaults and environment
// variable overrides, and validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{Logging: logger.DefaultConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDurations resolves the string duration fields YAML cannot decode
// directly.
func (c *Config) parseDurations() error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"exchange.poll_interval", c.Exchange.PollIntervalRaw, &c.Exchange.PollInterval},
		{"database.timeout", c.Database.TimeoutRaw, &c.Database.Timeout},
		{"database.conn_max_lifetime", c.Database.ConnMaxLifeRaw, &c.Database.ConnMaxLifetime},
		{"database.conn_max_idle_time", c.Database.ConnMaxIdleRaw, &c.Database.ConnMaxIdleTime},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tracker"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Exchange.PollInterval <= 0 {
		c.Exchange.PollInterval = time.Minute
	}
	if c.Providers.AccountRefresh == "" {
		c.Providers.AccountRefresh = "@every 1h"
	}
	if c.Providers.CampaignRefresh == "" {
		c.Providers.CampaignRefresh = "@every 10m"
	}
	if c.Monitoring.Addr == "" {
		c.Monitoring.Addr = ":9180"
	}
}

// applyEnv overrides selected fields from TRACKER_* environment
// variables so credentials can stay out of the config file.
func (c *Config) applyEnv() {
	c.Database.Host = envString("TRACKER_DB_HOST", c.Database.Host)
	c.Database.Port = envInt("TRACKER_DB_PORT", c.Database.Port)
	c.Database.User = envString("TRACKER_DB_USER", c.Database.User)
	c.Database.Password = envString("TRACKER_DB_PASSWORD", c.Database.Password)
	c.Database.DBName = envString("TRACKER_DB_NAME", c.Database.DBName)
	c.Database.SSLMode = envString("TRACKER_DB_SSLMODE", c.Database.SSLMode)
	c.Providers.AccountsFile = envString("TRACKER_ACCOUNTS_FILE", c.Providers.AccountsFile)
	c.Providers.CampaignsFile = envString("TRACKER_CAMPAIGNS_FILE", c.Providers.CampaignsFile)
	c.Logging.Level = envString("TRACKER_LOG_LEVEL", c.Logging.Level)
}

// Validate checks the fields the engine cannot run without.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.dbname is required")
	}
	if c.Providers.AccountsFile == "" {
		return fmt.Errorf("config: providers.accounts_file is required")
	}
	if c.Providers.CampaignsFile == "" {
		return fmt.Errorf("config: providers.campaigns_file is required")
	}
	for name, limit := range c.Exchange.Limits {
		if limit <= 0 {
			return fmt.Errorf("config: exchange.limits[%s] must be positive", name)
		}
	}
	return nil
}

// PageLimit returns the configured page size for an exchange, with a
// conservative default for exchanges that have none.
func (c *ExchangeConfig) PageLimit(exchangeName string) int {
	if limit, ok := c.Limits[exchangeName]; ok {
		return limit
	}
	return 100
}

// PaginationMethod returns the configured strategy name for an exchange.
// An empty string means the caller's default.
func (c *ExchangeConfig) PaginationMethod(exchangeName string) string {
	return c.Pagination[exchangeName]
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
