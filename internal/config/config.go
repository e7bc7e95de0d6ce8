// Package config provides YAML-based configuration loading for Trailhead.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Trailhead configuration, loaded from trailhead.yaml.
type Config struct {
	Community string          `yaml:"community"`
	Database  DatabaseConfig  `yaml:"database"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Directory DirectoryConfig `yaml:"directory"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Notify    NotifyConfig    `yaml:"notify"`
	Badges    []BadgeConfig   `yaml:"badges"`
}

// DatabaseConfig selects and configures the persistent store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// DashboardConfig holds settings for the ops dashboard HTTP server.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// DirectoryConfig points at the user directory service that owns member
// levels, tags, and roles.
type DirectoryConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// WalletConfig points at the external currency wallet service.
type WalletConfig struct {
	BaseURL string `yaml:"base_url"`
}

// NotifyConfig controls the outbound notification bridge.
type NotifyConfig struct {
	Platform   string        `yaml:"platform"` // "slack", "discord", or "" to disable
	DigestCron string        `yaml:"digest_cron"`
	Slack      SlackConfig   `yaml:"slack"`
	Discord    DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack credentials for the notification bridge.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord credentials for the notification bridge.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// BadgeConfig defines a badge seeded into the catalog at init time.
type BadgeConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Color       string `yaml:"color"`
	Type        string `yaml:"type"`
	CoinsReward int    `yaml:"coins_reward"`
	LifeArea    string `yaml:"life_area"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" && c.Community != "" {
		c.Database.Path = "trailhead_" + c.Community + ".db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" && c.Community != "" {
		c.Database.Name = "trailhead_" + c.Community
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Notify.DigestCron == "" {
		c.Notify.DigestCron = "0 9 * * *"
	}
	for i := range c.Badges {
		if c.Badges[i].Type == "" {
			c.Badges[i].Type = "completion"
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Community == "" {
		errs = append(errs, "community is required")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Database.Driver == "mysql" && c.Database.Name == "" {
		errs = append(errs, "database.name is required for mysql")
	}
	switch c.Notify.Platform {
	case "", "slack", "discord":
	default:
		errs = append(errs, fmt.Sprintf("notify.platform %q is not supported (slack, discord)", c.Notify.Platform))
	}
	if c.Notify.Platform == "slack" && c.Notify.Slack.BotToken == "" {
		errs = append(errs, "notify.slack.bot_token is required when platform is slack")
	}
	if c.Notify.Platform == "discord" && c.Notify.Discord.BotToken == "" {
		errs = append(errs, "notify.discord.bot_token is required when platform is discord")
	}
	for i, b := range c.Badges {
		if b.ID == "" {
			errs = append(errs, fmt.Sprintf("badges[%d].id is required", i))
		}
		if b.Name == "" {
			errs = append(errs, fmt.Sprintf("badges[%d].name is required", i))
		}
		if b.CoinsReward < 0 {
			errs = append(errs, fmt.Sprintf("badges[%d].coins_reward must not be negative", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
