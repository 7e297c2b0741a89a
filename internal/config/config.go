// Package config loads tagmgr settings from an optional config file and
// TAGMGR_* environment variables.
//
//	serial: true
//	immediate_errors: false
//	journal: tagmgr.db
//	log_level: debug
//	format: json
//	page:
//	  url: https://shop.example.com/
//	  cookies: "consent=yes"
//
// Environment variables use the key path with dots replaced by
// underscores: TAGMGR_PAGE_URL, TAGMGR_LOG_LEVEL. Command-line flags
// override both.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "TAGMGR"

// Config is the merged configuration.
type Config struct {
	Serial          bool   `mapstructure:"serial"`
	ImmediateErrors bool   `mapstructure:"immediate_errors"`
	Journal         string `mapstructure:"journal"`
	LogLevel        string `mapstructure:"log_level"`
	Format          string `mapstructure:"format"`

	// Page holds defaults for manifest page fields left empty.
	Page struct {
		URL     string `mapstructure:"url"`
		Cookies string `mapstructure:"cookies"`
		Now     string `mapstructure:"now"`
	} `mapstructure:"page"`
}

// Load reads configuration. An explicit path must exist; with an empty
// path, tagmgr.{yaml,json,toml} is searched in . and ./configs and a
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("tagmgr")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Every key needs a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("serial", false)
	v.SetDefault("immediate_errors", false)
	v.SetDefault("journal", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("format", "text")
	v.SetDefault("page.url", "")
	v.SetDefault("page.cookies", "")
	v.SetDefault("page.now", "")
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q (want text or json)", c.Format)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
