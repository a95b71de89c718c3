// Package config loads the configuration of the dstr binaries.
package config

import (
	"errors"
	"fmt"

	"github.com/lovromazgon/dstr"
	"github.com/lovromazgon/dstr/adapter"
	"github.com/spf13/viper"
)

type Config struct {
	// Adapter defaults.
	Precision int    `mapstructure:"precision"`
	Mode      int    `mapstructure:"mode"`
	MaxTokens int    `mapstructure:"max_tokens"`
	LogLevel  string `mapstructure:"log_level"`

	// PluginPath is the Wasm plugin used by "dstr plugin".
	PluginPath            string `mapstructure:"plugin_path"`
	MaxConcurrentRequests int    `mapstructure:"max_concurrent_requests"`

	ListenAddress string `mapstructure:"listen_address"`

	// ConfigFile is the file the configuration was read from, empty if none
	// was found.
	ConfigFile string `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		Precision:             dstr.DefaultPrecision,
		Mode:                  int(adapter.Normal),
		MaxTokens:             adapter.DefaultMaxTokens,
		LogLevel:              "info",
		PluginPath:            "dstr-plugin.wasm",
		MaxConcurrentRequests: 2,
		ListenAddress:         ":7780",
	}
}

// Load reads the configuration from the given file, or from dstr.yaml in the
// working directory, $HOME/.dstr or /etc/dstr if file is empty. Environment
// variables prefixed with DSTR_ override the file, overrides override both.
func Load(file string, overrides map[string]any) (Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	v.SetDefault("precision", cfg.Precision)
	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("max_tokens", cfg.MaxTokens)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("plugin_path", cfg.PluginPath)
	v.SetDefault("max_concurrent_requests", cfg.MaxConcurrentRequests)
	v.SetDefault("listen_address", cfg.ListenAddress)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("dstr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.dstr")
		v.AddConfigPath("/etc/dstr")
	}
	v.SetEnvPrefix("DSTR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be clamped.
func (c Config) Validate() error {
	if c.MaxConcurrentRequests < 1 {
		return fmt.Errorf("max_concurrent_requests must be at least 1, got %d", c.MaxConcurrentRequests)
	}
	return nil
}

// Adapter returns the adapter configuration the config describes.
func (c Config) Adapter() adapter.Config {
	return adapter.Config{
		Mode:      adapter.Mode(c.Mode),
		Precision: c.Precision,
		MaxTokens: c.MaxTokens,
	}
}
