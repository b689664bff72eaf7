// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port         int `mapstructure:"port"`
	PollInterval int `mapstructure:"poll_interval"` // snapshot poll cadence in seconds
	Coordinator  struct {
		URL   string `mapstructure:"url"`    // HTTP base URL of the coordinator
		WSURL string `mapstructure:"ws_url"` // push channel; derived from url when empty
		Token string `mapstructure:"token"`  // bearer credential for both channels
	} `mapstructure:"coordinator"`
	Reconnect struct {
		BaseMs      int `mapstructure:"base_ms"`
		CapMs       int `mapstructure:"cap_ms"`
		MaxAttempts int `mapstructure:"max_attempts"`
	} `mapstructure:"reconnect"`
	Auth struct {
		APIToken string `mapstructure:"api_token"` // protects the local API; empty disables the check
	} `mapstructure:"auth"`
	Ensemble struct {
		Models []string `mapstructure:"models"`
	} `mapstructure:"ensemble"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "WILDTRACE_"
	// prefix. e.g., WILDTRACE_COORDINATOR_TOKEN overrides `coordinator.token`.
	viper.SetEnvPrefix("WILDTRACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("poll_interval", 5)
	viper.SetDefault("coordinator.url", "http://localhost:9000")
	viper.SetDefault("coordinator.ws_url", "")
	viper.SetDefault("coordinator.token", "")
	viper.SetDefault("reconnect.base_ms", 1000)
	viper.SetDefault("reconnect.cap_ms", 30000)
	viper.SetDefault("reconnect.max_attempts", 5)
	viper.SetDefault("auth.api_token", "")
	viper.SetDefault("ensemble.models", []string{})

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
