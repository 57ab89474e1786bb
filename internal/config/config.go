package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the companion daemon
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	API     APIConfig     `mapstructure:"api"`
	Poll    PollConfig    `mapstructure:"poll"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// ServerConfig holds the local HTTP server configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// APIConfig holds the generation gateway configuration
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PollConfig holds the task poll timer configuration
type PollConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// StorageConfig holds the project document storage configuration
type StorageConfig struct {
	RootDir string `mapstructure:"root_dir"`
}

// AuthConfig holds the optional API auth configuration. An empty secret
// disables auth entirely, which is the expected mode for a localhost daemon.
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

// Load reads configuration from config file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("STORYTOVIDEO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file is optional; defaults and env vars are enough.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8090")
	viper.SetDefault("server.env", "development")

	viper.SetDefault("api.base_url", "http://127.0.0.1:8080")
	viper.SetDefault("api.timeout_seconds", 120)

	viper.SetDefault("poll.interval_seconds", 1)

	viper.SetDefault("storage.root_dir", defaultStorageRoot())

	viper.SetDefault("auth.secret", "")
}

// defaultStorageRoot places project folders under the user's Movies
// directory, falling back to the working directory when no home is known.
func defaultStorageRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "StoryToVideo")
	}
	return filepath.Join(home, "Movies", "StoryToVideo")
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
