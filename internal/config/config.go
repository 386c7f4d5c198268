package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// ErrInvalid marks configuration validation failures.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Topic      string     `yaml:"topic"`
	Classifier Classifier `yaml:"classifier"`
	Feeds      []Feed     `yaml:"feeds"`
	Collect    Collect    `yaml:"collect"`
	Storage    Storage    `yaml:"storage"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Schedule   Schedule   `yaml:"schedule"`
}

type Classifier struct {
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	Temperature       float64 `yaml:"temperature"`
	BatchSize         int     `yaml:"batch_size"`
	MaxContentChars   int     `yaml:"max_content_chars"`
	BatchDelaySeconds int     `yaml:"batch_delay_seconds"`
	Retry             Retry   `yaml:"retry"`
}

type Retry struct {
	MaxAttempts      int `yaml:"max_attempts"`
	BaseDelaySeconds int `yaml:"base_delay_seconds"`
	MaxDelaySeconds  int `yaml:"max_delay_seconds"`
}

type Feed struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type Collect struct {
	DaysBack   int `yaml:"days_back"`
	MaxPerFeed int `yaml:"max_per_feed"`
}

type Storage struct {
	Path string `yaml:"path"`
}

type Output struct {
	Dir string `yaml:"dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Schedule struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

// ConfigDir returns the XDG config directory for newssift.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newssift")
}

// DataDir returns the XDG data directory for newssift.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newssift")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newssift/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newssift init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults. Environment
// variable references in the API key are expanded.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Topic: "Artificial Intelligence",
		Classifier: Classifier{
			Model:           "gpt-4.1-mini",
			Temperature:     0.2,
			BatchSize:       5,
			MaxContentChars: 4000,
			Retry: Retry{
				MaxAttempts:      3,
				BaseDelaySeconds: 4,
				MaxDelaySeconds:  10,
			},
		},
		Collect: Collect{
			DaysBack:   1,
			MaxPerFeed: 20,
		},
		Server: Server{Port: 8000},
		Schedule: Schedule{
			Cron:     "0 7 * * *",
			Timezone: "Europe/Paris",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Classifier.APIKey = os.ExpandEnv(cfg.Classifier.APIKey)

	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("%w: topic must not be empty", ErrInvalid)
	}
	if c.Classifier.BatchSize <= 0 {
		return fmt.Errorf("%w: classifier.batch_size must be positive", ErrInvalid)
	}
	if c.Classifier.MaxContentChars <= 0 {
		return fmt.Errorf("%w: classifier.max_content_chars must be positive", ErrInvalid)
	}
	if c.Classifier.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("%w: classifier.retry.max_attempts must be positive", ErrInvalid)
	}
	if c.Collect.DaysBack <= 0 {
		return fmt.Errorf("%w: collect.days_back must be positive", ErrInvalid)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535", ErrInvalid)
	}
	return nil
}

// StoragePath returns the effective SQLite path from config or XDG default.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(DataDir(), "newssift.db")
}

// OutputDir returns the directory for JSON exports.
func (c *Config) OutputDir() string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return "output"
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
