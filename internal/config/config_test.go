package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Topic != "Artificial Intelligence" {
		t.Errorf("expected default topic, got %q", cfg.Topic)
	}
	if len(cfg.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if cfg.Classifier.Model != "gpt-4.1-mini" {
		t.Errorf("expected model 'gpt-4.1-mini', got %q", cfg.Classifier.Model)
	}
	if cfg.Classifier.BatchSize != 5 {
		t.Errorf("expected batch_size 5, got %d", cfg.Classifier.BatchSize)
	}
	if cfg.Classifier.Retry.MaxAttempts != 3 {
		t.Errorf("expected max_attempts 3, got %d", cfg.Classifier.Retry.MaxAttempts)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Schedule.Cron != "0 7 * * *" {
		t.Errorf("expected default cron, got %q", cfg.Schedule.Cron)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate: %v", err)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
topic: Économie
classifier:
  batch_size: 10
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Topic != "Économie" {
		t.Errorf("expected topic 'Économie', got %q", cfg.Topic)
	}
	if cfg.Classifier.BatchSize != 10 {
		t.Errorf("expected batch_size 10, got %d", cfg.Classifier.BatchSize)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Classifier.Model != "gpt-4.1-mini" {
		t.Errorf("expected default model, got %q", cfg.Classifier.Model)
	}
	if cfg.Classifier.Retry.BaseDelaySeconds != 4 {
		t.Errorf("expected default base delay, got %d", cfg.Classifier.Retry.BaseDelaySeconds)
	}
	if cfg.Collect.MaxPerFeed != 20 {
		t.Errorf("expected default max_per_feed, got %d", cfg.Collect.MaxPerFeed)
	}
}

func TestParseExpandsAPIKeyEnv(t *testing.T) {
	t.Setenv("NEWSSIFT_TEST_KEY", "sk-test-123")
	cfg, err := parse([]byte("classifier:\n  api_key: ${NEWSSIFT_TEST_KEY}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Classifier.APIKey != "sk-test-123" {
		t.Errorf("expected expanded key, got %q", cfg.Classifier.APIKey)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty topic", func(c *Config) { c.Topic = "   " }},
		{"zero batch size", func(c *Config) { c.Classifier.BatchSize = 0 }},
		{"negative batch size", func(c *Config) { c.Classifier.BatchSize = -1 }},
		{"zero max content", func(c *Config) { c.Classifier.MaxContentChars = 0 }},
		{"zero attempts", func(c *Config) { c.Classifier.Retry.MaxAttempts = 0 }},
		{"zero days back", func(c *Config) { c.Collect.DaysBack = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := parse(DefaultConfigYAML)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestStoragePath(t *testing.T) {
	cfg := &Config{}
	if cfg.StoragePath() == "" {
		t.Error("expected non-empty default storage path")
	}

	cfg.Storage.Path = "/custom/news.db"
	if cfg.StoragePath() != "/custom/news.db" {
		t.Errorf("expected '/custom/news.db', got %q", cfg.StoragePath())
	}
}

func TestOutputDir(t *testing.T) {
	cfg := &Config{}
	if cfg.OutputDir() != "output" {
		t.Errorf("expected default 'output', got %q", cfg.OutputDir())
	}

	cfg.Output.Dir = "/tmp/exports"
	if cfg.OutputDir() != "/tmp/exports" {
		t.Errorf("expected '/tmp/exports', got %q", cfg.OutputDir())
	}
}
