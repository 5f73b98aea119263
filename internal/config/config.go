package config

import (
	"fmt"
	"os"

	"sentiment-service/internal/llm"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"` // SQLite path
	} `yaml:"database"`

	// Ordered provider escalation list. Empty means rule-based only.
	Providers []llm.ProviderConfig `yaml:"providers"`

	Analysis struct {
		// BatchSize is the number of rows processed per advance call.
		BatchSize int `yaml:"batch_size"`
		// CooldownMs is the delay after a rate-limited provider failure
		// before the next provider is tried.
		CooldownMs int `yaml:"cooldown_ms"`
		// TextTruncateLen caps the characters sent to a provider.
		TextTruncateLen int `yaml:"text_truncate_len"`
		// ClaimLeaseSeconds is how long a claimed row stays reserved before
		// it becomes selectable again.
		ClaimLeaseSeconds int `yaml:"claim_lease_seconds"`
	} `yaml:"analysis"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	// Expand environment variables in provider API keys
	for i := range config.Providers {
		config.Providers[i].APIKey = os.ExpandEnv(config.Providers[i].APIKey)
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/feedback.db"
	}
	if c.Analysis.BatchSize == 0 {
		c.Analysis.BatchSize = 10
	}
	if c.Analysis.CooldownMs == 0 {
		c.Analysis.CooldownMs = 1500
	}
	if c.Analysis.TextTruncateLen == 0 {
		c.Analysis.TextTruncateLen = 500
	}
	if c.Analysis.ClaimLeaseSeconds == 0 {
		c.Analysis.ClaimLeaseSeconds = 120
	}
}
