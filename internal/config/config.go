package config

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// LLMProviderAnthropic uses an Anthropic messages compatible API.
	LLMProviderAnthropic = "anthropic"
	// LLMProviderFake uses a local fake model, for development.
	LLMProviderFake = "fake"
)

// Config is the planner service configuration.
type Config struct {
	Server  Server  `yaml:"server"`
	LLM     LLM     `yaml:"llm"`
	Jobs    Jobs    `yaml:"jobs"`
	Storage Storage `yaml:"storage"`
}

// Server is the HTTP API configuration.
type Server struct {
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LLM is the completion service configuration.
type LLM struct {
	Provider          string  `yaml:"provider"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxOutputTokens   int     `yaml:"max_output_tokens"`
}

// Jobs is the plan generation jobs configuration.
type Jobs struct {
	Timeout           time.Duration `yaml:"timeout"`
	GracePeriod       time.Duration `yaml:"grace_period"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
}

// Storage is the persistence configuration.
type Storage struct {
	Disabled bool   `yaml:"disabled"`
	DBPath   string `yaml:"db_path"`
}

// Default returns the default configuration.
func Default() Config {
	c := Config{}
	_ = c.defaults()
	return c
}

func (c *Config) defaults() error {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8000"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = LLMProviderAnthropic
	}
	if c.LLM.Provider != LLMProviderAnthropic && c.LLM.Provider != LLMProviderFake {
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.minimax.io/anthropic"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "MiniMax-M2.5"
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("llm requests per second can't be negative")
	}
	if c.LLM.MaxOutputTokens == 0 {
		c.LLM.MaxOutputTokens = 4000
	}
	if c.LLM.MaxOutputTokens < 0 {
		return fmt.Errorf("llm max output tokens can't be negative")
	}

	if c.Jobs.Timeout == 0 {
		c.Jobs.Timeout = 5 * time.Minute
	}
	if c.Jobs.GracePeriod == 0 {
		c.Jobs.GracePeriod = time.Second
	}
	if c.Jobs.KeepaliveInterval == 0 {
		c.Jobs.KeepaliveInterval = 30 * time.Second
	}
	if c.Jobs.Timeout < 0 || c.Jobs.GracePeriod < 0 || c.Jobs.KeepaliveInterval < 0 {
		return fmt.Errorf("job durations can't be negative")
	}

	return nil
}

// Validate fills the missing values with defaults and validates the configuration.
func (c *Config) Validate() error {
	return c.defaults()
}

// YAMLRepository loads the configuration from YAML files.
type YAMLRepository struct {
	fs fs.FS
}

// NewYAMLRepository creates a new YAML config repository.
func NewYAMLRepository(filesystem fs.FS) *YAMLRepository {
	return &YAMLRepository{fs: filesystem}
}

// GetConfig loads a configuration file, missing values use the defaults.
func (r *YAMLRepository) GetConfig(ctx context.Context, path string) (Config, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return Config{}, ctx.Err()
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := c.defaults(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}
