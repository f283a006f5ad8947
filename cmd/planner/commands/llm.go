package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/hte-labs/hte-planner/internal/config"
	"github.com/hte-labs/hte-planner/internal/conventions"
	"github.com/hte-labs/hte-planner/internal/llm"
	"github.com/hte-labs/hte-planner/internal/llm/anthropic"
	"github.com/hte-labs/hte-planner/internal/llm/fake"
	"github.com/hte-labs/hte-planner/internal/log"
	"github.com/hte-labs/hte-planner/internal/metrics"
)

// llmFlags are the completion client flags shared by the commands that
// generate plans. Unset flags keep the configuration file values.
type llmFlags struct {
	provider        string
	baseURL         string
	model           string
	apiKey          string
	rps             float64
	maxOutputTokens int
	fakeLatency     time.Duration
}

func (f *llmFlags) register(cmd *kingpin.CmdClause) {
	cmd.Flag("llm", "Completion provider (anthropic, fake).").EnumVar(&f.provider, config.LLMProviderAnthropic, config.LLMProviderFake)
	cmd.Flag("llm-base-url", "Anthropic messages compatible API base URL.").StringVar(&f.baseURL)
	cmd.Flag("llm-model", "Model used to generate the plans.").StringVar(&f.model)
	cmd.Flag("llm-api-key", "Completion API key.").Envar("MINIMAX_API_KEY").StringVar(&f.apiKey)
	cmd.Flag("llm-rps", "Maximum completion requests per second, 0 disables the limit.").Float64Var(&f.rps)
	cmd.Flag("llm-max-output-tokens", "Maximum tokens of a completion.").IntVar(&f.maxOutputTokens)
	cmd.Flag("llm-fake-latency", "Simulated latency of the fake provider.").Default("1s").DurationVar(&f.fakeLatency)
}

func (f llmFlags) apply(c *config.LLM) {
	if f.provider != "" {
		c.Provider = f.provider
	}
	if f.baseURL != "" {
		c.BaseURL = f.baseURL
	}
	if f.model != "" {
		c.Model = f.model
	}
	if f.apiKey != "" {
		c.APIKey = f.apiKey
	}
	if f.rps != 0 {
		c.RequestsPerSecond = f.rps
	}
	if f.maxOutputTokens != 0 {
		c.MaxOutputTokens = f.maxOutputTokens
	}
}

func newGenerator(cfg config.LLM, fakeLatency time.Duration, recorder metrics.Recorder, logger log.Logger) (llm.Generator, error) {
	switch cfg.Provider {
	case config.LLMProviderFake:
		gen, err := fake.NewGenerator(fake.GeneratorConfig{
			Latency: fakeLatency,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create fake generator: %w", err)
		}
		return gen, nil
	case config.LLMProviderAnthropic:
		gen, err := anthropic.NewClient(anthropic.ClientConfig{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MetricsRecorder:   recorder,
			Logger:            logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create anthropic client: %w", err)
		}
		return gen, nil
	}

	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// loadConfig loads the configuration file. Without file the data directory
// configuration is used if present, otherwise the defaults.
func loadConfig(ctx context.Context, path, dataDir string) (config.Config, error) {
	if path == "" {
		path = conventions.ConfigPath(dataDir)
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}

	fsPath, err := absFSPath(path)
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.NewYAMLRepository(os.DirFS("/")).GetConfig(ctx, fsPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("could not load config: %w", err)
	}

	return cfg, nil
}

// absFSPath returns the path relative to the root filesystem.
func absFSPath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("could not resolve path: %w", err)
		}
		path = absPath
	}
	return path[1:], nil
}
