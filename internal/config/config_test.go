package config_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hte-labs/hte-planner/internal/config"
)

func TestYAMLRepositoryGetConfig(t *testing.T) {
	tests := map[string]struct {
		data   string
		expCfg func() config.Config
		expErr bool
		errMsg string
	}{
		"Empty config should use the defaults.": {
			data: ``,
			expCfg: func() config.Config {
				return config.Config{
					Server: config.Server{ListenAddr: ":8000", AllowedOrigins: []string{"*"}},
					LLM: config.LLM{
						Provider:        config.LLMProviderAnthropic,
						BaseURL:         "https://api.minimax.io/anthropic",
						Model:           "MiniMax-M2.5",
						MaxOutputTokens: 4000,
					},
					Jobs: config.Jobs{
						Timeout:           5 * time.Minute,
						GracePeriod:       time.Second,
						KeepaliveInterval: 30 * time.Second,
					},
				}
			},
		},
		"Full config should be loaded.": {
			data: `
server:
  listen_addr: 127.0.0.1:9000
  allowed_origins: ["http://localhost:3000", "https://app.example.com"]
llm:
  provider: fake
  base_url: http://localhost:8080
  model: test
  api_key: secret
  requests_per_second: 2.5
  max_output_tokens: 1000
jobs:
  timeout: 1m
  grace_period: 3s
  keepalive_interval: 10s
storage:
  disabled: true
  db_path: /tmp/planner.db
`,
			expCfg: func() config.Config {
				return config.Config{
					Server: config.Server{ListenAddr: "127.0.0.1:9000", AllowedOrigins: []string{"http://localhost:3000", "https://app.example.com"}},
					LLM: config.LLM{
						Provider:          config.LLMProviderFake,
						BaseURL:           "http://localhost:8080",
						Model:             "test",
						APIKey:            "secret",
						RequestsPerSecond: 2.5,
						MaxOutputTokens:   1000,
					},
					Jobs: config.Jobs{
						Timeout:           time.Minute,
						GracePeriod:       3 * time.Second,
						KeepaliveInterval: 10 * time.Second,
					},
					Storage: config.Storage{Disabled: true, DBPath: "/tmp/planner.db"},
				}
			},
		},
		"Unknown provider should fail.": {
			data:   "llm:\n  provider: openai\n",
			expErr: true,
			errMsg: "unknown llm provider",
		},
		"Negative durations should fail.": {
			data:   "jobs:\n  grace_period: -1s\n",
			expErr: true,
			errMsg: "can't be negative",
		},
		"Invalid YAML should fail.": {
			data:   "server: [",
			expErr: true,
			errMsg: "parsing YAML",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			fs := fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte(test.data)}}
			repo := config.NewYAMLRepository(fs)

			cfg, err := repo.GetConfig(context.Background(), "config.yaml")

			if test.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expCfg(), cfg)
		})
	}
}

func TestYAMLRepositoryMissingFile(t *testing.T) {
	repo := config.NewYAMLRepository(fstest.MapFS{})
	_, err := repo.GetConfig(context.Background(), "missing.yaml")
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ":8000", cfg.Server.ListenAddr)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.Timeout)
}
