package commands

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hte-labs/hte-planner/internal/config"
	"github.com/hte-labs/hte-planner/internal/model"
)

func TestLLMFlagsApply(t *testing.T) {
	tests := map[string]struct {
		flags  llmFlags
		cfg    config.LLM
		expCfg config.LLM
	}{
		"Unset flags should keep the configuration values.": {
			flags:  llmFlags{},
			cfg:    config.LLM{Provider: "anthropic", Model: "m1", APIKey: "k1", MaxOutputTokens: 10},
			expCfg: config.LLM{Provider: "anthropic", Model: "m1", APIKey: "k1", MaxOutputTokens: 10},
		},

		"Set flags should override the configuration values.": {
			flags:  llmFlags{provider: "fake", model: "m2", rps: 2, maxOutputTokens: 20},
			cfg:    config.LLM{Provider: "anthropic", Model: "m1", APIKey: "k1", MaxOutputTokens: 10},
			expCfg: config.LLM{Provider: "fake", Model: "m2", APIKey: "k1", RequestsPerSecond: 2, MaxOutputTokens: 20},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := test.cfg
			test.flags.apply(&cfg)
			assert.Equal(t, test.expCfg, cfg)
		})
	}
}

func TestNewGenerator(t *testing.T) {
	tests := map[string]struct {
		cfg    config.LLM
		expErr bool
	}{
		"Fake provider should not need an API key.": {
			cfg: config.LLM{Provider: config.LLMProviderFake},
		},

		"Anthropic provider without API key should fail.": {
			cfg:    config.LLM{Provider: config.LLMProviderAnthropic},
			expErr: true,
		},

		"Anthropic provider with API key should be created.": {
			cfg: config.LLM{Provider: config.LLMProviderAnthropic, APIKey: "test"},
		},

		"Unknown provider should fail.": {
			cfg:    config.LLM{Provider: "other"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			gen, err := newGenerator(test.cfg, 0, nil, nil)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, gen)
		})
	}
}

func TestGenerateCommandPlan(t *testing.T) {
	tests := map[string]struct {
		cmd      GenerateCommand
		expErr   bool
		checkIDs func(t *testing.T, p model.Plan)
	}{
		"Missing IDs should be generated.": {
			cmd: GenerateCommand{task: "Learn Go", duration: "2 weeks", situation: "Beginner"},
			checkIDs: func(t *testing.T, p model.Plan) {
				_, err := uuid.Parse(p.UserID)
				assert.NoError(t, err)
				_, err = uuid.Parse(p.GoalID)
				assert.NoError(t, err)
			},
		},

		"Provided IDs should be kept.": {
			cmd: GenerateCommand{
				userID:       "5f0c7a8e-3c1e-4d2a-9b1f-1a2b3c4d5e6f",
				goalID:       "8a1d2f3e-4b5c-4d6e-8f70-8192a3b4c5d6",
				task:         "Learn Go",
				duration:     "2 weeks",
				situation:    "Beginner",
				attachmentID: "att-1",
			},
			checkIDs: func(t *testing.T, p model.Plan) {
				assert.Equal(t, "5f0c7a8e-3c1e-4d2a-9b1f-1a2b3c4d5e6f", p.UserID)
				assert.Equal(t, "8a1d2f3e-4b5c-4d6e-8f70-8192a3b4c5d6", p.GoalID)
				require.NotNil(t, p.GoalContent.AttachmentID)
				assert.Equal(t, "att-1", *p.GoalContent.AttachmentID)
			},
		},

		"Missing goal content should fail.": {
			cmd:    GenerateCommand{task: "Learn Go"},
			expErr: true,
		},

		"Invalid user ID should fail.": {
			cmd:    GenerateCommand{userID: "nope", task: "Learn Go", duration: "2 weeks", situation: "Beginner"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := test.cmd.plan(context.Background())
			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Learn Go", p.GoalContent.Task)
			assert.Empty(t, p.Tasks)
			test.checkIDs(t, p)
		})
	}
}

func TestRootCommandSilenceLogs(t *testing.T) {
	tests := map[string]struct {
		cmd      Command
		debug    bool
		expNoLog bool
	}{
		"Printer commands should not log.": {
			cmd:      ParseCommand{},
			expNoLog: true,
		},
		"Printer commands in debug mode should log.": {
			cmd:   GoalsListCommand{},
			debug: true,
		},
		"Other commands should log.": {
			cmd: ServeCommand{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			root := &RootCommand{Debug: test.debug}
			root.SilenceLogs(test.cmd)
			assert.Equal(t, test.expNoLog, root.NoLog)
		})
	}
}
