package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hte-labs/hte-planner/internal/llm"
	"github.com/hte-labs/hte-planner/internal/llm/anthropic"
)

func TestNewClient(t *testing.T) {
	tests := map[string]struct {
		cfg    anthropic.ClientConfig
		expErr bool
	}{
		"Valid config should create the client.": {
			cfg: anthropic.ClientConfig{APIKey: "test"},
		},
		"Missing API key should fail.": {
			cfg:    anthropic.ClientConfig{},
			expErr: true,
		},
		"Negative rate should fail.": {
			cfg:    anthropic.ClientConfig{APIKey: "test", RequestsPerSecond: -1},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := anthropic.NewClient(test.cfg)
			if test.expErr {
				assert.Error(t, err)
				assert.Nil(t, c)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, c)
			}
		})
	}
}

func TestClientGenerate(t *testing.T) {
	tests := map[string]struct {
		req        llm.Request
		status     int
		respBody   string
		expReqBody map[string]any
		expText    string
		expErr     bool
		expEmpty   bool
		expErrMsg  string
	}{
		"Text blocks should be joined with new lines and thinking ignored.": {
			req:    llm.Request{Prompt: "plan my goal", SystemInstruction: "You are a planner.", MaxOutputTokens: 4000},
			status: http.StatusOK,
			respBody: `{"id":"msg_1","model":"MiniMax-M2.5","content":[
				{"type":"thinking","thinking":"let me think"},
				{"type":"text","text":"first"},
				{"type":"text","text":"second"}
			],"stop_reason":"end_turn"}`,
			expReqBody: map[string]any{
				"model":      "test-model",
				"max_tokens": float64(4000),
				"system":     "You are a planner.",
				"messages": []any{
					map[string]any{
						"role":    "user",
						"content": []any{map[string]any{"type": "text", "text": "plan my goal"}},
					},
				},
			},
			expText: "first\nsecond",
		},
		"Missing system instruction should use the default one.": {
			req:      llm.Request{Prompt: "hi", MaxOutputTokens: 100},
			status:   http.StatusOK,
			respBody: `{"content":[{"type":"text","text":"hello"}]}`,
			expReqBody: map[string]any{
				"model":      "test-model",
				"max_tokens": float64(100),
				"system":     "You are a helpful assistant.",
				"messages": []any{
					map[string]any{
						"role":    "user",
						"content": []any{map[string]any{"type": "text", "text": "hi"}},
					},
				},
			},
			expText: "hello",
		},
		"A response without text blocks should fail with empty response.": {
			req:       llm.Request{Prompt: "hi"},
			status:    http.StatusOK,
			respBody:  `{"content":[{"type":"thinking","thinking":"only thoughts"}]}`,
			expErr:    true,
			expEmpty:  true,
			expErrMsg: "empty response from completion service",
		},
		"An API error should fail with upstream failure and the upstream message.": {
			req:       llm.Request{Prompt: "hi"},
			status:    http.StatusTooManyRequests,
			respBody:  `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			expErr:    true,
			expErrMsg: "completion service error: status 429: rate_limit_error: slow down",
		},
		"A non JSON API error should fail with upstream failure and the raw body.": {
			req:       llm.Request{Prompt: "hi"},
			status:    http.StatusBadGateway,
			respBody:  `bad gateway`,
			expErr:    true,
			expErrMsg: "completion service error: status 502: bad gateway",
		},
		"An invalid JSON response should fail with upstream failure.": {
			req:      llm.Request{Prompt: "hi"},
			status:   http.StatusOK,
			respBody: `{"content":`,
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var gotBody map[string]any
			var gotHeaders http.Header
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotHeaders = r.Header.Clone()
				assert.Equal(t, "/v1/messages", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				b, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(b, &gotBody)

				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.respBody))
			}))
			defer srv.Close()

			c, err := anthropic.NewClient(anthropic.ClientConfig{
				APIKey:  "secret",
				BaseURL: srv.URL + "/",
				Model:   "test-model",
			})
			require.NoError(t, err)

			text, err := c.Generate(context.Background(), test.req)

			assert.Equal(t, "secret", gotHeaders.Get("x-api-key"))
			assert.Equal(t, "2023-06-01", gotHeaders.Get("anthropic-version"))
			if test.expReqBody != nil {
				assert.Equal(t, test.expReqBody, gotBody)
			}

			if test.expErr {
				require.Error(t, err)
				assert.Equal(t, test.expEmpty, llm.IsEmptyResponse(err))
				assert.Equal(t, !test.expEmpty, llm.IsUpstreamFailure(err))
				if test.expErrMsg != "" {
					assert.Equal(t, test.expErrMsg, err.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expText, text)
		})
	}
}

func TestClientGenerateNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := anthropic.NewClient(anthropic.ClientConfig{APIKey: "secret", BaseURL: url})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), llm.Request{Prompt: "hi"})
	assert.True(t, llm.IsUpstreamFailure(err))
}

func TestClientGenerateCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"hello"}]}`))
	}))
	defer srv.Close()

	c, err := anthropic.NewClient(anthropic.ClientConfig{APIKey: "secret", BaseURL: srv.URL, RequestsPerSecond: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Generate(ctx, llm.Request{Prompt: "hi"})
	assert.True(t, llm.IsUpstreamFailure(err))
}
