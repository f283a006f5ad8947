package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hte-labs/hte-planner/internal/llm"
	"github.com/hte-labs/hte-planner/internal/log"
	"github.com/hte-labs/hte-planner/internal/metrics"
)

const (
	// ProviderName is the name used to identify this provider.
	ProviderName = "anthropic"

	// DefaultBaseURL is the MiniMax Anthropic compatible endpoint.
	DefaultBaseURL = "https://api.minimax.io/anthropic"
	// DefaultModel is the default model used for completions.
	DefaultModel = "MiniMax-M2.5"

	apiVersion      = "2023-06-01"
	maxResponseSize = 10 * 1024 * 1024 // 10MB.
	defaultMaxToken = 2000
)

// ClientConfig is the configuration for the Anthropic messages API client.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// RequestsPerSecond throttles the outbound calls, 0 disables the throttling.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	MetricsRecorder   metrics.Recorder
	Logger            log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second can't be negative")
	}
	// Timeouts are the caller's responsibility.
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "llm.Anthropic"})
	return nil
}

// Client is an llm.Generator that uses an Anthropic messages compatible API.
type Client struct {
	apiKey     string
	url        string
	model      string
	limiter    *rate.Limiter
	httpClient *http.Client
	metrics    metrics.Recorder
	logger     log.Logger
}

var _ llm.Generator = &Client{}

// NewClient returns a new Anthropic messages API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		url:        cfg.BaseURL + "/v1/messages",
		model:      cfg.Model,
		limiter:    limiter,
		httpClient: cfg.HTTPClient,
		metrics:    cfg.MetricsRecorder,
		logger:     cfg.Logger,
	}, nil
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type errorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends a single messages request and returns the concatenated text blocks.
func (c *Client) Generate(ctx context.Context, req llm.Request) (text string, err error) {
	logger := c.logger.WithCtxValues(ctx)

	start := time.Now()
	defer func() {
		c.metrics.ObserveCompletion(ctx, ProviderName, err == nil, time.Since(start))
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", llm.NewUpstreamError(fmt.Errorf("rate limiter: %w", err))
		}
	}

	body, err := c.requestBody(req)
	if err != nil {
		return "", llm.NewUpstreamError(fmt.Errorf("could not build request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", llm.NewUpstreamError(fmt.Errorf("could not create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	logger.Debugf("Sending completion request (model: %s, max tokens: %d)", c.model, req.MaxOutputTokens)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", llm.NewUpstreamError(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", llm.NewUpstreamError(fmt.Errorf("could not read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", llm.NewUpstreamError(fmt.Errorf("status %d: %s", resp.StatusCode, upstreamErrorMessage(respBody)))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return "", llm.NewUpstreamError(fmt.Errorf("could not decode response: %w", err))
	}

	texts := make([]string, 0, len(msgResp.Content))
	for _, block := range msgResp.Content {
		// Thinking blocks and tool uses are not part of the visible answer.
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}

	text = strings.Join(texts, "\n")
	if strings.TrimSpace(text) == "" {
		return "", llm.NewEmptyResponseError()
	}

	logger.Debugf("Completion received (id: %s, stop reason: %s, %d text blocks)", msgResp.ID, msgResp.StopReason, len(texts))

	return text, nil
}

func (c *Client) requestBody(req llm.Request) ([]byte, error) {
	system := req.SystemInstruction
	if system == "" {
		system = llm.DefaultSystemInstruction
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxToken
	}

	return json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []message{
			{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: req.Prompt}},
			},
		},
	})
}

// upstreamErrorMessage gets the message of an API error envelope, if the body is
// not an error envelope it returns the raw body.
func upstreamErrorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return errResp.Error.Type + ": " + errResp.Error.Message
		}
		return errResp.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no response body"
	}
	return msg
}
