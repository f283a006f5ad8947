package lib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hte-labs/hte-planner/pkg/lib/log"
	"github.com/hte-labs/hte-planner/internal/model"
)

const (
	// DefaultBaseURL is the address of a local planner API.
	DefaultBaseURL = "http://localhost:8000"

	maxResponseSize = 10 * 1024 * 1024 // 10MB.
)

// Config configures the SDK client.
//
// All fields are optional. An empty Config{} talks to a planner API running
// on localhost.
type Config struct {
	// BaseURL is the planner API address.
	// Default: http://localhost:8000.
	BaseURL string

	// HTTPClient is used for every request. It must not have a global timeout
	// when streaming, use the call contexts instead.
	// Default: a new http.Client.
	HTTPClient *http.Client

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base url %q", c.BaseURL)
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "lib.Client"})

	return nil
}

// Client is the SDK entry point to generate plans with a planner API.
//
// Create a Client with [New]. A Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// New creates a new SDK client.
func New(cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// Health checks that the API is up.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("api is not healthy: %q", resp.Status)
	}
	return nil
}

// Generate starts the plan generation of a goal in background and returns the
// goal ID used to follow it with [Client.Stream].
//
// Returns [ErrAlreadyExists] when a generation of the same goal is running and
// [ErrNotValid] when the plan is not valid.
func (c *Client) Generate(ctx context.Context, p Plan) (string, error) {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		GoalID  string `json:"goal_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/plans/generate", toInternalPlan(p), &resp); err != nil {
		return "", err
	}
	if !resp.Success || resp.GoalID == "" {
		return "", fmt.Errorf("plan generation not started: %s", resp.Message)
	}

	c.logger.Debugf("Plan generation of goal %s started", resp.GoalID)
	return resp.GoalID, nil
}

// GenerateSync generates the plan of a goal and waits for the result.
//
// Returns [ErrGenerationFailed] when the generation fails.
func (c *Client) GenerateSync(ctx context.Context, p Plan) (*Plan, error) {
	var resp model.Plan
	if err := c.doJSON(ctx, http.MethodPost, "/plans/generate/sync", toInternalPlan(p), &resp); err != nil {
		return nil, err
	}

	plan := fromInternalPlan(resp)
	return &plan, nil
}

// Stream follows the progress of a running generation, fn is called for every
// event in order. It returns the terminal event once received.
//
// Events published before attaching are not received, except the terminal
// one, that is received by late clients until the finished generation is
// forgotten by the API. Returns [ErrNotFound] when there is no generation for
// the goal. If fn returns an error the stream ends with that error.
func (c *Client) Stream(ctx context.Context, goalID string, fn func(Event) error) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/plans/stream/"+url.PathEscape(goalID), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	r := newSSEReader(resp.Body)
	for {
		msg, err := r.next()
		if err == io.EOF {
			return nil, fmt.Errorf("stream of goal %s ended without terminal event", goalID)
		}
		if err != nil {
			return nil, fmt.Errorf("could not read stream: %w", err)
		}

		e, err := decodeEvent(msg)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			if err := fn(e); err != nil {
				return nil, err
			}
		}
		if e.Terminal() {
			return &e, nil
		}
	}
}

// GenerateAndStream starts the plan generation of a goal and follows it until
// it ends. Returns the generated plan or [ErrGenerationFailed].
func (c *Client) GenerateAndStream(ctx context.Context, p Plan, fn func(Event) error) (*Plan, error) {
	goalID, err := c.Generate(ctx, p)
	if err != nil {
		return nil, err
	}

	e, err := c.Stream(ctx, goalID, fn)
	if err != nil {
		return nil, err
	}
	if e.Type == EventTypeError {
		return nil, fmt.Errorf("goal %s: %s: %w", goalID, e.Message, ErrGenerationFailed)
	}

	return e.Plan, nil
}

// GetGoal returns a stored goal with its plan.
//
// Returns [ErrNotFound] when the goal is not stored, or when the API runs
// without storage.
func (c *Client) GetGoal(ctx context.Context, goalID string) (*Plan, error) {
	var resp model.Plan
	if err := c.doJSON(ctx, http.MethodGet, "/goals/"+url.PathEscape(goalID), nil, &resp); err != nil {
		return nil, err
	}

	plan := fromInternalPlan(resp)
	return &plan, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}

	return nil
}

// readAPIError returns the error of a non successful API response.
func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	msg := strings.TrimSpace(string(body))
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	return mapStatusError(resp.StatusCode, fmt.Errorf("api error (HTTP %d): %s", resp.StatusCode, msg))
}

func decodeEvent(msg sseMessage) (Event, error) {
	e := Event{ID: msg.id, Type: EventType(msg.event)}

	switch e.Type {
	case EventTypeStatus:
		var data struct {
			Message   string `json:"message"`
			Timestamp string `json:"timestamp"`
		}
		if err := json.Unmarshal([]byte(msg.data), &data); err != nil {
			return Event{}, fmt.Errorf("could not decode status event: %w", err)
		}
		e.Message = data.Message
		if t, err := time.Parse(time.RFC3339Nano, data.Timestamp); err == nil {
			e.Time = t
		}
	case EventTypeCompleted:
		var p model.Plan
		if err := json.Unmarshal([]byte(msg.data), &p); err != nil {
			return Event{}, fmt.Errorf("could not decode completed event: %w", err)
		}
		plan := fromInternalPlan(p)
		e.Plan = &plan
	case EventTypeError:
		var data struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(msg.data), &data); err != nil {
			return Event{}, fmt.Errorf("could not decode error event: %w", err)
		}
		e.Message = data.Error
	default:
		return Event{}, fmt.Errorf("unknown event type %q", msg.event)
	}

	return e, nil
}
