package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hte-labs/hte-planner/internal/llm"
	"github.com/hte-labs/hte-planner/internal/log"
)

// GeneratorConfig is the configuration for the fake generator.
type GeneratorConfig struct {
	// Response is returned on every call, if empty a small plan is generated.
	Response string
	// Err is returned on every call when set.
	Err error
	// Latency simulates the remote call duration.
	Latency time.Duration
	Logger  log.Logger
}

func (c *GeneratorConfig) defaults() error {
	if c.Latency < 0 {
		return fmt.Errorf("latency can't be negative")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "llm.Fake"})
	return nil
}

// Generator is a fake implementation of llm.Generator. It simulates a remote
// model without doing any network call.
type Generator struct {
	response string
	err      error
	latency  time.Duration
	logger   log.Logger

	mu       sync.Mutex
	requests []llm.Request
}

var _ llm.Generator = &Generator{}

// NewGenerator returns a new fake generator.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Generator{
		response: cfg.Response,
		err:      cfg.Err,
		latency:  cfg.Latency,
		logger:   cfg.Logger,
	}, nil
}

// Generate returns the configured response.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.latency > 0 {
		select {
		case <-ctx.Done():
			return "", llm.NewUpstreamError(ctx.Err())
		case <-time.After(g.latency):
		}
	}

	if g.err != nil {
		return "", g.err
	}

	resp := g.response
	if resp == "" {
		resp = defaultResponse(time.Now())
	}
	g.logger.Debugf("Fake completion generated (%d bytes)", len(resp))

	return resp, nil
}

// Requests returns the requests received by the generator.
func (g *Generator) Requests() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	reqs := make([]llm.Request, len(g.requests))
	copy(reqs, g.requests)
	return reqs
}

func defaultResponse(now time.Time) string {
	day := func(d int) string { return now.AddDate(0, 0, d).Format("2006-01-02") }
	return fmt.Sprintf(`Here is your plan:
[
  {"task_id": "fake-task-1", "start_at": %q, "end_at": %q, "title": "Set up", "action_plan": "Prepare the environment and materials.", "expected_outcome": "Ready to start."},
  {"task_id": "fake-task-2", "start_at": %q, "end_at": %q, "title": "Practice", "action_plan": "Work on the goal every day.", "expected_outcome": "Steady progress."},
  {"task_id": "fake-task-3", "start_at": %q, "end_at": %q, "title": "Review", "action_plan": "Review what was learned.", "expected_outcome": "Goal achieved."}
]`, day(1), day(1), day(2), day(6), day(7), day(7))
}
