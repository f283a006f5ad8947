package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hte-labs/hte-planner/internal/llm"
	"github.com/hte-labs/hte-planner/internal/log"
	"github.com/hte-labs/hte-planner/internal/metrics"
	"github.com/hte-labs/hte-planner/internal/model"
	"github.com/hte-labs/hte-planner/internal/plan"
	"github.com/hte-labs/hte-planner/internal/storage"
)

const (
	// DefaultTimeout bounds a whole plan generation run.
	DefaultTimeout = 5 * time.Minute
	// DefaultMaxOutputTokens is the completion budget of a plan generation.
	DefaultMaxOutputTokens = 4000

	statusStarting = "Starting plan generation with AI..."
)

// EventSink receives the progress events of a run.
type EventSink interface {
	Publish(e model.Event) error
}

// ServiceConfig is the configuration for the generate service.
type ServiceConfig struct {
	Generator llm.Generator
	// Repository is optional, when set generated plans are stored.
	Repository      storage.PlanRepository
	Timeout         time.Duration
	MaxOutputTokens int
	MetricsRecorder metrics.Recorder
	Logger          log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Generator == nil {
		return fmt.Errorf("generator is required")
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout can't be negative")
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens can't be negative")
	}
	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Generate"})
	return nil
}

// Service generates the tasks of goal plans.
type Service struct {
	gen       llm.Generator
	repo      storage.PlanRepository
	timeout   time.Duration
	maxTokens int
	metrics   metrics.Recorder
	logger    log.Logger
}

// NewService creates a new generate service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		gen:       cfg.Generator,
		repo:      cfg.Repository,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxOutputTokens,
		metrics:   cfg.MetricsRecorder,
		logger:    cfg.Logger,
	}, nil
}

// Run generates the plan tasks publishing the progress on the sink. It always
// publishes exactly one terminal event, and returns it.
func (s *Service) Run(ctx context.Context, p model.Plan, sink EventSink) (terminal model.Event) {
	start := time.Now()
	logger := s.logger.WithValues(log.Kv{"goal-id": p.GoalID, "user-id": p.UserID})

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Plan generation panicked: %v", r)
			terminal = model.NewErrorEvent(fmt.Sprintf("internal error: %v", r))
			s.publish(logger, sink, terminal)
		}
		s.metrics.ObserveJobRun(ctx, string(terminal.Type), time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// 1. Notify start.
	s.publish(logger, sink, model.NewStatusEvent(statusStarting))

	// 2. Build the prompt.
	prompt := plan.BuildPrompt(p.GoalContent)

	// 3. Ask the model.
	raw, err := s.gen.Generate(ctx, llm.Request{
		Prompt:            prompt,
		SystemInstruction: plan.SystemInstruction,
		MaxOutputTokens:   s.maxTokens,
	})
	if err != nil {
		var cErr *llm.CompletionError
		if !errors.As(err, &cErr) {
			err = llm.NewUpstreamError(err)
		}
		logger.Warningf("Completion failed: %s", err)
		return s.fail(logger, sink, err)
	}

	// 4. Parse the tasks.
	tasks, err := plan.ParseTasks(raw)
	if err != nil {
		logger.Warningf("Could not parse completion: %s", err)
		return s.fail(logger, sink, err)
	}

	// 5. Merge with the existing tasks, colliding IDs are renamed.
	result := p.Copy()
	result.AddTasks(tasks...)
	result.SortTasks()

	// 6. Notify generated tasks.
	s.publish(logger, sink, model.NewStatusEvent(fmt.Sprintf("Generated %d tasks", len(tasks))))

	if s.repo != nil {
		if err := s.repo.SavePlan(ctx, result); err != nil {
			logger.Errorf("Could not store generated plan: %s", err)
		}
	}

	// 7. Done.
	terminal = model.NewCompletedEvent(result)
	s.publish(logger, sink, terminal)
	logger.Infof("Plan generated with %d new tasks", len(tasks))

	return terminal
}

func (s *Service) fail(logger log.Logger, sink EventSink, err error) model.Event {
	e := model.NewErrorEvent(err.Error())
	s.publish(logger, sink, e)
	return e
}

func (s *Service) publish(logger log.Logger, sink EventSink, e model.Event) {
	if err := sink.Publish(e); err != nil {
		logger.Warningf("Could not publish %s event: %s", e.Type, err)
	}
}
