package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hte-labs/hte-planner/internal/app/generate"
	"github.com/hte-labs/hte-planner/internal/broadcast"
	"github.com/hte-labs/hte-planner/internal/log"
	"github.com/hte-labs/hte-planner/internal/metrics"
	"github.com/hte-labs/hte-planner/internal/model"
)

// DefaultGracePeriod is the time a finished job result is kept for late observers.
const DefaultGracePeriod = time.Second

// Runner runs a plan generation job publishing its progress on the sink.
type Runner interface {
	Run(ctx context.Context, p model.Plan, sink generate.EventSink) model.Event
}

// RunnerFunc is a helper to create runners from functions.
type RunnerFunc func(ctx context.Context, p model.Plan, sink generate.EventSink) model.Event

func (f RunnerFunc) Run(ctx context.Context, p model.Plan, sink generate.EventSink) model.Event {
	return f(ctx, p, sink)
}

// RegistryConfig is the configuration for the job registry.
type RegistryConfig struct {
	Runner            Runner
	GracePeriod       time.Duration
	KeepaliveInterval time.Duration
	MetricsRecorder   metrics.Recorder
	Logger            log.Logger
}

func (c *RegistryConfig) defaults() error {
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("grace period can't be negative")
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = broadcast.DefaultKeepaliveInterval
	}
	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "jobs.Registry"})
	return nil
}

// Stats are the number of jobs tracked by the registry.
type Stats struct {
	Active   int
	Retained int
}

type job struct {
	id      string
	channel *broadcast.Channel
	result  *model.Event
	done    chan struct{}
}

// Registry tracks the plan generation jobs by their goal ID. A job is active
// while it runs, once finished its result is retained for a grace period and
// then evicted.
type Registry struct {
	runner    Runner
	grace     time.Duration
	keepalive time.Duration
	metrics   metrics.Recorder
	logger    log.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	running sync.WaitGroup
}

// NewRegistry returns a new job registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Registry{
		runner:    cfg.Runner,
		grace:     cfg.GracePeriod,
		keepalive: cfg.KeepaliveInterval,
		metrics:   cfg.MetricsRecorder,
		logger:    cfg.Logger,
		jobs:      map[string]*job{},
	}, nil
}

// Submit starts a new plan generation job in background and returns the job ID.
// The job is not cancelled when ctx is cancelled.
func (r *Registry) Submit(ctx context.Context, p model.Plan) (string, error) {
	j, err := r.submit(ctx, p)
	if err != nil {
		return "", err
	}
	return j.id, nil
}

// SubmitAndWait starts a new plan generation job and waits for its terminal
// event. Cancelling ctx stops the wait but not the job.
func (r *Registry) SubmitAndWait(ctx context.Context, p model.Plan) (model.Event, error) {
	j, err := r.submit(ctx, p)
	if err != nil {
		return model.Event{}, err
	}

	select {
	case <-ctx.Done():
		return model.Event{}, ctx.Err()
	case <-j.done:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return *j.result, nil
}

// Attach returns a subscription to the job events. For finished jobs inside the
// grace period the subscription only has the job terminal event.
func (r *Registry) Attach(id string) (*broadcast.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}

	s, err := j.channel.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("could not subscribe to job %s: %w", id, err)
	}

	return s, nil
}

// Stats returns the current registry stats.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats()
}

// Wait waits until all the running jobs finish or the context is done.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Registry) submit(ctx context.Context, p model.Plan) (*job, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	id := p.GoalID
	logger := r.logger.WithValues(log.Kv{"job-id": id})

	ch, err := broadcast.NewChannel(broadcast.ChannelConfig{
		Name:              id,
		KeepaliveInterval: r.keepalive,
		MetricsRecorder:   r.metrics,
		Logger:            r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create job channel: %w", err)
	}

	r.mu.Lock()
	if _, ok := r.jobs[id]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("job %s: %w", id, model.ErrAlreadyExists)
	}
	j := &job{id: id, channel: ch, done: make(chan struct{})}
	r.jobs[id] = j
	r.recordStats()
	r.running.Add(1)
	r.mu.Unlock()

	go r.run(context.WithoutCancel(ctx), logger, j, p.Copy())

	logger.Infof("Job submitted")
	return j, nil
}

func (r *Registry) run(ctx context.Context, logger log.Logger, j *job, p model.Plan) {
	defer r.running.Done()

	terminal := r.runner.Run(ctx, p, j.channel)

	// Runners must publish their terminal event, if they didn't the returned one is used.
	t, ok := j.channel.Terminal()
	if !ok {
		if !terminal.Terminal() {
			terminal = model.NewErrorEvent("job finished without result")
		}
		if err := j.channel.Publish(terminal); err != nil {
			logger.Errorf("Could not publish job result: %s", err)
		}
		t, _ = j.channel.Terminal()
	}

	r.mu.Lock()
	j.result = &t
	close(j.done)
	r.recordStats()
	r.mu.Unlock()

	logger.Infof("Job finished with %s", t.Type)

	time.AfterFunc(r.grace, func() { r.evict(logger, j) })
}

func (r *Registry) evict(logger log.Logger, j *job) {
	r.mu.Lock()
	if r.jobs[j.id] == j {
		delete(r.jobs, j.id)
	}
	r.recordStats()
	r.mu.Unlock()

	j.channel.Close()
	logger.Debugf("Job evicted")
}

func (r *Registry) stats() Stats {
	var s Stats
	for _, j := range r.jobs {
		if j.result != nil {
			s.Retained++
		} else {
			s.Active++
		}
	}
	return s
}

// recordStats must be called with the lock held.
func (r *Registry) recordStats() {
	s := r.stats()
	r.metrics.SetRegistryJobs(context.Background(), s.Active, s.Retained)
}
