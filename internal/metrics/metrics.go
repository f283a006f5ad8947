package metrics

import (
	"context"
	"time"
)

// Recorder knows how to record the application metrics.
type Recorder interface {
	// ObserveJobRun records a finished plan generation job by its terminal event type.
	ObserveJobRun(ctx context.Context, outcome string, duration time.Duration)
	// ObserveCompletion records a completion service call.
	ObserveCompletion(ctx context.Context, provider string, success bool, duration time.Duration)
	// SetRegistryJobs sets the number of jobs the registry is tracking.
	SetRegistryJobs(ctx context.Context, active, retained int)
	// AddStreamSubscribers adds (or removes with negative quantities) progress stream subscribers.
	AddStreamSubscribers(ctx context.Context, quantity int)
}

// Noop is a recorder that doesn't record anything.
const Noop = noop(0)

type noop int

func (noop) ObserveJobRun(_ context.Context, _ string, _ time.Duration)           {}
func (noop) ObserveCompletion(_ context.Context, _ string, _ bool, _ time.Duration) {}
func (noop) SetRegistryJobs(_ context.Context, _, _ int)                          {}
func (noop) AddStreamSubscribers(_ context.Context, _ int)                        {}
