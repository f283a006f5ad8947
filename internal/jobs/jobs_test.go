package jobs_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hte-labs/hte-planner/internal/app/generate"
	"github.com/hte-labs/hte-planner/internal/broadcast"
	"github.com/hte-labs/hte-planner/internal/jobs"
	"github.com/hte-labs/hte-planner/internal/model"
)

const goalID = "8a1d2f3e-4b5c-4d6e-8f70-8192a3b4c5d6"

func planFixture() model.Plan {
	return model.Plan{
		UserID: "5f0c7a8e-3c1e-4d2a-9b1f-1a2b3c4d5e6f",
		GoalID: goalID,
		GoalContent: model.GoalContent{
			Duration:         "2 weeks",
			CurrentSituation: "Beginner",
			Task:             "Learn Go",
		},
		Tasks: []model.Task{},
	}
}

// gatedRunner publishes a status event, waits until released and then completes.
type gatedRunner struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedRunner) Run(ctx context.Context, p model.Plan, sink generate.EventSink) model.Event {
	g.once.Do(func() { close(g.started) })
	<-g.release
	_ = sink.Publish(model.NewStatusEvent("working"))
	e := model.NewCompletedEvent(p)
	_ = sink.Publish(e)
	return e
}

func drain(t *testing.T, s *broadcast.Subscription) []model.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []model.Event
	for {
		item, err := s.Next(ctx)
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		if !item.Keepalive {
			events = append(events, item.Event)
		}
	}
}

func newRegistry(t *testing.T, runner jobs.Runner, grace time.Duration) *jobs.Registry {
	t.Helper()
	r, err := jobs.NewRegistry(jobs.RegistryConfig{Runner: runner, GracePeriod: grace})
	require.NoError(t, err)
	return r
}

func TestNewRegistry(t *testing.T) {
	tests := map[string]struct {
		cfg    jobs.RegistryConfig
		expErr bool
	}{
		"Valid config should work.": {
			cfg: jobs.RegistryConfig{Runner: newGatedRunner()},
		},
		"Missing runner should fail.": {
			cfg:    jobs.RegistryConfig{},
			expErr: true,
		},
		"Negative grace period should fail.": {
			cfg:    jobs.RegistryConfig{Runner: newGatedRunner(), GracePeriod: -1},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := jobs.NewRegistry(test.cfg)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistrySubmitInvalidPlan(t *testing.T) {
	r := newRegistry(t, newGatedRunner(), time.Second)

	p := planFixture()
	p.GoalID = "not-an-uuid"
	_, err := r.Submit(context.Background(), p)
	assert.ErrorIs(t, err, model.ErrNotValid)
}

func TestRegistrySubmitConflict(t *testing.T) {
	runner := newGatedRunner()
	r := newRegistry(t, runner, time.Minute)

	id, err := r.Submit(context.Background(), planFixture())
	require.NoError(t, err)
	assert.Equal(t, goalID, id)

	// Active.
	_, err = r.Submit(context.Background(), planFixture())
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
	assert.Equal(t, jobs.Stats{Active: 1}, r.Stats())

	// Retained.
	close(runner.release)
	require.NoError(t, r.Wait(context.Background()))
	_, err = r.Submit(context.Background(), planFixture())
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
	assert.Equal(t, jobs.Stats{Retained: 1}, r.Stats())
}

func TestRegistrySubmitIsNotCancelledWithTheCaller(t *testing.T) {
	runner := newGatedRunner()
	r := newRegistry(t, runner, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := r.Submit(ctx, planFixture())
	require.NoError(t, err)
	cancel()

	s, err := r.Attach(goalID)
	require.NoError(t, err)
	defer s.Close()

	close(runner.release)
	events := drain(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventTypeCompleted, events[1].Type)
}

func TestRegistryAttachFanOut(t *testing.T) {
	runner := newGatedRunner()
	r := newRegistry(t, runner, time.Minute)

	_, err := r.Submit(context.Background(), planFixture())
	require.NoError(t, err)
	<-runner.started

	s1, err := r.Attach(goalID)
	require.NoError(t, err)
	defer s1.Close()
	s2, err := r.Attach(goalID)
	require.NoError(t, err)
	defer s2.Close()

	close(runner.release)

	var wg sync.WaitGroup
	var got1, got2 []model.Event
	wg.Add(2)
	go func() { defer wg.Done(); got1 = drain(t, s1) }()
	go func() { defer wg.Done(); got2 = drain(t, s2) }()
	wg.Wait()

	require.Len(t, got1, 2)
	assert.Equal(t, got1, got2)
	assert.Equal(t, "working", got1[0].Message)
	assert.Equal(t, model.EventTypeCompleted, got1[1].Type)
}

func TestRegistryLateAttachWithinGracePeriod(t *testing.T) {
	runner := newGatedRunner()
	r := newRegistry(t, runner, time.Minute)

	_, err := r.Submit(context.Background(), planFixture())
	require.NoError(t, err)
	close(runner.release)
	require.NoError(t, r.Wait(context.Background()))

	for i := 0; i < 2; i++ {
		s, err := r.Attach(goalID)
		require.NoError(t, err)
		events := drain(t, s)
		s.Close()

		require.Len(t, events, 1)
		assert.Equal(t, model.EventTypeCompleted, events[0].Type)
		assert.Equal(t, goalID, events[0].Plan.GoalID)
	}
}

func TestRegistryEvictsAfterGracePeriod(t *testing.T) {
	runner := newGatedRunner()
	r := newRegistry(t, runner, 20*time.Millisecond)

	_, err := r.Submit(context.Background(), planFixture())
	require.NoError(t, err)
	close(runner.release)
	require.NoError(t, r.Wait(context.Background()))

	assert.Eventually(t, func() bool {
		_, err := r.Attach(goalID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = r.Attach(goalID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, jobs.Stats{}, r.Stats())

	// The ID can be submitted again.
	_, err = r.Submit(context.Background(), planFixture())
	assert.NoError(t, err)
}

func TestRegistryAttachUnknown(t *testing.T) {
	r := newRegistry(t, newGatedRunner(), time.Second)

	_, err := r.Attach("missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRegistrySubmitAndWait(t *testing.T) {
	runner := newGatedRunner()
	r := newRegistry(t, runner, time.Minute)
	close(runner.release)

	e, err := r.SubmitAndWait(context.Background(), planFixture())
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeCompleted, e.Type)
	assert.NotEmpty(t, e.ID)
}

func TestRegistrySubmitAndWaitCancelled(t *testing.T) {
	runner := newGatedRunner()
	r := newRegistry(t, runner, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.SubmitAndWait(ctx, planFixture())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The job keeps running.
	assert.Equal(t, jobs.Stats{Active: 1}, r.Stats())
	close(runner.release)
	require.NoError(t, r.Wait(context.Background()))
	assert.Equal(t, jobs.Stats{Retained: 1}, r.Stats())
}

func TestRegistryRunnerWithoutPublishedResult(t *testing.T) {
	runner := jobs.RunnerFunc(func(ctx context.Context, p model.Plan, sink generate.EventSink) model.Event {
		return model.NewErrorEvent("boom")
	})
	r := newRegistry(t, runner, time.Minute)

	e, err := r.SubmitAndWait(context.Background(), planFixture())
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeError, e.Type)
	assert.Equal(t, "boom", e.Message)
}

func TestRegistryWaitTimeout(t *testing.T) {
	runner := newGatedRunner()
	r := newRegistry(t, runner, time.Minute)
	defer close(runner.release)

	_, err := r.Submit(context.Background(), planFixture())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}
