package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hte-labs/hte-planner/internal/log"
	"github.com/hte-labs/hte-planner/internal/metrics"
	"github.com/hte-labs/hte-planner/internal/model"
)

// DefaultKeepaliveInterval is the time a subscriber waits for an event before
// receiving a keepalive.
const DefaultKeepaliveInterval = 30 * time.Second

var (
	// ErrClosed is returned when using a closed channel.
	ErrClosed = errors.New("channel closed")
	// ErrTerminated is returned when publishing after the terminal event.
	ErrTerminated = errors.New("channel already received its terminal event")
)

// ChannelConfig is the configuration for a broadcast channel.
type ChannelConfig struct {
	// Name identifies the channel on the logs, normally the job ID.
	Name              string
	KeepaliveInterval time.Duration
	MetricsRecorder   metrics.Recorder
	Logger            log.Logger
}

func (c *ChannelConfig) defaults() error {
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.KeepaliveInterval < 0 {
		return fmt.Errorf("keepalive interval can't be negative")
	}
	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "broadcast.Channel", "channel": c.Name})
	return nil
}

// Channel broadcasts the progress events of a single job to any number of
// subscribers.
//
// Every subscriber owns an unbounded queue, so publishing never waits for
// subscribers. Subscribers only receive the events published after they
// subscribed, except when subscribing after the terminal event, in that case
// they receive only the terminal event.
type Channel struct {
	keepalive time.Duration
	metrics   metrics.Recorder
	logger    log.Logger

	mu       sync.Mutex
	subs     map[uint64]*Subscription
	nextID   uint64
	terminal *model.Event
	closed   bool
}

// NewChannel returns a new broadcast channel.
func NewChannel(cfg ChannelConfig) (*Channel, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Channel{
		keepalive: cfg.KeepaliveInterval,
		metrics:   cfg.MetricsRecorder,
		logger:    cfg.Logger,
		subs:      map[uint64]*Subscription{},
	}, nil
}

// Publish sends the event to all the current subscribers. Events without ID or
// time are stamped with a ULID and the current time.
func (c *Channel) Publish(e model.Event) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.terminal != nil {
		return ErrTerminated
	}

	for _, s := range c.subs {
		s.push(e)
	}

	if e.Terminal() {
		c.terminal = &e
		// Subscribers end after the terminal event, they don't need to be tracked anymore.
		c.subs = map[uint64]*Subscription{}
	}

	c.logger.Debugf("Published %s event %s", e.Type, e.ID)

	return nil
}

// Terminal returns the terminal event if it has been published.
func (c *Channel) Terminal() (model.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal == nil {
		return model.Event{}, false
	}
	return *c.terminal, true
}

// Subscribe returns a new subscription to the channel events. Subscriptions
// must be closed when not used anymore.
func (c *Channel) Subscribe() (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed && c.terminal == nil {
		return nil, ErrClosed
	}

	c.nextID++
	s := &Subscription{
		id:        c.nextID,
		channel:   c,
		keepalive: c.keepalive,
		notify:    make(chan struct{}, 1),
	}
	c.metrics.AddStreamSubscribers(context.Background(), 1)

	if c.terminal != nil {
		s.push(*c.terminal)
		return s, nil
	}

	c.subs[s.id] = s
	c.logger.Debugf("Subscriber %d attached", s.id)

	return s, nil
}

// Close detaches all the subscribers, they will receive the events already
// queued and then end.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for id, s := range c.subs {
		s.detach()
		delete(c.subs, id)
	}
}

func (c *Channel) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
}

// Item is what a subscription returns, an event or a keepalive.
type Item struct {
	Event model.Event
	// Keepalive is true when no event arrived in the keepalive interval, Event is empty.
	Keepalive bool
}

// Subscription is an ordered stream of channel events.
type Subscription struct {
	id        uint64
	channel   *Channel
	keepalive time.Duration
	notify    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	queue    []model.Event
	done     bool // Terminal event delivered.
	detached bool // No more events will be pushed.
}

// Next waits for the next event of the stream. When no event arrives in the
// keepalive interval it returns a keepalive item. After the terminal event has
// been returned, or the subscription has been closed, it returns io.EOF.
func (s *Subscription) Next(ctx context.Context) (Item, error) {
	timer := time.NewTimer(s.keepalive)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if s.done {
			s.mu.Unlock()
			return Item{}, io.EOF
		}
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue[0] = model.Event{}
			s.queue = s.queue[1:]
			if e.Terminal() {
				s.done = true
			}
			s.mu.Unlock()
			return Item{Event: e}, nil
		}
		if s.detached {
			s.mu.Unlock()
			return Item{}, io.EOF
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-timer.C:
			return Item{Keepalive: true}, nil
		case <-s.notify:
		}
	}
}

// Close detaches the subscription from the channel discarding the pending events.
// It doesn't affect the channel nor the other subscribers.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.detached = true
		s.queue = nil
		s.mu.Unlock()
		s.wake()

		s.channel.remove(s.id)
		s.channel.metrics.AddStreamSubscribers(context.Background(), -1)
	})
}

func (s *Subscription) push(e model.Event) {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
