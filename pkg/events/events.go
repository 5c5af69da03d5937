// Package events fans engine notifications out to observers. Every
// subscriber gets its own bounded queue and goroutine so a slow or failing
// observer never holds up the publisher or its peers.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"callmonitor/pkg/metrics"

	"github.com/sirupsen/logrus"
)

// Type names an event
type Type string

const (
	CallStarted       Type = "call_started"
	CallUpdate        Type = "call_update"
	CallEnded         Type = "call_ended"
	AlertNew          Type = "alert_new"
	AlertAcknowledged Type = "alert_acknowledged"
	AlertResolved     Type = "alert_resolved"
	SupervisorAction  Type = "supervisor_action"
	MetricsUpdate     Type = "metrics_update"
)

const (
	// DefaultBufferSize is the per-subscriber queue length
	DefaultBufferSize = 256
	// DefaultDrainTimeout bounds how long Close waits before cancelling
	// deliveries still in progress
	DefaultDrainTimeout = 5 * time.Second
)

// Event is the envelope sent to observers
type Event struct {
	Type Type        `json:"type"`
	Data interface{} `json:"data"`
}

// Publisher accepts events. Implementations must not block and must not fail.
type Publisher interface {
	Publish(event Event)
}

// Subscriber receives events from the broker on its own goroutine
type Subscriber interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

// SubscriberFunc adapts a function to Subscriber
type SubscriberFunc struct {
	ID string
	Fn func(ctx context.Context, event Event) error
}

func (s SubscriberFunc) Name() string { return s.ID }

func (s SubscriberFunc) Deliver(ctx context.Context, event Event) error { return s.Fn(ctx, event) }

type subscription struct {
	sub   Subscriber
	queue chan Event
	done  chan struct{}
}

// Broker is the in-process Publisher
type Broker struct {
	logger       *logrus.Logger
	bufferSize   int
	drainTimeout time.Duration

	mu     sync.RWMutex
	subs   map[string]*subscription
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBroker creates a broker with the given per-subscriber queue length
func NewBroker(logger *logrus.Logger, bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		logger:       logger,
		bufferSize:   bufferSize,
		drainTimeout: DefaultDrainTimeout,
		subs:         make(map[string]*subscription),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetDrainTimeout changes how long Close lets subscribers drain. It must be
// called before Close.
func (b *Broker) SetDrainTimeout(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drainTimeout = d
}

// Subscribe registers sub and returns a function that removes it. Names must
// be unique among live subscribers.
func (b *Broker) Subscribe(sub Subscriber) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}
	name := sub.Name()
	if _, exists := b.subs[name]; exists {
		return nil, fmt.Errorf("subscriber %q already registered", name)
	}

	s := &subscription{
		sub:   sub,
		queue: make(chan Event, b.bufferSize),
		done:  make(chan struct{}),
	}
	b.subs[name] = s
	b.wg.Add(1)
	go b.deliver(s)

	b.logger.WithField("subscriber", name).Debug("Event subscriber registered")
	return func() { b.unsubscribe(name, s) }, nil
}

func (b *Broker) unsubscribe(name string, s *subscription) {
	b.mu.Lock()
	current, ok := b.subs[name]
	if ok && current == s {
		delete(b.subs, name)
		close(s.queue)
	}
	b.mu.Unlock()
	<-s.done
}

// Publish queues event for every subscriber, dropping it for any whose queue
// is full
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	metrics.RecordEventPublished(string(event.Type))
	for name, s := range b.subs {
		select {
		case s.queue <- event:
		default:
			metrics.RecordEventDropped(name)
			b.logger.WithFields(logrus.Fields{
				"subscriber": name,
				"event_type": event.Type,
			}).Warn("Subscriber queue full, dropping event")
		}
	}
}

func (b *Broker) deliver(s *subscription) {
	defer b.wg.Done()
	defer close(s.done)

	for event := range s.queue {
		b.deliverOne(s.sub, event)
	}
}

func (b *Broker) deliverOne(sub Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(logrus.Fields{
				"subscriber": sub.Name(),
				"event_type": event.Type,
				"panic":      r,
			}).Error("Event subscriber panicked")
		}
	}()

	if err := sub.Deliver(b.ctx, event); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"subscriber": sub.Name(),
			"event_type": event.Type,
		}).Warn("Event delivery failed")
	}
}

// Subscribers returns the number of live subscribers
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close stops accepting events, drains queued ones and waits for every
// subscriber goroutine to exit. Deliveries still running after the drain
// timeout see their context cancelled and the rest of the queue is
// delivered with that cancelled context.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for name, s := range b.subs {
		delete(b.subs, name)
		close(s.queue)
	}
	timeout := b.drainTimeout
	b.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(drained)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		b.logger.WithField("timeout", timeout).Warn("Event subscribers did not drain in time, cancelling deliveries")
		b.cancel()
		<-drained
	}
	b.cancel()
}

// Recorder is a synchronous Publisher that keeps every event in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of type t
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

var (
	_ Publisher = (*Broker)(nil)
	_ Publisher = (*Recorder)(nil)
)
