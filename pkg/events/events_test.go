package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	name string
	mu   sync.Mutex
	got  []Event
}

func (c *collector) Name() string { return c.name }

func (c *collector) Deliver(_ context.Context, e Event) error {
	c.mu.Lock()
	c.got = append(c.got, e)
	c.mu.Unlock()
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestBrokerDeliversInOrder(t *testing.T) {
	b := NewBroker(quietLogger(), 16)
	c := &collector{name: "c"}
	_, err := b.Subscribe(c)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		b.Publish(Event{Type: CallUpdate, Data: i})
	}
	b.Close()

	require.Len(t, c.got, 5)
	for i, e := range c.got {
		assert.Equal(t, i, e.Data)
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := NewBroker(quietLogger(), 2)
	release := make(chan struct{})
	slow := SubscriberFunc{ID: "slow", Fn: func(ctx context.Context, _ Event) error {
		<-release
		return nil
	}}
	fast := &collector{name: "fast"}

	_, err := b.Subscribe(slow)
	require.NoError(t, err)
	_, err = b.Subscribe(fast)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: MetricsUpdate, Data: i})
			time.Sleep(time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Eventually(t, func() bool { return fast.count() == 10 }, time.Second, 5*time.Millisecond)
	close(release)
	b.Close()
}

func TestFailingSubscribersAreContained(t *testing.T) {
	b := NewBroker(quietLogger(), 8)
	_, err := b.Subscribe(SubscriberFunc{ID: "panics", Fn: func(context.Context, Event) error {
		panic("boom")
	}})
	require.NoError(t, err)
	_, err = b.Subscribe(SubscriberFunc{ID: "errors", Fn: func(context.Context, Event) error {
		return fmt.Errorf("unavailable")
	}})
	require.NoError(t, err)
	ok := &collector{name: "ok"}
	_, err = b.Subscribe(ok)
	require.NoError(t, err)

	b.Publish(Event{Type: AlertNew})
	b.Publish(Event{Type: AlertNew})
	b.Close()

	assert.Equal(t, 2, ok.count())
}

func TestUnsubscribe(t *testing.T) {
	b := NewBroker(quietLogger(), 8)
	defer b.Close()

	c := &collector{name: "c"}
	unsubscribe, err := b.Subscribe(c)
	require.NoError(t, err)

	_, err = b.Subscribe(&collector{name: "c"})
	assert.Error(t, err)

	b.Publish(Event{Type: CallStarted})
	unsubscribe()
	assert.Equal(t, 0, b.Subscribers())
	assert.Equal(t, 1, c.count())

	b.Publish(Event{Type: CallStarted})
	assert.Equal(t, 1, c.count())

	_, err = b.Subscribe(&collector{name: "c"})
	assert.NoError(t, err)
}

func TestPublishAfterClose(t *testing.T) {
	b := NewBroker(quietLogger(), 8)
	b.Close()
	b.Close()
	b.Publish(Event{Type: CallEnded})

	_, err := b.Subscribe(&collector{name: "late"})
	assert.Error(t, err)
}

func TestCloseCancelsStuckDeliveries(t *testing.T) {
	b := NewBroker(quietLogger(), 8)
	b.SetDrainTimeout(50 * time.Millisecond)

	var mu sync.Mutex
	var cancelled int
	stuck := SubscriberFunc{ID: "stuck", Fn: func(ctx context.Context, _ Event) error {
		<-ctx.Done()
		mu.Lock()
		cancelled++
		mu.Unlock()
		return ctx.Err()
	}}
	_, err := b.Subscribe(stuck)
	require.NoError(t, err)
	fast := &collector{name: "fast"}
	_, err = b.Subscribe(fast)
	require.NoError(t, err)

	b.Publish(Event{Type: CallUpdate})
	b.Publish(Event{Type: CallUpdate})

	closed := make(chan struct{})
	go func() {
		b.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the drain timeout")
	}

	mu.Lock()
	assert.Equal(t, 2, cancelled)
	mu.Unlock()
	assert.Equal(t, 2, fast.count())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Publish(Event{Type: CallStarted})
	r.Publish(Event{Type: CallUpdate})
	r.Publish(Event{Type: CallUpdate})

	assert.Len(t, r.Events(), 3)
	assert.Len(t, r.OfType(CallUpdate), 2)
	r.Reset()
	assert.Empty(t, r.Events())
}
