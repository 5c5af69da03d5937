package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callmonitor/pkg/events"
)

// Publisher is the broker side of the forwarder
type Publisher interface {
	Publish(ctx context.Context, kind string, body []byte) error
	IsConnected() bool
}

// Envelope is the message body written to the broker
type Envelope struct {
	Type        events.Type `json:"type"`
	Data        interface{} `json:"data"`
	PublishedAt time.Time   `json:"published_at"`
}

// EventForwarder relays engine events to a message broker. It is registered
// with the event broker like any other observer, so broker outages only
// cost this subscriber its own queue.
type EventForwarder struct {
	publisher Publisher
	// types limits forwarding when non-empty
	types map[events.Type]bool
	now   func() time.Time
}

// NewEventForwarder forwards the listed event types, or all of them when
// none are given
func NewEventForwarder(publisher Publisher, types ...events.Type) *EventForwarder {
	f := &EventForwarder{publisher: publisher, now: time.Now}
	if len(types) > 0 {
		f.types = make(map[events.Type]bool, len(types))
		for _, t := range types {
			f.types[t] = true
		}
	}
	return f
}

// Name identifies the forwarder to the event broker
func (f *EventForwarder) Name() string {
	return "amqp"
}

// Deliver encodes and publishes one event
func (f *EventForwarder) Deliver(ctx context.Context, event events.Event) error {
	if f.types != nil && !f.types[event.Type] {
		return nil
	}
	if !f.publisher.IsConnected() {
		return fmt.Errorf("dropping %s: AMQP publisher not connected", event.Type)
	}

	body, err := json.Marshal(Envelope{Type: event.Type, Data: event.Data, PublishedAt: f.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	return f.publisher.Publish(ctx, string(event.Type), body)
}

var _ events.Subscriber = (*EventForwarder)(nil)
