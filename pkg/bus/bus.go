package bus

import (
	"context"

	"github.com/dmitrymomot/notifier/pkg/notification"
)

// Handler processes one consumed event. A non-nil error signals a transient
// failure: the subscriber logs it and leaves the event for redelivery.
// Terminal outcomes are the handler's responsibility; it records them (in
// the delivery log) and returns nil so the consumer moves on.
type Handler func(ctx context.Context, event notification.Event) error

// Publisher appends events to a topic.
type Publisher interface {
	// Publish sends the event to the topic under the given partition key.
	// Events with the same key are delivered to consumers in publish order.
	Publish(ctx context.Context, topic, key string, event notification.Event) error
}

// Subscriber consumes events from a topic within a consumer group.
type Subscriber interface {
	// Subscribe consumes the topic one event at a time, invoking h for each,
	// and blocks until ctx is cancelled. Delivery is at-least-once; handlers
	// must tolerate redelivery.
	Subscribe(ctx context.Context, topic, group string, h Handler) error
}

// Bus combines both sides of the transport.
type Bus interface {
	Publisher
	Subscriber
}
