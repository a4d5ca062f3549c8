package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifier/pkg/notification"
)

// redeliverDelay spaces out redelivery attempts for a failing handler so a
// store outage does not spin the consumer loop.
const redeliverDelay = 25 * time.Millisecond

// MemoryBus is an in-process Bus for tests and local development. Every
// topic keeps an append-only log; consumer groups track their own offset
// into it, so a group subscribed after events were published still receives
// them. Delivery within a topic follows publish order, which satisfies the
// per-key ordering contract.
//
// All methods are safe for concurrent use.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string]*memoryTopic
	logger *slog.Logger
	closed bool
}

type memoryTopic struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries []memoryEntry
	offsets map[string]int
}

type memoryEntry struct {
	key   string
	event notification.Event
}

// MemoryBusOption configures a MemoryBus.
type MemoryBusOption func(*MemoryBus)

// WithMemoryBusLogger sets the logger used for handler failures.
func WithMemoryBusLogger(logger *slog.Logger) MemoryBusOption {
	return func(b *MemoryBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewMemoryBus creates a new in-memory bus.
func NewMemoryBus(opts ...MemoryBusOption) *MemoryBus {
	b := &MemoryBus{
		topics: make(map[string]*memoryTopic),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBus) topic(name string) *memoryTopic {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[name]
	if !ok {
		t = &memoryTopic{offsets: make(map[string]int)}
		t.cond = sync.NewCond(&t.mu)
		b.topics[name] = t
	}
	return t
}

// Publish appends the event to the topic log and wakes waiting consumers.
func (b *MemoryBus) Publish(ctx context.Context, topic, key string, event notification.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.mu.Unlock()

	t := b.topic(topic)
	t.mu.Lock()
	t.entries = append(t.entries, memoryEntry{key: key, event: event})
	t.mu.Unlock()
	t.cond.Broadcast()

	return nil
}

// Subscribe consumes the topic one event at a time until ctx is cancelled.
// The group offset advances only after the handler returns nil; a handler
// error is logged and the same event is delivered again after a short
// delay. Handlers record terminal outcomes themselves and return nil for
// them, so a non-nil error always means a transient failure worth retrying.
func (b *MemoryBus) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	t := b.topic(topic)

	// Wake the offset wait loop when the subscription context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		t.cond.Broadcast()
	}()

	for {
		t.mu.Lock()
		for t.offsets[group] >= len(t.entries) && ctx.Err() == nil {
			t.cond.Wait()
		}
		if ctx.Err() != nil {
			t.mu.Unlock()
			return ctx.Err()
		}
		entry := t.entries[t.offsets[group]]
		t.mu.Unlock()

		if err := h(ctx, entry.event); err != nil {
			b.logger.LogAttrs(ctx, slog.LevelError, "Event handler failed, redelivering",
				slog.String("topic", topic),
				slog.String("group", group),
				slog.String("key", entry.key),
				slog.String("request_id", entry.event.RequestID.String()),
				slog.Any("error", err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(redeliverDelay):
			}
			continue
		}

		t.mu.Lock()
		t.offsets[group]++
		t.mu.Unlock()
	}
}

// Close marks the bus closed; subsequent publishes fail with ErrBusClosed
// and blocked subscribers return once their context is cancelled.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	topics := make([]*memoryTopic, 0, len(b.topics))
	for _, t := range b.topics {
		topics = append(topics, t)
	}
	b.mu.Unlock()

	for _, t := range topics {
		t.cond.Broadcast()
	}
	return nil
}

// Len reports how many events were published to the topic. Intended for
// assertions in tests.
func (b *MemoryBus) Len(topic string) int {
	t := b.topic(topic)
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Events returns a copy of all events published to the topic, in publish
// order. Intended for assertions in tests.
func (b *MemoryBus) Events(topic string) []notification.Event {
	t := b.topic(topic)
	t.mu.Lock()
	defer t.mu.Unlock()

	events := make([]notification.Event, len(t.entries))
	for i, e := range t.entries {
		events[i] = e.event
	}
	return events
}
