package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifier/pkg/bus"
	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/store"
)

// ConsumerGroup is the consumer group dispatchers join on the intake topic.
// All dispatcher instances share it, so the bus balances partitions across
// them while each event is handled by exactly one instance at a time.
const ConsumerGroup = "dispatcher"

// Dispatcher routes intake events to channel topics and tracks each attempt
// in a delivery log.
type Dispatcher struct {
	store     store.Store
	publisher bus.Publisher
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the Dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Dispatcher.
func New(st store.Store, publisher bus.Publisher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     st,
		publisher: publisher,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one routing event. It is safe under at-least-once
// redelivery and never returns an error for conditions that retrying the
// same event cannot fix; those are recorded and the event is dropped so one
// bad event cannot halt the partition.
func (d *Dispatcher) Handle(ctx context.Context, event notification.Event) error {
	if _, err := d.store.GetRequest(ctx, event.RequestID); err != nil {
		if errors.Is(err, notification.ErrRequestNotFound) {
			// Consistency fault: the event references a request that was
			// never durably committed. Drop it; crashing the consumer or
			// retrying cannot recover the missing record.
			d.logger.LogAttrs(ctx, slog.LevelError, "Dropping event for unknown request",
				slog.String("request_id", event.RequestID.String()),
				slog.String("recipient_id", event.RecipientID),
			)
			return nil
		}
		return fmt.Errorf("look up request %s: %w", event.RequestID, err)
	}

	log := &notification.DeliveryLog{
		ID:            uuid.New(),
		RequestID:     event.RequestID,
		RecipientID:   event.RecipientID,
		Channel:       event.Channel,
		TargetAddress: event.TargetAddress,
		Status:        notification.StatusPending,
	}
	if err := d.store.CreateDeliveryLog(ctx, log); err != nil {
		if errors.Is(err, notification.ErrDeliveryLogExists) {
			// Redelivered event. The existing log now describes the attempt;
			// only resume routing if it is still waiting to be routed.
			if log.Status != notification.StatusPending {
				d.logger.LogAttrs(ctx, slog.LevelDebug, "Delivery already in progress, skipping redelivered event",
					slog.String("request_id", event.RequestID.String()),
					slog.String("channel", string(event.Channel)),
					slog.String("status", string(log.Status)),
				)
				return nil
			}
		} else {
			return fmt.Errorf("create delivery log for request %s: %w", event.RequestID, err)
		}
	}

	topic, ok := bus.TopicForChannel(event.Channel)
	if !ok {
		// Unreachable for events that passed ingestion validation; recorded
		// as a failed attempt rather than crashing the consumer.
		d.logger.LogAttrs(ctx, slog.LevelError, "No topic mapped for channel",
			slog.String("request_id", event.RequestID.String()),
			slog.String("channel", string(event.Channel)),
		)
		return d.markFailed(ctx, log.ID, fmt.Sprintf("unsupported channel: %s", event.Channel))
	}

	if err := d.publisher.Publish(ctx, topic, event.RecipientID, event); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "Failed to route event to channel topic",
			slog.String("request_id", event.RequestID.String()),
			slog.String("topic", topic),
			slog.Any("error", err),
		)
		return d.markFailed(ctx, log.ID, err.Error())
	}

	if err := d.store.UpdateDeliveryStatus(ctx, log.ID, notification.StatusQueued, ""); err != nil {
		if errors.Is(err, notification.ErrInvalidTransition) {
			// A concurrent consumer already advanced this log past queued.
			return nil
		}
		return fmt.Errorf("mark delivery log %s queued: %w", log.ID, err)
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "Routed notification to channel topic",
		slog.String("request_id", event.RequestID.String()),
		slog.String("recipient_id", event.RecipientID),
		slog.String("topic", topic),
	)

	return nil
}

func (d *Dispatcher) markFailed(ctx context.Context, logID uuid.UUID, message string) error {
	if err := d.store.UpdateDeliveryStatus(ctx, logID, notification.StatusFailed, message); err != nil {
		if errors.Is(err, notification.ErrInvalidTransition) {
			return nil
		}
		return fmt.Errorf("mark delivery log %s failed: %w", logID, err)
	}
	return nil
}

// Run returns a function suitable for errgroup that consumes the intake
// topic until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, subscriber bus.Subscriber) func() error {
	return func() error {
		return subscriber.Subscribe(ctx, bus.TopicIntake, ConsumerGroup, d.Handle)
	}
}
