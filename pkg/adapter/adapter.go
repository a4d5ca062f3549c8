package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifier/pkg/bus"
	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/store"
)

// Adapter invokes one channel's delivery transport. Implementations only
// talk to the transport; delivery log bookkeeping belongs to the Runner.
type Adapter interface {
	// Channel identifies the channel this adapter serves.
	Channel() notification.Channel

	// Deliver hands the event's content to the channel transport. An error
	// means the transport did not accept the message.
	Deliver(ctx context.Context, event notification.Event) error
}

// Runner consumes a channel topic and finalizes delivery logs around the
// adapter's transport calls.
type Runner struct {
	adapter Adapter
	store   store.Store
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger for the Runner.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner for the given adapter.
func NewRunner(a Adapter, st store.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		adapter: a,
		store:   st,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConsumerGroup returns the consumer group this runner joins on its channel
// topic.
func (r *Runner) ConsumerGroup() string {
	return string(r.adapter.Channel()) + "-worker"
}

// Handle processes one channel event. All outcomes are terminal for the
// event: transport failures are recorded in the delivery log, bookkeeping
// failures are logged, and nil is returned so the consumer loop moves on.
func (r *Runner) Handle(ctx context.Context, event notification.Event) error {
	channel := r.adapter.Channel()

	log, err := r.store.GetDeliveryLog(ctx, event.RequestID, channel)
	if err != nil {
		if errors.Is(err, notification.ErrDeliveryLogNotFound) {
			// The dispatcher creates the log before routing, so a missing
			// record is a consistency fault. The adapter lacks the context
			// to create one; drop the event.
			r.logger.LogAttrs(ctx, slog.LevelError, "No delivery log for routed event",
				slog.String("request_id", event.RequestID.String()),
				slog.String("channel", string(channel)),
			)
			return nil
		}
		return fmt.Errorf("look up delivery log for request %s: %w", event.RequestID, err)
	}

	if log.Status.Terminal() {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "Delivery already finalized, skipping redelivered event",
			slog.String("request_id", event.RequestID.String()),
			slog.String("status", string(log.Status)),
		)
		return nil
	}

	// Mark the transport invocation before making it, so a crash mid-call
	// leaves an honest trail. An invalid transition here means a redelivered
	// event found the log already dispatched; delivery is attempted anyway.
	if err := r.store.UpdateDeliveryStatus(ctx, log.ID, notification.StatusDispatched, ""); err != nil &&
		!errors.Is(err, notification.ErrInvalidTransition) {
		r.logger.LogAttrs(ctx, slog.LevelError, "Failed to mark delivery dispatched",
			slog.String("request_id", event.RequestID.String()),
			slog.Any("error", err),
		)
	}

	deliverErr := r.deliver(ctx, event)

	status := notification.StatusDelivered
	errorMessage := ""
	if deliverErr != nil {
		status = notification.StatusFailed
		errorMessage = deliverErr.Error()
		r.logger.LogAttrs(ctx, slog.LevelError, "Channel delivery failed",
			slog.String("request_id", event.RequestID.String()),
			slog.String("channel", string(channel)),
			slog.Any("error", deliverErr),
		)
	}

	if err := r.store.UpdateDeliveryStatus(ctx, log.ID, status, errorMessage); err != nil {
		if errors.Is(err, notification.ErrInvalidTransition) {
			return nil
		}
		r.logger.LogAttrs(ctx, slog.LevelError, "Failed to finalize delivery log",
			slog.String("request_id", event.RequestID.String()),
			slog.String("status", string(status)),
			slog.Any("error", err),
		)
		return nil
	}

	if deliverErr == nil {
		r.logger.LogAttrs(ctx, slog.LevelInfo, "Notification delivered",
			slog.String("request_id", event.RequestID.String()),
			slog.String("recipient_id", event.RecipientID),
			slog.String("channel", string(channel)),
		)
	}

	return nil
}

// deliver invokes the adapter with panic recovery, converting a panicking
// transport into a recorded delivery failure.
func (r *Runner) deliver(ctx context.Context, event notification.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in %s transport: %v", r.adapter.Channel(), rec)
		}
	}()
	return r.adapter.Deliver(ctx, event)
}

// Run returns a function suitable for errgroup that consumes the adapter's
// channel topic until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, subscriber bus.Subscriber) func() error {
	return func() error {
		topic, ok := bus.TopicForChannel(r.adapter.Channel())
		if !ok {
			return fmt.Errorf("%w: %s", notification.ErrUnknownChannel, r.adapter.Channel())
		}
		return subscriber.Subscribe(ctx, topic, r.ConsumerGroup(), r.Handle)
	}
}
